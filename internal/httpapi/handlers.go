package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/dusk-indust/qppupload/internal/logging"
	"github.com/dusk-indust/qppupload/internal/submissions"
	"github.com/dusk-indust/qppupload/internal/uploader"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleUpload runs one upload. The response body is always the upload
// report. 200 covers full and partial success, 422 a rejected document, and
// 502 an upload that failed without writing anything.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	call, ok := readCall(w, r)
	if !ok {
		return
	}

	res, err := s.service.Upload(r.Context(), call)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}
	logging.FromContext(r.Context()).Info("upload handled", "upload_id", res.UploadID, "errors", len(res.Errors), "written", len(res.MeasurementSets))

	rep := res.Report()
	status := http.StatusOK
	switch {
	case res.OnlyValidationErrors():
		status = http.StatusUnprocessableEntity
	case rep.Status == uploader.StatusFailed:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, rep)
}

// handleValidate returns the canonical submission or the error. Status codes
// follow handleUpload: a rejection by the service itself is a 502 whose body
// carries the service's details.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	call, ok := readCall(w, r)
	if !ok {
		return
	}

	sub, err := s.service.Validate(r.Context(), call)
	if err != nil {
		var verr *submissions.ValidationError
		status := http.StatusBadGateway
		switch {
		case errors.As(err, &verr):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, uploader.ErrUnidentifiedCaller):
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, map[string]any{"error": uploader.DescribeError(err)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": sub})
}

// readCall builds an uploader.Call from the request body and headers. The
// format comes from ?format= or, failing that, the Content-Type.
func readCall(w http.ResponseWriter, r *http.Request) (uploader.Call, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxDocumentSize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, http.StatusRequestEntityTooLarge, "document too large or unreadable")
		return uploader.Call{}, false
	}

	return uploader.Call{
		Document:       body,
		Format:         requestFormat(r),
		Token:          r.Header.Get("Authorization"),
		OrganizationID: r.Header.Get(uploader.HeaderOrganizationID),
	}, true
}

func requestFormat(r *http.Request) submissions.Format {
	if f := r.URL.Query().Get("format"); f != "" {
		return submissions.Format(strings.ToUpper(f))
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/xml", "text/xml":
		return submissions.FormatXML
	case "application/json", "":
		return submissions.FormatJSON
	}
	return submissions.Format(mediaType)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Warn("request rejected", "status", status, "error", message)
	writeJSON(w, status, map[string]any{"error": map[string]string{"message": message}})
}
