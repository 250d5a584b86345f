// Package document reads submission files from disk.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/dusk-indust/qppupload/internal/submissions"
)

// ErrUnknownFormat is returned when no format was given and the file
// extension does not identify one.
var ErrUnknownFormat = errors.New("document: cannot infer format from file extension")

// FormatFromPath maps .json and .jsonc to JSON and .xml to XML.
func FormatFromPath(path string) (submissions.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return submissions.FormatJSON, nil
	case ".xml":
		return submissions.FormatXML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Load reads the document at path. An empty format is inferred from the
// extension. JSON documents may carry comments and trailing commas; they
// are stripped before the document is returned. XML is returned as read.
//
// Load does not reject formats other than JSON and XML: the uploader owns
// that check and reports it with the service's wording.
func Load(path string, format submissions.Format) ([]byte, submissions.Format, error) {
	if format == "" {
		f, err := FormatFromPath(path)
		if err != nil {
			return nil, "", err
		}
		format = f
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("document: read %s: %w", path, err)
	}
	if format == submissions.FormatJSON {
		data = bytes.TrimSpace(jsonc.ToJSON(data))
	}
	return data, format, nil
}
