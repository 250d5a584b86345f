package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/dusk-indust/qppupload/internal/document"
	"github.com/dusk-indust/qppupload/internal/submissions"
	"github.com/dusk-indust/qppupload/internal/uploader"
)

// errUploadFailed is returned after the report has been printed, so main
// only sets the exit code.
var errUploadFailed = errors.New("upload failed")

type uploadFlags struct {
	commonFlags
	File   string
	Format string
	JSON   bool
}

func runUpload(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var flags uploadFlags
	fs := pflag.NewFlagSet("upload", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	flags.add(fs)
	fs.StringVarP(&flags.File, "file", "f", "", "submission document to upload")
	fs.StringVar(&flags.Format, "format", "", "document format, JSON or XML (default: from the file extension)")
	fs.BoolVar(&flags.JSON, "json", false, "print the upload report as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if flags.File == "" && fs.NArg() == 1 {
		flags.File = fs.Arg(0)
	}
	if flags.File == "" {
		return errors.New("upload: --file is required")
	}

	cfg, err := flags.load(stderr)
	if err != nil {
		return err
	}

	doc, format, err := document.Load(flags.File, submissions.Format(strings.ToUpper(flags.Format)))
	if err != nil {
		return err
	}

	var extra []uploader.Option
	var done chan struct{}
	if flags.Verbose {
		reporter := uploader.NewProgressReporter()
		done = make(chan struct{})
		go func() {
			defer close(done)
			for ev := range reporter.Subscribe() {
				fmt.Fprintln(stderr, uploader.FormatProgress(ev))
			}
		}()
		defer func() {
			reporter.Close()
			<-done
		}()
		extra = append(extra, uploader.WithProgress(reporter.Emit))
	}

	res, err := newService(cfg).Upload(ctx, uploader.Call{
		Document: doc,
		Format:   format,
	}, extra...)
	if err != nil {
		return err
	}

	if err := printReport(stdout, res.Report(), flags.JSON); err != nil {
		return err
	}
	if len(res.Errors) > 0 {
		return errUploadFailed
	}
	return nil
}

// printReport writes rep as indented JSON or as one line per write and
// per error.
func printReport(w io.Writer, rep uploader.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	fmt.Fprintf(w, "Upload %s: %s\n", rep.UploadID, rep.Status)
	for _, ms := range rep.MeasurementSets {
		fmt.Fprintf(w, "  wrote %s/%s measurement set %s (submission %s)\n",
			ms.Category, ms.SubmissionMethod, ms.ID, ms.SubmissionID)
	}
	for _, e := range rep.Errors {
		fmt.Fprintf(w, "  error: %s\n", e.Message)
		for _, d := range e.Details {
			fmt.Fprintf(w, "    %s: %s\n", d.Path, d.Message)
		}
	}
	return nil
}
