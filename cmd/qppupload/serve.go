package main

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"github.com/dusk-indust/qppupload/internal/httpapi"
)

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	var flags commonFlags
	var listen string
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	flags.add(fs)
	fs.StringVar(&listen, "listen", "", "address to listen on (default: config listenAddr)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := flags.load(stderr)
	if err != nil {
		return err
	}
	if listen == "" {
		listen = cfg.ListenAddr
	}

	return httpapi.NewServer(newService(cfg)).Start(ctx, listen)
}
