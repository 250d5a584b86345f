package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/dusk-indust/qppupload/internal/mcptools"
)

// runMCP serves the upload tools over stdio, or over streamable HTTP when
// --http is given. Logs go to stderr so stdio stays clean.
func runMCP(ctx context.Context, args []string, stderr io.Writer) error {
	var flags commonFlags
	var httpAddr string
	fs := pflag.NewFlagSet("mcp", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	flags.add(fs)
	fs.StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := flags.load(stderr)
	if err != nil {
		return err
	}

	server := mcptools.NewUploadMCPServer(mcptools.NewUploadService(newService(cfg)))
	if httpAddr != "" {
		slog.Info("mcp server listening", "addr", httpAddr)
		return mcptools.RunHTTP(ctx, server, httpAddr)
	}
	return mcptools.RunStdio(ctx, server)
}
