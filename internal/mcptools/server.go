package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewUploadMCPServer creates an MCP server with upload_submission and
// validate_submission registered.
func NewUploadMCPServer(svc *UploadService) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "qppupload",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "upload_submission",
		Description: "Upload a QPP submission document (JSON or XML). Validates it, finds the stored submission for the same taxpayer and year, then replaces matching measurement sets and creates the rest. Returns every error and every written measurement set.",
	}, svc.Upload)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_submission",
		Description: "Validate a QPP submission document without writing anything. Returns the canonical submission or the validation error with field details.",
	}, svc.Validate)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP on addr.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
