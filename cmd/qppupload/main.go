package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dusk-indust/qppupload/internal/config"
	"github.com/dusk-indust/qppupload/internal/logging"
	"github.com/dusk-indust/qppupload/internal/submissions"
	"github.com/dusk-indust/qppupload/internal/uploader"
)

// version is set by goreleaser at build time.
var version = "dev"

const usage = `qppupload uploads QPP submission documents to the Submissions service.

Usage:
  qppupload upload --file PATH [--format JSON|XML] [flags]
  qppupload serve [--listen ADDR] [flags]
  qppupload mcp [--http ADDR] [flags]
  qppupload --version

Settings are read from qppupload.yml in --config-dir and from QPP_*
environment variables; flags override both.
`

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	ConfigDir string
	BaseURL   string
	Token     string
	OrgID     string
	Verbose   bool
}

func (c *commonFlags) add(fs *pflag.FlagSet) {
	fs.StringVar(&c.ConfigDir, "config-dir", ".", "directory containing qppupload.yml")
	fs.StringVar(&c.BaseURL, "base-url", "", "Submissions service base URL")
	fs.StringVar(&c.Token, "token", "", "bearer token for the Submissions service")
	fs.StringVar(&c.OrgID, "org-id", "", "organization to act for ('individual' for the security official role)")
	fs.BoolVarP(&c.Verbose, "verbose", "v", false, "debug logging and progress output")
}

// load reads the config and applies flag overrides, then sets up logging.
func (c *commonFlags) load(stderr io.Writer) (*config.Config, error) {
	cfg, err := config.Load(c.ConfigDir)
	if err != nil {
		return nil, err
	}
	if c.BaseURL != "" {
		cfg.BaseURL = c.BaseURL
	}
	if c.Token != "" {
		cfg.Token = c.Token
	}
	if c.OrgID != "" {
		cfg.OrganizationID = c.OrgID
	}
	if c.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.Setup(stderr, cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

// newService wires the uploader to the Submissions service described by cfg.
func newService(cfg *config.Config) *uploader.Service {
	clients := submissions.NewHTTPClientFactory(cfg.BaseURL,
		submissions.WithTimeout(cfg.Timeout),
		submissions.WithHeader("User-Agent", "qppupload/"+version),
	)
	return uploader.NewService(clients, cfg.Token, cfg.OrganizationID,
		uploader.WithMaxConcurrentWrites(cfg.MaxConcurrentWrites),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, errUploadFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("no command given")
	}

	var err error
	switch args[0] {
	case "--version", "version":
		fmt.Fprintln(stdout, version)
		return nil
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	case "upload":
		err = runUpload(ctx, args[1:], stdout, stderr)
	case "serve":
		err = runServe(ctx, args[1:], stderr)
	case "mcp":
		err = runMCP(ctx, args[1:], stderr)
	default:
		fmt.Fprint(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	return err
}
