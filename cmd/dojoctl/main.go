// Package main provides dojoctl, a command line client for the dojo event
// backend. It drives the same workflow controllers as the console server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Shivanand-hulikatti/dojo-admin/internal/backend"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/config"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/session"
	"github.com/Shivanand-hulikatti/dojo-admin/internal/workflow"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	backendURL string
	token      string

	out  io.Writer
	note *console
	sess session.Session
	api  *backend.Client
	opts []workflow.Option
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{out: stdout, note: &console{w: stderr}}

	cmd := &cobra.Command{
		Use:           "dojoctl",
		Short:         "Manage dojo events and registrations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&a.backendURL, "backend", "", "Backend base URL (default from BACKEND_URL)")
	cmd.PersistentFlags().StringVar(&a.token, "token", "", "Access token (default from DOJO_TOKEN)")

	cmd.AddCommand(eventsCmd(a), participantsCmd(a))
	return cmd
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.backendURL == "" {
		a.backendURL = cfg.BackendURL
	}
	if a.token == "" {
		a.token = os.Getenv("DOJO_TOKEN")
	}

	a.sess, err = session.ParseUnverified(a.token)
	if err != nil {
		return fmt.Errorf("access token: %w", err)
	}

	client := backend.New(a.backendURL,
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithRateLimit(cfg.BackendRPS, cfg.BackendBurst),
	)
	a.api = client.As(a.sess)
	a.opts = []workflow.Option{workflow.WithLogger(cfg.Logger())}
	return nil
}
