package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.pilab.hu/storefront/config"
	"go.pilab.hu/storefront/identity"
	"go.pilab.hu/storefront/internal/app"
	"go.pilab.hu/storefront/log"
	"go.pilab.hu/storefront/tracing"
)

var (
	cfgFile string

	application     *app.App
	appLogger       log.Logger = log.Nop()
	shutdownTracing tracing.Shutdown
)

var rootCmd = &cobra.Command{
	Use:           config.AppName,
	Short:         "storefront is a command-line client for the storefront catalog API",
	Long:          `Log in with a password or with GitHub, keep the session token encrypted at rest, and manage the product catalog.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return err
		}

		appLogger = log.New(log.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, Out: cmd.ErrOrStderr()})

		shutdownTracing, err = tracing.Init(tracing.Options{Enabled: cfg.Trace.Enabled, Out: cmd.ErrOrStderr()})
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}

		application, err = app.New(cmd.Context(), cfg, appLogger, printOpener(cmd.ErrOrStderr()))
		if err != nil {
			appLogger.Error(cmd.Context(), "Failed to initialize storefront client", err)
			return err
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown(cmd.Context())
	},
}

func teardown(ctx context.Context) error {
	var err error
	if application != nil {
		err = application.Close()
		application = nil
	}
	if shutdownTracing != nil {
		if terr := shutdownTracing(ctx); terr != nil && err == nil {
			err = terr
		}
		shutdownTracing = nil
	}
	return err
}

// printOpener asks the user to open the consent page themselves; the CLI
// may run on a headless host.
func printOpener(w io.Writer) identity.Opener {
	return func(_ context.Context, authURL string) error {
		_, err := fmt.Fprintf(w, "Open the following URL in your browser to continue:\n\n  %s\n\n", authURL)
		return err
	}
}

// Execute runs the command tree until it completes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		// PersistentPostRunE does not run when the command fails.
		_ = teardown(ctx)
		appLogger.Error(ctx, "Command failed", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		fmt.Sprintf("config file (default is $HOME/.%s/config.yaml)", config.AppName))
}
