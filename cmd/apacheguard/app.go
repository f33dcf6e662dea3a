package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/quailyquaily/apacheguard/eventlog"
	"github.com/quailyquaily/apacheguard/guardian"
	"github.com/quailyquaily/apacheguard/internal/clifmt"
	"github.com/quailyquaily/apacheguard/internal/pathutil"
	"github.com/quailyquaily/apacheguard/ledger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the per-invocation state shared by all subcommands: one viper
// instance, the logger built from it, and whatever needs closing on exit.
type app struct {
	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer
	style  clifmt.Styler

	log     *slog.Logger
	events  *eventlog.Logger
	closers []io.Closer
}

func newApp(stdout, stderr io.Writer) *app {
	v := viper.New()
	setDefaults(v)
	return &app{
		v:      v,
		stdout: stdout,
		stderr: stderr,
		style:  clifmt.For(stdout),
		log:    eventlog.Discard(),
		events: eventlog.New(nil),
	}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "apacheguard",
		Short:         "Validate, back up and audit an Apache configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			return a.setupLogging()
		},
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	pf := cmd.PersistentFlags()
	pf.String("config", "", "config file (default $HOME/.apacheguard/config.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	_ = a.v.BindPFlag("config", pf.Lookup("config"))
	_ = a.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", pf.Lookup("log-format"))

	cmd.AddCommand(
		a.newBackupCmd(),
		a.newDirectiveCmd(),
		a.newScanCmd(),
		a.newHistoryCmd(),
		a.newVerifyCmd(),
		a.newWatchCmd(),
		a.newProfileCmd(),
		newVersionCmd(a.stdout),
	)
	return cmd
}

func (a *app) loadConfig() error {
	if path := strings.TrimSpace(a.v.GetString("config")); path != "" {
		a.v.SetConfigFile(pathutil.ExpandHomePath(path))
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}
	a.v.SetConfigName("config")
	a.v.SetConfigType("yaml")
	a.v.AddConfigPath(pathutil.ExpandHomePath("~/.apacheguard"))
	a.v.AddConfigPath("/etc/apacheguard")
	if err := a.v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if errors.As(err, &nf) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func (a *app) setupLogging() error {
	lg, closer, err := loggerFromViper(a.v, a.stderr)
	if err != nil {
		return err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	a.log = lg

	ev, closer, err := eventsFromViper(a.v, lg)
	if err != nil {
		return err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	a.events = ev
	return nil
}

func (a *app) guardian() (*guardian.Guardian, error) {
	p, policy, err := profileFromViper(a.v)
	if err != nil {
		return nil, err
	}
	return guardian.New(p,
		guardian.WithBackupDirPolicy(policy),
		guardian.WithLogger(a.log.With("component", "guardian")),
	)
}

// ledger returns nil when the ledger is disabled.
func (a *app) ledger() (ledger.Store, error) {
	if !a.v.GetBool("ledger.enabled") {
		return nil, nil
	}
	st, err := ledger.NewSQLiteStore(a.v.GetString("ledger.dsn"), ledger.SQLiteOptions{
		BusyTimeoutMs: a.v.GetInt("ledger.busy_timeout_ms"),
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	a.closers = append(a.closers, st)
	return st, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	a.closers = nil
}
