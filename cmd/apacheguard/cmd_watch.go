package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/quailyquaily/apacheguard/watch"
	"github.com/spf13/cobra"
)

func (a *app) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Back up the Apache config every time it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, err := a.guardian()
			if err != nil {
				return err
			}
			st, err := a.ledger()
			if err != nil {
				return err
			}
			w, err := watch.New(g, watch.Options{
				ConfigPath: g.Profile().ConfigPath,
				Debounce:   a.v.GetDuration("watch.debounce"),
				Logger:     a.log.With("component", "watch"),
				OnBackup: func(path string, err error) {
					if err != nil {
						a.events.Error(ctx, "backup_failed", map[string]any{"config_path": g.Profile().ConfigPath, "error": err})
						return
					}
					a.recordBackup(ctx, st, g.Profile().ConfigPath, path, "watch")
					fmt.Fprintf(a.stdout, "%s %s\n", a.style.Success("backup"), path)
				},
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "watching %s (ctrl-c to stop)\n", g.Profile().ConfigPath)
			return w.Run(ctx)
		},
	}
	return cmd
}
