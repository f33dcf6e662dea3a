package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/quailyquaily/apacheguard/guardian"
	"github.com/spf13/cobra"
)

func (a *app) newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			st, err := a.ledger()
			if err != nil {
				return err
			}
			if st == nil {
				return a.historyFromDir(limit)
			}
			entries, err := st.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.stdout, a.style.Dim("no backups recorded"))
				return nil
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tSIZE\tSHA256\tPATH")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
					e.ID, e.CreatedAt.Local().Format(time.RFC3339), e.SizeBytes, shortHash(e.SHA256), e.BackupPath)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "maximum number of entries (0 for all)")
	return cmd
}

// historyFromDir lists backup files on disk when the ledger is disabled.
func (a *app) historyFromDir(limit int) error {
	g, err := a.guardian()
	if err != nil {
		return err
	}
	paths, err := g.ListBackups()
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintln(a.stdout, a.style.Dim("no backups found"))
		return nil
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tPATH")
	for i, n := len(paths)-1, 0; i >= 0 && (limit <= 0 || n < limit); i, n = i-1, n+1 {
		created := "-"
		if t, ok := guardian.BackupTime(filepath.Base(paths[i]), time.Local); ok {
			created = t.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\n", created, paths[i])
	}
	return tw.Flush()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
