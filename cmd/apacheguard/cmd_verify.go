package main

import (
	"fmt"

	"github.com/quailyquaily/apacheguard/ledger"
	"github.com/spf13/cobra"
)

func (a *app) newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Re-hash recorded backups and report changed or missing files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			limit, _ := cmd.Flags().GetInt("limit")
			st, err := a.ledger()
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("verify needs the ledger (ledger.enabled is false)")
			}
			entries, err := st.List(ctx, limit)
			if err != nil {
				return err
			}

			bad := 0
			for _, e := range entries {
				res, err := ledger.Verify(e)
				if err != nil {
					return fmt.Errorf("verify %s: %w", e.BackupPath, err)
				}
				status := a.style.Success(string(res.Status))
				if res.Status != ledger.VerifyOK {
					bad++
					status = a.style.Error(string(res.Status))
					a.events.Warn(ctx, "backup_verify_failed", map[string]any{
						"ledger_id":   e.ID,
						"backup_path": e.BackupPath,
						"status":      string(res.Status),
					})
				}
				fmt.Fprintf(a.stdout, "%s\t%s\n", status, e.BackupPath)
			}
			fmt.Fprintf(a.stdout, "%d checked, %d failed\n", len(entries), bad)
			if bad > 0 {
				return fmt.Errorf("%d backup(s) failed verification", bad)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 0, "maximum number of entries to check (0 for all)")
	return cmd
}
