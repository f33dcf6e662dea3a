package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/quailyquaily/apacheguard/guardian"
	"github.com/quailyquaily/apacheguard/ledger"
	"github.com/spf13/cobra"
)

func (a *app) newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy the Apache config into the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			g, err := a.guardian()
			if err != nil {
				a.events.Error(ctx, "guardian_init_failed", map[string]any{"error": err})
				return err
			}
			skipLedger, _ := cmd.Flags().GetBool("no-ledger")

			var st ledger.Store
			if !skipLedger {
				if st, err = a.ledger(); err != nil {
					return err
				}
			}
			path, id, err := a.backupAndRecord(ctx, g, st)
			if err != nil {
				return err
			}
			if id != "" {
				fmt.Fprintf(a.stdout, "%s %s %s\n", a.style.Success("backup"), path, a.style.Dim("("+id+")"))
			} else {
				fmt.Fprintf(a.stdout, "%s %s\n", a.style.Success("backup"), path)
			}
			return nil
		},
	}
	cmd.Flags().Bool("no-ledger", false, "do not record the backup in the ledger")
	return cmd
}

// backupAndRecord takes one backup and, when st is non-nil, records it.
func (a *app) backupAndRecord(ctx context.Context, g *guardian.Guardian, st ledger.Store) (string, string, error) {
	cfgPath := g.Profile().ConfigPath
	path, err := g.Backup()
	if err != nil {
		a.events.Error(ctx, "backup_failed", map[string]any{"config_path": cfgPath, "error": err})
		return "", "", err
	}
	id := a.recordBackup(ctx, st, cfgPath, path, "manual")
	return path, id, nil
}

// recordBackup writes a ledger entry for a finished backup and emits
// backup_created. A ledger failure is reported but never fails the backup.
func (a *app) recordBackup(ctx context.Context, st ledger.Store, cfgPath, path, trigger string) string {
	data := map[string]any{"config_path": cfgPath, "backup_path": path, "trigger": trigger}
	var id string
	if st != nil {
		e, err := ledger.NewEntry(cfgPath, path, backupCreatedAt(path))
		if err == nil {
			id, err = st.Record(ctx, e)
		}
		if err != nil {
			a.events.Warn(ctx, "ledger_record_failed", map[string]any{"backup_path": path, "error": err})
		} else {
			data["ledger_id"] = id
			data["sha256"] = e.SHA256
			data["size_bytes"] = e.SizeBytes
		}
	}
	a.events.Info(ctx, "backup_created", data)
	return id
}

// backupCreatedAt returns the local timestamp encoded in a backup file name,
// so the ledger agrees with the name even under an injected clock. Names
// without one fall back to now.
func backupCreatedAt(path string) time.Time {
	if t, ok := guardian.BackupTime(filepath.Base(path), time.Local); ok {
		return t
	}
	return time.Now()
}
