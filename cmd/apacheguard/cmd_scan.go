package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quailyquaily/apacheguard/internal/strutil"
	"github.com/spf13/cobra"
)

const maxArgsWidth = 60

func (a *app) newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Classify every directive in the Apache config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			g, err := a.guardian()
			if err != nil {
				return err
			}
			reveal, _ := cmd.Flags().GetBool("reveal")
			asJSON, _ := cmd.Flags().GetBool("json")
			failUnknown, _ := cmd.Flags().GetBool("fail-on-unknown")

			rep, err := g.Scan()
			if err != nil {
				a.events.Error(ctx, "scan_failed", map[string]any{"error": err})
				return err
			}
			a.events.Info(ctx, "scan_completed", map[string]any{
				"config_path": rep.ConfigPath,
				"directives":  len(rep.Findings),
				"allowed":     rep.Allowed,
				"sensitive":   rep.Sensitive,
				"unknown":     rep.Unknown,
			})

			if asJSON {
				out := rep
				if !reveal {
					out = rep.Redacted()
				}
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(out); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(a.stdout, a.style.Headerf("%s", rep.ConfigPath))
				for _, f := range rep.Findings {
					name := strings.Repeat("  ", f.Depth) + f.Name
					if f.Section {
						name = strings.Repeat("  ", f.Depth) + "<" + f.Name + ">"
					}
					args := strutil.Ellipsize(strings.Join(f.DisplayArgs(reveal), " "), maxArgsWidth)
					fmt.Fprintf(a.stdout, "%5d  %-40s %s %s\n", f.Line, name, a.style.Badge(f.Allowed, f.Sensitive), a.style.Dim(args))
				}
				fmt.Fprintf(a.stdout, "%d directives: %d allowed, %d sensitive, %d unknown\n",
					len(rep.Findings), rep.Allowed, rep.Sensitive, rep.Unknown)
			}

			if failUnknown && rep.Unknown > 0 {
				return fmt.Errorf("unknown directives: %s", strings.Join(rep.UnknownNames(), ", "))
			}
			return nil
		},
	}
	cmd.Flags().Bool("reveal", false, "show arguments of sensitive directives")
	cmd.Flags().Bool("json", false, "print the report as JSON")
	cmd.Flags().Bool("fail-on-unknown", false, "exit with an error if any directive is in neither list")
	return cmd
}
