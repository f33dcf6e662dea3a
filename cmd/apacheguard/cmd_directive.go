package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quailyquaily/apacheguard/guardian"
	"github.com/spf13/cobra"
)

func (a *app) newDirectiveCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "directive", Short: "Classify directive names"}
	cmd.AddCommand(a.newDirectiveCheckCmd())
	return cmd
}

type directiveResult struct {
	Name string `json:"name"`
	guardian.Classification
}

func (a *app) newDirectiveCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check NAME...",
		Short: "Report whether each directive is allowed and/or sensitive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := a.guardian()
			if err != nil {
				return err
			}
			strict, _ := cmd.Flags().GetBool("strict")
			asJSON, _ := cmd.Flags().GetBool("json")

			results := make([]directiveResult, 0, len(args))
			var denied []string
			for _, name := range args {
				c := g.Classify(name)
				results = append(results, directiveResult{Name: name, Classification: c})
				if !c.Allowed {
					denied = append(denied, name)
				}
				a.events.Info(ctx, "directive_checked", map[string]any{
					"name":      name,
					"allowed":   c.Allowed,
					"sensitive": c.Sensitive,
				})
			}

			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					fmt.Fprintf(a.stdout, "%s\t%s\n", a.style.Key(r.Name), a.style.Badge(r.Allowed, r.Sensitive))
				}
			}

			if strict && len(denied) > 0 {
				return fmt.Errorf("directives not allowed: %s", strings.Join(denied, ", "))
			}
			return nil
		},
	}
	cmd.Flags().Bool("strict", false, "exit with an error if any directive is not allowed")
	cmd.Flags().Bool("json", false, "print results as JSON")
	return cmd
}
