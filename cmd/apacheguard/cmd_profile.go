package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type profileView struct {
	ConfigPath          string   `yaml:"config_path"`
	LogPath             string   `yaml:"log_path"`
	BackupPath          string   `yaml:"backup_path"`
	BackupDirPolicy     string   `yaml:"backup_dir_policy"`
	AllowedDirectives   []string `yaml:"allowed_directives"`
	SensitiveDirectives []string `yaml:"sensitive_directives"`
	// Both lists the directives present in both sets; how to treat them is
	// left to whoever consumes the profile.
	Both []string `yaml:"allowed_and_sensitive,omitempty"`
}

func (a *app) newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Print the effective profile as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, policy, err := profileFromViper(a.v)
			if err != nil {
				return err
			}
			view := profileView{
				ConfigPath:          p.ConfigPath,
				LogPath:             p.LogPath,
				BackupPath:          p.BackupPath,
				BackupDirPolicy:     string(policy),
				AllowedDirectives:   p.Allowed.Names(),
				SensitiveDirectives: p.Sensitive.Names(),
			}
			for _, n := range view.AllowedDirectives {
				if p.Sensitive.Has(n) {
					view.Both = append(view.Both, n)
				}
			}
			enc := yaml.NewEncoder(a.stdout)
			enc.SetIndent(2)
			if err := enc.Encode(view); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
