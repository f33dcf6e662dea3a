package main

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/quailyquaily/apacheguard/eventlog"
	"github.com/quailyquaily/apacheguard/guardian"
	"github.com/quailyquaily/apacheguard/internal/pathutil"
	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetEnvPrefix("APACHEGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("apache.config_path", "/etc/apache2/apache2.conf")
	v.SetDefault("apache.log_path", "/var/log/apache2")
	v.SetDefault("apache.backup_path", "/var/backups/apache2")
	v.SetDefault("apache.backup_dir_policy", string(guardian.BackupDirLazy))
	v.SetDefault("apache.allowed_directives", []string{
		"ServerName", "ServerAdmin", "DocumentRoot", "Listen", "ErrorLog", "CustomLog",
		"LogLevel", "KeepAlive", "Timeout", "DirectoryIndex", "Options", "AllowOverride",
		"Require", "VirtualHost", "Directory", "IfModule",
	})
	v.SetDefault("apache.sensitive_directives", []string{
		"SSLCertificateFile", "SSLCertificateKeyFile", "SSLCACertificateFile",
		"AuthUserFile", "AuthGroupFile", "SetEnv", "ProxyPass",
	})

	v.SetDefault("ledger.enabled", true)
	v.SetDefault("ledger.dsn", "~/.apacheguard/ledger.db")
	v.SetDefault("ledger.busy_timeout_ms", 5000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.rotate_max_bytes", int64(eventlog.DefaultRotateMaxBytes))

	v.SetDefault("events.jsonl_path", "")
	v.SetDefault("events.rotate_max_bytes", int64(eventlog.DefaultRotateMaxBytes))

	v.SetDefault("watch.debounce", 500*time.Millisecond)
}

func profileFromViper(v *viper.Viper) (guardian.Profile, guardian.BackupDirPolicy, error) {
	policy, err := guardian.ParseBackupDirPolicy(v.GetString("apache.backup_dir_policy"))
	if err != nil {
		return guardian.Profile{}, "", err
	}
	p := guardian.Profile{
		ConfigPath: pathutil.ExpandHomePath(v.GetString("apache.config_path")),
		LogPath:    pathutil.ExpandHomePath(v.GetString("apache.log_path")),
		BackupPath: pathutil.ExpandHomePath(v.GetString("apache.backup_path")),
		Allowed:    guardian.NewDirectiveSet(stringList(v, "apache.allowed_directives")...),
		Sensitive:  guardian.NewDirectiveSet(stringList(v, "apache.sensitive_directives")...),
	}
	return p, policy, nil
}

// stringList reads a list that may come from YAML (a sequence) or from the
// environment (a single comma or space separated string).
func stringList(v *viper.Viper, key string) []string {
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.FieldsFunc(item, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		}) {
			out = append(out, part)
		}
	}
	return out
}

func loggerFromViper(v *viper.Viper, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	var (
		w      = stderr
		closer io.Closer
	)
	if path := strings.TrimSpace(v.GetString("log.file")); path != "" {
		rf, err := eventlog.OpenFile(pathutil.ExpandHomePath(path), v.GetInt64("log.rotate_max_bytes"))
		if err != nil {
			return nil, nil, err
		}
		w, closer = rf, rf
	}
	h, err := eventlog.NewHandler(w, v.GetString("log.format"), eventlog.ParseLevel(v.GetString("log.level")))
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, nil, err
	}
	return slog.New(h), closer, nil
}

// eventsFromViper returns an event logger writing JSON lines to
// events.jsonl_path, or one sharing the main logger when no path is set.
func eventsFromViper(v *viper.Viper, fallback *slog.Logger) (*eventlog.Logger, io.Closer, error) {
	path := strings.TrimSpace(v.GetString("events.jsonl_path"))
	if path == "" {
		return eventlog.New(fallback), nil, nil
	}
	rf, err := eventlog.OpenFile(pathutil.ExpandHomePath(path), v.GetInt64("events.rotate_max_bytes"))
	if err != nil {
		fallback.Warn("events_sink_error", "path", path, "error", err.Error())
		return eventlog.New(fallback), nil, nil
	}
	return eventlog.NewJSON(rf, slog.LevelDebug), rf, nil
}
