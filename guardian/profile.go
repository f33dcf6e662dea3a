package guardian

import (
	"sort"
	"strings"
)

// DirectiveSet is an immutable set of case-sensitive directive names.
// The zero value is an empty set.
type DirectiveSet struct {
	names map[string]struct{}
}

// NewDirectiveSet builds a set from names. Surrounding whitespace is trimmed,
// blank names are dropped and duplicates collapse.
func NewDirectiveSet(names ...string) DirectiveSet {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		m[n] = struct{}{}
	}
	return DirectiveSet{names: m}
}

func (s DirectiveSet) Has(name string) bool {
	_, ok := s.names[name]
	return ok
}

func (s DirectiveSet) Len() int { return len(s.names) }

// Names returns the members in sorted order.
func (s DirectiveSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold the same names.
func (s DirectiveSet) Equal(o DirectiveSet) bool {
	if len(s.names) != len(o.names) {
		return false
	}
	for n := range s.names {
		if _, ok := o.names[n]; !ok {
			return false
		}
	}
	return true
}

// Profile is the set of paths and directive policies a Guardian works with.
// A directive may be in both Allowed and Sensitive; what that combination
// means is up to the caller.
type Profile struct {
	ConfigPath string
	LogPath    string
	BackupPath string

	Allowed   DirectiveSet
	Sensitive DirectiveSet
}

// Equal reports whether two profiles hold the same paths and directive sets.
func (p Profile) Equal(o Profile) bool {
	return p.ConfigPath == o.ConfigPath &&
		p.LogPath == o.LogPath &&
		p.BackupPath == o.BackupPath &&
		p.Allowed.Equal(o.Allowed) &&
		p.Sensitive.Equal(o.Sensitive)
}

// BackupDirPolicy controls when a missing backup directory is reported.
type BackupDirPolicy string

const (
	// BackupDirLazy leaves the backup directory unchecked until Backup runs.
	BackupDirLazy BackupDirPolicy = "lazy"
	// BackupDirStrict requires the backup directory to exist at construction.
	BackupDirStrict BackupDirPolicy = "strict"
	// BackupDirCreate creates the backup directory on first backup.
	BackupDirCreate BackupDirPolicy = "create"
)

// ParseBackupDirPolicy maps a config string to a policy. Blank means lazy.
func ParseBackupDirPolicy(s string) (BackupDirPolicy, error) {
	switch p := BackupDirPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return BackupDirLazy, nil
	case BackupDirLazy, BackupDirStrict, BackupDirCreate:
		return p, nil
	default:
		return "", &InvalidPolicyError{Value: s}
	}
}
