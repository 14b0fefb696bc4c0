package assets

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed migrations/*.sql profiles.yaml
var FS embed.FS

// Migration is one embedded SQL script.
type Migration struct {
	Name string
	SQL  string
}

// Migrations returns the embedded scripts in lexical order.
func Migrations() ([]Migration, error) {
	names, err := fs.Glob(FS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, n := range names {
		b, err := FS.ReadFile(n)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{Name: n, SQL: string(b)})
	}
	return out, nil
}

// DefaultProfiles returns the embedded difficulty profile YAML.
func DefaultProfiles() ([]byte, error) {
	return FS.ReadFile("profiles.yaml")
}
