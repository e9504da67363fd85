package database

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync"

	"quill/internal/middleware"
)

// Migration is one versioned SQL schema change loaded from a
// NNNNNN_name.up.sql file and its .down.sql twin.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

func (m *Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var embeddedMigrations = sync.OnceValues(func() ([]Migration, error) {
	return LoadMigrations(migrationFS)
})

// GetMigrations returns the migrations compiled into the binary, oldest
// first. A broken migrations directory is logged and yields none.
func GetMigrations() []Migration {
	list, err := embeddedMigrations()
	if err != nil {
		middleware.Logger.Error("embedded migrations unreadable", slog.String("error", err.Error()))
		return nil
	}
	return list
}

// LoadMigrations reads every up/down pair under migrations/ in fsys.
// Other files are ignored. A malformed name, a missing down script or a
// repeated version is an error.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	ups, err := fs.Glob(fsys, "migrations/*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	list := make([]Migration, 0, len(ups))
	seen := make(map[int]string, len(ups))
	for _, upPath := range ups {
		base := strings.TrimSuffix(path.Base(upPath), ".up.sql")
		m, err := parseMigrationName(base)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[m.Version]; dup {
			return nil, fmt.Errorf("migration version %06d used by %s and %s", m.Version, prev, base)
		}
		seen[m.Version] = base

		up, err := fs.ReadFile(fsys, upPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", upPath, err)
		}
		down, err := fs.ReadFile(fsys, path.Join("migrations", base+".down.sql"))
		if err != nil {
			return nil, fmt.Errorf("migration %s has no down script: %w", base, err)
		}
		m.UpScript, m.DownScript = string(up), string(down)
		list = append(list, m)
	}

	slices.SortFunc(list, func(a, b Migration) int { return a.Version - b.Version })
	return list, nil
}

func parseMigrationName(base string) (Migration, error) {
	num, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return Migration{}, fmt.Errorf("migration %q: want NNNNNN_name", base)
	}
	version, err := strconv.Atoi(num)
	if err != nil || version <= 0 {
		return Migration{}, fmt.Errorf("migration %q: bad version %q", base, num)
	}
	return Migration{Version: version, Name: name}, nil
}
