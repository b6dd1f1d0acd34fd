package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	annotationUp    = "-- +goose Up"
	annotationDown  = "-- +goose Down"
	annotationBegin = "-- +goose StatementBegin"
	annotationEnd   = "-- +goose StatementEnd"
)

// ValidateDir checks every .sql file in dir and reports all problems at once:
// filename shape, unique versions, an Up section before a Down section, and
// balanced StatementBegin/StatementEnd blocks.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}
	return ValidateFS(os.DirFS(dir))
}

// ValidateFS applies the ValidateDir checks to the root of fsys.
func ValidateFS(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	var errs error
	seen := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}
		if prev, ok := seen[m[1]]; ok {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name))
		}
		seen[m[1]] = name

		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read file %q: %w", name, err))
			continue
		}
		errs = multierr.Append(errs, validateAnnotations(name, string(b)))
	}
	return errs
}

func validateAnnotations(name, sql string) error {
	up := strings.Index(sql, annotationUp)
	down := strings.Index(sql, annotationDown)
	switch {
	case up < 0:
		return fmt.Errorf("migration %q missing %q", name, annotationUp)
	case down < 0:
		return fmt.Errorf("migration %q missing %q", name, annotationDown)
	case down < up:
		return fmt.Errorf("migration %q declares Down before Up", name)
	}

	open := false
	for i, line := range strings.Split(sql, "\n") {
		switch strings.TrimSpace(line) {
		case annotationBegin:
			if open {
				return fmt.Errorf("migration %q line %d: nested StatementBegin", name, i+1)
			}
			open = true
		case annotationEnd:
			if !open {
				return fmt.Errorf("migration %q line %d: StatementEnd without StatementBegin", name, i+1)
			}
			open = false
		case annotationUp, annotationDown:
			if open {
				return fmt.Errorf("migration %q line %d: section starts inside an open statement", name, i+1)
			}
		}
	}
	if open {
		return fmt.Errorf("migration %q: unterminated StatementBegin", name)
	}
	return nil
}
