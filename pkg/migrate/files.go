package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Drivers lists the store drivers that carry their own migration directory.
// Every migration exists once per driver under the same version.
var Drivers = []string{"postgres", "sqlite"}

var (
	slugRe     = regexp.MustCompile(`[^a-z0-9]+`)
	fileNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
)

const sqlTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s (%[2]s)
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- revert %[1]s (%[2]s)
-- +goose StatementEnd
`

// CreatePair writes an empty goose migration named name into the directory of
// every driver beneath root, all sharing one version. It returns the created paths.
func CreatePair(root, name string, now time.Time) ([]string, error) {
	if root == "" {
		return nil, fmt.Errorf("migrations root is required")
	}
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	fileName := now.UTC().Format("20060102150405") + "_" + slug + ".sql"

	paths := make([]string, 0, len(Drivers))
	for _, driver := range Drivers {
		target := filepath.Join(DirFor(root, driver), fileName)
		if _, err := os.Stat(target); err == nil {
			return nil, fmt.Errorf("migration already exists: %s", target)
		}
		paths = append(paths, target)
	}

	for i, driver := range Drivers {
		if err := os.MkdirAll(filepath.Dir(paths[i]), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir for %s: %w", driver, err)
		}
		if err := os.WriteFile(paths[i], []byte(fmt.Sprintf(sqlTemplate, slug, driver)), 0o644); err != nil {
			return nil, fmt.Errorf("write %s migration: %w", driver, err)
		}
	}
	return paths, nil
}

// ValidateDir checks file naming, goose annotations, and version uniqueness of a
// single driver directory. It returns the versions found, sorted.
func ValidateDir(dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("migrations dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", dir, err)
	}

	var errs error
	byVersion := map[string]string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		match := fileNameRe.FindStringSubmatch(name)
		if match == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: expected <YYYYMMDDHHMMSS>_<name>.sql", name))
			continue
		}
		if prev, dup := byVersion[match[1]]; dup {
			errs = multierr.Append(errs, fmt.Errorf("%s: version %s already used by %s", name, match[1], prev))
			continue
		}
		byVersion[match[1]] = name

		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(body), marker) {
				errs = multierr.Append(errs, fmt.Errorf("%s: missing %q", name, marker))
			}
		}
	}

	versions := make([]string, 0, len(byVersion))
	for v := range byVersion {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions, errs
}

// ValidateTree validates every driver directory under root and requires them
// to hold the same set of versions.
func ValidateTree(root string) error {
	var (
		errs     error
		baseline []string
	)
	for i, driver := range Drivers {
		versions, err := ValidateDir(DirFor(root, driver))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", driver, err))
			continue
		}
		if i == 0 {
			baseline = versions
			continue
		}
		if missing, extra := diffVersions(baseline, versions); len(missing)+len(extra) > 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s out of step with %s: missing %v, extra %v", driver, Drivers[0], missing, extra))
		}
	}
	return errs
}

func diffVersions(want, got []string) (missing, extra []string) {
	seen := make(map[string]bool, len(got))
	for _, v := range got {
		seen[v] = true
	}
	for _, v := range want {
		if !seen[v] {
			missing = append(missing, v)
		}
		delete(seen, v)
	}
	for v := range seen {
		extra = append(extra, v)
	}
	sort.Strings(extra)
	return missing, extra
}
