// Package migrations versions the feed database schema. Scripts are
// embedded in the binary and applied in version order; each applied version
// is recorded in the schema_versions table.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

//go:embed sql/*.sql
var embedded embed.FS

const versionTable = "schema_versions"

// Script names look like 0001_rss_articles.up.sql.
var scriptName = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.(up|down)\.sql$`)

// Migration is one numbered schema change.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Load returns the migrations compiled into the binary.
func Load() ([]Migration, error) {
	return Parse(embedded, "sql")
}

// Parse reads the up/down script pairs in dir. Every version needs an up
// script; a down script is optional but rollback stops at a version
// without one.
func Parse(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := scriptName.FindStringSubmatch(entry.Name())
		if m == nil {
			if strings.HasSuffix(entry.Name(), ".sql") {
				log.Warn().Str("file", entry.Name()).Msg("Ignoring misnamed migration script")
			}
			continue
		}

		version, _ := strconv.Atoi(m[1])
		body, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration script %s: %w", entry.Name(), err)
		}

		mig, ok := byVersion[version]
		if !ok {
			mig = &Migration{Version: version, Name: m[2]}
			byVersion[version] = mig
		} else if mig.Name != m[2] {
			return nil, fmt.Errorf("migration version %d is used by both %q and %q", version, mig.Name, m[2])
		}
		if m[3] == "up" {
			mig.Up = string(body)
		} else {
			mig.Down = string(body)
		}
	}

	out := lo.Map(lo.Values(byVersion), func(m *Migration, _ int) Migration { return *m })
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	for _, m := range out {
		if strings.TrimSpace(m.Up) == "" {
			return nil, fmt.Errorf("migration %d_%s has no up script", m.Version, m.Name)
		}
	}

	log.Debug().Int("count", len(out)).Msg("Loaded migrations")
	return out, nil
}

// Runner applies and reverts migrations on one connection pool, writing
// its bookkeeping SQL in the pool's dialect.
type Runner struct {
	db     *sqlx.DB
	flavor sqlbuilder.Flavor
}

// NewRunner creates a runner for db.
func NewRunner(db *sqlx.DB, flavor sqlbuilder.Flavor) *Runner {
	return &Runner{db: db, flavor: flavor}
}

func (r *Runner) ensureVersionTable(ctx context.Context) error {
	ctb := r.flavor.NewCreateTableBuilder()
	ctb.CreateTable(versionTable).IfNotExists().
		Define("version", "INTEGER", "PRIMARY KEY").
		Define("name", "TEXT", "NOT NULL").
		Define("applied_at", "TIMESTAMP", "NOT NULL", "DEFAULT CURRENT_TIMESTAMP")

	query, args := ctb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create %s table: %w", versionTable, err)
	}
	return nil
}

func (r *Runner) versions(ctx context.Context, newestFirst bool, limit int) ([]int, error) {
	sb := r.flavor.NewSelectBuilder()
	sb.Select("version").From(versionTable).OrderBy("version")
	if newestFirst {
		sb.Desc()
	} else {
		sb.Asc()
	}
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	versions := []int{}
	if err := r.db.SelectContext(ctx, &versions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	return versions, nil
}

// Applied returns the recorded versions, oldest first.
func (r *Runner) Applied(ctx context.Context) ([]int, error) {
	if err := r.ensureVersionTable(ctx); err != nil {
		return nil, err
	}
	return r.versions(ctx, false, 0)
}

// Up applies every migration that has not been recorded yet.
func (r *Runner) Up(ctx context.Context, migrations []Migration) error {
	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}

	pending := lo.Filter(migrations, func(m Migration, _ int) bool {
		return !lo.Contains(applied, m.Version)
	})
	for _, m := range pending {
		ib := r.flavor.NewInsertBuilder()
		ib.InsertInto(versionTable).Cols("version", "name").Values(m.Version, m.Name)

		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applying migration")
		if err := r.step(ctx, m.Up, ib); err != nil {
			return fmt.Errorf("migration %d_%s: %w", m.Version, m.Name, err)
		}
	}

	if len(pending) == 0 {
		log.Debug().Msg("Schema is up to date")
	}
	return nil
}

// Down reverts the n most recently applied migrations, newest first.
func (r *Runner) Down(ctx context.Context, migrations []Migration, n int) error {
	if n <= 0 {
		return fmt.Errorf("rollback steps must be positive, got %d", n)
	}
	if err := r.ensureVersionTable(ctx); err != nil {
		return err
	}
	versions, err := r.versions(ctx, true, n)
	if err != nil {
		return err
	}

	for _, v := range versions {
		m, ok := lo.Find(migrations, func(m Migration) bool { return m.Version == v })
		if !ok || strings.TrimSpace(m.Down) == "" {
			return fmt.Errorf("migration %d cannot be rolled back: no down script", v)
		}

		del := r.flavor.NewDeleteBuilder()
		del.DeleteFrom(versionTable).Where(del.Equal("version", v))

		log.Info().Int("version", v).Str("name", m.Name).Msg("Rolling back migration")
		if err := r.step(ctx, m.Down, del); err != nil {
			return fmt.Errorf("rollback %d_%s: %w", v, m.Name, err)
		}
	}
	return nil
}

// step runs a script and its bookkeeping statement in one transaction.
func (r *Runner) step(ctx context.Context, script string, record sqlbuilder.Builder) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("failed to execute script: %w", err)
	}
	query, args := record.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update %s: %w", versionTable, err)
	}
	return tx.Commit()
}
