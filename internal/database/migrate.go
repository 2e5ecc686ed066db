package database

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/pillow12360/eureka-ssul/internal/middleware"

	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var embedded embed.FS

var migrationFile = regexp.MustCompile(`^(\d{6})_([a-z0-9_]+)\.(up|down)\.sql$`)

// Migration is one versioned pair of up/down SQL scripts.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

func (m Migration) String() string {
	return fmt.Sprintf("%06d_%s", m.Version, m.Name)
}

// Checksum fingerprints the up script so edits to applied migrations are caught.
func (m Migration) Checksum() string {
	sum := sha256.Sum256([]byte(m.UpScript))
	return hex.EncodeToString(sum[:])
}

// LoadMigrations reads NNNNNN_name.up.sql / .down.sql pairs from dir, sorted by version.
// A stray .sql file or a version without both halves is an error.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	type halves struct {
		name     string
		up, down *string
	}
	byVersion := map[int]*halves{}
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		parts := migrationFile.FindStringSubmatch(e.Name())
		if parts == nil {
			return nil, fmt.Errorf("migration %q: want NNNNNN_name.up.sql or .down.sql", e.Name())
		}
		version, _ := strconv.Atoi(parts[1])
		h := byVersion[version]
		if h == nil {
			h = &halves{name: parts[2]}
			byVersion[version] = h
		}
		if h.name != parts[2] {
			return nil, fmt.Errorf("migration %06d has two names: %s and %s", version, h.name, parts[2])
		}

		body, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		script := string(body)
		if parts[3] == "up" {
			h.up = &script
		} else {
			h.down = &script
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for version, h := range byVersion {
		m := Migration{Version: version, Name: h.name}
		if h.up == nil || h.down == nil {
			return nil, fmt.Errorf("migration %s needs both .up.sql and .down.sql", m)
		}
		m.UpScript, m.DownScript = *h.up, *h.down
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// GetMigrations returns the migrations compiled into the binary.
func GetMigrations() ([]Migration, error) {
	return LoadMigrations(embedded, "migrations")
}

// SchemaMigration is one row of the applied-migrations ledger.
type SchemaMigration struct {
	Version   int    `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"size:255"`
	Checksum  string `gorm:"size:64"`
	AppliedAt time.Time
}

func (SchemaMigration) TableName() string { return "schema_migrations" }

// MigrationStatus pairs a migration with its applied time, zero while pending.
type MigrationStatus struct {
	Migration
	AppliedAt time.Time
}

func (s MigrationStatus) Applied() bool { return !s.AppliedAt.IsZero() }

// Migrator applies and reverts a fixed set of migrations against db.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

func NewMigrator(db *gorm.DB, migrations []Migration) *Migrator {
	return &Migrator{db: db, migrations: migrations}
}

func (m *Migrator) ledger(ctx context.Context) (map[int]SchemaMigration, error) {
	db := m.db.WithContext(ctx)
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return nil, fmt.Errorf("ensure schema_migrations: %w", err)
	}
	var rows []SchemaMigration
	if err := db.Order("version").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	out := make(map[int]SchemaMigration, len(rows))
	for _, r := range rows {
		out[r.Version] = r
	}
	return out, nil
}

// verify refuses to go on when the ledger names a version this binary does
// not ship, or when an applied script has changed since it ran.
func (m *Migrator) verify(ledger map[int]SchemaMigration) error {
	known := make(map[int]Migration, len(m.migrations))
	for _, mig := range m.migrations {
		known[mig.Version] = mig
	}
	versions := make([]int, 0, len(ledger))
	for v := range ledger {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	for _, v := range versions {
		mig, ok := known[v]
		if !ok {
			return fmt.Errorf("schema_migrations has version %06d that this build does not know", v)
		}
		if sum := ledger[v].Checksum; sum != "" && sum != mig.Checksum() {
			return fmt.Errorf("migration %s was edited after it was applied", mig)
		}
	}
	return nil
}

// Up applies every pending migration in version order, each in its own
// transaction, and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	ledger, err := m.ledger(ctx)
	if err != nil {
		return 0, err
	}
	if err := m.verify(ledger); err != nil {
		return 0, err
	}

	ran := 0
	for _, mig := range m.migrations {
		if _, done := ledger[mig.Version]; done {
			continue
		}
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.UpScript).Error; err != nil {
				return fmt.Errorf("apply %s: %w", mig, err)
			}
			return tx.Create(&SchemaMigration{
				Version:   mig.Version,
				Name:      mig.Name,
				Checksum:  mig.Checksum(),
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return ran, err
		}
		middleware.Logger.InfoContext(ctx, "migration applied", slog.String("migration", mig.String()))
		ran++
	}
	return ran, nil
}

// Down reverts one applied migration.
func (m *Migrator) Down(ctx context.Context, version int) error {
	var target *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == version {
			target = &m.migrations[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("no migration with version %d", version)
	}

	ledger, err := m.ledger(ctx)
	if err != nil {
		return err
	}
	if _, ok := ledger[version]; !ok {
		return fmt.Errorf("migration %s is not applied", target)
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(target.DownScript).Error; err != nil {
			return fmt.Errorf("revert %s: %w", target, err)
		}
		return tx.Delete(&SchemaMigration{Version: version}).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "migration reverted", slog.String("migration", target.String()))
	return nil
}

// Status lists every migration with the time it was applied.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	ledger, err := m.ledger(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MigrationStatus, 0, len(m.migrations))
	for _, mig := range m.migrations {
		out = append(out, MigrationStatus{Migration: mig, AppliedAt: ledger[mig.Version].AppliedAt})
	}
	return out, nil
}

func embeddedMigrator(db *gorm.DB) (*Migrator, error) {
	migrations, err := GetMigrations()
	if err != nil {
		return nil, err
	}
	return NewMigrator(db, migrations), nil
}

// RunMigrations applies every pending embedded migration.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	m, err := embeddedMigrator(db)
	if err != nil {
		return err
	}
	_, err = m.Up(ctx)
	return err
}

// RollbackMigration reverts one embedded migration by version.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m, err := embeddedMigrator(db)
	if err != nil {
		return err
	}
	return m.Down(ctx, version)
}

// Status lists the embedded migrations and their applied state.
func Status(ctx context.Context, db *gorm.DB) ([]MigrationStatus, error) {
	m, err := embeddedMigrator(db)
	if err != nil {
		return nil, err
	}
	return m.Status(ctx)
}
