package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/pillow12360/eureka-ssul/internal/config"
	"github.com/pillow12360/eureka-ssul/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_SQLiteAutoMigrates(t *testing.T) {
	db, err := Connect(&config.Config{DBDriver: "sqlite", DBPath: ":memory:", Env: "test"})
	require.NoError(t, err)

	for _, m := range Models() {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}
	assert.NoError(t, Ping(context.Background(), db))

	p := models.Profile{Name: "Tester", Bio: "0123456789"}
	require.NoError(t, db.Create(&p).Error)
	assert.NotEmpty(t, p.ID)
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(&config.Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "n"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", dsn)
}

func TestGetMigrations_EmbeddedAndOrdered(t *testing.T) {
	migrations, err := GetMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "init_schema", migrations[0].Name)
	assert.Equal(t, "000002_counter_functions", migrations[1].String())
	assert.Contains(t, migrations[1].UpScript, "decrement_comment_count")
	assert.Contains(t, migrations[1].DownScript, "DROP FUNCTION")
}

var notesMigrations = []Migration{
	{Version: 1, Name: "notes", UpScript: "CREATE TABLE notes (id INTEGER PRIMARY KEY)", DownScript: "DROP TABLE notes"},
	{Version: 2, Name: "notes_body", UpScript: "ALTER TABLE notes ADD COLUMN body TEXT", DownScript: "ALTER TABLE notes DROP COLUMN body"},
}

func TestMigrator_UpAppliesOnce(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	ctx := context.Background()
	m := NewMigrator(db, notesMigrations)

	ran, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ran)

	ran, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Zero(t, ran, "second run must be a no-op")
	assert.True(t, db.Migrator().HasColumn("notes", "body"))

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[1].Applied())
}

func TestMigrator_DownThenUp(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	ctx := context.Background()
	m := NewMigrator(db, notesMigrations)
	_, err = m.Up(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Down(ctx, 2))
	assert.False(t, db.Migrator().HasColumn("notes", "body"))
	assert.ErrorContains(t, m.Down(ctx, 2), "not applied")
	assert.ErrorContains(t, m.Down(ctx, 7), "no migration")

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	assert.True(t, statuses[0].Applied())
	assert.False(t, statuses[1].Applied())

	ran, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ran)
}

func TestMigrator_RejectsUnknownVersion(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&SchemaMigration{}))
	require.NoError(t, db.Create(&SchemaMigration{Version: 99, Name: "ghost"}).Error)

	_, err = NewMigrator(db, notesMigrations).Up(context.Background())
	assert.ErrorContains(t, err, "000099")
}

func TestMigrator_RejectsEditedMigration(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	ctx := context.Background()
	_, err = NewMigrator(db, notesMigrations[:1]).Up(ctx)
	require.NoError(t, err)

	edited := []Migration{notesMigrations[0], notesMigrations[1]}
	edited[0].UpScript = "CREATE TABLE notes (id INTEGER PRIMARY KEY, title TEXT)"
	_, err = NewMigrator(db, edited).Up(ctx)
	assert.ErrorContains(t, err, "000001_notes was edited")
}

func TestLoadMigrations_Validation(t *testing.T) {
	for _, tt := range []struct {
		name  string
		files fstest.MapFS
		want  string
	}{
		{"bad name", fstest.MapFS{"m/1_init.up.sql": {}}, "want NNNNNN_name"},
		{"missing down", fstest.MapFS{"m/000001_init.up.sql": {}}, "needs both"},
		{"two names", fstest.MapFS{
			"m/000001_init.up.sql":    {},
			"m/000001_other.down.sql": {},
		}, "two names"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadMigrations(tt.files, "m")
			assert.ErrorContains(t, err, tt.want)
		})
	}

	got, err := LoadMigrations(fstest.MapFS{
		"m/000002_b.up.sql":   {Data: []byte("B")},
		"m/000002_b.down.sql": {},
		"m/000001_a.up.sql":   {Data: []byte("A")},
		"m/000001_a.down.sql": {},
		"m/README.md":         {},
	}, "m")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "000001_a", got[0].String())
	assert.Equal(t, "B", got[1].UpScript)
}
