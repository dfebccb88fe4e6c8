package postgres

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoadMigrationsFromFS_Success(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"sql/migrations/0002_more.up.sql":   {Data: []byte("CREATE TABLE test_b (id INT);")},
		"sql/migrations/0002_more.down.sql": {Data: []byte("DROP TABLE IF EXISTS test_b;")},
		"sql/migrations/0001_init.up.sql":   {Data: []byte("CREATE TABLE test_a (id INT);")},
		"sql/migrations/0001_init.down.sql": {Data: []byte("DROP TABLE IF EXISTS test_a;")},
	}

	migrations, err := loadMigrationsFromFS(fsys)
	if err != nil {
		t.Fatalf("loadMigrationsFromFS failed: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[0].Name != "init" {
		t.Fatalf("unexpected first migration: %+v", migrations[0])
	}
	if migrations[1].Version != 2 || migrations[1].Name != "more" {
		t.Fatalf("unexpected second migration: %+v", migrations[1])
	}
}

func TestLoadMigrationsFromFS_Embedded(t *testing.T) {
	t.Parallel()

	migrations, err := loadMigrationsFromFS(migrationsFS)
	if err != nil {
		t.Fatalf("embedded migrations are invalid: %v", err)
	}
	if len(migrations) == 0 || migrations[0].Name != "kv_entries" {
		t.Fatalf("expected kv_entries as the first migration, got %+v", migrations)
	}
}

func TestLoadMigrationsFromFS_Errors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		fsys    fstest.MapFS
		wantErr string
	}{
		"missing down": {
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql": {Data: []byte("CREATE TABLE test_a (id INT);")},
			},
			wantErr: "both up and down",
		},
		"invalid filename": {
			fsys: fstest.MapFS{
				"sql/migrations/not_a_migration.sql": {Data: []byte("SELECT 1;")},
			},
			wantErr: "invalid migration file name",
		},
		"empty body": {
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":   {Data: []byte("   \n")},
				"sql/migrations/0001_init.down.sql": {Data: []byte("DROP TABLE IF EXISTS test;")},
			},
			wantErr: "empty",
		},
		"name mismatch": {
			fsys: fstest.MapFS{
				"sql/migrations/0001_init.up.sql":    {Data: []byte("CREATE TABLE a (id INT);")},
				"sql/migrations/0001_other.down.sql": {Data: []byte("DROP TABLE a;")},
			},
			wantErr: "name mismatch",
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := loadMigrationsFromFS(tc.fsys)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestPlanMigrations(t *testing.T) {
	t.Parallel()

	all := []migration{
		{Version: 1, Name: "a"},
		{Version: 2, Name: "b"},
		{Version: 3, Name: "c"},
	}

	up, err := planMigrations(all, map[int64]bool{1: true}, migrationUp, 0)
	if err != nil {
		t.Fatalf("plan up: %v", err)
	}
	if len(up) != 2 || up[0].Version != 2 || up[1].Version != 3 {
		t.Fatalf("unexpected up plan: %+v", up)
	}

	upOne, err := planMigrations(all, nil, migrationUp, 1)
	if err != nil {
		t.Fatalf("plan up one: %v", err)
	}
	if len(upOne) != 1 || upOne[0].Version != 1 {
		t.Fatalf("unexpected single-step up plan: %+v", upOne)
	}

	down, err := planMigrations(all, map[int64]bool{1: true, 2: true, 3: true}, migrationDown, 2)
	if err != nil {
		t.Fatalf("plan down: %v", err)
	}
	if len(down) != 2 || down[0].Version != 3 || down[1].Version != 2 {
		t.Fatalf("unexpected down plan: %+v", down)
	}

	if _, err := planMigrations(all, map[int64]bool{9: true}, migrationDown, 1); err == nil {
		t.Fatal("expected error for unknown applied version")
	}
}
