package db

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestApplyMigrationsRunsOnce(t *testing.T) {
	sqlDB, err := OpenSqlite(filepath.Join(t.TempDir(), "m.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer sqlDB.Close()

	fsys := fstest.MapFS{
		"m/001_a.sql": {Data: []byte("CREATE TABLE a (id INTEGER);\nINSERT INTO a (id) VALUES (1);\n")},
		"m/002_b.sql": {Data: []byte("INSERT INTO a (id) VALUES (2);")},
		"m/README":    {Data: []byte("ignored")},
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := ApplyMigrations(ctx, sqlDB, DialectSqlite, fsys, "m"); err != nil {
			t.Fatalf("apply #%d: %v", i+1, err)
		}
	}

	var n int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM a").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
}

func TestDialectBinds(t *testing.T) {
	if got := DialectPostgres.Binds(3); got != "$1, $2, $3" {
		t.Fatalf("postgres binds = %q", got)
	}
	if got := DialectSqlite.Binds(2); got != "?, ?" {
		t.Fatalf("sqlite binds = %q", got)
	}
	if _, err := ParseDialect("mysql"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
