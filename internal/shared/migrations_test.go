package shared

import (
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("LoadMigrations", func(t *testing.T) {
		for _, dialect := range []string{DialectSQLite, DialectPostgres} {
			migrations, err := LoadMigrations(dialect)
			if err != nil {
				t.Fatalf("failed to load %s migrations: %v", dialect, err)
			}

			if len(migrations) != 2 {
				t.Fatalf("expected 2 %s migrations, got %d", dialect, len(migrations))
			}

			for i := 1; i < len(migrations); i++ {
				if migrations[i].Version <= migrations[i-1].Version {
					t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
				}
			}

			if migrations[0].Name != "create_sessions" {
				t.Errorf("expected first migration create_sessions, got %s", migrations[0].Name)
			}
		}
	})

	t.Run("Unknown Dialect", func(t *testing.T) {
		if _, err := LoadMigrations("oracle"); err == nil {
			t.Error("expected error for unknown dialect")
		}
	})

	t.Run("Statements Strip Comments", func(t *testing.T) {
		m := Migration{Up: "-- heading\nCREATE TABLE a (id INT);\n\n-- next\nCREATE TABLE b (id INT);\n", Down: "DROP TABLE a;"}

		up := m.Statements(false)
		if len(up) != 2 {
			t.Fatalf("expected 2 statements, got %d: %q", len(up), up)
		}
		if up[0] != "CREATE TABLE a (id INT)" {
			t.Errorf("unexpected statement %q", up[0])
		}
		if down := m.Statements(true); len(down) != 1 {
			t.Errorf("expected 1 down statement, got %d", len(down))
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		for _, table := range []string{"sessions", "channel_links"} {
			if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
				t.Errorf("%s table should exist after migrations: %v", table, err)
			}
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		if _, err := db.Exec("SELECT 1 FROM channel_links LIMIT 1"); err == nil {
			t.Error("channel_links should be dropped by rollback")
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to query schema_migrations after rollback: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 applied migration after rollback, got %d", count)
		}
	})

	t.Run("Rollback With Nothing Applied", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		for range 2 {
			if err := RollbackMigration(db); err != nil {
				t.Fatalf("rollback failed: %v", err)
			}
		}
		if err := RollbackMigration(db); err == nil {
			t.Error("expected error when no migrations remain")
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}

		migrations, _ := LoadMigrations(DialectSQLite)
		if count != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), count)
		}
	})
}
