package resourcegroups

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/heliosql/helio-go/migrate"
	"github.com/heliosql/helio-go/plugin"
)

func seedTestDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "groups.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := migrate.NewEngine(db, "sqlite3").Apply(context.Background(), Schema); err != nil {
		t.Fatal(err)
	}
	stmts := []string{
		`INSERT INTO resource_groups (id, name, soft_memory_limit, max_queued, hard_concurrency_limit) VALUES (1, 'adhoc', '50%', 100, 10)`,
		`INSERT INTO resource_groups (id, name, soft_memory_limit, max_queued, hard_concurrency_limit, scheduling_policy) VALUES (2, 'etl', '80%', 1000, 50, 'fair')`,
		`INSERT INTO selectors (id, resource_group_id, priority, user_regex) VALUES (1, 2, 10, 'etl_.*')`,
		`INSERT INTO selectors (id, resource_group_id, priority) VALUES (2, 1, 1)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestDBFactoryCreate(t *testing.T) {
	path := seedTestDB(t)

	manager, err := DBFactory{}.Create(context.Background(), map[string]string{
		optDBURL: "sqlite://" + path,
	}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer manager.Close()

	g, ok := manager.Match(SelectionCriteria{User: "etl_nightly"})
	if !ok || g.Name != "etl" {
		t.Errorf("matched %q, want etl", g.Name)
	}
	if len(manager.Groups()) != 2 {
		t.Errorf("Groups() = %d entries, want 2", len(manager.Groups()))
	}
	if err := manager.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestDBFactoryRefreshPicksUpChanges(t *testing.T) {
	path := seedTestDB(t)

	manager, err := DBFactory{}.Create(context.Background(), map[string]string{
		optDBURL:           "sqlite://" + path,
		optRefreshInterval: "20ms",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer manager.Close()

	if _, ok := manager.Match(SelectionCriteria{Source: "looker"}); !ok {
		t.Fatal("fallback selector must match before the change")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec(`INSERT INTO selectors (id, resource_group_id, priority, source_regex) VALUES (3, 2, 100, 'looker.*')`); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if g, ok := manager.Match(SelectionCriteria{Source: "looker"}); ok && g.Name == "etl" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("refresher never picked up the new selector")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDBFactoryEnvSubstitutionFailsFast(t *testing.T) {
	env := func(string) (string, bool) { return "", false }
	_, err := DBFactory{}.Create(context.Background(), map[string]string{
		optDBURL: "sqlite://${ENV:RG_DB_PATH}",
	}, env)

	var cfgErr *plugin.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
	if cfgErr.Option != optDBURL {
		t.Errorf("Option = %q, want the offending option name", cfgErr.Option)
	}
}

func TestDBFactoryRequiresURL(t *testing.T) {
	_, err := DBFactory{}.Create(context.Background(), map[string]string{}, nil)
	var cfgErr *plugin.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Option != optDBURL {
		t.Fatalf("err = %v, want ConfigError for %s", err, optDBURL)
	}
}

const fileManagerConfig = `{
  "rootGroups": [
    {"name": "adhoc", "softMemoryLimit": "50%", "maxQueued": 100, "hardConcurrencyLimit": 10}
  ],
  "selectors": [
    {"priority": 1, "group": "adhoc"}
  ]
}`

func TestFileFactoryCreateAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.json")
	if err := os.WriteFile(path, []byte(fileManagerConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	manager, err := FileFactory{}.Create(context.Background(), map[string]string{
		optConfigFile: path,
	}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer manager.Close()

	g, ok := manager.Match(SelectionCriteria{User: "alice"})
	if !ok || g.Name != "adhoc" {
		t.Fatalf("matched %q, want adhoc", g.Name)
	}

	updated := `{
  "rootGroups": [
    {"name": "batch", "softMemoryLimit": "90%", "maxQueued": 10, "hardConcurrencyLimit": 2}
  ],
  "selectors": [
    {"priority": 1, "group": "batch"}
  ]
}`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		if g, ok := manager.Match(SelectionCriteria{User: "alice"}); ok && g.Name == "batch" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("file manager never reloaded the edited config")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestFileFactoryRejectsBrokenConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.json")
	if err := os.WriteFile(path, []byte(`{"selectors": [{"priority": 1, "group": "ghost"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (FileFactory{}).Create(context.Background(), map[string]string{optConfigFile: path}, nil); err == nil {
		t.Fatal("config referencing an unknown group must fail Create")
	}
}

func TestFileFactoryRequiresPath(t *testing.T) {
	_, err := FileFactory{}.Create(context.Background(), map[string]string{}, nil)
	var cfgErr *plugin.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Option != optConfigFile {
		t.Fatalf("err = %v, want ConfigError for %s", err, optConfigFile)
	}
}
