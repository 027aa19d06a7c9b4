package plugin

import (
	"errors"
	"testing"
)

func fakeEnv(vars map[string]string) EnvFunc {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestSubstituteEnv(t *testing.T) {
	env := fakeEnv(map[string]string{
		"DB_PASSWORD": "hunter2",
		"DB_HOST":     "db.internal",
	})

	options := map[string]string{
		"resource-groups.config-db-url":      "mysql://${ENV:DB_HOST}:3306/groups",
		"resource-groups.config-db-password": "${ENV:DB_PASSWORD}",
		"resource-groups.max-refresh":        "1h",
	}
	got, err := SubstituteEnv(options, env)
	if err != nil {
		t.Fatalf("SubstituteEnv: %v", err)
	}
	if got["resource-groups.config-db-url"] != "mysql://db.internal:3306/groups" {
		t.Errorf("url = %q", got["resource-groups.config-db-url"])
	}
	if got["resource-groups.config-db-password"] != "hunter2" {
		t.Errorf("password = %q", got["resource-groups.config-db-password"])
	}
	if got["resource-groups.max-refresh"] != "1h" {
		t.Errorf("untouched value changed: %q", got["resource-groups.max-refresh"])
	}
}

func TestSubstituteEnvUnsetFailsFast(t *testing.T) {
	options := map[string]string{
		"listener.db.password": "${ENV:MISSING_SECRET}",
	}
	_, err := SubstituteEnv(options, fakeEnv(nil))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigError", err)
	}
	if cfgErr.Option != "listener.db.password" {
		t.Errorf("Option = %q", cfgErr.Option)
	}
}

func TestSubstituteEnvMultipleReferences(t *testing.T) {
	env := fakeEnv(map[string]string{"A": "x", "B": "y"})
	got, err := SubstituteEnv(map[string]string{"k": "${ENV:A}-${ENV:B}"}, env)
	if err != nil {
		t.Fatal(err)
	}
	if got["k"] != "x-y" {
		t.Errorf("k = %q, want x-y", got["k"])
	}
}

func TestApplyCredentials(t *testing.T) {
	cases := []struct {
		name, driver, dsn, user, password, want string
	}{
		{name: "mysql adds credentials", driver: "mysql", dsn: "tcp(host:3306)/db", user: "bob", password: "pw", want: "bob:pw@tcp(host:3306)/db"},
		{name: "mysql user only", driver: "mysql", dsn: "tcp(host:3306)/db", user: "bob", want: "bob@tcp(host:3306)/db"},
		{name: "mysql embedded wins", driver: "mysql", dsn: "alice@tcp(host:3306)/db", user: "bob", password: "pw", want: "alice@tcp(host:3306)/db"},
		{name: "postgres appends params", driver: "postgres", dsn: "postgres://host/db", user: "bob", password: "p w", want: "postgres://host/db?user=bob&password=p+w"},
		{name: "no user is a no-op", driver: "mysql", dsn: "tcp(host:3306)/db", want: "tcp(host:3306)/db"},
		{name: "sqlite ignores credentials", driver: "sqlite3", dsn: "/tmp/x.db", user: "bob", want: "/tmp/x.db"},
	}
	for _, c := range cases {
		if got := ApplyCredentials(c.driver, c.dsn, c.user, c.password); got != c.want {
			t.Errorf("%s: got %q, want %q", c.name, got, c.want)
		}
	}
}

func TestDriverForURL(t *testing.T) {
	cases := []struct {
		url, driver, dsn string
		wantErr          bool
	}{
		{url: "mysql://user:pw@tcp(host:3306)/db", driver: "mysql", dsn: "user:pw@tcp(host:3306)/db"},
		{url: "postgres://user@host/db", driver: "postgres", dsn: "postgres://user@host/db"},
		{url: "sqlite://:memory:", driver: "sqlite3", dsn: ":memory:"},
		{url: "oracle://nope", wantErr: true},
	}
	for _, c := range cases {
		driver, dsn, err := DriverForURL(c.url)
		if c.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", c.url)
			}
			continue
		}
		if err != nil || driver != c.driver || dsn != c.dsn {
			t.Errorf("%s: got %q %q %v", c.url, driver, dsn, err)
		}
	}
}
