// Package plugin defines the narrow contract server-side plugin factories
// share: an option-name to string mapping plus an environment-variable
// resolver produce one initialized component, or fail with a configuration
// error before anything else is initialized.
package plugin

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
)

// EnvFunc resolves an environment variable, reporting whether it is set.
// os.LookupEnv satisfies it.
type EnvFunc func(name string) (string, bool)

// OSEnv resolves against the process environment.
func OSEnv() EnvFunc { return os.LookupEnv }

// ConfigError reports an invalid or unresolvable plugin configuration.
type ConfigError struct {
	Option string
	Detail string
}

func (e *ConfigError) Error() string {
	if e.Option != "" {
		return fmt.Sprintf("configuration property '%s': %s", e.Option, e.Detail)
	}
	return e.Detail
}

var envPattern = regexp.MustCompile(`\$\{ENV:([a-zA-Z][a-zA-Z0-9_]*)\}`)

// SubstituteEnv expands ${ENV:NAME} references in every option value. An
// unset referenced variable fails fast with a ConfigError naming the option,
// before any other initialization can run.
func SubstituteEnv(options map[string]string, env EnvFunc) (map[string]string, error) {
	if env == nil {
		env = OSEnv()
	}
	replaced := make(map[string]string, len(options))
	for key, value := range options {
		var missing string
		expanded := envPattern.ReplaceAllStringFunc(value, func(match string) string {
			name := envPattern.FindStringSubmatch(match)[1]
			envValue, ok := env(name)
			if !ok {
				if missing == "" {
					missing = name
				}
				return match
			}
			return envValue
		})
		if missing != "" {
			return nil, &ConfigError{
				Option: key,
				Detail: fmt.Sprintf("references unset environment variable '%s'", missing),
			}
		}
		replaced[key] = expanded
	}
	return replaced, nil
}

// DriverForURL maps a database URL to a database/sql driver name and the DSN
// that driver expects.
func DriverForURL(url string) (driver, dsn string, err error) {
	switch {
	case strings.HasPrefix(url, "mysql://"):
		return "mysql", strings.TrimPrefix(url, "mysql://"), nil
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "postgres", url, nil
	case strings.HasPrefix(url, "sqlite://"):
		return "sqlite3", strings.TrimPrefix(url, "sqlite://"), nil
	default:
		return "", "", &ConfigError{Detail: fmt.Sprintf("unsupported database url: %s", url)}
	}
}

// ApplyCredentials folds separately configured credentials into a DSN.
// Credentials already embedded in the DSN pass through untouched.
func ApplyCredentials(driver, dsn, user, password string) string {
	if user == "" {
		return dsn
	}
	switch driver {
	case "mysql":
		if strings.Contains(dsn, "@") {
			return dsn
		}
		cred := user
		if password != "" {
			cred += ":" + password
		}
		return cred + "@" + dsn
	case "postgres":
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "user=" + url.QueryEscape(user)
		if password != "" {
			dsn += "&password=" + url.QueryEscape(password)
		}
		return dsn
	}
	return dsn
}
