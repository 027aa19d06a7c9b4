package resourcegroups

import (
	"time"

	"github.com/spf13/viper"

	"github.com/heliosql/helio-go/plugin"
)

// Option names accepted by the db-backed factory.
const (
	optDBURL           = "resource-groups.config-db-url"
	optDBUser          = "resource-groups.config-db-user"
	optDBPassword      = "resource-groups.config-db-password"
	optRefreshInterval = "resource-groups.max-refresh-interval"
	optExactMatch      = "resource-groups.exact-match-selector-enabled"

	optConfigFile = "resource-groups.config-file"
)

const defaultRefreshInterval = time.Hour

// Config is the db-backed manager configuration, decoded from the factory
// option map.
type Config struct {
	DBURL              string
	DBUser             string
	DBPassword         string
	MaxRefreshInterval time.Duration
	ExactMatchEnabled  bool
}

// ParseConfig decodes the option map. Option keys contain dots, so the viper
// instance uses a delimiter that cannot appear in them.
func ParseConfig(options map[string]string) (Config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetDefault(optRefreshInterval, defaultRefreshInterval.String())
	for key, value := range options {
		v.Set(key, value)
	}

	cfg := Config{
		DBURL:              v.GetString(optDBURL),
		DBUser:             v.GetString(optDBUser),
		DBPassword:         v.GetString(optDBPassword),
		MaxRefreshInterval: v.GetDuration(optRefreshInterval),
		ExactMatchEnabled:  v.GetBool(optExactMatch),
	}
	if cfg.DBURL == "" {
		return Config{}, &plugin.ConfigError{Option: optDBURL, Detail: "is required"}
	}
	if cfg.MaxRefreshInterval <= 0 {
		return Config{}, &plugin.ConfigError{Option: optRefreshInterval, Detail: "must be positive"}
	}
	return cfg, nil
}
