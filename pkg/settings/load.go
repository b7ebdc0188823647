package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. MONGOREPO_MONGODB_URL.
const EnvPrefix = "MONGOREPO"

var (
	ErrReadConfig   = errors.New("failed to read config")
	ErrDecodeConfig = errors.New("failed to decode config")
)

// Load reads the configuration file at path and applies environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadConfig, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeConfig, err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mongodb.url", "")
	v.SetDefault("mongodb.database", "")
	v.SetDefault("mongodb.collection", "")
	v.SetDefault("mongodb.timeout", 10)
	v.SetDefault("logger.log_level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("redis.cache_ttl", 300)
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.queue_size", 64)
	v.SetDefault("metrics.namespace", "mongorepo")
	v.SetDefault("ids.node_bits", 10)
	v.SetDefault("ids.step_bits", 12)
	v.SetDefault("ids.total_bits", 63)
}
