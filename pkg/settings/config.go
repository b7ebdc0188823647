package settings

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

type Config struct {
	MongoDB MongoDB `mapstructure:"mongodb"`
	Logger  Logger  `mapstructure:"logger"`
	Redis   Redis   `mapstructure:"redis"`
	Kafka   Kafka   `mapstructure:"kafka"`
	Metrics Metrics `mapstructure:"metrics"`
	IDs     IDs     `mapstructure:"ids"`
}

// MongoDB is the configuration for MongoDB
type MongoDB struct {
	URL             string `mapstructure:"url"`
	Host            string `mapstructure:"host"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	Collection      string `mapstructure:"collection"`
	MaxPoolSize     uint64 `mapstructure:"max_pool_size"`
	MinPoolSize     uint64 `mapstructure:"min_pool_size"`
	MaxConnIdleTime uint64 `mapstructure:"max_conn_idle_time"` // Seconds
	Port            int    `mapstructure:"port"`
	Timeout         int    `mapstructure:"timeout"` // Seconds
}

// URI returns the connection string described by the configuration.
// An explicit URL wins over host/port/credentials. An empty result means
// no endpoint was configured.
func (m *MongoDB) URI() string {
	if m.URL != "" {
		return m.URL
	}
	if m.Host == "" {
		return ""
	}

	host := m.Host
	if m.Port > 0 {
		host = net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
	}

	u := url.URL{Scheme: "mongodb", Host: host}
	if m.Username != "" {
		u.User = url.UserPassword(m.Username, m.Password)
	}
	return u.String()
}

// Logger is the configuration for the logger
type Logger struct {
	LogLevel    string `mapstructure:"log_level"`
	Format      string `mapstructure:"format"` // json or console
	FileLogName string `mapstructure:"file_log_name"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	MaxSize     int    `mapstructure:"max_size"`
	Compress    bool   `mapstructure:"compress"`
}

// Redis is the configuration for Redis
type Redis struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Password        string `mapstructure:"password"`
	Database        int    `mapstructure:"database"`
	PoolSize        int    `mapstructure:"pool_size"`
	MinIdleConns    int    `mapstructure:"min_idle_conns"`
	PoolTimeout     int    `mapstructure:"pool_timeout"`
	DialTimeout     int    `mapstructure:"dial_timeout"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	MaxRetries      int    `mapstructure:"max_retries"`
	MaxRetryBackoff int    `mapstructure:"max_retry_backoff"`
	MinRetryBackoff int    `mapstructure:"min_retry_backoff"`
	CacheTTL        int    `mapstructure:"cache_ttl"` // Seconds
}

// Addr returns host:port for the redis server.
func (r *Redis) Addr() string {
	if r.Port > 0 {
		return fmt.Sprintf("%s:%d", r.Host, r.Port)
	}
	return r.Host
}

// Kafka is the configuration for Kafka
type Kafka struct {
	Brokers      []string `mapstructure:"brokers"`
	Topic        string   `mapstructure:"topic"`
	BatchSize    int      `mapstructure:"batch_size"`    // Number of events
	QueueSize    int      `mapstructure:"queue_size"`    // Batches waiting for the sender
	Timeout      int      `mapstructure:"timeout"`       // Seconds
	MaxRetries   int      `mapstructure:"max_retries"`   // Number of retries
	RetryBackoff int      `mapstructure:"retry_backoff"` // Milliseconds
}

// Metrics is the configuration for the prometheus collectors
type Metrics struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// IDs configures the snowflake generator used for integer identifiers.
type IDs struct {
	WorkerID  int64 `mapstructure:"worker_id"`
	Epoch     int64 `mapstructure:"epoch"` // Unix milliseconds
	NodeBits  uint8 `mapstructure:"node_bits"`
	StepBits  uint8 `mapstructure:"step_bits"`
	TotalBits uint8 `mapstructure:"total_bits"`
}
