package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"
)

type DB struct {
	URL             string        `env:"DATABASE_URL,required"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"16"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"8"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"15m"`
}

type HTTP struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type Kafka struct {
	Enabled         bool          `env:"KAFKA_ENABLED" envDefault:"false"`
	Brokers         string        `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	Topic           string        `env:"KAFKA_AUDIT_TOPIC" envDefault:"audit-trail-entries"`
	DeliveryTimeout time.Duration `env:"KAFKA_DELIVERY_TIMEOUT" envDefault:"10s"`
}

type Audit struct {
	// SystemActorID is recorded for entries written by non-interactive
	// callers. Zero records no actor.
	SystemActorID         int64    `env:"AUDIT_SYSTEM_ACTOR_ID" envDefault:"0"`
	IgnoredAttributes     []string `env:"AUDIT_IGNORED_ATTRIBUTES" envSeparator:"," envDefault:"created_at,updated_at"`
	LogInsert             bool     `env:"AUDIT_LOG_INSERT" envDefault:"true"`
	LogUpdate             bool     `env:"AUDIT_LOG_UPDATE" envDefault:"true"`
	LogDelete             bool     `env:"AUDIT_LOG_DELETE" envDefault:"true"`
	PersistValuesOnInsert bool     `env:"AUDIT_PERSIST_VALUES_ON_INSERT" envDefault:"true"`
	EmptyStringIsNull     bool     `env:"AUDIT_EMPTY_STRING_IS_NULL" envDefault:"true"`
	CaseSensitive         bool     `env:"AUDIT_CASE_SENSITIVE" envDefault:"false"`
}

type Log struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

type Config struct {
	DB    DB
	HTTP  HTTP
	Kafka Kafka
	Audit Audit
	Log   Log
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.Log.ParseLevel(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l Log) ParseLevel() (log.Level, error) {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", l.Level, err)
	}
	return level, nil
}
