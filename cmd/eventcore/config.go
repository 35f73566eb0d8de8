package main

import (
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/config"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/dogmatiq/eventcore/persistence/boltpersistence"
	"github.com/dogmatiq/eventcore/persistence/memorypersistence"
	"github.com/dogmatiq/eventcore/persistence/sqlpersistence"
	"github.com/dogmatiq/eventcore/streamprocessor"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// settings is the configuration of the binary, read from the environment.
type settings struct {
	Persistence  string
	BoltPath     string
	SQLDriver    string
	SQLDSN       string
	Tenant       string
	Concurrency  int
	Debug        bool
	MetricsAddr  string
	DemoInterval time.Duration
}

func loadSettings(b config.Bucket) settings {
	return settings{
		Persistence:  config.AsStringDefault(b, "EVENTCORE_PERSISTENCE", "memory"),
		BoltPath:     config.AsStringDefault(b, "EVENTCORE_BOLT_PATH", "eventcore.boltdb"),
		SQLDriver:    config.AsStringDefault(b, "EVENTCORE_SQL_DRIVER", "sqlite"),
		SQLDSN:       config.AsStringDefault(b, "EVENTCORE_SQL_DSN", "file:eventcore.sqlite?_pragma=busy_timeout(5000)&_txlock=immediate"),
		Tenant:       config.AsStringDefault(b, "EVENTCORE_TENANT", "default"),
		Concurrency:  config.AsIntDefault(b, "EVENTCORE_CONCURRENCY", streamprocessor.DefaultConcurrency),
		Debug:        config.AsBoolDefault(b, "EVENTCORE_DEBUG", false),
		MetricsAddr:  config.AsStringDefault(b, "EVENTCORE_METRICS_ADDR", ""),
		DemoInterval: config.AsDurationDefault(b, "EVENTCORE_DEMO_INTERVAL", 1*time.Second),
	}
}

// newZapLogger returns the zap logger described by s.
func newZapLogger(s settings) (*zap.Logger, error) {
	if s.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newProvider returns the persistence provider described by s.
func newProvider(s settings) (persistence.Provider, error) {
	switch s.Persistence {
	case "memory":
		return &memorypersistence.Provider{}, nil

	case "bolt":
		return &boltpersistence.Provider{
			Path: s.BoltPath,
		}, nil

	case "sql":
		p := &sqlpersistence.Provider{
			DriverName:   s.SQLDriver,
			DSN:          s.SQLDSN,
			CreateSchema: true,
		}

		if s.SQLDriver == "sqlite" {
			// SQLite only supports a single writer.
			p.MaxOpenConns = 1
		}

		return p, nil

	default:
		return nil, fmt.Errorf("unrecognized persistence type %q, expected memory, bolt or sql", s.Persistence)
	}
}
