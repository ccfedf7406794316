package clickhouse

import (
	"strings"
	"testing"
	"time"

	"github.com/creasty/defaults"
)

func TestDSN(t *testing.T) {
	dsn := Config{
		Host:             "ch",
		Port:             9000,
		Database:         "signalfusion",
		User:             "default",
		Password:         "p@ss",
		DialTimeout:      5 * time.Second,
		MaxExecutionTime: time.Minute,
		AsyncInsert:      true,
	}.DSN()
	if !strings.HasPrefix(dsn, "clickhouse://default:p%40ss@ch:9000/signalfusion?") {
		t.Fatalf("dsn=%s", dsn)
	}
	for _, want := range []string{"dial_timeout=5s", "max_execution_time=60", "async_insert=1"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %s missing %s", dsn, want)
		}
	}
	if strings.Contains(dsn, "wait_for_async_insert") {
		t.Fatalf("unexpected wait flag in %s", dsn)
	}
}

func TestDSNOverHTTP(t *testing.T) {
	dsn := Config{Host: "ch", Port: 8123, Database: "db", User: "u", UseHTTP: true}.DSN()
	if !strings.HasPrefix(dsn, "http://u:@ch:8123/db") {
		t.Fatalf("dsn=%s", dsn)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{Host: "ch", Port: 9440}
	if err := defaults.Set(&cfg); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if cfg.Port != 9440 || cfg.Database != "default" || cfg.MaxOpenConns != 10 || cfg.DialTimeout != 5*time.Second {
		t.Fatalf("cfg %+v", cfg)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error")
	}
}
