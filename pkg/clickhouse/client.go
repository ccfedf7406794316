package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/creasty/defaults"
	"github.com/jmoiron/sqlx"
)

// Config describes the candle warehouse connection. Zero fields take the
// tagged defaults.
type Config struct {
	Host             string
	Port             int    `default:"9000"`
	Database         string `default:"default"`
	User             string `default:"default"`
	Password         string
	UseHTTP          bool
	AsyncInsert      bool
	WaitForAsync     bool
	MaxOpenConns     int           `default:"10"`
	MaxIdleConns     int           `default:"5"`
	ConnMaxLifetime  time.Duration `default:"5m"`
	DialTimeout      time.Duration `default:"5s"`
	ReadTimeout      time.Duration `default:"10s"`
	MaxExecutionTime time.Duration
}

// DSN renders the clickhouse-go connection string. Async inserts let the
// collector's small batches coalesce server side.
func (c Config) DSN() string {
	scheme := "clickhouse"
	if c.UseHTTP {
		scheme = "http"
	}
	u := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}

	q := url.Values{}
	if c.DialTimeout > 0 {
		q.Set("dial_timeout", c.DialTimeout.String())
	}
	if c.ReadTimeout > 0 {
		q.Set("read_timeout", c.ReadTimeout.String())
	}
	if c.MaxExecutionTime > 0 {
		q.Set("max_execution_time", strconv.Itoa(int(c.MaxExecutionTime.Seconds())))
	}
	if c.AsyncInsert {
		q.Set("async_insert", "1")
		if c.WaitForAsync {
			q.Set("wait_for_async_insert", "1")
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Client owns the ClickHouse pool.
type Client struct {
	db *sqlx.DB
}

// NewClient opens the pool and pings it once.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("clickhouse: host is required")
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("clickhouse defaults: %w", err)
	}

	db, err := sqlx.Open("clickhouse", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	return &Client{db: db}, nil
}

func (c *Client) DB() *sqlx.DB {
	return c.db
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
