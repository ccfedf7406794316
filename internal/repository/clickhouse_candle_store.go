package repository

import (
	"context"
	"fmt"
	"time"

	"SignalFusion/internal/domain/models"
	domrepo "SignalFusion/internal/domain/repository"
	pkgch "SignalFusion/pkg/clickhouse"
	applogger "SignalFusion/pkg/logger"
	"SignalFusion/pkg/util"

	"github.com/jmoiron/sqlx"
)

// CHCandleStore implements CandleStore backed by one ClickHouse table keyed
// by (coin, timeframe, ts). Re-inserted bars replace older versions.
type CHCandleStore struct {
	db       *sqlx.DB
	database string
	l        *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client, database string, l *applogger.Logger) *CHCandleStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHCandleStore{db: ch.DB(), database: database, l: l}
}

func (s *CHCandleStore) table() string {
	return s.database + ".candles"
}

type candleRow struct {
	Coin      string    `db:"coin"`
	Timeframe string    `db:"timeframe"`
	TS        time.Time `db:"ts"`
	Open      float64   `db:"open"`
	High      float64   `db:"high"`
	Low       float64   `db:"low"`
	Close     float64   `db:"close"`
	Volume    float64   `db:"volume"`
}

func (r candleRow) candle() models.Candle {
	return models.Candle{
		Timestamp: r.TS.UTC(),
		Symbol:    r.Coin,
		Open:      r.Open,
		High:      r.High,
		Low:       r.Low,
		Close:     r.Close,
		Volume:    r.Volume,
	}
}

func (s *CHCandleStore) Init(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            coin      LowCardinality(String),
            timeframe LowCardinality(String),
            ts        DateTime64(3, 'UTC'),
            open      Float64,
            high      Float64,
            low       Float64,
            close     Float64,
            volume    Float64,
            received  DateTime64(3, 'UTC')
        ) ENGINE = ReplacingMergeTree(received)
        ORDER BY (coin, timeframe, ts)`, s.table()),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init candles schema: %w", err)
		}
	}
	return nil
}

// StoreBatch inserts candles in one prepared batch.
func (s *CHCandleStore) StoreBatch(ctx context.Context, candles []*models.StreamCandle) error {
	if len(candles) == 0 {
		return nil
	}
	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PreparexContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (coin, timeframe, ts, open, high, low, close, volume, received)", s.table()))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	n := 0
	for _, c := range candles {
		if c == nil || c.Coin == "" || c.Timestamp.IsZero() {
			continue
		}
		received := c.Received
		if received.IsZero() {
			received = start
		}
		if _, err := stmt.ExecContext(ctx, c.Coin, c.Timeframe, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume, received); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append candle: %w", err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	s.l.Debug("clickhouse store_batch ok",
		applogger.Int("rows", n),
		applogger.Duration("duration", time.Since(start)))
	return nil
}

func (s *CHCandleStore) GetCandles(ctx context.Context, coin string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	from, to = util.AlignFromTo(from, to, tf.Duration())
	q := fmt.Sprintf(`
        SELECT coin, timeframe, ts, open, high, low, close, volume
        FROM %s FINAL
        WHERE coin = ? AND timeframe = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC`, s.table())
	var rows []candleRow
	if err := s.db.SelectContext(ctx, &rows, q, coin, tf.String(), from, to); err != nil {
		s.l.Error("clickhouse get_candles error",
			applogger.String("coin", coin),
			applogger.String("tf", tf.String()),
			applogger.Error(err))
		return nil, fmt.Errorf("get candles: %w", err)
	}
	out := make([]models.Candle, len(rows))
	for i, r := range rows {
		out[i] = r.candle()
	}
	return out, nil
}

// GetLatestNCandles returns the newest n candles in ascending order.
func (s *CHCandleStore) GetLatestNCandles(ctx context.Context, coin string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	q := fmt.Sprintf(`
        SELECT coin, timeframe, ts, open, high, low, close, volume
        FROM %s FINAL
        WHERE coin = ? AND timeframe = ?
        ORDER BY ts DESC
        LIMIT ?`, s.table())
	var rows []candleRow
	if err := s.db.SelectContext(ctx, &rows, q, coin, tf.String(), n); err != nil {
		s.l.Error("clickhouse latest_candles error",
			applogger.String("coin", coin),
			applogger.String("tf", tf.String()),
			applogger.Int("limit", n),
			applogger.Error(err))
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	out := make([]models.Candle, len(rows))
	// reverse to ASC
	for i, r := range rows {
		out[len(rows)-1-i] = r.candle()
	}
	return out, nil
}

func (s *CHCandleStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the pool belongs to pkg/clickhouse.
func (s *CHCandleStore) Close() error {
	return nil
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)
