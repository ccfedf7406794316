package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"SignalFusion/internal/domain/models"
	domrepo "SignalFusion/internal/domain/repository"
	pkgpg "SignalFusion/pkg/postgres"

	"github.com/jmoiron/sqlx"
)

var predictionSchema = []string{
	`CREATE TABLE IF NOT EXISTS predictions (
        id                  UUID PRIMARY KEY,
        coin                VARCHAR(16) NOT NULL,
        timeframe           VARCHAR(8)  NOT NULL,
        current_price       DOUBLE PRECISION NOT NULL,
        strategy_signal     VARCHAR(8),
        strategy_confidence DOUBLE PRECISION,
        ml_signal           VARCHAR(8),
        ml_confidence       DOUBLE PRECISION,
        news_signal         VARCHAR(8),
        news_confidence     DOUBLE PRECISION,
        strategy_details    JSONB,
        ml_details          JSONB,
        final_signal        VARCHAR(8) NOT NULL,
        final_confidence    DOUBLE PRECISION NOT NULL,
        final_score         DOUBLE PRECISION NOT NULL,
        target_price        DOUBLE PRECISION,
        target_type         VARCHAR(4),
        stop_loss           DOUBLE PRECISION,
        payload             JSONB NOT NULL,
        created_at          TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_series ON predictions (coin, timeframe, created_at DESC)`,
}

type predictionRow struct {
	ID                 string    `db:"id"`
	Coin               string    `db:"coin"`
	Timeframe          string    `db:"timeframe"`
	CurrentPrice       float64   `db:"current_price"`
	StrategySignal     *string   `db:"strategy_signal"`
	StrategyConfidence *float64  `db:"strategy_confidence"`
	MLSignal           *string   `db:"ml_signal"`
	MLConfidence       *float64  `db:"ml_confidence"`
	NewsSignal         *string   `db:"news_signal"`
	NewsConfidence     *float64  `db:"news_confidence"`
	StrategyDetails    []byte    `db:"strategy_details"`
	MLDetails          []byte    `db:"ml_details"`
	FinalSignal        string    `db:"final_signal"`
	FinalConfidence    float64   `db:"final_confidence"`
	FinalScore         float64   `db:"final_score"`
	TargetPrice        *float64  `db:"target_price"`
	TargetType         *string   `db:"target_type"`
	StopLoss           *float64  `db:"stop_loss"`
	Payload            []byte    `db:"payload"`
	CreatedAt          time.Time `db:"created_at"`
}

func newPredictionRow(p *models.Prediction) (predictionRow, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return predictionRow{}, fmt.Errorf("marshal prediction: %w", err)
	}
	row := predictionRow{
		ID:              p.ID,
		Coin:            p.Coin,
		Timeframe:       p.Timeframe,
		CurrentPrice:    p.CurrentPrice,
		FinalSignal:     string(p.Final.Signal),
		FinalConfidence: p.Final.Confidence,
		FinalScore:      p.Final.Score,
		TargetPrice:     p.Final.TargetPrice.Ptr(),
		StopLoss:        p.Final.StopLoss.Ptr(),
		Payload:         payload,
		CreatedAt:       p.Timestamp,
	}
	if p.Strategy != nil {
		row.StrategySignal, row.StrategyConfidence = layerColumns(p.Strategy.Signal, p.Strategy.Confidence)
		if row.StrategyDetails, err = json.Marshal(p.Strategy.Details); err != nil {
			return predictionRow{}, fmt.Errorf("marshal strategy details: %w", err)
		}
	}
	if p.ML != nil {
		row.MLSignal, row.MLConfidence = layerColumns(p.ML.Signal, p.ML.Confidence)
		if row.MLDetails, err = json.Marshal(p.ML.Details); err != nil {
			return predictionRow{}, fmt.Errorf("marshal ml details: %w", err)
		}
	}
	if p.News != nil {
		row.NewsSignal, row.NewsConfidence = layerColumns(p.News.Signal, p.News.Confidence)
	}
	if p.Final.TargetType != nil {
		tt := string(*p.Final.TargetType)
		row.TargetType = &tt
	}
	return row, nil
}

func layerColumns(sig models.Signal, conf float64) (*string, *float64) {
	s := string(sig)
	return &s, &conf
}

// PGPredictionHistory stores predictions in Postgres. The full transport
// shape is kept in payload; the flat columns are for ad hoc queries.
type PGPredictionHistory struct {
	db *sqlx.DB
}

func NewPGPredictionHistory(pg *pkgpg.Client) *PGPredictionHistory {
	return &PGPredictionHistory{db: pg.DB()}
}

// Migrate creates the predictions table if needed.
func (h *PGPredictionHistory) Migrate(ctx context.Context) error {
	for _, stmt := range predictionSchema {
		if _, err := h.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate predictions: %w", err)
		}
	}
	return nil
}

const insertPrediction = `
    INSERT INTO predictions (
        id, coin, timeframe, current_price,
        strategy_signal, strategy_confidence, ml_signal, ml_confidence, news_signal, news_confidence,
        strategy_details, ml_details,
        final_signal, final_confidence, final_score, target_price, target_type, stop_loss,
        payload, created_at
    ) VALUES (
        :id, :coin, :timeframe, :current_price,
        :strategy_signal, :strategy_confidence, :ml_signal, :ml_confidence, :news_signal, :news_confidence,
        :strategy_details, :ml_details,
        :final_signal, :final_confidence, :final_score, :target_price, :target_type, :stop_loss,
        :payload, :created_at
    ) ON CONFLICT (id) DO NOTHING`

func (h *PGPredictionHistory) Save(ctx context.Context, p *models.Prediction) error {
	row, err := newPredictionRow(p)
	if err != nil {
		return err
	}
	if _, err := h.db.NamedExecContext(ctx, insertPrediction, row); err != nil {
		return fmt.Errorf("save prediction: %w", err)
	}
	return nil
}

// Recent lists the newest predictions, optionally filtered by coin and timeframe.
func (h *PGPredictionHistory) Recent(ctx context.Context, coin, timeframe string, limit int) ([]models.Prediction, error) {
	where := []string{}
	args := []interface{}{}
	if coin != "" {
		args = append(args, strings.ToUpper(coin))
		where = append(where, fmt.Sprintf("coin = $%d", len(args)))
	}
	if timeframe != "" {
		args = append(args, timeframe)
		where = append(where, fmt.Sprintf("timeframe = $%d", len(args)))
	}
	q := "SELECT payload FROM predictions"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	var payloads [][]byte
	if err := h.db.SelectContext(ctx, &payloads, q, args...); err != nil {
		return nil, fmt.Errorf("recent predictions: %w", err)
	}
	out := make([]models.Prediction, 0, len(payloads))
	for _, b := range payloads {
		var p models.Prediction
		if err := json.Unmarshal(b, &p); err != nil {
			return nil, fmt.Errorf("decode prediction: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (h *PGPredictionHistory) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

// MemoryPredictionHistory keeps the newest predictions in a bounded ring.
// Used when Postgres is not configured.
type MemoryPredictionHistory struct {
	mu    sync.RWMutex
	items []models.Prediction
	max   int
}

func NewMemoryPredictionHistory(max int) *MemoryPredictionHistory {
	if max <= 0 {
		max = 1000
	}
	return &MemoryPredictionHistory{max: max}
}

func (h *MemoryPredictionHistory) Save(_ context.Context, p *models.Prediction) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = append(h.items, *p)
	if over := len(h.items) - h.max; over > 0 {
		h.items = append([]models.Prediction(nil), h.items[over:]...)
	}
	return nil
}

func (h *MemoryPredictionHistory) Recent(_ context.Context, coin, timeframe string, limit int) ([]models.Prediction, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.Prediction, 0, limit)
	for i := len(h.items) - 1; i >= 0 && len(out) < limit; i-- {
		p := h.items[i]
		if coin != "" && !strings.EqualFold(p.Coin, coin) {
			continue
		}
		if timeframe != "" && p.Timeframe != timeframe {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (h *MemoryPredictionHistory) Health(context.Context) error { return nil }

var (
	_ domrepo.PredictionHistory = (*PGPredictionHistory)(nil)
	_ domrepo.PredictionHistory = (*MemoryPredictionHistory)(nil)
)
