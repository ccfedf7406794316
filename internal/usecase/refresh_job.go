package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"SignalFusion/internal/domain/models"
	applogger "SignalFusion/pkg/logger"
	"SignalFusion/pkg/queue"
)

// RefreshJobType is the queue message type that recomputes one series.
const RefreshJobType = "prediction.refresh"

type RefreshPayload struct {
	Coin          string  `json:"coin"`
	Timeframe     string  `json:"timeframe"`
	MinConfidence float64 `json:"min_confidence,omitempty"`
}

// Refresher is the part of PredictionService the job needs.
type Refresher interface {
	Refresh(ctx context.Context, coin, timeframe string, minConfidence float64) (models.Prediction, error)
}

// RefreshJob keeps cached predictions and history warm.
type RefreshJob struct {
	svc           Refresher
	minConfidence float64
	log           *applogger.Logger
}

func NewRefreshJob(svc Refresher, defaultMinConfidence float64, log *applogger.Logger) *RefreshJob {
	if log == nil {
		log = applogger.Nop()
	}
	return &RefreshJob{svc: svc, minConfidence: defaultMinConfidence, log: log}
}

func (j *RefreshJob) Name() string { return "prediction-refresh" }

func (j *RefreshJob) Type() string { return RefreshJobType }

func (j *RefreshJob) Handle(ctx context.Context, payload json.RawMessage) error {
	p, err := queue.ParsePayload[RefreshPayload](payload)
	if err != nil {
		return err
	}
	minConf := p.MinConfidence
	if minConf <= 0 {
		minConf = j.minConfidence
	}
	pred, err := j.svc.Refresh(ctx, p.Coin, p.Timeframe, minConf)
	if errors.Is(err, ErrUnsupportedCoin) || errors.Is(err, ErrUnsupportedTimeframe) {
		j.log.Warn("refresh for unsupported series skipped", applogger.String("coin", p.Coin), applogger.String("tf", p.Timeframe))
		return nil
	}
	if err != nil {
		return err
	}
	if pred.Error != "" {
		// retried by the queue; upstream may recover
		return errors.New(pred.Error)
	}
	j.log.Debug("prediction refreshed",
		applogger.String("coin", pred.Coin),
		applogger.String("tf", pred.Timeframe),
		applogger.String("signal", string(pred.Final.Signal)))
	return nil
}

var _ queue.Job = (*RefreshJob)(nil)
