package analytics

import (
    "context"

    "SignalFusion/internal/domain/models"
    domsvc "SignalFusion/internal/domain/service"
    "SignalFusion/internal/services/ensemble"
    "SignalFusion/pkg/config"
)

// HTTPClassifier asks the model service for per-model direction votes.
type HTTPClassifier struct {
    base     *HTTPServiceBase
    attempts int
}

func NewHTTPClassifier(cfg *config.Config) *HTTPClassifier {
    return &HTTPClassifier{
        base:     NewHTTPServiceBase("classifier", cfg.Analytics.URL, cfg.Analytics.Timeout),
        attempts: cfg.Analytics.Retries,
    }
}

type classifyRequest struct {
    Coin      string            `json:"coin"`
    Timeframe string            `json:"timeframe"`
    Features  models.FeatureRow `json:"features"`
}

type classifyResponse struct {
    Predictions []struct {
        Model         string    `json:"model"`
        Prediction    int       `json:"prediction"`
        Probabilities []float64 `json:"probabilities"`
    } `json:"predictions"`
}

func (c *HTTPClassifier) Predict(ctx context.Context, coin, timeframe string, features models.FeatureRow) ([]models.ClassifierVote, error) {
    var resp classifyResponse
    req := classifyRequest{Coin: coin, Timeframe: timeframe, Features: features}
    if err := c.base.PostJSONWithRetry(ctx, "/predict", req, &resp, c.attempts); err != nil {
        return nil, &models.UpstreamUnavailableError{Source: "classifier", Err: err}
    }

    votes := make([]models.ClassifierVote, 0, len(resp.Predictions))
    for _, p := range resp.Predictions {
        votes = append(votes, ensemble.NewVote(p.Model, p.Prediction, p.Probabilities))
    }
    return votes, nil
}

var _ domsvc.ClassifierEnsemble = (*HTTPClassifier)(nil)
