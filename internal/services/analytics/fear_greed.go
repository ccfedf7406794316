package analytics

import (
    "context"
    "fmt"
    "strconv"

    "SignalFusion/internal/domain/models"
    domsvc "SignalFusion/internal/domain/service"
    "SignalFusion/internal/services/sentiment"
    "SignalFusion/pkg/config"
)

// HTTPFearGreed reads the market-wide Fear & Greed index.
type HTTPFearGreed struct {
    base *HTTPServiceBase
}

func NewHTTPFearGreed(cfg *config.Config) *HTTPFearGreed {
    return &HTTPFearGreed{base: NewHTTPServiceBase("fear_greed", cfg.Sentiment.FearGreedURL, cfg.Sentiment.Timeout)}
}

// values arrive as strings, e.g. {"data":[{"value":"72","value_classification":"Greed"}]}
type fearGreedResponse struct {
    Data []struct {
        Value          string `json:"value"`
        Classification string `json:"value_classification"`
    } `json:"data"`
}

func (f *HTTPFearGreed) FearGreed(ctx context.Context) (models.SentimentReading, error) {
    var resp fearGreedResponse
    err := f.base.GetJSONWithRetry(ctx, "", map[string][]string{"limit": {"1"}}, &resp, 2)
    if err != nil {
        return models.SentimentReading{}, &models.UpstreamUnavailableError{Source: "fear_greed", Err: err}
    }
    if len(resp.Data) == 0 {
        return models.SentimentReading{}, &models.UpstreamUnavailableError{Source: "fear_greed", Err: fmt.Errorf("empty data")}
    }
    v, err := strconv.ParseFloat(resp.Data[0].Value, 64)
    if err != nil {
        return models.SentimentReading{}, &models.UpstreamUnavailableError{Source: "fear_greed", Err: fmt.Errorf("bad value %q", resp.Data[0].Value)}
    }
    return sentiment.FearGreedReading(v, resp.Data[0].Classification), nil
}

var _ domsvc.FearGreedProvider = (*HTTPFearGreed)(nil)
