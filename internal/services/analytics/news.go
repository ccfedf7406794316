package analytics

import (
    "context"
    "strings"
    "time"

    "SignalFusion/internal/domain/models"
    domsvc "SignalFusion/internal/domain/service"
    "SignalFusion/internal/services/sentiment"
    "SignalFusion/pkg/config"
)

// HTTPNewsSentiment pulls recent CryptoPanic headlines for a coin and has
// the model service score them.
type HTTPNewsSentiment struct {
    news     *HTTPServiceBase
    scorer   *HTTPServiceBase
    apiKey   string
    maxItems int
    attempts int
    now      func() time.Time
}

func NewHTTPNewsSentiment(cfg *config.Config) *HTTPNewsSentiment {
    return &HTTPNewsSentiment{
        news:     NewHTTPServiceBase("cryptopanic", strings.TrimRight(cfg.Sentiment.CryptoPanicURL, "/"), cfg.Sentiment.Timeout),
        scorer:   NewHTTPServiceBase("sentiment_scorer", cfg.Analytics.URL, cfg.Analytics.Timeout),
        apiKey:   cfg.Sentiment.CryptoPanicAPIKey,
        maxItems: cfg.Sentiment.MaxNewsItems,
        attempts: cfg.Analytics.Retries,
        now:      time.Now,
    }
}

type postsResponse struct {
    Results []struct {
        Title       string    `json:"title"`
        PublishedAt time.Time `json:"published_at"`
    } `json:"results"`
}

type scoreRequest struct {
    Texts []string `json:"texts"`
}

type scoreResponse struct {
    Scores []struct {
        Score      float64 `json:"score"`
        Confidence float64 `json:"confidence"`
    } `json:"scores"`
}

// NewsSentiment returns nil readings without error when no API key is set,
// so the news layer falls back to fear/greed alone.
func (n *HTTPNewsSentiment) NewsSentiment(ctx context.Context, coin string, lookback time.Duration) ([]models.SentimentReading, error) {
    if n.apiKey == "" {
        return nil, nil
    }

    var posts postsResponse
    query := map[string][]string{
        "auth_token": {n.apiKey},
        "public":     {"true"},
        "currencies": {strings.ToUpper(coin)},
    }
    if err := n.news.GetJSONWithRetry(ctx, "/posts/", query, &posts, 2); err != nil {
        return nil, &models.UpstreamUnavailableError{Source: "cryptopanic", Err: err}
    }

    cutoff := n.now().Add(-lookback)
    titles := make([]string, 0, len(posts.Results))
    for _, p := range posts.Results {
        if lookback > 0 && !p.PublishedAt.IsZero() && p.PublishedAt.Before(cutoff) {
            continue
        }
        if t := strings.TrimSpace(p.Title); t != "" {
            titles = append(titles, t)
        }
        if n.maxItems > 0 && len(titles) >= n.maxItems {
            break
        }
    }
    if len(titles) == 0 {
        return nil, nil
    }

    var scored scoreResponse
    if err := n.scorer.PostJSONWithRetry(ctx, "/sentiment/score", scoreRequest{Texts: titles}, &scored, n.attempts); err != nil {
        return nil, &models.UpstreamUnavailableError{Source: "sentiment_scorer", Err: err}
    }

    readings := make([]models.SentimentReading, 0, len(scored.Scores))
    for _, s := range scored.Scores {
        readings = append(readings, sentiment.NewsReading(s.Score, s.Confidence))
    }
    return readings, nil
}

var _ domsvc.NewsSentimentProvider = (*HTTPNewsSentiment)(nil)
