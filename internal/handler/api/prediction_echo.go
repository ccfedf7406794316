package api

import (
    "context"
    "errors"
    "reflect"
    "time"

    models "SignalFusion/internal/domain/models"
    domrepo "SignalFusion/internal/domain/repository"
    "SignalFusion/internal/service/metrics"
    "SignalFusion/internal/service/ratelimit"
    "SignalFusion/internal/usecase"
    xhttp "SignalFusion/pkg/http"
    xlogger "SignalFusion/pkg/logger"

    "github.com/labstack/echo/v4"
)

func init() {
    xhttp.RegisterCustomType(func(v reflect.Value) interface{} {
        if n, ok := v.Interface().(models.NullFloat); ok {
            if f, ok := n.Get(); ok {
                return f
            }
        }
        return nil
    }, models.NullFloat{})
}

// Predictor is what the API needs from the prediction use case.
type Predictor interface {
    Predict(ctx context.Context, coin, timeframe string, minConfidence float64) (models.Prediction, error)
    History(ctx context.Context, coin, timeframe string, limit int) ([]models.Prediction, error)
    Health(ctx context.Context) error
    Replay(ctx context.Context, req models.ReplayRequest) models.Prediction
}

// MarketDataProvider serves candles for the charts.
type MarketDataProvider interface {
    GetMarketData(ctx context.Context, p usecase.GetMarketDataParams) (*usecase.MarketData, error)
}

// EngineInfo is the public view of the engine configuration.
type EngineInfo struct {
    Weights struct {
        Strategy float64 `json:"strategy"`
        ML       float64 `json:"ml"`
        News     float64 `json:"news"`
    } `json:"weights"`
    Thresholds struct {
        MinConfidence  float64 `json:"min_confidence"`
        HighConfidence float64 `json:"high_confidence"`
    } `json:"thresholds"`
    Risk struct {
        MaxTradeRisk float64 `json:"max_trade_risk"`
        StopLoss     float64 `json:"stop_loss"`
        TakeProfit   float64 `json:"take_profit"`
    } `json:"risk"`
}

// Options tune the handler; zero values fall back to defaults.
type Options struct {
    PushInterval time.Duration
    RateLimiter  *ratelimit.Limiter
}

// PredictionEchoHandler exposes predictions, market data and the live feed.
type PredictionEchoHandler struct {
    logger  *xlogger.Logger
    pred    Predictor
    market  MarketDataProvider
    info    EngineInfo
    push    time.Duration
    limiter *ratelimit.Limiter
}

func NewPredictionEchoHandler(logger *xlogger.Logger, pred Predictor, market MarketDataProvider, info EngineInfo, opts Options) *PredictionEchoHandler {
    if logger == nil {
        logger = xlogger.Nop()
    }
    if opts.PushInterval <= 0 {
        opts.PushInterval = 10 * time.Second
    }
    metrics.Register()
    return &PredictionEchoHandler{
        logger:  logger,
        pred:    pred,
        market:  market,
        info:    info,
        push:    opts.PushInterval,
        limiter: opts.RateLimiter,
    }
}

func (h *PredictionEchoHandler) RegisterRoutes(e *echo.Echo) {
    e.GET("/health", h.Health)
    e.GET("/ws/market", h.MarketFeed)

    g := e.Group("/api")
    g.GET("/coins", h.Coins)
    g.GET("/timeframes", h.Timeframes)
    g.GET("/config", h.Config)
    g.GET("/market-data/:coin/:timeframe", h.MarketData)

    rl := RateLimit(h.limiter, h.logger)
    g.POST("/prediction", h.CreatePrediction, rl)
    g.GET("/prediction/:coin/:timeframe", h.GetPrediction, rl)
    g.GET("/predictions/history", h.History, rl)
    g.POST("/decision/replay", h.Replay, rl)
}

func (h *PredictionEchoHandler) Health(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
    defer cancel()
    status, database := "healthy", "connected"
    if err := h.pred.Health(ctx); err != nil {
        h.logger.Warn("health: history store unreachable", xlogger.Error(err))
        status, database = "degraded", "disconnected"
    }
    return xhttp.SuccessResponse(c, map[string]string{
        "status":            status,
        "database":          database,
        "prediction_engine": "ready",
    })
}

func (h *PredictionEchoHandler) Coins(c echo.Context) error {
    c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
    return xhttp.SuccessResponse(c, map[string][]models.Coin{"coins": models.SupportedCoins})
}

func (h *PredictionEchoHandler) Timeframes(c echo.Context) error {
    c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
    return xhttp.SuccessResponse(c, map[string][]string{"timeframes": domrepo.TimeframeStrings()})
}

func (h *PredictionEchoHandler) Config(c echo.Context) error {
    return xhttp.SuccessResponse(c, h.info)
}

func (h *PredictionEchoHandler) MarketData(c echo.Context) error {
    start := time.Now()
    defer metrics.ObserveEndpoint("market_data", start)

    req := &models.MarketDataRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }
    res, err := h.market.GetMarketData(c.Request().Context(), usecase.GetMarketDataParams{
        Coin:              req.Coin,
        Timeframe:         req.Timeframe,
        Limit:             req.Limit,
        IncludeIndicators: req.IncludeIndicators,
    })
    if err != nil {
        return h.fail(c, "market_data", err)
    }
    return xhttp.SuccessResponse(c, res)
}

func (h *PredictionEchoHandler) CreatePrediction(c echo.Context) error {
    return h.predict(c, "prediction_create")
}

func (h *PredictionEchoHandler) GetPrediction(c echo.Context) error {
    return h.predict(c, "prediction_get")
}

func (h *PredictionEchoHandler) predict(c echo.Context, endpoint string) error {
    start := time.Now()
    defer metrics.ObserveEndpoint(endpoint, start)

    req := &models.PredictionRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }
    minConf := req.MinConfidence.Or(models.DefaultMinConfidence)
    p, err := h.pred.Predict(c.Request().Context(), req.Coin, req.Timeframe, minConf)
    if err != nil {
        return h.fail(c, endpoint, err)
    }
    if p.Error != "" {
        metrics.EndpointError(endpoint, "degraded")
    }
    return xhttp.SuccessResponse(c, p)
}

func (h *PredictionEchoHandler) History(c echo.Context) error {
    start := time.Now()
    defer metrics.ObserveEndpoint("history", start)

    req := &models.HistoryRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }
    rows, err := h.pred.History(c.Request().Context(), req.Coin, req.Timeframe, req.Limit)
    if err != nil {
        return h.fail(c, "history", err)
    }
    return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *PredictionEchoHandler) Replay(c echo.Context) error {
    start := time.Now()
    defer metrics.ObserveEndpoint("replay", start)

    req := &models.ReplayRequest{}
    if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
        return xhttp.BadRequestResponse(c, verr)
    }
    req.MinConfidence = models.Float(req.MinConfidence.Or(models.DefaultMinConfidence))
    return xhttp.SuccessResponse(c, h.pred.Replay(c.Request().Context(), *req))
}

// fail maps use case errors onto the API error envelope.
func (h *PredictionEchoHandler) fail(c echo.Context, endpoint string, err error) error {
    switch {
    case errors.Is(err, usecase.ErrUnsupportedCoin), errors.Is(err, usecase.ErrUnsupportedTimeframe):
        metrics.EndpointError(endpoint, "bad_request")
        return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
    case errors.Is(err, models.ErrNoPriceData):
        metrics.EndpointError(endpoint, "not_found")
        return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
    case models.IsUpstreamUnavailable(err):
        metrics.EndpointError(endpoint, "upstream")
        return xhttp.AppErrorResponse(c, xhttp.UnavailableError(err.Error()).WithError(err))
    default:
        metrics.EndpointError(endpoint, "internal")
        h.logger.Error(endpoint+" failed", xlogger.Error(err))
        return xhttp.AppErrorResponse(c, err)
    }
}
