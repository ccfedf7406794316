package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"SignalFusion/internal/domain/models"
	domrepo "SignalFusion/internal/domain/repository"
	domsvc "SignalFusion/internal/domain/service"
	"SignalFusion/internal/services/decision"
	"SignalFusion/internal/services/indicators"
	applogger "SignalFusion/pkg/logger"
	"SignalFusion/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrUnsupportedCoin      = errors.New("unsupported coin")
	ErrUnsupportedTimeframe = errors.New("unsupported timeframe")
)

const (
	layerStrategy = "strategy"
	layerML       = "ml"
	layerNews     = "news"
)

// PredictionOptions bounds the collaborator calls of one prediction.
type PredictionOptions struct {
	CandleLimit int
	MLTimeout   time.Duration
	NewsTimeout time.Duration
	Lookback    time.Duration
}

func (o PredictionOptions) withDefaults() PredictionOptions {
	if o.CandleLimit <= 0 {
		o.CandleLimit = 100
	}
	if o.MLTimeout <= 0 {
		o.MLTimeout = 10 * time.Second
	}
	if o.NewsTimeout <= 0 {
		o.NewsTimeout = 10 * time.Second
	}
	if o.Lookback <= 0 {
		o.Lookback = 24 * time.Hour
	}
	return o
}

// PredictionDeps are the ports a PredictionService talks to. Only Engine and
// Candles are required.
type PredictionDeps struct {
	Engine     *decision.Engine
	Candles    domrepo.CandleSource
	Classifier domsvc.ClassifierEnsemble
	FearGreed  domsvc.FearGreedProvider
	News       domsvc.NewsSentimentProvider
	Cache      domrepo.PredictionCache
	History    domrepo.PredictionHistory
	Publisher  domrepo.PredictionPublisher
	Metrics    domrepo.Metrics
	Logger     *applogger.Logger
}

// PredictionService produces fused predictions for a coin and timeframe.
type PredictionService struct {
	deps  PredictionDeps
	opts  PredictionOptions
	now   func() time.Time
	newID func() string
}

func NewPredictionService(deps PredictionDeps, opts PredictionOptions) (*PredictionService, error) {
	if deps.Engine == nil || deps.Candles == nil {
		return nil, fmt.Errorf("prediction service: engine and candle source are required")
	}
	if deps.Logger == nil {
		deps.Logger = applogger.Nop()
	}
	return &PredictionService{
		deps:  deps,
		opts:  opts.withDefaults(),
		now:   time.Now,
		newID: uuid.NewString,
	}, nil
}

// ValidateSeries normalizes coin and timeframe or reports why they are unsupported.
func ValidateSeries(coin, timeframe string) (string, domrepo.Timeframe, error) {
	c, ok := models.LookupCoin(coin)
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedCoin, coin)
	}
	tf, ok := domrepo.ParseTimeframe(timeframe)
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedTimeframe, timeframe)
	}
	return c.Symbol, tf, nil
}

// Predict serves a cached prediction when one is fresh, otherwise computes it.
func (s *PredictionService) Predict(ctx context.Context, coin, timeframe string, minConfidence float64) (models.Prediction, error) {
	sym, tf, err := ValidateSeries(coin, timeframe)
	if err != nil {
		return models.Prediction{}, err
	}
	if s.deps.Cache != nil {
		if p, ok := s.deps.Cache.Get(ctx, sym, tf.String(), minConfidence); ok {
			return *p, nil
		}
	}
	return s.compute(ctx, sym, tf, minConfidence), nil
}

// Refresh always recomputes and overwrites the cached entry.
func (s *PredictionService) Refresh(ctx context.Context, coin, timeframe string, minConfidence float64) (models.Prediction, error) {
	sym, tf, err := ValidateSeries(coin, timeframe)
	if err != nil {
		return models.Prediction{}, err
	}
	return s.compute(ctx, sym, tf, minConfidence), nil
}

// History lists stored predictions, newest first.
func (s *PredictionService) History(ctx context.Context, coin, timeframe string, limit int) ([]models.Prediction, error) {
	if s.deps.History == nil {
		return []models.Prediction{}, nil
	}
	return s.deps.History.Recent(ctx, coin, timeframe, limit)
}

// Health reports whether the history store is reachable.
func (s *PredictionService) Health(ctx context.Context) error {
	if s.deps.History == nil {
		return nil
	}
	return s.deps.History.Health(ctx)
}

// Engine exposes the decision engine configuration to the API layer.
func (s *PredictionService) Engine() *decision.Engine { return s.deps.Engine }

// Replay runs the engine on caller supplied inputs. Nothing is cached, stored or published.
func (s *PredictionService) Replay(ctx context.Context, req models.ReplayRequest) models.Prediction {
	_, span := tracing.StartSpan(ctx, "prediction.replay",
		attribute.String("coin", req.Coin),
		attribute.Int("candles", len(req.Candles)))
	defer span.End()

	candles := slices.Clone(req.Candles)
	slices.SortStableFunc(candles, func(a, b models.Candle) int { return a.Timestamp.Compare(b.Timestamp) })

	minConf := req.MinConfidence.Or(models.DefaultMinConfidence)
	d := s.deps.Engine.Decide(candles, req.Votes, req.Readings, minConf)
	return models.NewPrediction(s.newID(), strings.ToUpper(req.Coin), req.Timeframe, s.now().UTC(), minConf, d)
}

func (s *PredictionService) compute(ctx context.Context, coin string, tf domrepo.Timeframe, minConfidence float64) (p models.Prediction) {
	id, ts := s.newID(), s.now().UTC()
	ctx, span := tracing.StartSpan(ctx, "prediction.predict",
		attribute.String("prediction.id", id),
		attribute.String("coin", coin),
		attribute.String("timeframe", tf.String()))
	defer span.End()
	log := s.deps.Logger.Ctx(ctx).With(applogger.String("prediction_id", id), applogger.String("coin", coin), applogger.String("tf", tf.String()))

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("prediction panic: %v", r)
			log.Error("prediction failed", applogger.Error(err))
			tracing.RecordError(span, err)
			p = models.EmptyPrediction(id, coin, tf.String(), ts, minConfidence, err)
		}
	}()

	candles, err := s.deps.Candles.GetCandles(ctx, coin, tf, s.opts.CandleLimit)
	if err == nil && len(candles) == 0 {
		err = models.ErrNoPriceData
	}
	if err != nil {
		log.Warn("no candles for prediction", applogger.Error(err))
		tracing.RecordError(span, err)
		s.recordError("prediction_candles")
		return models.EmptyPrediction(id, coin, tf.String(), ts, minConfidence, err)
	}

	engine := s.deps.Engine
	set := engine.Indicators(candles)

	var (
		wg                 sync.WaitGroup
		strategy, ml, news models.LayerResult
		layerErrs          [3]error
	)
	wg.Add(3)
	go s.runLayer(ctx, &wg, layerStrategy, &strategy, &layerErrs[0], func(context.Context) (models.LayerResult, error) {
		return engine.StrategyLayer(candles, set), nil
	})
	go s.runLayer(ctx, &wg, layerML, &ml, &layerErrs[1], func(ctx context.Context) (models.LayerResult, error) {
		return s.mlLayer(ctx, coin, tf, candles, set)
	})
	go s.runLayer(ctx, &wg, layerNews, &news, &layerErrs[2], func(ctx context.Context) (models.LayerResult, error) {
		return s.newsLayer(ctx, coin)
	})
	wg.Wait()

	d := engine.Finalize(candles, set, strategy, ml, news, minConfidence)
	p = models.NewPrediction(id, coin, tf.String(), ts, minConfidence, d)
	for i, name := range []string{layerStrategy, layerML, layerNews} {
		if layerErrs[i] != nil {
			p.Errors = append(p.Errors, name+": "+layerErrs[i].Error())
		}
	}

	span.SetAttributes(
		attribute.String("signal", string(p.Final.Signal)),
		attribute.Float64("confidence", p.Final.Confidence))
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordPrediction(coin, tf.String(), p.Final.Signal, p.Final.Confidence)
		s.deps.Metrics.RecordLastPrice(coin, p.CurrentPrice)
	}
	log.Info("prediction ready",
		applogger.String("signal", string(p.Final.Signal)),
		applogger.Float64("confidence", p.Final.Confidence),
		applogger.Int("layer_errors", len(p.Errors)))

	s.sideEffects(ctx, log, &p)
	return p
}

// runLayer degrades the layer to NEUTRAL/0 on error or panic.
func (s *PredictionService) runLayer(ctx context.Context, wg *sync.WaitGroup, name string, out *models.LayerResult, errOut *error, fn func(context.Context) (models.LayerResult, error)) {
	defer wg.Done()
	ctx, span := tracing.StartSpan(ctx, "prediction.layer."+name)
	defer span.End()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			*out = models.NeutralLayer()
			*errOut = fmt.Errorf("panic: %v", r)
			tracing.RecordError(span, *errOut)
		}
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordLayer(name, out.Signal, time.Since(start).Seconds())
		}
	}()

	res, err := fn(ctx)
	if err != nil {
		tracing.RecordError(span, err)
		s.recordError("layer_" + name)
		*out, *errOut = models.NeutralLayer(), err
		return
	}
	*out = res
}

func (s *PredictionService) mlLayer(ctx context.Context, coin string, tf domrepo.Timeframe, candles []models.Candle, set *indicators.Set) (models.LayerResult, error) {
	if s.deps.Classifier == nil {
		return models.NeutralLayer(), nil
	}
	row, err := s.deps.Engine.Features(candles, set)
	if err != nil {
		return models.NeutralLayer(), err
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.MLTimeout)
	defer cancel()
	votes, err := s.deps.Classifier.Predict(ctx, coin, tf.String(), row)
	if err != nil {
		return models.NeutralLayer(), err
	}
	return s.deps.Engine.MLLayer(votes), nil
}

// newsLayer queries both sentiment sources in parallel. A failed source is
// left out; the layer only errors when every configured source failed.
func (s *PredictionService) newsLayer(ctx context.Context, coin string) (models.LayerResult, error) {
	if s.deps.FearGreed == nil && s.deps.News == nil {
		return models.NeutralLayer(), nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.NewsTimeout)
	defer cancel()

	var (
		wg       sync.WaitGroup
		fg       *models.SentimentReading
		items    []models.SentimentReading
		fgErr    error
		newsErr  error
		attempts int
	)
	if s.deps.FearGreed != nil {
		attempts++
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := s.deps.FearGreed.FearGreed(ctx)
			if err != nil {
				fgErr = err
				return
			}
			fg = &r
		}()
	}
	if s.deps.News != nil {
		attempts++
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, newsErr = s.deps.News.NewsSentiment(ctx, coin, s.opts.Lookback)
		}()
	}
	wg.Wait()

	var readings []models.SentimentReading
	if fg != nil {
		readings = append(readings, *fg)
	}
	if newsErr == nil {
		readings = append(readings, items...)
	}
	failed := 0
	for _, err := range []error{fgErr, newsErr} {
		if err != nil {
			failed++
		}
	}
	err := errors.Join(fgErr, newsErr)
	if failed == attempts {
		return models.NeutralLayer(), err
	}
	if err != nil {
		s.deps.Logger.Warn("sentiment source unavailable", applogger.String("coin", coin), applogger.Error(err))
	}
	return s.deps.Engine.NewsLayer(readings), nil
}

// sideEffects never fail the prediction.
func (s *PredictionService) sideEffects(ctx context.Context, log *applogger.Logger, p *models.Prediction) {
	if p.Error != "" {
		return
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, p); err != nil {
			log.Warn("prediction cache set failed", applogger.Error(err))
		}
	}
	if s.deps.History != nil {
		if err := s.deps.History.Save(ctx, p); err != nil {
			log.Warn("prediction history save failed", applogger.Error(err))
			s.recordError("history_save")
		}
	}
	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishPrediction(ctx, p); err != nil {
			log.Warn("prediction publish failed", applogger.Error(err))
			s.recordError("prediction_publish")
		}
	}
}

func (s *PredictionService) recordError(kind string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordError(kind)
	}
}
