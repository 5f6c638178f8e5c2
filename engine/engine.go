package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/sig-0/p2prates/ingest"
	"github.com/sig-0/p2prates/p2p"
	"github.com/sig-0/p2prates/storage"
	"github.com/sig-0/p2prates/storage/types"
)

const defaultPageRows = 20

// Engine derives the pair rates out of the P2P order books
type Engine struct {
	fetcher p2p.Fetcher
	storage storage.Storage
	tables  *Tables
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	concurrency int
	rows        int
}

// New creates a new engine instance
func New(fetcher p2p.Fetcher, s storage.Storage, opts ...Option) *Engine {
	e := &Engine{
		fetcher:     fetcher,
		storage:     s,
		tables:      DefaultTables(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:     NewMetrics(nil),
		now:         Now,
		concurrency: 1,
		rows:        defaultPageRows,
	}

	// Apply the options
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Job returns the engine run as a scheduled job
func (e *Engine) Job(schedule ingest.Schedule) ingest.Job {
	return ingest.NewJob("engine", schedule, func(ctx context.Context) error {
		_, err := e.Run(ctx)

		return err
	})
}

// Report is the outcome of a single run
type Report struct {
	RunID     string
	AsOf      time.Time
	Bases     []BasePrice
	Missing   []string // "{label} {side}" of the markets without a base
	Pairs     []PairRates
	Averages  int
	Saved     int
	Failed    int
	PageHits  int64
	PageCalls int64
}

// run is the state of a single engine run
type run struct {
	*Engine

	id        string
	asOf      time.Time
	logger    *slog.Logger
	collector *p2p.Collector
	bases     *BaseStore
	averages  *AverageTracker

	report *Report
	mu     sync.Mutex
}

// Run executes a single engine run: every BUY market, every SELL market,
// then every (origin, destination) pair. Persistence failures are logged
// and do not abort the run
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	var (
		id    = xid.New().String()
		asOf  = e.now()
		start = time.Now()
		cache = p2p.NewCache(e.fetcher)

		logger = e.logger.With("run", id)
	)

	r := &run{
		Engine: e,
		id:     id,
		asOf:   asOf,
		logger: logger,
		collector: p2p.NewCollector(
			cache,
			p2p.WithCollectorLogger(logger),
			p2p.WithRows(e.rows),
		),
		bases: NewBaseStore(),
		averages: NewAverageTracker(e.storage, func() time.Time {
			return asOf
		}),
		report: &Report{
			RunID: id,
			AsOf:  asOf,
		},
	}

	logger.Info("engine run started", "as_of", asOf.String())

	defer func() {
		r.report.PageHits = cache.Hits()
		r.report.PageCalls = cache.Misses()

		e.metrics.cacheHits.Add(float64(r.report.PageHits))
		e.metrics.cacheMisses.Add(float64(r.report.PageCalls))
		e.metrics.runDuration.Observe(time.Since(start).Seconds())
	}()

	for _, side := range []types.Side{types.SideBUY, types.SideSELL} {
		if err := r.processSide(ctx, side); err != nil {
			return r.report, fmt.Errorf("unable to process %s markets: %w", side, err)
		}
	}

	if err := r.processPairs(ctx); err != nil {
		return r.report, fmt.Errorf("unable to process pairs: %w", err)
	}

	e.metrics.runs.Inc()

	logger.Info(
		"engine run completed",
		"bases", len(r.report.Bases),
		"missing", len(r.report.Missing),
		"pairs", len(r.report.Pairs),
		"saved", r.report.Saved,
		"failed", r.report.Failed,
		"duration", time.Since(start).String(),
	)

	return r.report, nil
}

// processSide processes every market of the side, in configuration order
// unless concurrency is enabled
func (r *run) processSide(ctx context.Context, side types.Side) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, m := range r.tables.MarketsBySide(side) {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			r.processMarket(gCtx, m)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return ctx.Err()
}

// processMarket selects and persists the base price of the market
func (r *run) processMarket(ctx context.Context, m Market) {
	var (
		rule   = r.tables.Methods[m.Method]
		logger = r.logger.With("label", m.Label, "side", m.Side.String())

		req = p2p.Request{
			Method:          rule,
			Fiat:            m.Fiat,
			Side:            m.Side,
			Countries:       m.Countries,
			Want:            m.Selection.Depth(r.tables.EarlyStop),
			MaxPages:        m.MaxPages,
			MerchantsOnly:   m.MerchantsOnly,
			UniqueMerchants: m.UniqueMerchants,
		}
	)

	offers := r.collector.Collect(ctx, req)

	base, ok := SelectBase(offers, m.Side, m.Selection)
	if !ok {
		logger.Warn("no offer found", "fiat", m.Fiat)

		r.metrics.missingBases.WithLabelValues(m.Label, m.Side.String()).Inc()
		r.addMissing(m)

		return
	}

	if m.TradeSize > 0 {
		// Refine with the fiat amount of the configured trade size
		amount := base.Price * m.TradeSize
		req.Amount = &amount

		if refined, ok := SelectBase(r.collector.Collect(ctx, req), m.Side, m.Selection); ok {
			base = refined
		} else {
			logger.Debug("no offer for the trade amount", "amount", amount)
		}
	}

	base.Label = m.Label
	base.Fiat = m.Fiat

	r.bases.Put(*base)
	r.addBase(*base)
	r.metrics.bases.WithLabelValues(m.Side.String()).Inc()

	logger.Info(
		"selected base price",
		"price", base.Price,
		"seller", base.Seller,
		"methods", base.Methods,
		"ad_url", p2p.AdURL(base.AdvNo),
		"profile_url", p2p.ProfileURL(base.SellerID),
	)

	r.save(ctx, BaseRateName(m.Label, m.Side), base.Price, BaseDecimals)

	if r.tables.Buckets != nil {
		r.processBuckets(ctx, m, req)
	}
}

// processBuckets persists the amount bucket rates of the market
func (r *run) processBuckets(ctx context.Context, m Market, req p2p.Request) {
	var (
		cfg    = r.tables.Buckets
		median = Selection{Mode: SelectMedianOfTop, TopK: cfg.TopK}
		best   = Selection{Mode: SelectMin}
	)

	if m.Side == types.SideSELL {
		best = Selection{Mode: SelectMax}
	}

	// Pages of the base collection are served from the run cache
	req.Amount = nil
	req.Want = 0

	offers := r.collector.Collect(ctx, req)

	admitting := func(amount float64) []p2p.Offer {
		out := make([]p2p.Offer, 0, len(offers))

		for _, o := range offers {
			if p2p.AmountInRange(o, &amount) {
				out = append(out, o)
			}
		}

		return out
	}

	retail := make([]p2p.Offer, 0, len(offers))

	for _, o := range offers {
		if p2p.RangeOverlaps(o, nil, &cfg.PublicAmount) {
			retail = append(retail, o)
		}
	}

	buckets := []struct {
		bucket types.Bucket
		offers []p2p.Offer
		sel    Selection
	}{
		{types.BucketFull, retail, best},
		{types.BucketPublic, admitting(cfg.PublicAmount), median},
		{types.BucketWholesale, admitting(cfg.WholesaleAmount), median},
		{types.BucketAverage, offers, median},
	}

	for _, b := range buckets {
		base, ok := SelectBase(b.offers, m.Side, b.sel)
		if !ok {
			continue
		}

		rate := &types.BucketRate{
			AsOf:    r.asOf,
			Label:   m.Label,
			Fiat:    m.Fiat,
			Side:    m.Side,
			Bucket:  b.bucket,
			Seller:  base.Seller,
			Methods: base.Methods,
			Value:   decimal.NewFromFloat(base.Price).Round(BaseDecimals),
		}

		if err := r.storage.SaveBucketRate(ctx, rate); err != nil {
			r.logger.Error(
				"unable to save bucket rate",
				"label", m.Label,
				"side", m.Side.String(),
				"bucket", b.bucket.String(),
				"value", rate.Value.String(),
				"err", err,
			)

			r.metrics.saveFailures.Inc()
			r.addSaved(false)

			continue
		}

		r.addSaved(true)
	}
}

// processPairs derives, persists and averages every pair rate.
// Pairs run sequentially so a tier is written before its average is read
func (r *run) processPairs(ctx context.Context) error {
	var (
		origins      = r.tables.MarketsBySide(types.SideBUY)
		destinations = r.tables.MarketsBySide(types.SideSELL)
	)

	for _, origin := range origins {
		buy, ok := r.bases.Get(origin.Label, types.SideBUY)
		if !ok {
			continue
		}

		for _, destination := range destinations {
			if err := ctx.Err(); err != nil {
				return err
			}

			sell, ok := r.bases.Get(destination.Label, types.SideSELL)
			if !ok {
				continue
			}

			rates, ok := ComputePair(r.tables, origin.Label, destination.Label, buy, sell)
			if !ok {
				continue
			}

			r.addPair(rates)

			r.logger.Debug(
				"computed pair rates",
				"pair", rates.Pair.String(),
				"full", rates.Full,
				"public", rates.Public,
				"wholesale", rates.Wholesale,
				"decimals", rates.Decimals,
			)

			saved := make([]Tier, 0, len(Tiers))

			for _, tier := range Tiers {
				if r.save(ctx, PairRateName(tier, rates.Pair), rates.Value(tier), rates.Decimals) {
					saved = append(saved, tier)
				}
			}

			for _, tier := range saved {
				r.updateAverage(ctx, tier, rates)
			}
		}
	}

	return nil
}

// updateAverage appends the rolling average of the pair tier
func (r *run) updateAverage(ctx context.Context, tier Tier, rates PairRates) {
	averageName := AverageRateName(tier, rates.Pair)

	_, ok, err := r.averages.Update(ctx, PairRateName(tier, rates.Pair), averageName, rates.Decimals)
	if err != nil {
		r.logger.Error(
			"unable to update rolling average",
			"name", averageName,
			"err", err,
		)

		r.metrics.saveFailures.Inc()
		r.addSaved(false)

		return
	}

	if ok {
		r.metrics.savedRates.Inc()

		r.mu.Lock()
		r.report.Averages++
		r.report.Saved++
		r.mu.Unlock()
	}
}

// save appends the named rate rounded to the given decimals.
// Failures are logged and counted
func (r *run) save(ctx context.Context, name string, value float64, decimals int) bool {
	rate := &types.NamedRate{
		AsOf:  r.asOf,
		Name:  name,
		Value: decimal.NewFromFloat(value).Round(int32(decimals)),
	}

	if err := r.storage.SaveRate(ctx, rate); err != nil {
		r.logger.Error(
			"unable to save rate",
			"name", name,
			"value", rate.Value.String(),
			"err", err,
		)

		r.metrics.saveFailures.Inc()
		r.addSaved(false)

		return false
	}

	r.metrics.savedRates.Inc()
	r.addSaved(true)

	return true
}

func (r *run) addSaved(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ok {
		r.report.Saved++
	} else {
		r.report.Failed++
	}
}

func (r *run) addBase(b BasePrice) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.report.Bases = append(r.report.Bases, b)
}

func (r *run) addMissing(m Market) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.report.Missing = append(r.report.Missing, m.Label+" "+m.Side.String())
}

func (r *run) addPair(p PairRates) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.report.Pairs = append(r.report.Pairs, p)
}
