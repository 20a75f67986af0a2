package delivery

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/forest-guardian/blackmarble-ntl/internal/cache"
	"github.com/forest-guardian/blackmarble-ntl/internal/coverage"
	"github.com/forest-guardian/blackmarble-ntl/internal/filter"
	"github.com/forest-guardian/blackmarble-ntl/internal/metrics"
	"github.com/forest-guardian/blackmarble-ntl/internal/quality"
	"github.com/forest-guardian/blackmarble-ntl/internal/raster"
	"github.com/forest-guardian/blackmarble-ntl/internal/region"
	"github.com/forest-guardian/blackmarble-ntl/internal/utils"
	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

type Options struct {
	Product       string
	Variable      string
	Granularity   quality.Granularity
	ExcludedCodes []int
	FillSentinel  float64
	// ScaleFactor is applied to kept cells after filtering; 0 and 1 leave values raw.
	ScaleFactor  float64
	Strict       bool
	Workers      int
	ShowProgress bool

	Cache   cache.CacheService[coverage.Record]
	Metrics *metrics.Metrics
	Logger  *zerolog.Logger
}

func (o Options) workers() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}

func (o Options) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

// Batch is the result of one extraction run. Degraded lists the dates whose fetch failed and
// whose records therefore carry zero counts rather than observed coverage.
type Batch struct {
	RunID    string
	Records  []coverage.Record
	Rasters  []coverage.Dated
	Degraded []time.Time
}

// ExtractCoverage fetches, filters and summarises every date for the region. Records come back in
// ascending date order whatever order the workers finish in.
func ExtractCoverage(ctx context.Context, f Fetcher, reg *region.Region, dates []time.Time, opts Options) (*Batch, error) {
	return run(ctx, f, reg, dates, opts, false)
}

// ExtractRasters runs the same pipeline but keeps the filtered rasters. The record cache is bypassed.
func ExtractRasters(ctx context.Context, f Fetcher, reg *region.Region, dates []time.Time, opts Options) (*Batch, error) {
	return run(ctx, f, reg, dates, opts, true)
}

type outcome struct {
	record coverage.Record
	raster *raster.Raster
}

func run(ctx context.Context, f Fetcher, reg *region.Region, dates []time.Time, opts Options, keepRasters bool) (*Batch, error) {
	if err := quality.ValidateCodes(opts.ExcludedCodes, opts.Granularity); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errors.New("no fetcher configured")
	}
	if reg == nil {
		return nil, errors.New("no region given")
	}

	dates = utils.UniqueSortedDates(dates, true)
	batch := &Batch{
		RunID:   uuid.NewString(),
		Records: make([]coverage.Record, 0, len(dates)),
	}
	if len(dates) == 0 {
		return batch, nil
	}

	logger := opts.logger().With().Str("run_id", batch.RunID).Str("region", reg.Name).Logger()
	logger.Info().Int("dates", len(dates)).Str("product", opts.Product).Bool("strict", opts.Strict).Msg("starting extraction")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu             sync.Mutex
		outcomes       = make([]outcome, 0, len(dates))
		firstErr       error
		stopProcessing sync.Once
		bar            = newProgressBar(len(dates), opts.ShowProgress)
	)

	p := &processor{fetcher: f, region: reg, opts: opts, logger: logger, keepRasters: keepRasters}
	wp := workerpool.New(opts.workers())
	for _, date := range dates {
		d := date
		wp.Submit(func() {
			if runCtx.Err() != nil {
				return
			}
			out, err := p.process(runCtx, d)
			if err != nil {
				stopProcessing.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			mu.Lock()
			outcomes = append(outcomes, out)
			bar.Add(1)
			mu.Unlock()
		})
	}
	wp.StopWait()
	bar.Finish()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		logger.Error().Err(firstErr).Msg("extraction aborted")
		return nil, firstErr
	}

	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].record.Date.Before(outcomes[j].record.Date)
	})
	for _, out := range outcomes {
		batch.Records = append(batch.Records, out.record)
		if out.record.Degraded() {
			batch.Degraded = append(batch.Degraded, out.record.Date)
		}
		if keepRasters && out.raster != nil {
			batch.Rasters = append(batch.Rasters, coverage.Dated{Date: out.record.Date, Raster: out.raster})
		}
	}

	logger.Info().Int("records", len(batch.Records)).Int("degraded", len(batch.Degraded)).Msg("extraction finished")
	return batch, nil
}

type processor struct {
	fetcher     Fetcher
	region      *region.Region
	opts        Options
	logger      zerolog.Logger
	keepRasters bool
}

func (p *processor) cacheKey(date time.Time) string {
	codes := slices.Clone(p.opts.ExcludedCodes)
	slices.Sort(codes)
	return p.opts.Cache.GenerateKey(
		p.region.CacheKey(),
		p.opts.Product,
		p.opts.Variable,
		date.Format("2006-01-02"),
		p.opts.Granularity,
		codes,
		p.opts.FillSentinel,
		p.opts.ScaleFactor,
	)
}

// process handles one date. Only errors that must abort the batch are returned.
func (p *processor) process(ctx context.Context, date time.Time) (outcome, error) {
	useCache := p.opts.Cache != nil && !p.keepRasters
	var key string
	if useCache {
		key = p.cacheKey(date)
		if rec, ok := p.opts.Cache.Get(key); ok {
			p.opts.Metrics.ObserveCacheHit()
			p.opts.Metrics.ObserveDate("cached")
			p.logger.Debug().Time("date", date).Msg("coverage record served from cache")
			return outcome{record: rec}, nil
		}
	}

	start := time.Now()
	value, qa, err := p.fetcher.Fetch(ctx, FetchRequest{
		Region:   p.region,
		Product:  p.opts.Product,
		Date:     date,
		Variable: p.opts.Variable,
	})
	p.opts.Metrics.ObserveFetch(time.Since(start).Seconds())
	if err == nil && value == nil {
		err = errors.New("fetcher returned no raster")
	}
	if err != nil {
		if ctx.Err() != nil {
			return outcome{}, ctx.Err()
		}
		if p.opts.Strict {
			return outcome{}, &FetchError{Date: date, Err: err}
		}
		p.logger.Warn().Err(err).Time("date", date).Msg("fetch failed, recording zero coverage")
		p.opts.Metrics.ObserveDate(string(coverage.StatusFetchFailed))
		return outcome{record: coverage.FailedRecord(date, err)}, nil
	}

	filtered, stats, err := filter.ApplyWithStats(value, qa, filter.Options{
		Granularity:   p.opts.Granularity,
		ExcludedCodes: p.opts.ExcludedCodes,
		FillSentinel:  p.opts.FillSentinel,
	})
	if err != nil {
		return outcome{}, fmt.Errorf("%s: %w", date.Format("2006-01-02"), err)
	}
	p.opts.Metrics.ObservePixels(stats.Kept, stats.Fill, stats.Excluded, stats.Missing)
	if p.opts.ScaleFactor != 0 && p.opts.ScaleFactor != 1 {
		filtered = filtered.Scale(p.opts.ScaleFactor)
	}

	rec := coverage.SummarizeOne(p.region, date, filtered)
	p.opts.Metrics.ObserveDate(string(rec.Status))
	p.logger.Debug().
		Time("date", date).
		Int("n_pixels", rec.TotalPixels).
		Int("n_non_na_pixels", rec.NonMissingPixels).
		Msg("date summarised")

	if useCache && rec.Status == coverage.StatusOK {
		if err := p.opts.Cache.Set(key, rec); err != nil {
			p.logger.Warn().Err(err).Msg("failed to cache coverage record")
		}
	}

	out := outcome{record: rec}
	if p.keepRasters {
		out.raster = filtered
	}
	return out, nil
}

func newProgressBar(total int, show bool) *progressbar.ProgressBar {
	if show {
		return progressbar.Default(int64(total), "Extracting dates")
	}
	return progressbar.DefaultSilent(int64(total))
}
