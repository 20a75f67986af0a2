package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/forest-guardian/blackmarble-ntl/internal/blackmarble"
	"github.com/forest-guardian/blackmarble-ntl/internal/cache"
	"github.com/forest-guardian/blackmarble-ntl/internal/coverage"
	"github.com/forest-guardian/blackmarble-ntl/internal/delivery"
	"github.com/forest-guardian/blackmarble-ntl/internal/geotiff"
	"github.com/forest-guardian/blackmarble-ntl/internal/quality"
	"github.com/forest-guardian/blackmarble-ntl/internal/region"
	"github.com/spf13/cobra"
)

// extractFlags are shared by the commands that download granules.
type extractFlags struct {
	regionPath      string
	featureProperty string
	featureValue    string
	product         string
	variable        string
	start           string
	end             string
	exclude         string
	strict          bool
	noCache         bool
	progress        bool
	workers         int
}

func (f *extractFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.regionPath, "region", "", "GeoJSON file with the region of interest")
	flags.StringVar(&f.featureProperty, "feature-property", "", "property used to pick one feature of a collection")
	flags.StringVar(&f.featureValue, "feature-value", "", "value of --feature-property to match")
	flags.StringVar(&f.product, "product", "VNP46A3", "VNP46A1, VNP46A2, VNP46A3 or VNP46A4")
	flags.StringVar(&f.variable, "variable", "", "layer to read (defaults to the product's main radiance layer)")
	flags.StringVar(&f.start, "start", "", "first date (YYYY-MM-DD, YYYY-MM or YYYY depending on product)")
	flags.StringVar(&f.end, "end", "", "last date, inclusive (defaults to --start)")
	flags.StringVar(&f.exclude, "exclude", "", "comma separated quality codes to mask (overrides EXCLUDED_QUALITY_CODES)")
	flags.BoolVar(&f.strict, "strict", false, "fail the whole run when any date cannot be fetched")
	flags.BoolVar(&f.noCache, "no-cache", false, "ignore cached coverage records")
	flags.BoolVar(&f.progress, "progress", true, "show a progress bar")
	flags.IntVar(&f.workers, "workers", 0, "dates processed concurrently (overrides WORKERS)")
	_ = cmd.MarkFlagRequired("region")
	_ = cmd.MarkFlagRequired("start")
}

type extraction struct {
	region  *region.Region
	product blackmarble.Product
	dates   []time.Time
	opts    delivery.Options
	fetcher delivery.Fetcher
}

func (f *extractFlags) prepare(cmd *cobra.Command) (*extraction, error) {
	a := current
	if a.cfg.BearerToken == "" {
		return nil, errors.New("BLACKMARBLE_BEARER_TOKEN is not set; create a LAADS DAAC token first")
	}

	reg, err := region.Load(f.regionPath, f.featureProperty, f.featureValue)
	if err != nil {
		return nil, err
	}
	product, err := blackmarble.LookupProduct(f.product)
	if err != nil {
		return nil, err
	}

	start, err := blackmarble.ParseDate(product, f.start)
	if err != nil {
		return nil, err
	}
	end := start
	if f.end != "" {
		if end, err = blackmarble.ParseDate(product, f.end); err != nil {
			return nil, err
		}
	}
	dates, err := blackmarble.DateRange(product, start, end)
	if err != nil {
		return nil, err
	}

	excluded := a.cfg.ExcludedQualityCodes
	if cmd.Flags().Changed("exclude") {
		if excluded, err = quality.ParseCodes(f.exclude); err != nil {
			return nil, err
		}
	}
	strict := a.cfg.Strict
	if cmd.Flags().Changed("strict") {
		strict = f.strict
	}
	workers := a.cfg.Workers
	if f.workers > 0 {
		workers = f.workers
	}

	opts := delivery.Options{
		Product:       product.ID,
		Variable:      product.Variable(f.variable),
		Granularity:   product.Granularity,
		ExcludedCodes: excluded,
		FillSentinel:  product.FillValue,
		ScaleFactor:   product.ScaleFactor,
		Strict:        strict,
		Workers:       workers,
		ShowProgress:  f.progress,
		Metrics:       a.metrics,
		Logger:        &a.logger,
	}
	if _, ok := product.QualityLayer(opts.Variable); !ok && len(excluded) > 0 {
		return nil, fmt.Errorf("%s has no quality layer for %s, drop --exclude", product.ID, opts.Variable)
	}
	if a.cfg.CacheEnabled && !f.noCache {
		opts.Cache = cache.NewFileCache[coverage.Record](a.cfg.RecordCachePath())
	}

	client := blackmarble.NewClient(blackmarble.ClientConfig{
		BaseURL:           a.cfg.LaadsBaseURL,
		BearerToken:       a.cfg.BearerToken,
		DownloadDir:       a.cfg.DownloadPath(),
		Timeout:           a.cfg.HTTPTimeout,
		RequestsPerSecond: a.cfg.RequestsPerSecond,
		Retries:           a.cfg.DownloadRetries,
	}, a.logger)

	logEvent := a.logger.Info().Str("region", reg.Name).Str("product", product.ID).Int("dates", len(dates))
	if c, err := reg.Centroid(); err == nil {
		logEvent = logEvent.Float64("lat", c.Lat()).Float64("lon", c.Lon())
	}
	logEvent.Msg("region loaded")

	return &extraction{
		region:  reg,
		product: product,
		dates:   dates,
		opts:    opts,
		fetcher: blackmarble.NewFetcher(client, geotiff.NewReader(), workers, a.logger),
	}, nil
}
