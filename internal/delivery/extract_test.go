package delivery

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forest-guardian/blackmarble-ntl/internal/cache"
	"github.com/forest-guardian/blackmarble-ntl/internal/coverage"
	"github.com/forest-guardian/blackmarble-ntl/internal/filter"
	"github.com/forest-guardian/blackmarble-ntl/internal/metrics"
	"github.com/forest-guardian/blackmarble-ntl/internal/quality"
	"github.com/forest-guardian/blackmarble-ntl/internal/raster"
	"github.com/forest-guardian/blackmarble-ntl/internal/region"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gt = [6]float64{0, 1, 0, 10, 0, -1}

func box(t *testing.T) *region.Region {
	t.Helper()
	r, err := region.New("box", orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}})
	require.NoError(t, err)
	return r
}

func filled(t *testing.T, v float64) *raster.Raster {
	t.Helper()
	values := make([]float64, 100)
	for i := range values {
		values[i] = v
	}
	r, err := raster.FromValues(10, 10, gt, values)
	require.NoError(t, err)
	return r
}

func days(n int) []time.Time {
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = time.Date(2023, 1, i+1, 0, 0, 0, 0, time.UTC)
	}
	return dates
}

// failingOn returns constant rasters except for the given day of January.
func failingOn(t *testing.T, day int, calls *atomic.Int32) Fetcher {
	value, qa := filled(t, 20), filled(t, 0)
	return FetcherFunc(func(ctx context.Context, req FetchRequest) (*raster.Raster, *raster.Raster, error) {
		if calls != nil {
			calls.Add(1)
		}
		if req.Date.Day() == day {
			return nil, nil, errors.New("no granule for date")
		}
		return value, qa, nil
	})
}

func opts() Options {
	return Options{
		Product:      "VNP46A2",
		Granularity:  quality.Daily,
		FillSentinel: 65535,
		Workers:      4,
	}
}

func TestExtractCoverage_NonStrictDegradesFailedDate(t *testing.T) {
	batch, err := ExtractCoverage(context.Background(), failingOn(t, 5, nil), box(t), days(10), opts())
	require.NoError(t, err)
	require.Len(t, batch.Records, 10)
	assert.NotEmpty(t, batch.RunID)

	for i, rec := range batch.Records {
		assert.Equal(t, days(10)[i], rec.Date)
		if i == 4 {
			assert.Equal(t, 0, rec.TotalPixels)
			assert.Equal(t, 0, rec.NonMissingPixels)
			assert.Nil(t, rec.CoverageRatio)
			assert.Equal(t, coverage.StatusFetchFailed, rec.Status)
			continue
		}
		assert.Equal(t, 100, rec.TotalPixels)
		assert.Equal(t, 100, rec.NonMissingPixels)
		require.NotNil(t, rec.CoverageRatio)
		assert.Equal(t, 1.0, *rec.CoverageRatio)
	}
	assert.Equal(t, []time.Time{days(10)[4]}, batch.Degraded)
}

func TestExtractCoverage_StrictFailsWithDate(t *testing.T) {
	o := opts()
	o.Strict = true
	o.Workers = 1

	batch, err := ExtractCoverage(context.Background(), failingOn(t, 5, nil), box(t), days(10), o)
	require.Error(t, err)
	assert.Nil(t, batch)
	assert.ErrorIs(t, err, ErrFetchFailure)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, days(10)[4], fetchErr.Date)
	assert.Contains(t, err.Error(), "2023-01-05")
}

func TestExtractCoverage_InvalidCodesFailBeforeFetching(t *testing.T) {
	var calls atomic.Int32
	o := opts()
	o.Granularity = quality.MonthlyAnnual
	o.ExcludedCodes = []int{7}

	_, err := ExtractCoverage(context.Background(), failingOn(t, 0, &calls), box(t), days(3), o)
	assert.ErrorIs(t, err, quality.ErrInvalidQualityCode)
	assert.Zero(t, calls.Load())
}

func TestExtractCoverage_RasterMismatchAbortsEvenWhenLenient(t *testing.T) {
	small, err := raster.FromValues(2, 2, gt, []float64{0, 0, 0, 0})
	require.NoError(t, err)
	f := FetcherFunc(func(ctx context.Context, req FetchRequest) (*raster.Raster, *raster.Raster, error) {
		return filled(t, 1), small, nil
	})

	_, err = ExtractCoverage(context.Background(), f, box(t), days(3), opts())
	assert.ErrorIs(t, err, filter.ErrRasterMismatch)
}

func TestExtractCoverage_ExcludedCodesAndScale(t *testing.T) {
	qa := filled(t, 0)
	for i := 0; i < 40; i++ {
		qa.Values[i] = 2
	}
	f := FetcherFunc(func(ctx context.Context, req FetchRequest) (*raster.Raster, *raster.Raster, error) {
		return filled(t, 50), qa, nil
	})
	o := opts()
	o.ExcludedCodes = []int{2}
	o.ScaleFactor = 0.1

	batch, err := ExtractCoverage(context.Background(), f, box(t), days(1), o)
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	rec := batch.Records[0]
	assert.Equal(t, 60, rec.NonMissingPixels)
	require.NotNil(t, rec.CoverageRatio)
	assert.InDelta(t, 0.6, *rec.CoverageRatio, 1e-12)
	require.NotNil(t, rec.MeanValue)
	assert.InDelta(t, 5.0, *rec.MeanValue, 1e-9)
}

func TestExtractCoverage_EmptyDates(t *testing.T) {
	batch, err := ExtractCoverage(context.Background(), failingOn(t, 0, nil), box(t), nil, opts())
	require.NoError(t, err)
	assert.NotNil(t, batch.Records)
	assert.Empty(t, batch.Records)
	assert.Empty(t, batch.Degraded)
}

func TestExtractCoverage_DuplicateDatesCollapse(t *testing.T) {
	dates := append(days(3), days(3)...)
	batch, err := ExtractCoverage(context.Background(), failingOn(t, 0, nil), box(t), dates, opts())
	require.NoError(t, err)
	assert.Len(t, batch.Records, 3)
}

func TestExtractCoverage_CacheSkipsFetch(t *testing.T) {
	var calls atomic.Int32
	o := opts()
	o.Cache = cache.NewFileCache[coverage.Record](t.TempDir())
	reg := prometheus.NewRegistry()
	o.Metrics = metrics.New(reg)

	first, err := ExtractCoverage(context.Background(), failingOn(t, 2, &calls), box(t), days(3), o)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())

	second, err := ExtractCoverage(context.Background(), failingOn(t, 2, &calls), box(t), days(3), o)
	require.NoError(t, err)
	// only the degraded date is fetched again
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(o.Metrics.CacheHits))

	require.Len(t, second.Records, 3)
	for i := range first.Records {
		assert.Equal(t, first.Records[i].Status, second.Records[i].Status)
		assert.Equal(t, first.Records[i].NonMissingPixels, second.Records[i].NonMissingPixels)
		assert.True(t, first.Records[i].Date.Equal(second.Records[i].Date))
	}
	assert.Equal(t, []time.Time{days(3)[1]}, second.Degraded)
}

func TestExtractRasters_KeepsFilteredRasters(t *testing.T) {
	value := filled(t, 7)
	value.Values[0] = 65535
	f := FetcherFunc(func(ctx context.Context, req FetchRequest) (*raster.Raster, *raster.Raster, error) {
		if req.Date.Day() == 2 {
			return nil, nil, errors.New("missing")
		}
		return value, nil, nil
	})

	batch, err := ExtractRasters(context.Background(), f, box(t), days(3), opts())
	require.NoError(t, err)
	assert.Len(t, batch.Records, 3)
	require.Len(t, batch.Rasters, 2)
	assert.True(t, math.IsNaN(batch.Rasters[0].Raster.Values[0]))
	assert.Equal(t, 7.0, batch.Rasters[0].Raster.Values[1])
	assert.Equal(t, days(3)[2], batch.Rasters[1].Date)
}

func TestExtractCoverage_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExtractCoverage(ctx, failingOn(t, 0, nil), box(t), days(5), opts())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchError(t *testing.T) {
	cause := errors.New("timeout")
	err := error(&FetchError{Date: days(1)[0], Err: cause})
	assert.ErrorIs(t, err, ErrFetchFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "fetch failed: 2023-01-01: timeout", err.Error())
}
