package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forest-guardian/blackmarble-ntl/internal/raster"
	"github.com/forest-guardian/blackmarble-ntl/internal/region"
)

var ErrFetchFailure = errors.New("fetch failed")

type FetchRequest struct {
	Region   *region.Region
	Product  string
	Date     time.Time
	Variable string
}

// Fetcher retrieves the value raster for one date and, when the product has one, the co-registered
// quality raster. A nil quality raster means the product carries no quality layer for the variable.
type Fetcher interface {
	Fetch(ctx context.Context, req FetchRequest) (value, qa *raster.Raster, err error)
}

type FetcherFunc func(ctx context.Context, req FetchRequest) (*raster.Raster, *raster.Raster, error)

func (f FetcherFunc) Fetch(ctx context.Context, req FetchRequest) (*raster.Raster, *raster.Raster, error) {
	return f(ctx, req)
}

// FetchError reports the date whose retrieval aborted a strict batch.
type FetchError struct {
	Date time.Time
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrFetchFailure, e.Date.Format("2006-01-02"), e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailure
}
