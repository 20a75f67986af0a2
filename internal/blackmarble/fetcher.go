package blackmarble

import (
	"context"
	"fmt"
	"sync"

	"github.com/forest-guardian/blackmarble-ntl/internal/delivery"
	"github.com/forest-guardian/blackmarble-ntl/internal/raster"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// TileReader loads one layer of a downloaded granule. name is a GDAL dataset name as built by
// Product.Subdataset. The returned geotransform is ignored; tiles are placed by their grid position.
type TileReader interface {
	ReadLayer(name string) (*raster.Raster, error)
}

// Fetcher retrieves Black Marble granules for a region and date and assembles them into one raster.
type Fetcher struct {
	client      *Client
	reader      TileReader
	logger      zerolog.Logger
	concurrency int
	lookup      func(string) (Product, error)
}

func NewFetcher(client *Client, reader TileReader, concurrency int, logger zerolog.Logger) *Fetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Fetcher{
		client:      client,
		reader:      reader,
		logger:      logger.With().Str("component", "fetcher").Logger(),
		concurrency: concurrency,
		lookup:      LookupProduct,
	}
}

var _ delivery.Fetcher = (*Fetcher)(nil)

func (f *Fetcher) Fetch(ctx context.Context, req delivery.FetchRequest) (*raster.Raster, *raster.Raster, error) {
	p, err := f.lookup(req.Product)
	if err != nil {
		return nil, nil, err
	}
	if req.Region == nil {
		return nil, nil, fmt.Errorf("no region given")
	}
	date := Normalize(p, req.Date)
	variable := p.Variable(req.Variable)
	bound := req.Region.Bound()

	granules, err := f.client.List(ctx, p, date)
	if err != nil {
		return nil, nil, err
	}
	wanted := make(map[Tile]Granule)
	for _, tile := range TilesFor(bound) {
		for _, g := range granules {
			if g.Tile(tile) {
				wanted[tile] = g
				break
			}
		}
	}
	if len(wanted) == 0 {
		return nil, nil, fmt.Errorf("%w: no tile of %s %s covers region %s", ErrNoData, p.ID, FormatDate(p, date), req.Region.Name)
	}

	var (
		mu    sync.Mutex
		paths = make(map[Tile]string, len(wanted))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for tile, granule := range wanted {
		tile, granule := tile, granule
		g.Go(func() error {
			path, err := f.client.Download(gctx, p, date, granule)
			if err != nil {
				return fmt.Errorf("tile %s: %w", tile.Name(), err)
			}
			mu.Lock()
			paths[tile] = path
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	qaLayer, hasQA := p.QualityLayer(variable)
	values := make(map[Tile]*raster.Raster, len(paths))
	qualities := make(map[Tile]*raster.Raster, len(paths))
	for tile, path := range paths {
		v, err := f.readTile(p, tile, path, variable)
		if err != nil {
			return nil, nil, err
		}
		values[tile] = v
		if hasQA {
			q, err := f.readTile(p, tile, path, qaLayer)
			if err != nil {
				return nil, nil, err
			}
			qualities[tile] = q
		}
	}

	value, err := mosaic(bound, p.TileSize, values)
	if err != nil {
		return nil, nil, err
	}
	f.logger.Debug().
		Str("product", p.ID).
		Str("date", FormatDate(p, date)).
		Int("tiles", len(values)).
		Int("width", value.Width).
		Int("height", value.Height).
		Msg("mosaic assembled")
	if !hasQA {
		return value, nil, nil
	}
	qa, err := mosaic(bound, p.TileSize, qualities)
	if err != nil {
		return nil, nil, err
	}
	return value, qa, nil
}

func (f *Fetcher) readTile(p Product, tile Tile, path, layer string) (*raster.Raster, error) {
	r, err := f.reader.ReadLayer(p.Subdataset(path, layer))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from tile %s: %w", layer, tile.Name(), err)
	}
	r.GeoTransform = tile.GeoTransform(p.TileSize)
	return r, nil
}
