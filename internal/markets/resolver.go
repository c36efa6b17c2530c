package markets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/marketrun/backend/pkg/errors"
	"github.com/marketrun/backend/pkg/logger"
	"github.com/marketrun/backend/pkg/redis"
	"github.com/marketrun/backend/pkg/types"
)

// coordCache is the slice of the redis client the resolver needs.
type coordCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	MarketCoordKey(marketID string) string
}

// Resolver answers "where is this market" with a read-through cache in
// front of the market table. Cache trouble never fails a lookup, it only
// costs the extra DB read.
type Resolver struct {
	repo  Repository
	cache coordCache
	ttl   time.Duration
	logg  *logger.Logger
}

// ResolverParams collects the resolver dependencies. Cache is optional.
type ResolverParams struct {
	Repo   Repository
	Cache  coordCache
	TTL    time.Duration
	Logger *logger.Logger
}

// NewResolver builds a market coordinate resolver.
func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("markets repository required")
	}
	return &Resolver{
		repo:  params.Repo,
		cache: params.Cache,
		ttl:   params.TTL,
		logg:  params.Logger,
	}, nil
}

// Coordinate returns the market's registered point. Markets without a
// location are reported as not found, matching cannot target them.
func (r *Resolver) Coordinate(ctx context.Context, marketID uuid.UUID) (types.GeographyPoint, error) {
	if coord, ok := r.cachedCoordinate(ctx, marketID); ok {
		return coord, nil
	}

	market, err := r.repo.FindByID(ctx, marketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.GeographyPoint{}, pkgerrors.New(pkgerrors.CodeNotFound, "market not found")
		}
		return types.GeographyPoint{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load market")
	}
	if market.Location == nil {
		return types.GeographyPoint{}, pkgerrors.New(pkgerrors.CodeNotFound, "market has no location")
	}

	r.storeCoordinate(ctx, marketID, *market.Location)
	return *market.Location, nil
}

func (r *Resolver) cachedCoordinate(ctx context.Context, marketID uuid.UUID) (types.GeographyPoint, bool) {
	if r.cache == nil {
		return types.GeographyPoint{}, false
	}

	raw, err := r.cache.Get(ctx, r.cache.MarketCoordKey(marketID.String()))
	if err != nil {
		if !errors.Is(err, redis.Nil) && r.logg != nil {
			r.logg.Warn(ctx, "market coordinate cache read failed")
		}
		return types.GeographyPoint{}, false
	}

	var coord types.GeographyPoint
	if err := json.Unmarshal([]byte(raw), &coord); err != nil {
		return types.GeographyPoint{}, false
	}
	return coord, true
}

func (r *Resolver) storeCoordinate(ctx context.Context, marketID uuid.UUID, coord types.GeographyPoint) {
	if r.cache == nil {
		return
	}

	payload, err := json.Marshal(coord)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, r.cache.MarketCoordKey(marketID.String()), payload, r.ttl); err != nil && r.logg != nil {
		r.logg.Warn(ctx, "market coordinate cache write failed")
	}
}
