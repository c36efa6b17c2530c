package markets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketrun/backend/pkg/db/models"
	pkgerrors "github.com/marketrun/backend/pkg/errors"
	"github.com/marketrun/backend/pkg/redis"
	"github.com/marketrun/backend/pkg/types"
)

func TestResolverCacheHitSkipsDB(t *testing.T) {
	t.Parallel()

	repo := &stubMarketRepo{}
	cache := &stubCoordCache{values: map[string]string{
		"mr:market_coord:" + knownMarketID.String(): `{"lat":6.52,"lng":3.37}`,
	}}
	resolver := newTestResolver(t, repo, cache)

	coord, err := resolver.Coordinate(context.Background(), knownMarketID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coord.Lat != 6.52 || coord.Lng != 3.37 {
		t.Fatalf("unexpected coordinate: %+v", coord)
	}
	if repo.finds != 0 {
		t.Fatal("cache hit must not touch the database")
	}
}

func TestResolverCacheMissFillsCache(t *testing.T) {
	t.Parallel()

	repo := &stubMarketRepo{market: newTestMarket()}
	cache := &stubCoordCache{values: map[string]string{}}
	resolver := newTestResolver(t, repo, cache)

	coord, err := resolver.Coordinate(context.Background(), knownMarketID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coord.Lat != 6.52 {
		t.Fatalf("unexpected coordinate: %+v", coord)
	}
	if repo.finds != 1 {
		t.Fatalf("expected one database read, got %d", repo.finds)
	}
	if cache.sets != 1 {
		t.Fatal("expected the coordinate to be cached")
	}
}

func TestResolverMarketMissing(t *testing.T) {
	t.Parallel()

	resolver := newTestResolver(t, &stubMarketRepo{}, nil)

	_, err := resolver.Coordinate(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestResolverMarketWithoutLocation(t *testing.T) {
	t.Parallel()

	market := newTestMarket()
	market.Location = nil
	resolver := newTestResolver(t, &stubMarketRepo{market: market}, nil)

	_, err := resolver.Coordinate(context.Background(), knownMarketID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestResolverCacheFailureDegradesToDB(t *testing.T) {
	t.Parallel()

	repo := &stubMarketRepo{market: newTestMarket()}
	cache := &stubCoordCache{getErr: errors.New("connection refused")}
	resolver := newTestResolver(t, repo, cache)

	coord, err := resolver.Coordinate(context.Background(), knownMarketID)
	if err != nil {
		t.Fatalf("cache failure must not fail the lookup, got %v", err)
	}
	if coord.Lat != 6.52 {
		t.Fatalf("unexpected coordinate: %+v", coord)
	}
	if repo.finds != 1 {
		t.Fatal("expected a database fallback read")
	}
}

var knownMarketID = uuid.MustParse("6f1a7e0a-2f7d-4f7f-9a35-8c2f6d1b4a90")

func newTestMarket() *models.Market {
	return &models.Market{
		ID:       knownMarketID,
		Name:     "Balogun Market",
		Location: &types.GeographyPoint{Lat: 6.52, Lng: 3.37},
	}
}

func newTestResolver(t *testing.T, repo Repository, cache coordCache) *Resolver {
	t.Helper()

	resolver, err := NewResolver(ResolverParams{Repo: repo, Cache: cache, TTL: time.Minute})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return resolver
}

type stubMarketRepo struct {
	market *models.Market
	finds  int
}

func (s *stubMarketRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	s.finds++
	if s.market == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.market, nil
}

func (s *stubMarketRepo) Create(ctx context.Context, market *models.Market) error { return nil }

func (s *stubMarketRepo) List(ctx context.Context) ([]models.Market, error) { return nil, nil }

type stubCoordCache struct {
	values map[string]string
	getErr error
	sets   int
}

func (s *stubCoordCache) Get(ctx context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *stubCoordCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	s.sets++
	if payload, ok := value.([]byte); ok && s.values != nil {
		s.values[key] = string(payload)
	}
	return nil
}

func (s *stubCoordCache) MarketCoordKey(marketID string) string {
	return "mr:market_coord:" + marketID
}
