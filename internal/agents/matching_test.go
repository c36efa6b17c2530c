package agents

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/marketrun/backend/pkg/db/models"
	"github.com/marketrun/backend/pkg/enums"
	pkgerrors "github.com/marketrun/backend/pkg/errors"
	"github.com/marketrun/backend/pkg/types"
)

const (
	lagosLat = 6.5244
	lagosLng = 3.3792

	// one degree of latitude is roughly 111.2 km
	kmPerLatDegree = 111.2
)

func TestMatcherFindNearbyExpandsRadius(t *testing.T) {
	t.Parallel()

	// Ikeja-area location roughly 9 km from Lagos Island: outside the
	// initial 5 km ring, inside the second.
	repo := &stubAgentRepo{matchable: []models.User{
		newMatchableAgent(6.6000, 3.3500),
	}}
	matcher := newTestMatcher(t, repo, nil)

	candidates, err := matcher.FindNearby(context.Background(), lagosLat, lagosLng, SearchParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected one candidate, got %d", len(candidates))
	}
	if repo.matchCalls != 2 {
		t.Fatalf("expected two fetch attempts, got %d", repo.matchCalls)
	}
	if d := candidates[0].DistanceKm; d <= 5 || d > 10 {
		t.Fatalf("expected distance in (5, 10], got %v", d)
	}
}

func TestMatcherFindNearbyExhaustsRadius(t *testing.T) {
	t.Parallel()

	repo := &stubAgentRepo{matchable: []models.User{
		newMatchableAgent(lagosLat+30/kmPerLatDegree, lagosLng),
	}}
	matcher := newTestMatcher(t, repo, nil)

	candidates, err := matcher.FindNearby(context.Background(), lagosLat, lagosLng, SearchParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected empty result, got %d candidates", len(candidates))
	}
	// 5, 10, 15, 20 km rings
	if repo.matchCalls != 4 {
		t.Fatalf("expected four fetch attempts, got %d", repo.matchCalls)
	}
}

func TestMatcherFindNearbyOrdersAndLimits(t *testing.T) {
	t.Parallel()

	far := newMatchableAgent(lagosLat+3/kmPerLatDegree, lagosLng)
	mid := newMatchableAgent(lagosLat+2/kmPerLatDegree, lagosLng)
	near := newMatchableAgent(lagosLat+1/kmPerLatDegree, lagosLng)
	repo := &stubAgentRepo{matchable: []models.User{far, mid, near}}
	matcher := newTestMatcher(t, repo, nil)

	candidates, err := matcher.FindNearby(context.Background(), lagosLat, lagosLng, SearchParams{Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected limit cut to 2, got %d", len(candidates))
	}
	if candidates[0].Agent.ID != near.ID || candidates[1].Agent.ID != mid.ID {
		t.Fatal("expected candidates sorted by ascending distance")
	}
	if candidates[0].DistanceKm > candidates[1].DistanceKm {
		t.Fatalf("distances out of order: %v > %v", candidates[0].DistanceKm, candidates[1].DistanceKm)
	}
}

func TestMatcherFindNearbySkipsInactiveLocations(t *testing.T) {
	t.Parallel()

	agent := newMatchableAgent(lagosLat+1/kmPerLatDegree, lagosLng)
	agent.Locations[0].IsActive = false
	repo := &stubAgentRepo{matchable: []models.User{agent}}
	matcher := newTestMatcher(t, repo, nil)

	candidates, err := matcher.FindNearby(context.Background(), lagosLat, lagosLng, SearchParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("inactive locations must not match, got %d candidates", len(candidates))
	}
}

func TestMatcherFindNearbyUsesClosestLocation(t *testing.T) {
	t.Parallel()

	agent := newMatchableAgent(lagosLat+12/kmPerLatDegree, lagosLng)
	agent.Locations = append(agent.Locations, models.AgentLocation{
		AgentID:   agent.ID,
		Latitude:  lagosLat + 2/kmPerLatDegree,
		Longitude: lagosLng,
		RadiusKm:  models.DefaultLocationRadiusKm,
		IsActive:  true,
	})
	repo := &stubAgentRepo{matchable: []models.User{agent}}
	matcher := newTestMatcher(t, repo, nil)

	candidates, err := matcher.FindNearby(context.Background(), lagosLat, lagosLng, SearchParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected one candidate, got %d", len(candidates))
	}
	if math.Abs(candidates[0].DistanceKm-2) > 0.1 {
		t.Fatalf("expected closest-location distance near 2 km, got %v", candidates[0].DistanceKm)
	}
}

func TestMatcherAvailableForOrderExcludes(t *testing.T) {
	t.Parallel()

	kept := newMatchableAgent(lagosLat+1/kmPerLatDegree, lagosLng)
	skipped := newMatchableAgent(lagosLat+2/kmPerLatDegree, lagosLng)
	repo := &stubAgentRepo{matchable: []models.User{kept, skipped}}
	resolver := stubMarketResolver{coord: types.GeographyPoint{Lat: lagosLat, Lng: lagosLng}}
	matcher := newTestMatcher(t, repo, resolver)

	candidates, err := matcher.AvailableForOrder(context.Background(), uuid.New(), []uuid.UUID{skipped.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Agent.ID != kept.ID {
		t.Fatalf("expected only the non-excluded agent, got %+v", candidates)
	}
}

func TestMatcherAvailableForOrderMarketMissing(t *testing.T) {
	t.Parallel()

	resolver := stubMarketResolver{err: pkgerrors.New(pkgerrors.CodeNotFound, "market not found")}
	matcher := newTestMatcher(t, &stubAgentRepo{}, resolver)

	_, err := matcher.AvailableForOrder(context.Background(), uuid.New(), nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestMatcherFindNearestGlobalMinimum(t *testing.T) {
	t.Parallel()

	far := newMatchableAgent(lagosLat+50/kmPerLatDegree, lagosLng)
	near := newMatchableAgent(lagosLat+30/kmPerLatDegree, lagosLng)
	repo := &stubAgentRepo{matchable: []models.User{far, near}}
	matcher := newTestMatcher(t, repo, nil)

	nearest, err := matcher.FindNearest(context.Background(), lagosLat, lagosLng, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nearest == nil || nearest.Agent.ID != near.ID {
		t.Fatalf("expected the 30 km agent, got %+v", nearest)
	}
}

func TestMatcherFindNearestNoneEligible(t *testing.T) {
	t.Parallel()

	matcher := newTestMatcher(t, &stubAgentRepo{}, nil)

	nearest, err := matcher.FindNearest(context.Background(), lagosLat, lagosLng, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nearest != nil {
		t.Fatalf("expected nil candidate, got %+v", nearest)
	}
}

func newTestMatcher(t *testing.T, repo Repository, markets MarketResolver) *Matcher {
	t.Helper()

	matcher, err := NewMatcher(MatcherParams{Repo: repo, Markets: markets})
	if err != nil {
		t.Fatalf("new matcher: %v", err)
	}
	return matcher
}

func newMatchableAgent(lat, lng float64) models.User {
	agent := *newTestAgent()
	agent.Settings.AgentMeta.Status = enums.AgentStatusAvailable
	agent.Settings.AgentMeta.AcceptingOrders = true
	agent.Locations = []models.AgentLocation{{
		ID:        uuid.New(),
		AgentID:   agent.ID,
		Latitude:  lat,
		Longitude: lng,
		RadiusKm:  models.DefaultLocationRadiusKm,
		IsActive:  true,
	}}
	return agent
}

type stubMarketResolver struct {
	coord types.GeographyPoint
	err   error
}

func (s stubMarketResolver) Coordinate(ctx context.Context, marketID uuid.UUID) (types.GeographyPoint, error) {
	if s.err != nil {
		return types.GeographyPoint{}, s.err
	}
	return s.coord, nil
}
