package agents

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/marketrun/backend/pkg/db/models"
	pkgerrors "github.com/marketrun/backend/pkg/errors"
	"github.com/marketrun/backend/pkg/geo"
	"github.com/marketrun/backend/pkg/logger"
)

// Matcher finds agents near a point using an expanding-radius search over
// their active preferred locations.
type Matcher struct {
	repo    Repository
	markets MarketResolver
	logg    *logger.Logger
}

// MatcherParams collects the matcher dependencies.
type MatcherParams struct {
	Repo    Repository
	Markets MarketResolver
	Logger  *logger.Logger
}

// NewMatcher builds a proximity matcher. The market resolver is only needed
// for AvailableForOrder and may be nil otherwise.
func NewMatcher(params MatcherParams) (*Matcher, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("agents repository required")
	}
	return &Matcher{
		repo:    params.Repo,
		markets: params.Markets,
		logg:    params.Logger,
	}, nil
}

// FindNearby returns up to params.Limit agents whose closest active location
// lies within the search radius of (lat, lng), sorted by ascending distance.
// The radius starts at InitialRadiusKm and grows by StepKm until a match is
// found or MaxRadiusKm is exceeded. An exhausted search returns an empty
// slice, not an error.
func (m *Matcher) FindNearby(ctx context.Context, lat, lng float64, params SearchParams) ([]Candidate, error) {
	params = params.normalized()

	for radius := params.InitialRadiusKm; radius <= params.MaxRadiusKm; radius += params.StepKm {
		agents, err := m.repo.ListMatchableAgents(ctx, nil)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list matchable agents")
		}

		candidates := withinRadius(agents, lat, lng, radius)
		if len(candidates) == 0 {
			continue
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].DistanceKm < candidates[j].DistanceKm
		})
		if len(candidates) > params.Limit {
			candidates = candidates[:params.Limit]
		}

		if m.logg != nil {
			m.logg.Info(m.logg.WithFields(ctx, map[string]any{
				"radius_km":  radius,
				"candidates": len(candidates),
			}), "proximity search matched")
		}
		return candidates, nil
	}

	return []Candidate{}, nil
}

// AvailableForOrder finds candidate agents for an order placed at the given
// market, using the dispatch defaults. Agents in exclude are removed from the
// final shortlist.
func (m *Matcher) AvailableForOrder(ctx context.Context, marketID uuid.UUID, exclude []uuid.UUID) ([]Candidate, error) {
	if m.markets == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "market resolver not configured")
	}

	coord, err := m.markets.Coordinate(ctx, marketID)
	if err != nil {
		return nil, err
	}

	candidates, err := m.FindNearby(ctx, coord.Lat, coord.Lng, DefaultSearchParams)
	if err != nil {
		return nil, err
	}
	return dropExcluded(candidates, exclude), nil
}

// FindNearest returns the single closest eligible agent to (lat, lng) with no
// radius bound, or nil when no agent qualifies.
func (m *Matcher) FindNearest(ctx context.Context, lat, lng float64, exclude []uuid.UUID) (*Candidate, error) {
	agents, err := m.repo.ListMatchableAgents(ctx, exclude)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list matchable agents")
	}

	var nearest *Candidate
	for i := range agents {
		distance, ok := closestLocationKm(&agents[i], lat, lng)
		if !ok {
			continue
		}
		if nearest == nil || distance < nearest.DistanceKm {
			nearest = &Candidate{Agent: agents[i], DistanceKm: distance}
		}
	}
	return nearest, nil
}

// withinRadius builds candidates for every agent whose closest active
// location is inside the given radius.
func withinRadius(agents []models.User, lat, lng, radiusKm float64) []Candidate {
	candidates := make([]Candidate, 0, len(agents))
	for i := range agents {
		distance, ok := closestLocationKm(&agents[i], lat, lng)
		if !ok || distance > radiusKm {
			continue
		}
		candidates = append(candidates, Candidate{Agent: agents[i], DistanceKm: distance})
	}
	return candidates
}

// closestLocationKm reports the minimum Haversine distance from (lat, lng)
// to the agent's active locations. ok is false when the agent has none.
func closestLocationKm(agent *models.User, lat, lng float64) (float64, bool) {
	found := false
	best := 0.0
	for _, loc := range agent.Locations {
		if !loc.IsActive {
			continue
		}
		d := geo.DistanceKm(lat, lng, loc.Latitude, loc.Longitude)
		if !found || d < best {
			best = d
			found = true
		}
	}
	return best, found
}

func dropExcluded(candidates []Candidate, exclude []uuid.UUID) []Candidate {
	if len(exclude) == 0 {
		return candidates
	}
	excluded := make(map[uuid.UUID]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}
	kept := candidates[:0]
	for _, c := range candidates {
		if _, skip := excluded[c.Agent.ID]; skip {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}
