package service

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mgsgtaprohd-gif/nb-plowed/internal/model"
)

// StatusService aggregates the vote log into per-street status. Results are
// computed on every call; votes age out of the window continuously.
type StatusService struct {
	store  VoteStore
	window time.Duration
	clock  clockwork.Clock
}

func NewStatusService(store VoteStore, window time.Duration, clock clockwork.Clock) *StatusService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &StatusService{store: store, window: window, clock: clock}
}

// DeriveState applies the majority rule: unknown without votes, mixed on a
// tie, otherwise the larger side.
func DeriveState(plowed, notPlowed int) model.State {
	switch {
	case plowed+notPlowed == 0:
		return model.StateUnknown
	case plowed == notPlowed:
		return model.StateMixed
	case plowed > notPlowed:
		return model.StatePlowed
	default:
		return model.StateNotPlowed
	}
}

// StatusFromTally builds the public status of a single street.
func StatusFromTally(t model.StreetTally) model.StreetStatus {
	return model.StreetStatus{
		State:             DeriveState(t.PlowedVotes, t.NotPlowedVotes),
		PlowedVotes:       t.PlowedVotes,
		NotPlowedVotes:    t.NotPlowedVotes,
		TotalVotesLast24h: t.Total(),
	}
}

// Compute returns the status of every street with at least one vote in the
// trailing window. Streets without votes are absent and read as unknown.
func (s *StatusService) Compute(ctx context.Context) (map[string]model.StreetStatus, error) {
	since := s.clock.Now().Add(-s.window)

	tallies, err := s.store.TallySince(ctx, since)
	if err != nil {
		return nil, storeErr("tally votes", err)
	}

	byStreet := make(map[string]model.StreetStatus, len(tallies))
	for _, t := range tallies {
		if t.StreetID == "" || t.Total() == 0 {
			continue
		}
		byStreet[t.StreetID] = StatusFromTally(t)
	}
	return byStreet, nil
}
