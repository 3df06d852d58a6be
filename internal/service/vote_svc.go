package service

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mgsgtaprohd-gif/nb-plowed/internal/model"
	"github.com/mgsgtaprohd-gif/nb-plowed/pkg/hash"
)

// MaxStreetIDLen bounds street ids accepted from clients.
const MaxStreetIDLen = 128

// VoteStore is the append-only vote log. Window bounds are inclusive.
type VoteStore interface {
	LatestVoteAt(ctx context.Context, identityHash string, since time.Time) (time.Time, bool, error)
	CountSince(ctx context.Context, identityHash string, since time.Time) (int, error)
	Insert(ctx context.Context, v model.Vote) error
	TallySince(ctx context.Context, since time.Time) ([]model.StreetTally, error)
}

// StreetLookup reports whether a street id exists in the catalog.
type StreetLookup interface {
	Has(id string) bool
}

// VoteConfig holds the intake throttling settings.
type VoteConfig struct {
	Salt           string
	HashIterations int
	Cooldown       time.Duration
	DailyCap       int
	Window         time.Duration
}

// DefaultVoteConfig returns the production limits: one vote per 10 minutes,
// at most 120 votes per rolling 24 hours.
func DefaultVoteConfig(salt string) VoteConfig {
	return VoteConfig{
		Salt:           salt,
		HashIterations: 1,
		Cooldown:       10 * time.Minute,
		DailyCap:       120,
		Window:         24 * time.Hour,
	}
}

type VoteService struct {
	store VoteStore
	cfg   VoteConfig
	clock clockwork.Clock
	known StreetLookup
}

// NewVoteService creates the intake service. known may be nil, in which case
// any non-empty street id is accepted.
func NewVoteService(store VoteStore, cfg VoteConfig, clock clockwork.Clock, known StreetLookup) *VoteService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &VoteService{store: store, cfg: cfg, clock: clock, known: known}
}

// Submit validates and records a vote from the given requester address.
//
// The rate checks and the insert are separate store calls. Two requests from
// the same identity racing inside the cooldown can both pass the checks; at
// most one extra vote gets through that way.
func (s *VoteService) Submit(ctx context.Context, streetID, vote, address string) error {
	streetID = strings.TrimSpace(streetID)
	value := model.VoteValue(vote)

	switch {
	case streetID == "":
		return invalid("streetId is required")
	case len(streetID) > MaxStreetIDLen:
		return invalid("streetId is too long")
	case !value.Valid():
		return invalid("vote must be plowed or not_plowed")
	case s.known != nil && !s.known.Has(streetID):
		return invalid("unknown streetId")
	}

	identity := hash.HashIdentity(address, s.cfg.Salt, s.cfg.HashIterations)
	now := s.clock.Now()

	latest, found, err := s.store.LatestVoteAt(ctx, identity, now.Add(-s.cfg.Cooldown))
	if err != nil {
		return storeErr("check cooldown", err)
	}
	if found {
		return &RateLimitError{
			Reason:     ReasonCooldown,
			RetryAfter: max(latest.Add(s.cfg.Cooldown).Sub(now), time.Second),
		}
	}

	count, err := s.store.CountSince(ctx, identity, now.Add(-s.cfg.Window))
	if err != nil {
		return storeErr("check daily cap", err)
	}
	if count >= s.cfg.DailyCap {
		return &RateLimitError{Reason: ReasonDailyCap}
	}

	err = s.store.Insert(ctx, model.Vote{
		StreetID:     streetID,
		Value:        value,
		IdentityHash: identity,
		CreatedAt:    now,
	})
	if err != nil {
		return storeErr("insert vote", err)
	}
	return nil
}
