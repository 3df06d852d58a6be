package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgsgtaprohd-gif/nb-plowed/internal/model"
	"github.com/mgsgtaprohd-gif/nb-plowed/internal/repository"
)

var epoch = time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC)

func newVoteFixture() (*VoteService, *repository.MemoryVoteRepo, *clockwork.FakeClock) {
	repo := repository.NewMemoryVoteRepo()
	clock := clockwork.NewFakeClockAt(epoch)
	svc := NewVoteService(repo, DefaultVoteConfig("test-salt"), clock, nil)
	return svc, repo, clock
}

type streetSet map[string]bool

func (s streetSet) Has(id string) bool { return s[id] }

type failingStore struct {
	VoteStore
	err error
}

func (f failingStore) LatestVoteAt(context.Context, string, time.Time) (time.Time, bool, error) {
	return time.Time{}, false, f.err
}

func (f failingStore) TallySince(context.Context, time.Time) ([]model.StreetTally, error) {
	return nil, f.err
}

func TestSubmit_SucceedsOnceThenCooldown(t *testing.T) {
	svc, repo, clock := newVoteFixture()
	ctx := context.Background()

	require.NoError(t, svc.Submit(ctx, "purchase-st", "plowed", "203.0.113.7"))
	assert.Equal(t, 1, repo.Len())

	clock.Advance(4 * time.Minute)
	err := svc.Submit(ctx, "purchase-st", "not_plowed", "203.0.113.7")
	require.ErrorIs(t, err, ErrRateLimited)

	var rl *RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, ReasonCooldown, rl.Reason)
	assert.Equal(t, 6*time.Minute, rl.RetryAfter)
	assert.Equal(t, "Rate limit: try again in ~6 minutes.", rl.Error())
	assert.Equal(t, 1, repo.Len(), "rejected vote must not be written")
}

func TestSubmit_CooldownBoundaryIsInclusive(t *testing.T) {
	svc, _, clock := newVoteFixture()
	ctx := context.Background()

	require.NoError(t, svc.Submit(ctx, "s1", "plowed", "198.51.100.1"))

	clock.Advance(10 * time.Minute)
	assert.ErrorIs(t, svc.Submit(ctx, "s1", "plowed", "198.51.100.1"), ErrRateLimited)

	clock.Advance(time.Second)
	assert.NoError(t, svc.Submit(ctx, "s1", "plowed", "198.51.100.1"))
}

func TestSubmit_DailyCap(t *testing.T) {
	svc, repo, clock := newVoteFixture()
	ctx := context.Background()
	addr := "192.0.2.44"

	for i := 0; i < 120; i++ {
		require.NoError(t, svc.Submit(ctx, "s1", "plowed", addr), "vote %d", i+1)
		clock.Advance(11 * time.Minute)
	}

	err := svc.Submit(ctx, "s1", "plowed", addr)
	var rl *RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, ReasonDailyCap, rl.Reason)
	assert.Equal(t, "Daily limit reached.", err.Error())
	assert.Equal(t, 120, repo.Len())

	// Once the first vote leaves the window the identity has room again.
	clock.Advance(2*time.Hour + time.Minute)
	assert.NoError(t, svc.Submit(ctx, "s1", "plowed", addr))
}

func TestSubmit_InvalidPayload(t *testing.T) {
	tests := []struct {
		name     string
		streetID string
		vote     string
	}{
		{"unknown vote value", "s1", "maybe"},
		{"empty vote", "s1", ""},
		{"upper case vote", "s1", "PLOWED"},
		{"empty street", "", "plowed"},
		{"blank street", "   ", "plowed"},
		{"street too long", strings.Repeat("x", MaxStreetIDLen+1), "plowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newVoteFixture()
			err := svc.Submit(context.Background(), tt.streetID, tt.vote, "203.0.113.7")
			assert.ErrorIs(t, err, ErrInvalidPayload)
			assert.Equal(t, 0, repo.Len())
		})
	}
}

func TestSubmit_InvalidPayloadDoesNotConsumeCooldown(t *testing.T) {
	svc, _, _ := newVoteFixture()
	ctx := context.Background()

	require.ErrorIs(t, svc.Submit(ctx, "s1", "maybe", "203.0.113.7"), ErrInvalidPayload)
	assert.NoError(t, svc.Submit(ctx, "s1", "plowed", "203.0.113.7"))
}

func TestSubmit_UnknownStreetRejectedWhenCatalogRequired(t *testing.T) {
	repo := repository.NewMemoryVoteRepo()
	svc := NewVoteService(repo, DefaultVoteConfig("salt"), clockwork.NewFakeClockAt(epoch), streetSet{"s1": true})

	assert.ErrorIs(t, svc.Submit(context.Background(), "s9", "plowed", "a"), ErrInvalidPayload)
	assert.NoError(t, svc.Submit(context.Background(), "s1", "plowed", "a"))
	assert.Equal(t, 1, repo.Len())
}

func TestSubmit_TrimsStreetID(t *testing.T) {
	svc, repo, clock := newVoteFixture()
	require.NoError(t, svc.Submit(context.Background(), "  s1 ", "plowed", "a"))

	status, err := NewStatusService(repo, 24*time.Hour, clock).Compute(context.Background())
	require.NoError(t, err)
	assert.Contains(t, status, "s1")
}

func TestSubmit_IdentitiesAndStreetsIndependent(t *testing.T) {
	svc, repo, _ := newVoteFixture()
	ctx := context.Background()

	require.NoError(t, svc.Submit(ctx, "s1", "plowed", "10.0.0.1"))
	require.NoError(t, svc.Submit(ctx, "s2", "not_plowed", "10.0.0.2"))
	assert.ErrorIs(t, svc.Submit(ctx, "s2", "plowed", "10.0.0.1"), ErrRateLimited)
	assert.Equal(t, 2, repo.Len())
}

func TestSubmit_SaltChangesIdentity(t *testing.T) {
	repo := repository.NewMemoryVoteRepo()
	clock := clockwork.NewFakeClockAt(epoch)
	first := NewVoteService(repo, DefaultVoteConfig("salt-a"), clock, nil)
	second := NewVoteService(repo, DefaultVoteConfig("salt-b"), clock, nil)

	require.NoError(t, first.Submit(context.Background(), "s1", "plowed", "10.0.0.1"))
	assert.NoError(t, second.Submit(context.Background(), "s1", "plowed", "10.0.0.1"))
}

func TestSubmit_StoreUnavailable(t *testing.T) {
	boom := errors.New("connection refused")
	svc := NewVoteService(failingStore{err: boom}, DefaultVoteConfig("salt"), clockwork.NewFakeClock(), nil)

	err := svc.Submit(context.Background(), "s1", "plowed", "a")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrRateLimited)
}
