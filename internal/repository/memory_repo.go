package repository

import (
	"context"
	"sync"
	"time"

	"github.com/mgsgtaprohd-gif/nb-plowed/internal/model"
)

// MemoryVoteRepo keeps the vote log in process memory. It is meant for local
// development and tests; state is lost on restart.
type MemoryVoteRepo struct {
	mu    sync.RWMutex
	votes []model.Vote
}

func NewMemoryVoteRepo() *MemoryVoteRepo {
	return &MemoryVoteRepo{}
}

func (r *MemoryVoteRepo) LatestVoteAt(_ context.Context, identityHash string, since time.Time) (time.Time, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest time.Time
	found := false
	for _, v := range r.votes {
		if v.IdentityHash != identityHash || v.CreatedAt.Before(since) {
			continue
		}
		if !found || v.CreatedAt.After(latest) {
			latest = v.CreatedAt
			found = true
		}
	}
	return latest, found, nil
}

func (r *MemoryVoteRepo) CountSince(_ context.Context, identityHash string, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, v := range r.votes {
		if v.IdentityHash == identityHash && !v.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *MemoryVoteRepo) Insert(_ context.Context, v model.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v.ID = int64(len(r.votes) + 1)
	r.votes = append(r.votes, v)
	return nil
}

func (r *MemoryVoteRepo) TallySince(_ context.Context, since time.Time) ([]model.StreetTally, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index := make(map[string]int)
	var tallies []model.StreetTally
	for _, v := range r.votes {
		if v.CreatedAt.Before(since) {
			continue
		}
		i, ok := index[v.StreetID]
		if !ok {
			i = len(tallies)
			index[v.StreetID] = i
			tallies = append(tallies, model.StreetTally{StreetID: v.StreetID})
		}
		switch v.Value {
		case model.VotePlowed:
			tallies[i].PlowedVotes++
		case model.VoteNotPlowed:
			tallies[i].NotPlowedVotes++
		}
	}
	return tallies, nil
}

func (r *MemoryVoteRepo) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored votes.
func (r *MemoryVoteRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.votes)
}
