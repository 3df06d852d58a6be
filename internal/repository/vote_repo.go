package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mgsgtaprohd-gif/nb-plowed/internal/model"
)

// VoteRepo is the PostgreSQL-backed vote log. Every method takes explicit
// window bounds so callers control the clock.
type VoteRepo struct {
	pool *pgxpool.Pool
}

func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

// LatestVoteAt returns the newest vote time for an identity at or after since.
func (r *VoteRepo) LatestVoteAt(ctx context.Context, identityHash string, since time.Time) (time.Time, bool, error) {
	var latest *time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT MAX(created_at) FROM votes
		WHERE ip_hash = $1 AND created_at >= $2`,
		identityHash, since).Scan(&latest)
	if err != nil {
		return time.Time{}, false, err
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return *latest, true, nil
}

// CountSince returns how many votes an identity cast at or after since.
func (r *VoteRepo) CountSince(ctx context.Context, identityHash string, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM votes
		WHERE ip_hash = $1 AND created_at >= $2`,
		identityHash, since).Scan(&count)
	return count, err
}

// Insert appends a vote record.
func (r *VoteRepo) Insert(ctx context.Context, v model.Vote) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO votes (street_id, vote, ip_hash, created_at)
		VALUES ($1, $2, $3, $4)`,
		v.StreetID, string(v.Value), v.IdentityHash, v.CreatedAt)
	return err
}

// TallySince counts votes per street and value at or after since.
func (r *VoteRepo) TallySince(ctx context.Context, since time.Time) ([]model.StreetTally, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			street_id,
			COUNT(*) FILTER (WHERE vote = 'plowed')     AS plowed_votes,
			COUNT(*) FILTER (WHERE vote = 'not_plowed') AS not_plowed_votes
		FROM votes
		WHERE created_at >= $1
		GROUP BY street_id`,
		since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tallies []model.StreetTally
	for rows.Next() {
		var t model.StreetTally
		if err := rows.Scan(&t.StreetID, &t.PlowedVotes, &t.NotPlowedVotes); err != nil {
			return nil, err
		}
		tallies = append(tallies, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tallies, nil
}

// Ping checks database connectivity.
func (r *VoteRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Pool exposes the connection pool for metrics.
func (r *VoteRepo) Pool() *pgxpool.Pool {
	return r.pool
}
