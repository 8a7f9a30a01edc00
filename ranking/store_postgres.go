package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresProfileStore struct {
	pool *pgxpool.Pool
}

var _ ProfileStore = (*PostgresProfileStore)(nil)

func NewPostgresProfileStore(ctx context.Context, databaseURL string) (*PostgresProfileStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return &PostgresProfileStore{pool: pool}, nil
}

func (s *PostgresProfileStore) Close() {
	s.pool.Close()
}

func (s *PostgresProfileStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rank_profiles (
			seq BIGSERIAL,
			user_id VARCHAR(128) PRIMARY KEY,
			name TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			xp INT NOT NULL,
			level INT NOT NULL,
			streak INT NOT NULL,
			last_active DATE NOT NULL,
			messages INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("creating rank_profiles table: %w", err)
	}
	return nil
}

// Profiles come back in first-insert order so the leaderboard's stable tie-break survives a restart.
func (s *PostgresProfileStore) LoadProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, name, username, xp, level, streak, last_active, messages
		FROM rank_profiles ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying rank profiles: %w", err)
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.UserID, &p.Name, &p.Username, &p.XP, &p.Level, &p.Streak, &p.LastActive, &p.Messages); err != nil {
			return nil, fmt.Errorf("scanning rank profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rank profiles: %w", err)
	}
	return out, nil
}

func (s *PostgresProfileStore) SaveProfiles(ctx context.Context, profiles []Profile) error {
	if len(profiles) == 0 {
		return nil
	}
	query := `
		INSERT INTO rank_profiles (user_id, name, username, xp, level, streak, last_active, messages, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id)
		DO UPDATE SET name = $2, username = $3, xp = $4, level = $5, streak = $6, last_active = $7, messages = $8, updated_at = $9`
	now := time.Now()

	batch := &pgx.Batch{}
	for _, p := range profiles {
		batch.Queue(query, p.UserID, p.Name, p.Username, p.XP, p.Level, p.Streak, p.LastActive, p.Messages, now)
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range profiles {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upserting rank profiles: %w", err)
		}
	}
	return nil
}
