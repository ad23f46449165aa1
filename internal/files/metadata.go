package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const redisCacheTTL = 5 * time.Minute
const redisKeyPrefix = "files:artifact:"

// ErrNotFound is returned when no artifact exists for the given id.
var ErrNotFound = errors.New("files: artifact not found")

// MetadataStore persists Artifact records and caches reads through Redis
// using a cache-aside pattern.
type MetadataStore struct {
	db    *pgxpool.Pool
	redis *redis.Client
}

func NewMetadataStore(db *pgxpool.Pool, rdb *redis.Client) *MetadataStore {
	return &MetadataStore{db: db, redis: rdb}
}

func (s *MetadataStore) Insert(ctx context.Context, a *Artifact) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO artifacts (id, original_filename, media_type, size_bytes, created_unix, purpose, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.OriginalFilename, a.MediaType, a.SizeBytes, a.CreatedUnix, a.Purpose, a.Status)
	if err != nil {
		return fmt.Errorf("files: insert artifact %s: %w", a.ID, err)
	}
	return nil
}

func (s *MetadataStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	_, err := s.db.Exec(ctx, `UPDATE artifacts SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("files: update artifact status %s: %w", id, err)
	}
	if s.redis != nil {
		s.redis.Del(ctx, redisKeyPrefix+id)
	}
	return nil
}

func (s *MetadataStore) Get(ctx context.Context, id string) (*Artifact, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, redisKeyPrefix+id).Bytes()
		if err == nil {
			var a Artifact
			if err := json.Unmarshal(cached, &a); err == nil {
				return &a, nil
			}
		}
	}

	a, err := s.getDB(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(a); err == nil {
			s.redis.Set(ctx, redisKeyPrefix+id, data, redisCacheTTL)
		}
	}
	return a, nil
}

func (s *MetadataStore) getDB(ctx context.Context, id string) (*Artifact, error) {
	var a Artifact
	err := s.db.QueryRow(ctx, `
		SELECT id, original_filename, media_type, size_bytes, created_unix, purpose, status
		FROM artifacts WHERE id = $1
	`, id).Scan(&a.ID, &a.OriginalFilename, &a.MediaType, &a.SizeBytes, &a.CreatedUnix, &a.Purpose, &a.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("files: query artifact %s: %w", id, err)
	}
	return &a, nil
}

// List returns up to limit artifacts, optionally filtered by purpose, most
// recently created first. limit is clamped to [1, 100], defaulting to 20
// when zero.
func (s *MetadataStore) List(ctx context.Context, purpose string, limit int) ([]Artifact, error) {
	switch {
	case limit <= 0:
		limit = 20
	case limit > 100:
		limit = 100
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, original_filename, media_type, size_bytes, created_unix, purpose, status
		FROM artifacts
		WHERE $1 = '' OR purpose = $1
		ORDER BY created_unix DESC
		LIMIT $2
	`, purpose, limit)
	if err != nil {
		return nil, fmt.Errorf("files: list artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.ID, &a.OriginalFilename, &a.MediaType, &a.SizeBytes, &a.CreatedUnix, &a.Purpose, &a.Status); err != nil {
			return nil, fmt.Errorf("files: scan artifact row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *MetadataStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM artifacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("files: delete artifact %s: %w", id, err)
	}
	if s.redis != nil {
		s.redis.Del(ctx, redisKeyPrefix+id)
	}
	return nil
}
