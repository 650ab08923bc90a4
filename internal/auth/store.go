package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

const redisCacheTTL = 5 * time.Minute
const redisKeyPrefix = "containment:key:"

// KeyStore looks up API key metadata by hash.
type KeyStore interface {
	Lookup(ctx context.Context, keyHash string) (*KeyMetadata, error)
}

// querier is the subset of *pgxpool.Pool the store needs.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CachedKeyStore implements KeyStore with PostgreSQL + Redis cache.
type CachedKeyStore struct {
	db    querier
	redis *redis.Client
}

func NewCachedKeyStore(db querier, rdb *redis.Client) *CachedKeyStore {
	return &CachedKeyStore{db: db, redis: rdb}
}

func (s *CachedKeyStore) Lookup(ctx context.Context, keyHash string) (*KeyMetadata, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, redisKeyPrefix+keyHash).Bytes()
		if err == nil {
			var meta KeyMetadata
			if err := json.Unmarshal(cached, &meta); err == nil {
				return &meta, nil
			}
		}
	}

	meta, err := s.lookupDB(ctx, keyHash)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, nil
	}

	if s.redis != nil {
		data, err := json.Marshal(meta)
		if err == nil {
			s.redis.Set(ctx, redisKeyPrefix+keyHash, data, redisCacheTTL)
		}
	}

	return meta, nil
}

func (s *CachedKeyStore) lookupDB(ctx context.Context, keyHash string) (*KeyMetadata, error) {
	var meta KeyMetadata
	var schoolID *string

	err := s.db.QueryRow(ctx, `
		SELECT id, tenant_id, school_id, name, rpm_limit, daily_token_limit, expires_at
		FROM api_keys
		WHERE key_hash = $1
		  AND status = 'active'
		  AND expires_at > NOW()
	`, keyHash).Scan(
		&meta.ID,
		&meta.TenantID,
		&schoolID,
		&meta.Name,
		&meta.RPMLimit,
		&meta.DailyTokenLimit,
		&meta.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query api_keys: %w", err)
	}

	if schoolID != nil {
		meta.SchoolID = *schoolID
	}

	// Fire-and-forget.
	go func(id string) {
		bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := s.db.Exec(bgCtx, `UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, id); err != nil {
			slog.Debug("update last_used_at failed", "key_id", id, "error", err)
		}
	}(meta.ID)

	return &meta, nil
}

// InsertKey stores a newly issued key and returns its ID.
func InsertKey(ctx context.Context, db querier, keyHash, keyPrefix string, meta KeyMetadata) (string, error) {
	var schoolID *string
	if meta.SchoolID != "" {
		schoolID = &meta.SchoolID
	}
	var id string
	err := db.QueryRow(ctx, `
		INSERT INTO api_keys (key_hash, key_prefix, tenant_id, school_id, name, rpm_limit, daily_token_limit, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, keyHash, keyPrefix, meta.TenantID, schoolID, meta.Name, meta.RPMLimit, meta.DailyTokenLimit, meta.ExpiresAt).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert api key: %w", err)
	}
	return id, nil
}
