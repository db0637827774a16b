package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hunthq/treasurehunt/internal/hunt"
)

// RedisScanStore keeps scan sessions in Redis under
// scan:{adminEmail}:{teamID}. Sessions are ephemeral: a TTL backstops the
// sweeper so an abandoned session cannot outlive the event.
type RedisScanStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisScanStore(rdb *redis.Client, ttl time.Duration) *RedisScanStore {
	return &RedisScanStore{rdb: rdb, ttl: ttl}
}

func scanKey(adminEmail, teamID string) string {
	return "scan:" + adminEmail + ":" + teamID
}

// Save upserts the session. Re-scanning the same team overwrites the
// previous snapshot for that admin rather than creating a duplicate.
func (s *RedisScanStore) Save(ctx context.Context, sess hunt.ScanSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, scanKey(sess.AdminEmail, sess.TeamID), data, s.ttl).Err()
}

func (s *RedisScanStore) Delete(ctx context.Context, adminEmail, teamID string) error {
	return s.rdb.Del(ctx, scanKey(adminEmail, teamID)).Err()
}

func (s *RedisScanStore) DeleteByTeam(ctx context.Context, teamID string) (int, error) {
	keys, err := s.keys(ctx, "scan:*:"+teamID)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (s *RedisScanStore) ByAdmin(ctx context.Context, adminEmail string) ([]hunt.ScanSession, error) {
	return s.sessions(ctx, "scan:"+adminEmail+":*")
}

func (s *RedisScanStore) All(ctx context.Context) ([]hunt.ScanSession, error) {
	return s.sessions(ctx, "scan:*")
}

func (s *RedisScanStore) keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning keys %q: %w", pattern, err)
	}
	return keys, nil
}

func (s *RedisScanStore) sessions(ctx context.Context, pattern string) ([]hunt.ScanSession, error) {
	keys, err := s.keys(ctx, pattern)
	if err != nil {
		return nil, err
	}

	var sessions []hunt.ScanSession
	for _, key := range keys {
		data, err := s.rdb.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return nil, err
		}
		var sess hunt.ScanSession
		if err := json.Unmarshal([]byte(data), &sess); err != nil {
			return nil, fmt.Errorf("decoding scan session %q: %w", key, err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}
