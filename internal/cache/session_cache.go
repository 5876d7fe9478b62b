package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/session"
)

const (
	// SessionCachePrefix is the prefix for cached session keys
	SessionCachePrefix = "attendance:session:"
	// SessionGenerationPrefix is the prefix for per-session invalidation counters
	SessionGenerationPrefix = "attendance:session-gen:"

	// generationTTL only has to outlast one repository read
	generationTTL = 24 * time.Hour
)

// cachedSession mirrors session.Session including the secret, which the
// public JSON form of the model omits.
type cachedSession struct {
	ID              uuid.UUID  `json:"id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	TeacherID       uuid.UUID  `json:"teacher_id"`
	CourseID        uuid.UUID  `json:"course_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Duration        int        `json:"duration"`
	Active          bool       `json:"active"`
	EndTime         *time.Time `json:"end_time"`
	Secret          string     `json:"secret"`
	SecretExpiresAt *time.Time `json:"secret_expires_at"`
	AttendanceCount int        `json:"attendance_count"`
}

func toCached(s *session.Session) cachedSession {
	return cachedSession{
		ID:              s.ID,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
		TeacherID:       s.TeacherID,
		CourseID:        s.CourseID,
		Title:           s.Title,
		Description:     s.Description,
		Duration:        s.Duration,
		Active:          s.Active,
		EndTime:         s.EndTime,
		Secret:          s.Secret,
		SecretExpiresAt: s.SecretExpiresAt,
		AttendanceCount: s.AttendanceCount,
	}
}

func (c cachedSession) toSession() *session.Session {
	s := &session.Session{
		TeacherID:       c.TeacherID,
		CourseID:        c.CourseID,
		Title:           c.Title,
		Description:     c.Description,
		Duration:        c.Duration,
		Active:          c.Active,
		EndTime:         c.EndTime,
		Secret:          c.Secret,
		SecretExpiresAt: c.SecretExpiresAt,
		AttendanceCount: c.AttendanceCount,
	}
	s.ID = c.ID
	s.CreatedAt = c.CreatedAt
	s.UpdatedAt = c.UpdatedAt
	return s
}

// SessionCache is a read-through Redis cache for session lookups on the claim path
type SessionCache struct {
	client *redis.Client
	repo   session.Repository
	ttl    time.Duration
}

// NewSessionCache creates a SessionCache backed by repo. Entries live for ttl.
func NewSessionCache(client *redis.Client, repo session.Repository, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, repo: repo, ttl: ttl}
}

// Get returns the session from Redis, loading and caching it from the repository on a miss.
// Redis failures degrade to a repository read.
func (c *SessionCache) Get(ctx context.Context, id string) (*session.Session, error) {
	cacheKey := SessionCachePrefix + id

	raw, err := c.client.Get(ctx, cacheKey).Bytes()
	switch {
	case err == nil:
		var cached cachedSession
		if err := sonic.Unmarshal(raw, &cached); err == nil {
			slog.Debug("Session cache hit", "session_id", id)
			return cached.toSession(), nil
		}
		slog.Warn("Dropping undecodable cached session", "session_id", id)
	case !errors.Is(err, redis.Nil):
		slog.Warn("Session cache read failed", "session_id", id, "error", err)
	}

	return c.fill(ctx, id)
}

// fill loads the session and caches it only if no Invalidate ran since the
// load started. The generation key is watched across the read, so a close
// or rotation that lands mid-read aborts the SET instead of caching the old row.
func (c *SessionCache) fill(ctx context.Context, id string) (*session.Session, error) {
	var (
		sess    *session.Session
		loadErr error
	)
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		sess, loadErr = c.repo.FindByID(ctx, id)
		if loadErr != nil {
			return loadErr
		}
		data, err := sonic.Marshal(toCached(sess))
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, SessionCachePrefix+id, data, c.ttl)
			return nil
		})
		return err
	}, SessionGenerationPrefix+id)

	switch {
	case loadErr != nil:
		return nil, loadErr
	case errors.Is(err, redis.TxFailedErr):
		slog.Debug("Session changed during load, not caching", "session_id", id)
	case err != nil:
		slog.Warn("Failed to cache session", "session_id", id, "error", err)
	}

	if sess == nil {
		// Redis refused the WATCH before the load ran
		return c.repo.FindByID(ctx, id)
	}
	return sess, nil
}

// Invalidate drops the cached copy of a session and bumps its generation so
// in-flight fills started before the change discard their result.
func (c *SessionCache) Invalidate(ctx context.Context, id string) error {
	genKey := SessionGenerationPrefix + id
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, SessionCachePrefix+id)
		return nil
	})
	return err
}
