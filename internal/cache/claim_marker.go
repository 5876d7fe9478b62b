package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// ClaimMarkerPrefix is the prefix for claimed (session, student) markers
	ClaimMarkerPrefix = "attendance:claimed:"
	// minMarkerTTL keeps a marker around even when computed on a session at its deadline
	minMarkerTTL = time.Minute
)

// ClaimMarkers records which students already claimed a session
type ClaimMarkers struct {
	client *redis.Client
}

func NewClaimMarkers(client *redis.Client) *ClaimMarkers {
	return &ClaimMarkers{client: client}
}

func markerKey(sessionID, studentID string) string {
	return ClaimMarkerPrefix + sessionID + ":" + studentID
}

func (m *ClaimMarkers) IsClaimed(ctx context.Context, sessionID, studentID string) (bool, error) {
	n, err := m.client.Exists(ctx, markerKey(sessionID, studentID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m *ClaimMarkers) MarkClaimed(ctx context.Context, sessionID, studentID string, ttl time.Duration) error {
	if ttl < minMarkerTTL {
		ttl = minMarkerTTL
	}
	return m.client.Set(ctx, markerKey(sessionID, studentID), 1, ttl).Err()
}

func (m *ClaimMarkers) Clear(ctx context.Context, sessionID, studentID string) error {
	return m.client.Del(ctx, markerKey(sessionID, studentID)).Err()
}
