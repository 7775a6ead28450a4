package cache

import (
	"context"
	"testing"
	"time"

	"campus-attendance-svc/src/internal/config"
	"campus-attendance-svc/src/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (Service, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Configuration{
		Cache: config.CacheConfig{
			SessionExpirationMinutes: 5,
			RosterExpirationMinutes:  30,
		},
	}

	return NewCacheService(client, cfg), mr
}

func testSession(expiresIn time.Duration) *session.Session {
	now := time.Now()
	return &session.Session{
		SessionID:    "sess-1",
		CourseID:     "CSC-101",
		SlotID:       "mon-0900",
		InstructorID: "lec-1",
		Nonce:        "nonce-1",
		RotatedAt:    now,
		CreatedAt:    now,
		ExpiresAt:    now.Add(expiresIn),
	}
}

func TestSessionCacheRoundTrip(t *testing.T) {
	svc, _ := newTestCache(t)
	ctx := context.Background()

	sess := testSession(time.Hour)
	if err := svc.CacheSession(ctx, sess); err != nil {
		t.Fatalf("cache session failed: %v", err)
	}

	cached, err := svc.GetSession(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if cached == nil {
		t.Fatal("expected cached session")
	}
	if cached.SessionID != sess.SessionID || cached.Nonce != sess.Nonce {
		t.Fatalf("cached session mismatch: %+v", cached)
	}
	if !cached.RotatedAt.Equal(sess.RotatedAt) {
		t.Fatalf("rotation timestamp lost in cache round trip: %v", cached.RotatedAt)
	}
}

func TestSessionCacheMissIsNotAnError(t *testing.T) {
	svc, _ := newTestCache(t)

	cached, err := svc.GetSession(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected nil error on miss, got %v", err)
	}
	if cached != nil {
		t.Fatalf("expected nil session on miss, got %+v", cached)
	}
}

func TestInvalidateSession(t *testing.T) {
	svc, _ := newTestCache(t)
	ctx := context.Background()

	sess := testSession(time.Hour)
	if err := svc.CacheSession(ctx, sess); err != nil {
		t.Fatalf("cache session failed: %v", err)
	}
	if err := svc.InvalidateSession(ctx, sess.SessionID); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	cached, err := svc.GetSession(ctx, sess.SessionID)
	if err != nil || cached != nil {
		t.Fatalf("expected miss after invalidate, got %+v, %v", cached, err)
	}
}

func TestExpiredSessionIsNotCached(t *testing.T) {
	svc, _ := newTestCache(t)
	ctx := context.Background()

	sess := testSession(-time.Minute)
	if err := svc.CacheSession(ctx, sess); err != nil {
		t.Fatalf("cache session returned error: %v", err)
	}

	cached, err := svc.GetSession(ctx, sess.SessionID)
	if err != nil || cached != nil {
		t.Fatalf("expected expired session not to be cached, got %+v, %v", cached, err)
	}
}

func TestSessionTTLCappedAtExpiry(t *testing.T) {
	svc, mr := newTestCache(t)
	ctx := context.Background()

	// Expires well before the configured cache TTL.
	sess := testSession(30 * time.Second)
	if err := svc.CacheSession(ctx, sess); err != nil {
		t.Fatalf("cache session failed: %v", err)
	}

	ttl := mr.TTL("attsession:" + sess.SessionID)
	if ttl <= 0 || ttl > 30*time.Second {
		t.Fatalf("expected TTL capped at session expiry, got %v", ttl)
	}
}

func TestCourseRosterRoundTrip(t *testing.T) {
	svc, _ := newTestCache(t)
	ctx := context.Background()

	members := []string{"alice", "bob"}
	if err := svc.SaveCourseRoster(ctx, "CSC-101", members); err != nil {
		t.Fatalf("save roster failed: %v", err)
	}

	cached, err := svc.GetCourseRoster(ctx, "CSC-101")
	if err != nil {
		t.Fatalf("get roster failed: %v", err)
	}
	if len(cached) != 2 || cached[0] != "alice" || cached[1] != "bob" {
		t.Fatalf("unexpected roster: %v", cached)
	}

	missing, err := svc.GetCourseRoster(ctx, "CSC-999")
	if err != nil || missing != nil {
		t.Fatalf("expected miss for unknown course, got %v, %v", missing, err)
	}
}
