package redemption

import (
	"context"
	"sync"
	"testing"
	"time"

	"campus-attendance-svc/src/internal/attendance"
	"campus-attendance-svc/src/internal/cache"
	"campus-attendance-svc/src/internal/config"
	"campus-attendance-svc/src/internal/models"
	"campus-attendance-svc/src/internal/roster"
	"campus-attendance-svc/src/internal/session"
	"campus-attendance-svc/src/internal/token"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testConfig() *config.Configuration {
	return &config.Configuration{
		Attendance: config.AttendanceConfig{
			GracePeriodSeconds:      300,
			RotationIntervalSeconds: 10,
			RotationEnabled:         true,
			DefaultDurationMinutes:  60,
			MaxDurationMinutes:      240,
		},
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.AttendanceEvent
}

func (p *recordingPublisher) PublishAttendanceEvent(event models.AttendanceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type fixture struct {
	codec     *token.Codec
	repo      *session.MemoryRepository
	ledger    *attendance.MemoryLedger
	publisher *recordingPublisher
	validator Validator
	start     time.Time
	session   *session.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := testConfig()
	codec := token.NewCodec("unit-test-secret")
	repo := session.NewMemoryRepository()
	ledger := attendance.NewMemoryLedger()
	publisher := &recordingPublisher{}
	sessions := session.NewService(repo, codec, nil, nil, cfg)

	provider := &roster.StaticProvider{
		Members: map[string][]string{
			"CSC-101": {"alice", "bob", "carol"},
		},
	}

	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	sess := &session.Session{
		SessionID:    "sess-1",
		CourseID:     "CSC-101",
		SlotID:       "mon-0900",
		Venue:        "Lab 2",
		InstructorID: "lec-1",
		Nonce:        "nonce-1",
		RotatedAt:    start,
		CreatedAt:    start,
		ExpiresAt:    start.Add(time.Hour),
	}
	if err := repo.Insert(context.Background(), sess); err != nil {
		t.Fatalf("seed session failed: %v", err)
	}

	return &fixture{
		codec:     codec,
		repo:      repo,
		ledger:    ledger,
		publisher: publisher,
		validator: NewValidator(codec, sessions, ledger, provider, publisher, cfg),
		start:     start,
		session:   sess,
	}
}

func (f *fixture) mint(t *testing.T) string {
	t.Helper()
	payload, err := f.codec.Mint(f.session.SessionID, f.session.Nonce)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	return payload
}

func TestRedeemScenario(t *testing.T) {
	f := newFixture(t)
	payload := f.mint(t)

	// Within grace period: present.
	result, err := f.validator.Redeem(context.Background(), payload, "alice", f.start.Add(60*time.Second))
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("expected acceptance, got %+v", result)
	}
	if result.Record.Outcome != attendance.OutcomePresent {
		t.Fatalf("expected present, got %s", result.Record.Outcome)
	}

	// Same identity again: rejected with the original timestamp.
	result, err = f.validator.Redeem(context.Background(), payload, "alice", f.start.Add(65*time.Second))
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if result.Accepted || result.Reason != ReasonAlreadyMarked {
		t.Fatalf("expected already marked, got %+v", result)
	}
	if !result.Record.RecordedAt.Equal(f.start.Add(60 * time.Second)) {
		t.Fatalf("expected original timestamp, got %v", result.Record.RecordedAt)
	}

	// After the grace period: late.
	result, err = f.validator.Redeem(context.Background(), payload, "bob", f.start.Add(400*time.Second))
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if !result.Accepted || result.Record.Outcome != attendance.OutcomeLate {
		t.Fatalf("expected late acceptance, got %+v", result)
	}

	// After expiry: rejected.
	result, err = f.validator.Redeem(context.Background(), payload, "carol", f.start.Add(3700*time.Second))
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if result.Accepted || result.Reason != ReasonExpired {
		t.Fatalf("expected expired, got %+v", result)
	}
}

func TestRedeemGarbagePayload(t *testing.T) {
	f := newFixture(t)

	result, err := f.validator.Redeem(context.Background(), "garbage", "alice", f.start.Add(time.Minute))
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if result.Accepted || result.Reason != ReasonInvalidCode {
		t.Fatalf("expected invalid code, got %+v", result)
	}
}

func TestRedeemUnknownSessionLooksLikeTampering(t *testing.T) {
	f := newFixture(t)

	payload, err := f.codec.Mint("no-such-session", "nonce-1")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	result, err := f.validator.Redeem(context.Background(), payload, "alice", f.start.Add(time.Minute))
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if result.Accepted || result.Reason != ReasonInvalidCode {
		t.Fatalf("expected invalid code for unknown session, got %+v", result)
	}
}

func TestRedeemStaleNonceAfterRotation(t *testing.T) {
	f := newFixture(t)
	stale := f.mint(t)

	// Rotate while the session stays live.
	if err := f.repo.UpdateNonce(context.Background(), f.session.SessionID, "nonce-2", f.start.Add(10*time.Second)); err != nil {
		t.Fatalf("rotate failed: %v", err)
	}

	result, err := f.validator.Redeem(context.Background(), stale, "alice", f.start.Add(20*time.Second))
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if result.Accepted || result.Reason != ReasonExpired {
		t.Fatalf("expected expired for stale nonce, got %+v", result)
	}

	fresh, err := f.codec.Mint(f.session.SessionID, "nonce-2")
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	result, err = f.validator.Redeem(context.Background(), fresh, "alice", f.start.Add(25*time.Second))
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("expected acceptance with fresh nonce, got %+v", result)
	}
}

func TestRedeemAfterStop(t *testing.T) {
	f := newFixture(t)
	payload := f.mint(t)

	if err := f.repo.Revoke(context.Background(), f.session.SessionID); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	result, err := f.validator.Redeem(context.Background(), payload, "alice", f.start.Add(time.Minute))
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if result.Accepted || result.Reason != ReasonExpired {
		t.Fatalf("expected expired after stop, got %+v", result)
	}
}

func TestRedeemNotEnrolledLeavesNoRecord(t *testing.T) {
	f := newFixture(t)
	payload := f.mint(t)

	result, err := f.validator.Redeem(context.Background(), payload, "dave", f.start.Add(10*time.Second))
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if result.Accepted || result.Reason != ReasonNotEnrolled {
		t.Fatalf("expected not enrolled, got %+v", result)
	}

	records, err := f.ledger.Query(context.Background(), attendance.Filter{SessionID: f.session.SessionID})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no ledger records, got %d", len(records))
	}
}

func TestRedeemConcurrentSameIdentitySingleWinner(t *testing.T) {
	f := newFixture(t)
	payload := f.mint(t)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)

	results := make(chan *Result, n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			result, err := f.validator.Redeem(context.Background(), payload, "alice", f.start.Add(time.Minute))
			if err != nil {
				t.Errorf("redeem failed: %v", err)
				return
			}
			results <- result
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	alreadyMarked := 0
	for result := range results {
		if result.Accepted {
			accepted++
			continue
		}
		if result.Reason == ReasonAlreadyMarked {
			alreadyMarked++
			continue
		}
		t.Fatalf("unexpected rejection: %+v", result)
	}

	if accepted != 1 {
		t.Fatalf("expected exactly one acceptance, got %d", accepted)
	}
	if alreadyMarked != n-1 {
		t.Fatalf("expected %d already-marked rejections, got %d", n-1, alreadyMarked)
	}
}

func TestRedeemConcurrentDifferentIdentities(t *testing.T) {
	f := newFixture(t)
	payload := f.mint(t)

	identities := []string{"alice", "bob", "carol"}
	var wg sync.WaitGroup
	wg.Add(len(identities))

	for _, identity := range identities {
		go func(identity string) {
			defer wg.Done()
			result, err := f.validator.Redeem(context.Background(), payload, identity, f.start.Add(time.Minute))
			if err != nil {
				t.Errorf("redeem for %s failed: %v", identity, err)
				return
			}
			if !result.Accepted {
				t.Errorf("expected acceptance for %s, got %+v", identity, result)
			}
		}(identity)
	}
	wg.Wait()

	records, err := f.ledger.Query(context.Background(), attendance.Filter{SessionID: f.session.SessionID})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != len(identities) {
		t.Fatalf("expected %d records, got %d", len(identities), len(records))
	}
}

func TestRedeemWithCacheBackedSessions(t *testing.T) {
	cfg := testConfig()
	cfg.Cache = config.CacheConfig{
		SessionExpirationMinutes: 5,
		RosterExpirationMinutes:  30,
	}

	mr := miniredis.RunT(t)
	cacheSvc := cache.NewCacheService(redis.NewClient(&redis.Options{Addr: mr.Addr()}), cfg)

	codec := token.NewCodec("unit-test-secret")
	repo := session.NewMemoryRepository()
	ledger := attendance.NewMemoryLedger()
	sessions := session.NewService(repo, codec, cacheSvc, nil, cfg)
	provider := &roster.StaticProvider{
		Members: map[string][]string{"CSC-101": {"alice"}},
	}
	validator := NewValidator(codec, sessions, ledger, provider, nil, cfg)

	start := time.Now()
	sess := &session.Session{
		SessionID:    "sess-cached",
		CourseID:     "CSC-101",
		SlotID:       "mon-0900",
		InstructorID: "lec-1",
		Nonce:        "nonce-1",
		RotatedAt:    start,
		CreatedAt:    start,
		ExpiresAt:    start.Add(time.Hour),
	}
	ctx := context.Background()
	if err := repo.Insert(ctx, sess); err != nil {
		t.Fatalf("seed session failed: %v", err)
	}

	// Warm the cache so the redemption lookup is served from redis, nonce
	// included.
	if _, err := sessions.Get(ctx, sess.SessionID); err != nil {
		t.Fatalf("warm-up get failed: %v", err)
	}
	if !mr.Exists("attsession:" + sess.SessionID) {
		t.Fatal("expected session in cache after warm-up")
	}

	payload, err := codec.Mint(sess.SessionID, sess.Nonce)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	result, err := validator.Redeem(ctx, payload, "alice", start.Add(time.Minute))
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("expected acceptance via cached session, got %+v", result)
	}
	if result.Record.Outcome != attendance.OutcomePresent {
		t.Fatalf("expected present, got %s", result.Record.Outcome)
	}
}

func TestRedeemPublishesEvent(t *testing.T) {
	f := newFixture(t)
	payload := f.mint(t)

	if _, err := f.validator.Redeem(context.Background(), payload, "alice", f.start.Add(time.Minute)); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}

	f.publisher.mu.Lock()
	defer f.publisher.mu.Unlock()
	if len(f.publisher.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(f.publisher.events))
	}
	event := f.publisher.events[0]
	if event.Action != models.ActionAttendanceMarked || event.Identity != "alice" {
		t.Fatalf("unexpected event: %+v", event)
	}
}
