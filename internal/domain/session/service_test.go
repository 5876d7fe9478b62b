package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/auth"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/claim"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/course"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/user"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/metrics"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/utils"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc       Service
	repo      Repository
	clock     *fakeClock
	course    *course.Course
	teacherID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := utils.SetupTestDB(t, &course.Course{}, &Session{})

	clock := &fakeClock{now: t0}
	courses := course.NewService(course.NewRepository(db))
	teacherID := uuid.New()
	c, _, err := courses.GetOrCreate(context.Background(), teacherID, course.CreateRequest{Name: "Computer Networks", Code: "cs301"})
	require.NoError(t, err)

	repo := NewRepository(db)
	return &fixture{
		svc:       NewService(repo, courses, claim.NewIssuer(20*time.Second, clock.Now), WithClock(clock.Now)),
		repo:      repo,
		clock:     clock,
		course:    c,
		teacherID: teacherID,
	}
}

func (f *fixture) create(t *testing.T, duration int) *Session {
	t.Helper()
	sess, err := f.svc.Create(context.Background(), f.teacherID, CreateRequest{
		CourseID: f.course.ID.String(),
		Title:    "Lecture 4: Routing",
		Duration: duration,
	})
	require.NoError(t, err)
	return sess
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("defaults", func(t *testing.T) {
		sess := f.create(t, 0)

		assert.NotEqual(t, uuid.Nil, sess.ID)
		assert.Equal(t, DefaultDuration, sess.Duration)
		assert.True(t, sess.Active)
		assert.Nil(t, sess.EndTime)
		assert.Len(t, sess.Secret, 64)
		assert.True(t, sess.CreatedAt.Equal(t0))
		assert.True(t, sess.Deadline().Equal(t0.Add(time.Hour)))
		assert.Equal(t, StateOpen, sess.State(f.clock.Now()))
	})

	t.Run("secrets are unique per session", func(t *testing.T) {
		a := f.create(t, 30)
		b := f.create(t, 30)
		assert.NotEqual(t, a.Secret, b.Secret)
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := f.svc.Create(ctx, f.teacherID, CreateRequest{CourseID: uuid.NewString(), Title: "Lost"})
		assert.ErrorIs(t, err, course.ErrCourseNotFound)
	})
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.create(t, 60)

	got, err := f.svc.Get(ctx, sess.ID.String())
	require.NoError(t, err)
	assert.Equal(t, sess.Secret, got.Secret)
	assert.Equal(t, f.teacherID, got.TeacherID)

	_, err = f.svc.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_Close(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.create(t, 60)
	before := testutil.ToFloat64(metrics.SessionsClosedTotal.WithLabelValues(TriggerManual))

	f.clock.Advance(10 * time.Minute)
	closed, err := f.svc.Close(ctx, sess.ID.String(), TriggerManual)
	require.NoError(t, err)
	assert.False(t, closed.Active)
	require.NotNil(t, closed.EndTime)
	assert.WithinDuration(t, t0.Add(10*time.Minute), *closed.EndTime, time.Millisecond)
	assert.Equal(t, StateClosed, closed.State(f.clock.Now()))

	t.Run("closing again keeps the original end time", func(t *testing.T) {
		f.clock.Advance(5 * time.Minute)
		again, err := f.svc.Close(ctx, sess.ID.String(), TriggerManual)
		require.NoError(t, err)
		require.NotNil(t, again.EndTime)
		assert.WithinDuration(t, *closed.EndTime, *again.EndTime, time.Millisecond)
	})

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SessionsClosedTotal.WithLabelValues(TriggerManual)))

	t.Run("closed sessions reject mutation and issuance", func(t *testing.T) {
		title := "Renamed"
		_, err := f.svc.Update(ctx, sess.ID.String(), UpdateRequest{Title: &title})
		assert.ErrorIs(t, err, ErrSessionInactive)

		_, err = f.svc.RotateSecret(ctx, sess.ID.String())
		assert.ErrorIs(t, err, ErrSessionInactive)

		_, err = f.svc.IssueClaim(ctx, sess.ID.String())
		assert.ErrorIs(t, err, ErrSessionInactive)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := f.svc.Close(ctx, uuid.NewString(), TriggerManual)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.create(t, 60)

	title := "  Lecture 4: BGP  "
	updated, err := f.svc.Update(ctx, sess.ID.String(), UpdateRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Lecture 4: BGP", updated.Title)
	assert.Equal(t, sess.Secret, updated.Secret)

	desc := "Path vector routing"
	updated, err = f.svc.Update(ctx, sess.ID.String(), UpdateRequest{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "Lecture 4: BGP", updated.Title)
	assert.Equal(t, desc, updated.Description)
}

func TestService_RotateSecret(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.create(t, 60)

	_, err := f.svc.IssueClaim(ctx, sess.ID.String())
	require.NoError(t, err)

	rotated, err := f.svc.RotateSecret(ctx, sess.ID.String())
	require.NoError(t, err)
	assert.NotEqual(t, sess.Secret, rotated.Secret)
	assert.Len(t, rotated.Secret, 64)
	assert.Nil(t, rotated.SecretExpiresAt)
	assert.True(t, rotated.Deadline().Equal(sess.Deadline()), "rotation must not move the deadline")
}

func TestService_IssueClaim(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sess := f.create(t, 60)

	f.clock.Advance(5 * time.Minute)
	c, err := f.svc.IssueClaim(ctx, sess.ID.String())
	require.NoError(t, err)
	assert.Equal(t, sess.ID.String(), c.SessionID)
	assert.Equal(t, sess.Secret, c.Secret)
	assert.Equal(t, t0.Add(5*time.Minute).UnixMilli(), c.Timestamp)
	assert.Equal(t, c.Timestamp+20_000, c.ExpiresAt)

	stored, err := f.repo.FindByID(ctx, sess.ID.String())
	require.NoError(t, err)
	require.NotNil(t, stored.SecretExpiresAt)
	assert.Equal(t, c.ExpiresAt, stored.SecretExpiresAt.UnixMilli())
	assert.Equal(t, sess.Secret, stored.Secret, "issuing must not rotate the secret")

	t.Run("past the deadline", func(t *testing.T) {
		f.clock.Advance(time.Hour)
		_, err := f.svc.IssueClaim(ctx, sess.ID.String())
		assert.ErrorIs(t, err, ErrSessionTimeExpired)
	})
}

func TestService_ListMine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var ids []string
	for i := 0; i < 5; i++ {
		f.clock.Advance(time.Minute)
		ids = append(ids, f.create(t, 60).ID.String())
	}
	_, err := f.svc.Close(ctx, ids[0], TriggerManual)
	require.NoError(t, err)

	page, total, err := f.svc.ListMine(ctx, f.teacherID.String(), StatusAll, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID.String(), "newest first")

	page, _, err = f.svc.ListMine(ctx, f.teacherID.String(), StatusAll, 3, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[0], page[0].ID.String())

	_, total, err = f.svc.ListMine(ctx, f.teacherID.String(), StatusActive, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	closed, total, err := f.svc.ListMine(ctx, f.teacherID.String(), StatusClosed, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, ids[0], closed[0].ID.String())

	_, total, err = f.svc.ListMine(ctx, uuid.NewString(), StatusAll, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestService_ListActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	short := f.create(t, 5)
	long := f.create(t, 60)
	closed := f.create(t, 60)
	_, err := f.svc.Close(ctx, closed.ID.String(), TriggerManual)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	live, err := f.svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, long.ID, live[0].ID)
	assert.NotEqual(t, short.ID, live[0].ID)
}

func TestService_ReapExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	short := f.create(t, 5)
	long := f.create(t, 60)

	f.clock.Advance(6 * time.Minute)
	n, err := f.svc.ReapExpired(ctx, 2*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n, "still inside the grace period")

	f.clock.Advance(2 * time.Minute)
	n, err = f.svc.ReapExpired(ctx, 2*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.Get(ctx, short.ID.String())
	require.NoError(t, err)
	assert.False(t, got.Active)
	require.NotNil(t, got.EndTime)

	got, err = f.svc.Get(ctx, long.ID.String())
	require.NoError(t, err)
	assert.True(t, got.Active)
}

// frozenRepository serves a fixed active list, as a listing taken just before
// another closer got there would
type frozenRepository struct {
	Repository
	active []Session
}

func (r *frozenRepository) ListActive(context.Context) ([]Session, error) {
	return r.active, nil
}

// frozenCache always returns the snapshot it was built with
type frozenCache struct {
	snapshot Session
}

func (c *frozenCache) Get(context.Context, string) (*Session, error) {
	sess := c.snapshot
	return &sess, nil
}

func (c *frozenCache) Invalidate(context.Context, string) error { return nil }

func TestService_ReapExpired_CountsOnlyOwnTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("closed concurrently", func(t *testing.T) {
		f := newFixture(t)
		short := f.create(t, 5)
		f.clock.Advance(10 * time.Minute)

		listed, err := f.repo.ListActive(ctx)
		require.NoError(t, err)
		_, err = f.svc.Close(ctx, short.ID.String(), TriggerManual)
		require.NoError(t, err)

		svc := NewService(&frozenRepository{Repository: f.repo, active: listed}, nil, nil, WithClock(f.clock.Now))
		n, err := svc.ReapExpired(ctx, time.Minute)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("stale cached snapshot", func(t *testing.T) {
		f := newFixture(t)
		short := f.create(t, 5)
		f.clock.Advance(10 * time.Minute)

		listed, err := f.repo.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		closed, err := f.repo.Close(ctx, short.ID.String(), f.clock.Now())
		require.NoError(t, err)
		require.True(t, closed)

		svc := NewService(&frozenRepository{Repository: f.repo, active: listed}, nil, nil,
			WithClock(f.clock.Now), WithCache(&frozenCache{snapshot: listed[0]}))
		before := testutil.ToFloat64(metrics.SessionsClosedTotal.WithLabelValues(TriggerReaper))

		n, err := svc.ReapExpired(ctx, time.Minute)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Equal(t, before, testutil.ToFloat64(metrics.SessionsClosedTotal.WithLabelValues(TriggerReaper)))
	})
}

func TestService_IsOwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	sess := f.create(t, 60)

	tests := []struct {
		name     string
		identity *auth.Identity
		want     bool
	}{
		{name: "owner", identity: &auth.Identity{UserID: f.teacherID.String(), Role: user.RoleTeacher}, want: true},
		{name: "admin", identity: &auth.Identity{UserID: uuid.NewString(), Role: user.RoleAdmin}, want: true},
		{name: "other teacher", identity: &auth.Identity{UserID: uuid.NewString(), Role: user.RoleTeacher}},
		{name: "student", identity: &auth.Identity{UserID: uuid.NewString(), Role: user.RoleStudent}},
		{name: "anonymous", identity: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.svc.IsOwnerOrAdmin(tt.identity, sess))
		})
	}
}
