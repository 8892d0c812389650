package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"unitbook/internal/cache"
	"unitbook/internal/database"
	"unitbook/internal/domain"
	"unitbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	EntityType string
	Operation  string
	EntityID   int64
}

// recordingAuditor копит события в памяти вместо журнала.
type recordingAuditor struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (a *recordingAuditor) Record(ctx context.Context, entityType, operation string, entityID int64, description string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, recordedEvent{EntityType: entityType, Operation: operation, EntityID: entityID})
}

func (a *recordingAuditor) recorded() []recordedEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]recordedEvent(nil), a.events...)
}

type serviceFixture struct {
	db      *database.DB
	cache   *cache.MemoryAvailabilityCache
	auditor *recordingAuditor
	logger  *zerolog.Logger
}

func newServiceFixture(t *testing.T) *serviceFixture {
	logger := zerolog.New(os.Stdout).Level(zerolog.Disabled)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &serviceFixture{
		db:      db,
		cache:   cache.NewMemoryAvailabilityCache(time.Hour),
		auditor: &recordingAuditor{},
		logger:  &logger,
	}
}

// fastRetry держит задержки микроскопическими, чтобы тесты не спали.
func fastRetry() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func (f *serviceFixture) seedUser(t *testing.T) *models.User {
	user := &models.User{Username: "tester", Email: "tester@example.com"}
	require.NoError(t, f.db.CreateUser(context.Background(), user))
	return user
}

func (f *serviceFixture) seedUnit(t *testing.T) *models.Unit {
	unit := &models.Unit{Rooms: 2, Type: models.AccommodationFlat, BaseCost: 100}
	require.NoError(t, f.db.CreateUnit(context.Background(), unit))
	return unit
}

func TestBookingServiceCreate(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	user := f.seedUser(t)
	unit := f.seedUnit(t)

	svc := NewBookingService(f.db, f.cache, f.auditor, fastRetry(), 15*time.Minute, f.logger)

	// Warm the cache so the invalidation is observable.
	require.NoError(t, f.cache.Set(ctx, 1))

	booking, err := svc.CreateBooking(ctx, user.ID, []int64{unit.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{unit.ID}, booking.UnitIDs)

	_, ok, err := f.cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "cache must be invalidated after a booking")

	events := f.auditor.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, models.EntityBooking, events[0].EntityType)
	assert.Equal(t, models.OperationCreate, events[0].Operation)
	assert.Equal(t, booking.ID, events[0].EntityID)
}

// flakyStore подмешивает транзиентные конфликты в первые вызовы CreateBooking.
type flakyStore struct {
	domain.Store
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *flakyStore) CreateBooking(ctx context.Context, userID int64, unitIDs []int64, paymentWindow time.Duration) (*models.Booking, *models.Payment, error) {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.failures
	s.mu.Unlock()
	if fail {
		return nil, nil, database.ErrConcurrentModification
	}
	return s.Store.CreateBooking(ctx, userID, unitIDs, paymentWindow)
}

func TestBookingServiceRetriesTransientConflicts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	user := f.seedUser(t)
	unit := f.seedUnit(t)

	store := &flakyStore{Store: f.db, failures: 2}
	svc := NewBookingService(store, f.cache, f.auditor, fastRetry(), 15*time.Minute, f.logger)

	booking, err := svc.CreateBooking(ctx, user.ID, []int64{unit.ID})
	require.NoError(t, err)
	assert.NotZero(t, booking.ID)
	assert.Equal(t, 3, store.calls, "two conflicts and one success")
}

func TestBookingServiceConflictExhaustion(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	user := f.seedUser(t)
	unit := f.seedUnit(t)

	store := &flakyStore{Store: f.db, failures: 100}
	policy := fastRetry()
	svc := NewBookingService(store, f.cache, f.auditor, policy, 15*time.Minute, f.logger)

	_, err := svc.CreateBooking(ctx, user.ID, []int64{unit.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrBookingConflict)
	assert.Equal(t, policy.MaxRetries, store.calls)
	assert.Empty(t, f.auditor.recorded(), "failed booking must not be audited")
}

func TestBookingServiceBusinessErrorsNotRetried(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	unit := f.seedUnit(t)
	svc := NewBookingService(f.db, f.cache, f.auditor, fastRetry(), 15*time.Minute, f.logger)

	// Unknown user fails once, without the conflict wrapper.
	_, err := svc.CreateBooking(ctx, 9999, []int64{unit.ID})
	assert.ErrorIs(t, err, database.ErrUserNotFound)
	assert.NotErrorIs(t, err, database.ErrBookingConflict)
}

func TestBookingServiceCancel(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	user := f.seedUser(t)
	unit := f.seedUnit(t)

	svc := NewBookingService(f.db, f.cache, f.auditor, fastRetry(), 15*time.Minute, f.logger)

	booking, err := svc.CreateBooking(ctx, user.ID, []int64{unit.ID})
	require.NoError(t, err)

	require.NoError(t, svc.CancelBooking(ctx, booking.ID, user.ID))

	_, err = svc.GetBooking(ctx, booking.ID)
	assert.ErrorIs(t, err, database.ErrBookingNotFound)

	events := f.auditor.recorded()
	require.Len(t, events, 2)
	assert.Equal(t, models.OperationDelete, events[1].Operation)
}

func TestBookingServiceUpdateEmptySetIsNoop(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	user := f.seedUser(t)
	unit := f.seedUnit(t)

	svc := NewBookingService(f.db, f.cache, f.auditor, fastRetry(), 15*time.Minute, f.logger)

	booking, err := svc.CreateBooking(ctx, user.ID, []int64{unit.ID})
	require.NoError(t, err)
	auditsBefore := len(f.auditor.recorded())

	same, err := svc.UpdateBooking(ctx, booking.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, booking.UnitIDs, same.UnitIDs)
	assert.Len(t, f.auditor.recorded(), auditsBefore, "no-op update must not be audited")
}

func TestBookingServiceUpdate(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	user := f.seedUser(t)
	old := f.seedUnit(t)
	replacement := f.seedUnit(t)

	svc := NewBookingService(f.db, f.cache, f.auditor, fastRetry(), 15*time.Minute, f.logger)

	booking, err := svc.CreateBooking(ctx, user.ID, []int64{old.ID})
	require.NoError(t, err)

	updated, err := svc.UpdateBooking(ctx, booking.ID, []int64{replacement.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{replacement.ID}, updated.UnitIDs)

	freed, err := f.db.GetUnit(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UnitStatusAvailable, freed.Status)
}
