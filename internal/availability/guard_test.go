package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"fleetlink/internal/locks"
	"fleetlink/pkg/config"
	apperrors "fleetlink/pkg/errors"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusy = errors.New("busy")

// memLocker is a single-process stand-in for the Redis and Mongo lockers.
type memLocker struct {
	mu       sync.Mutex
	held     map[string]string
	released int
}

func (l *memLocker) Acquire(ctx context.Context, vehicleID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]string{}
	}
	if _, ok := l.held[vehicleID]; ok {
		return "", errBusy
	}
	l.held[vehicleID] = "token-" + vehicleID
	return l.held[vehicleID], nil
}

func (l *memLocker) Release(ctx context.Context, vehicleID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[vehicleID] == token {
		delete(l.held, vehicleID)
		l.released++
	}
	return nil
}

// memStore keeps inserted windows so the checker sees earlier writes.
type memStore struct {
	mu      sync.Mutex
	windows map[string][]model.BookingWindow
}

func (s *memStore) ActiveWindows(ctx context.Context, vehicleID string) ([]model.BookingWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.BookingWindow(nil), s.windows[vehicleID]...), nil
}

func (s *memStore) insert(vehicleID string, start, end time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.windows == nil {
		s.windows = map[string][]model.BookingWindow{}
	}
	s.windows[vehicleID] = append(s.windows[vehicleID], model.BookingWindow{
		ID: "bk", Status: config.Confirmed, Start: &start, End: &end,
	})
}

func TestGuard_Reserve(t *testing.T) {
	store := &memStore{}
	locker := &memLocker{}
	guard := NewGuard(locker, NewChecker(store, 6*time.Hour, logger.Discard()), logger.Discard())

	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(6 * time.Hour)
	write := func(ctx context.Context) error {
		store.insert("v1", start, end)
		return nil
	}

	require.NoError(t, guard.Reserve(context.Background(), "v1", start, end, write))
	assert.Equal(t, 1, locker.released)

	err := guard.Reserve(context.Background(), "v1", start.Add(2*time.Hour), end.Add(2*time.Hour), write)
	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "bk", unavailable.Conflict.BookingID)
	assert.Equal(t, 2, locker.released, "lock must be released after a conflict")
}

func TestGuard_ReactivateExcludesItself(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(6 * time.Hour)
	store := &memStore{windows: map[string][]model.BookingWindow{
		"v1": {{ID: "self", Status: config.Confirmed, Start: &start, End: &end}},
	}}
	locker := &memLocker{}
	guard := NewGuard(locker, NewChecker(store, 6*time.Hour, logger.Discard()), logger.Discard())
	noop := func(ctx context.Context) error { return nil }

	require.NoError(t, guard.Reactivate(context.Background(), "v1", "self", start, end, noop))

	store.insert("v1", start.Add(time.Hour), end)
	err := guard.Reactivate(context.Background(), "v1", "self", start, end, noop)
	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "bk", unavailable.Conflict.BookingID)
	assert.Equal(t, 2, locker.released)
}

func TestGuard_LockHeld(t *testing.T) {
	locker := &memLocker{held: map[string]string{"v1": "other"}}
	guard := NewGuard(locker, NewChecker(&memStore{}, 6*time.Hour, logger.Discard()), logger.Discard())

	called := false
	err := guard.Reserve(context.Background(), "v1", time.Now(), time.Now().Add(time.Hour), func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, errBusy)
	assert.False(t, called)
	assert.Equal(t, "other", locker.held["v1"], "a lock held by someone else must survive")
}

func TestGuard_ConcurrentWritersSerialized(t *testing.T) {
	store := &memStore{}
	guard := NewGuard(&memLocker{}, NewChecker(store, 6*time.Hour, logger.Discard()), logger.Discard())

	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := guard.Reserve(context.Background(), "v1", start, end, func(ctx context.Context) error {
				store.insert("v1", start, end)
				return nil
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	windows, _ := store.ActiveWindows(context.Background(), "v1")
	assert.Equal(t, 1, succeeded)
	assert.Len(t, windows, 1, "overlapping writers must never both insert")
}

func TestConflictError(t *testing.T) {
	conflict := &Conflict{BookingID: "bk-1", Status: config.Confirmed}

	locked := ConflictError(fmt.Errorf("acquire: %w", locks.ErrLocked))
	require.NotNil(t, locked)
	assert.Equal(t, apperrors.CodeConflict, locked.Code)

	unavailable := ConflictError(&UnavailableError{Conflict: conflict})
	require.NotNil(t, unavailable)
	assert.Equal(t, conflict, unavailable.Details["conflictingBooking"])

	assert.Nil(t, ConflictError(errors.New("connection reset")))
}
