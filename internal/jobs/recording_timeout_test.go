package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mka142/ccw-platform-sub001/internal/domain"
)

type fakeRecordingStore struct {
	mu           sync.Mutex
	active       []domain.Recording
	listErr      error
	timedOut     map[uuid.UUID]string
	disconnected map[uuid.UUID]bool
}

func newFakeRecordingStore(active ...domain.Recording) *fakeRecordingStore {
	return &fakeRecordingStore{
		active:       active,
		timedOut:     make(map[uuid.UUID]string),
		disconnected: make(map[uuid.UUID]bool),
	}
}

func (s *fakeRecordingStore) StartRecording(context.Context, uuid.UUID, time.Duration) error {
	return nil
}
func (s *fakeRecordingStore) Heartbeat(context.Context, uuid.UUID) error       { return nil }
func (s *fakeRecordingStore) FinishRecording(context.Context, uuid.UUID) error { return nil }

func (s *fakeRecordingStore) GetActiveRecordings(context.Context) ([]domain.Recording, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.active, nil
}

func (s *fakeRecordingStore) MarkRecordingDisconnected(_ context.Context, token uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnected[token] = true
	return nil
}

func (s *fakeRecordingStore) MarkRecordingTimedOut(_ context.Context, token uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timedOut[token] = message
	return nil
}

func TestRecordingTimeout_AbsoluteTimeoutWithFixedMessage(t *testing.T) {
	start := time.Now()
	// pieceDuration 10s, threshold = 10s*1 + 120s; now is 1ms past it.
	clock := clockwork.NewFakeClockAt(start.Add(10*time.Second + 2*time.Minute + time.Millisecond))

	heartbeat := clock.Now().Add(-time.Second) // perfectly fresh heartbeat
	rec := domain.Recording{
		Token:           uuid.New(),
		PieceDuration:   10 * time.Second,
		StartedAt:       start,
		LastHeartbeatAt: &heartbeat,
		Active:          true,
	}
	store := newFakeRecordingStore(rec)

	v := NewRecordingTimeoutValidator(store, clock)
	require.NoError(t, v.Run(context.Background()))

	assert.Equal(t, timeoutErrorMessage, store.timedOut[rec.Token])
	assert.False(t, store.disconnected[rec.Token], "heartbeat check must be skipped after an absolute timeout")
}

func TestRecordingTimeout_StaleHeartbeatDisconnects(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Now())
	now := clock.Now()

	heartbeat := now.Add(-31 * time.Second)
	rec := domain.Recording{
		Token:           uuid.New(),
		PieceDuration:   10 * time.Minute, // elapsed well below the absolute threshold
		StartedAt:       now.Add(-time.Minute),
		LastHeartbeatAt: &heartbeat,
		Active:          true,
	}
	store := newFakeRecordingStore(rec)

	v := NewRecordingTimeoutValidator(store, clock)
	require.NoError(t, v.Run(context.Background()))

	assert.True(t, store.disconnected[rec.Token])
	_, timedOut := store.timedOut[rec.Token]
	assert.False(t, timedOut)
}

func TestRecordingTimeout_HealthyRecordingUntouched(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Now())
	now := clock.Now()

	heartbeat := now.Add(-5 * time.Second)
	rec := domain.Recording{
		Token:           uuid.New(),
		PieceDuration:   10 * time.Minute,
		StartedAt:       now.Add(-time.Minute),
		LastHeartbeatAt: &heartbeat,
		Active:          true,
	}
	store := newFakeRecordingStore(rec)

	v := NewRecordingTimeoutValidator(store, clock)
	require.NoError(t, v.Run(context.Background()))

	assert.Empty(t, store.timedOut)
	assert.Empty(t, store.disconnected)
}

func TestRecordingTimeout_NoHeartbeatYetIsNotDisconnected(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Now())
	rec := domain.Recording{
		Token:         uuid.New(),
		PieceDuration: 10 * time.Minute,
		StartedAt:     clock.Now().Add(-time.Minute),
		Active:        true,
	}
	store := newFakeRecordingStore(rec)

	v := NewRecordingTimeoutValidator(store, clock)
	require.NoError(t, v.Run(context.Background()))

	assert.Empty(t, store.disconnected)
}

func TestRecordingTimeout_ExactThresholdIsNotTimedOut(t *testing.T) {
	start := time.Now()
	clock := clockwork.NewFakeClockAt(start.Add(10*time.Second + 2*time.Minute)) // elapsed == threshold

	rec := domain.Recording{
		Token:         uuid.New(),
		PieceDuration: 10 * time.Second,
		StartedAt:     start,
		Active:        true,
	}
	store := newFakeRecordingStore(rec)

	v := NewRecordingTimeoutValidator(store, clock)
	require.NoError(t, v.Run(context.Background()))
	assert.Empty(t, store.timedOut)
}

func TestRecordingTimeout_ListErrorPropagates(t *testing.T) {
	store := newFakeRecordingStore()
	store.listErr = errors.New("redis: connection pool timeout")

	v := NewRecordingTimeoutValidator(store, clockwork.NewFakeClock())
	assert.Error(t, v.Run(context.Background()))
}
