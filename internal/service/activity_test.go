package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendlyi/reservation-backend/internal/model"
	"github.com/friendlyi/reservation-backend/internal/utils"
)

type memActivityStore struct {
	mu      sync.Mutex
	entries []model.ActivityLog
	block   chan struct{} // non-nil makes Create wait until closed
}

func (s *memActivityStore) Create(_ context.Context, l *model.ActivityLog) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = uint64(len(s.entries) + 1)
	s.entries = append(s.entries, *l)
	return nil
}

func (s *memActivityStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *memActivityStore) FindRecent(_ context.Context, offset, limit int) ([]model.ActivityLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ActivityLog, 0, limit)
	for i := len(s.entries) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *memActivityStore) FindByMember(ctx context.Context, memberID uint64, offset, limit int) ([]model.ActivityLog, error) {
	all, _ := s.FindRecent(ctx, 0, len(s.entries)+offset+limit)
	out := make([]model.ActivityLog, 0)
	for _, l := range all {
		if l.MemberID == memberID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memActivityStore) FindByType(ctx context.Context, t model.ActivityType, offset, limit int) ([]model.ActivityLog, error) {
	all, _ := s.FindRecent(ctx, 0, len(s.entries)+offset+limit)
	out := make([]model.ActivityLog, 0)
	for _, l := range all {
		if l.ActivityType == t {
			out = append(out, l)
		}
	}
	return out, nil
}

func TestActivityLoggerWritesEntries(t *testing.T) {
	store := &memActivityStore{}
	logger := NewActivityLogger(store)

	cc := utils.NewCallContext()
	cc.RemoteAddr = "10.0.0.1"
	cc.HTTPMethod = "POST"
	for i := 0; i < 10; i++ {
		logger.Record(cc, 1, "egg_user", model.ActivityLogin, "logged in")
	}
	logger.Close()

	require.Equal(t, 10, store.count())
	recent, err := logger.ByMember(context.Background(), 1, 0, 20)
	require.NoError(t, err)
	assert.Len(t, recent, 10)
	assert.Equal(t, "10.0.0.1", recent[0].IPAddress)
}

func TestActivityLoggerDropsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	store := &memActivityStore{block: block}
	logger := NewActivityLogger(store)

	// Workers are stuck in Create; fill the queue past its depth.
	cc := utils.NewCallContext()
	for i := 0; i < activityQueueDepth+activityWorkers+50; i++ {
		logger.Record(cc, 1, "egg_user", model.ActivityLogin, "burst")
	}
	close(block)
	logger.Close()

	got := store.count()
	require.LessOrEqual(t, got, activityQueueDepth+activityWorkers)
	require.Greater(t, got, 0)
}

func TestActivityLoggerRecordAfterCloseIsNoop(t *testing.T) {
	store := &memActivityStore{}
	logger := NewActivityLogger(store)
	logger.Close()

	logger.Record(utils.NewCallContext(), 1, "egg_user", model.ActivityLogout, "late entry")
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, store.count())
}

func TestPageBounds(t *testing.T) {
	offset, limit := pageBounds(2, 10)
	assert.Equal(t, 20, offset)
	assert.Equal(t, 10, limit)

	offset, limit = pageBounds(-1, 0)
	assert.Equal(t, 0, offset)
	assert.Equal(t, 20, limit)

	_, limit = pageBounds(0, 500)
	assert.Equal(t, 20, limit)
}
