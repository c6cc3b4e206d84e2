package service

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/friendlyi/reservation-backend/internal/model"
	"github.com/friendlyi/reservation-backend/internal/utils"
)

const (
	activityQueueDepth = 100
	activityWorkers    = 3
	activityWriteLimit = 5 * time.Second
)

// ActivityStore is the persistence seam of the activity logger;
// repository.ActivityLogRepo is the MySQL implementation.
type ActivityStore interface {
	Create(ctx context.Context, l *model.ActivityLog) error
	FindRecent(ctx context.Context, offset, limit int) ([]model.ActivityLog, error)
	FindByMember(ctx context.Context, memberID uint64, offset, limit int) ([]model.ActivityLog, error)
	FindByType(ctx context.Context, t model.ActivityType, offset, limit int) ([]model.ActivityLog, error)
}

// ActivityLogger records member activity asynchronously. Record never
// blocks the request path: entries go into a bounded queue drained by
// background workers, and when the queue is full the entry is dropped
// with a warning. Losing a log line is acceptable; stalling a request
// is not.
type ActivityLogger struct {
	repo    ActivityStore
	queue   chan model.ActivityLog
	wg      sync.WaitGroup
	closing chan struct{}
	once    sync.Once
}

// NewActivityLogger starts the worker pool and returns the logger.
func NewActivityLogger(repo ActivityStore) *ActivityLogger {
	l := &ActivityLogger{
		repo:    repo,
		queue:   make(chan model.ActivityLog, activityQueueDepth),
		closing: make(chan struct{}),
	}
	for i := 0; i < activityWorkers; i++ {
		l.wg.Add(1)
		go l.worker()
	}
	return l
}

// Record enqueues one activity entry. Request metadata (ip, user agent,
// uri, method) is taken from the call context; memberID/loginID name
// the member the activity concerns, which is not always the actor.
func (l *ActivityLogger) Record(cc utils.CallContext, memberID uint64, loginID string, t model.ActivityType, description string) {
	entry := model.ActivityLog{
		MemberID:      memberID,
		MemberLoginID: loginID,
		ActivityType:  t,
		Description:   description,
		IPAddress:     cc.RemoteAddr,
		UserAgent:     cc.UserAgent,
		RequestURI:    cc.RequestURI,
		HTTPMethod:    cc.HTTPMethod,
	}
	if cc.CorrelationID != "" {
		cid := cc.CorrelationID
		entry.Details = &cid
	}
	select {
	case <-l.closing:
		return
	default:
	}
	select {
	case l.queue <- entry:
	default:
		log.WithFields(log.Fields{
			"activity_type": t,
			"member_id":     memberID,
		}).Warn("activity queue full, dropping entry")
	}
}

// Recent returns one page of records, newest first.
func (l *ActivityLogger) Recent(ctx context.Context, page, size int) ([]model.ActivityLog, error) {
	offset, limit := pageBounds(page, size)
	return l.repo.FindRecent(ctx, offset, limit)
}

// ByMember returns a member's records, newest first.
func (l *ActivityLogger) ByMember(ctx context.Context, memberID uint64, page, size int) ([]model.ActivityLog, error) {
	offset, limit := pageBounds(page, size)
	return l.repo.FindByMember(ctx, memberID, offset, limit)
}

// ByType returns records of one activity type, newest first.
func (l *ActivityLogger) ByType(ctx context.Context, t model.ActivityType, page, size int) ([]model.ActivityLog, error) {
	offset, limit := pageBounds(page, size)
	return l.repo.FindByType(ctx, t, offset, limit)
}

// Close stops accepting entries, drains the queue and waits for the
// workers to finish. The queue channel itself is never closed so a
// straggling Record can never panic.
func (l *ActivityLogger) Close() {
	l.once.Do(func() { close(l.closing) })
	l.wg.Wait()
}

func (l *ActivityLogger) worker() {
	defer l.wg.Done()
	for {
		select {
		case entry := <-l.queue:
			l.write(entry)
		case <-l.closing:
			for {
				select {
				case entry := <-l.queue:
					l.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (l *ActivityLogger) write(entry model.ActivityLog) {
	ctx, cancel := context.WithTimeout(context.Background(), activityWriteLimit)
	defer cancel()
	if err := l.repo.Create(ctx, &entry); err != nil {
		log.WithError(err).WithField("activity_type", entry.ActivityType).
			Warn("failed to persist activity log entry")
	}
}

func pageBounds(page, size int) (offset, limit int) {
	if page < 0 {
		page = 0
	}
	if size < 1 || size > 100 {
		size = 20
	}
	return page * size, size
}
