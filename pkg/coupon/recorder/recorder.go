package recorder

import (
	"context"
	base "sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/coupon-server/pkg/coupon/data/event"
	"github.com/code-payments/coupon-server/pkg/coupon/data/resale"
	"github.com/code-payments/coupon-server/pkg/metrics"
	"github.com/code-payments/coupon-server/pkg/sync"
)

const (
	metricsStructName = "coupon.recorder"

	droppedWritesMetricName = metricsStructName + ".dropped_writes"
	failedWritesMetricName  = metricsStructName + ".failed_writes"
)

var (
	ErrRecorderClosed = errors.New("recorder is closed")
)

type taskType uint8

const (
	taskPutEvent taskType = iota
	taskPutListing
	taskDeactivateListing
)

func (t taskType) String() string {
	switch t {
	case taskPutEvent:
		return "put_event"
	case taskPutListing:
		return "put_listing"
	case taskDeactivateListing:
		return "deactivate_listing"
	}
	return "unknown"
}

type task struct {
	taskType  taskType
	event     *event.Record
	listing   *resale.Record
	listingId string
}

// Recorder writes off-chain bookkeeping for confirmed transactions in the
// background. Writes for the same mint are applied in the order they were
// queued. A failed or dropped write is logged and counted, but never reported
// back to the caller, since the ledger already holds the outcome.
type Recorder struct {
	log  *logrus.Entry
	conf *conf

	events   event.Store
	listings resale.Store

	// Carries the metrics app, if any, into detached write contexts
	baseCtx context.Context

	queue   *sync.StripedChannel[*task]
	pending base.WaitGroup
	workers base.WaitGroup

	closeMu base.RWMutex
	closed  bool
}

// New starts a Recorder. Workers run until Close is called.
func New(ctx context.Context, events event.Store, listings resale.Store, configProvider ConfigProvider) *Recorder {
	conf := configProvider()

	baseCtx := context.Background()
	if app, ok := metrics.FromContext(ctx); ok {
		baseCtx = metrics.NewContext(baseCtx, app)
	}

	workerCount := conf.workerCount.Get(ctx)
	if workerCount == 0 {
		workerCount = defaultWorkerCount
	}

	r := &Recorder{
		log:      logrus.StandardLogger().WithField("type", "coupon/recorder"),
		conf:     conf,
		events:   events,
		listings: listings,
		baseCtx:  baseCtx,
		queue:    sync.NewStripedChannel[*task](uint(workerCount), uint(conf.queueSize.Get(ctx))),
	}

	for _, channel := range r.queue.GetChannels() {
		r.workers.Add(1)
		go r.worker(channel)
	}

	return r
}

// RecordEvent queues an event record. A missing event ID or creation time is
// filled in.
func (r *Recorder) RecordEvent(ctx context.Context, record *event.Record) {
	if len(record.EventId) == 0 {
		record.EventId = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	r.enqueue(ctx, record.Mint, &task{
		taskType: taskPutEvent,
		event:    record,
	})
}

// RecordListing queues a new active resale listing. The listing ID is
// generated when missing and returned, so the caller can hand it out before
// the write lands.
func (r *Recorder) RecordListing(ctx context.Context, record *resale.Record) string {
	if len(record.ListingId) == 0 {
		record.ListingId = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	r.enqueue(ctx, record.Mint, &task{
		taskType: taskPutListing,
		listing:  record,
	})
	return record.ListingId
}

// DeactivateListing queues the deactivation of a purchased listing.
func (r *Recorder) DeactivateListing(ctx context.Context, mint, listingId string) {
	r.enqueue(ctx, mint, &task{
		taskType:  taskDeactivateListing,
		listingId: listingId,
	})
}

// Flush blocks until every queued write has been attempted.
func (r *Recorder) Flush() {
	r.pending.Wait()
}

// Close drains the queue and stops the workers. Writes queued afterwards are
// dropped.
func (r *Recorder) Close() {
	r.closeMu.Lock()
	if r.closed {
		r.closeMu.Unlock()
		return
	}
	r.closed = true
	r.queue.Close()
	r.closeMu.Unlock()

	r.workers.Wait()
}

func (r *Recorder) enqueue(ctx context.Context, mint string, t *task) {
	log := r.log.WithFields(logrus.Fields{
		"method": "enqueue",
		"task":   t.taskType.String(),
		"mint":   mint,
	})

	r.closeMu.RLock()
	defer r.closeMu.RUnlock()

	if r.closed {
		log.WithError(ErrRecorderClosed).Warn("dropping write")
		metrics.RecordCount(ctx, droppedWritesMetricName, 1)
		return
	}

	r.pending.Add(1)
	if !r.queue.Send([]byte(mint), t) {
		r.pending.Done()
		log.Warn("write queue is full, dropping write")
		metrics.RecordCount(ctx, droppedWritesMetricName, 1)
	}
}

func (r *Recorder) worker(channel <-chan *task) {
	defer r.workers.Done()

	for t := range channel {
		r.process(t)
		r.pending.Done()
	}
}

func (r *Recorder) process(t *task) {
	ctx, cancel := context.WithTimeout(r.baseCtx, r.conf.writeTimeout.Get(r.baseCtx))
	defer cancel()

	tracer := metrics.TraceMethodCall(ctx, metricsStructName, t.taskType.String())
	defer tracer.End()

	log := r.log.WithFields(logrus.Fields{
		"method": "process",
		"task":   t.taskType.String(),
	})

	var err error
	switch t.taskType {
	case taskPutEvent:
		log = log.WithFields(logrus.Fields{
			"event_id":   t.event.EventId,
			"event_type": t.event.Type.String(),
			"mint":       t.event.Mint,
			"signature":  t.event.Signature,
		})

		err = r.events.Put(ctx, t.event)
		if err == event.ErrEventExists {
			log.Debug("event already recorded")
			return
		}
	case taskPutListing:
		log = log.WithFields(logrus.Fields{
			"listing_id": t.listing.ListingId,
			"mint":       t.listing.Mint,
			"seller":     t.listing.Seller,
		})

		err = r.listings.Put(ctx, t.listing)
	case taskDeactivateListing:
		log = log.WithField("listing_id", t.listingId)

		err = r.listings.Deactivate(ctx, t.listingId)
		if err == resale.ErrListingNotFound {
			log.Debug("listing already inactive")
			return
		}
	default:
		err = errors.Errorf("unsupported task type: %d", t.taskType)
	}

	if err != nil {
		tracer.OnError(err)
		log.WithError(err).Warn("failure writing record")
		metrics.RecordCount(ctx, failedWritesMetricName, 1)
	}
}
