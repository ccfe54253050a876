package metrics

import (
	"context"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// TraceMethodCall starts tracing a method call. Within a New Relic
// transaction the call becomes a segment. With only an application on the
// context, End records the call duration as a custom metric. Without either,
// the returned tracer is nil, and all of its methods are no-ops.
func TraceMethodCall(ctx context.Context, structOrPackageName, methodName string) *MethodTracer {
	name := structOrPackageName + "." + methodName

	txn := newrelic.FromContext(ctx)
	if txn != nil {
		return &MethodTracer{
			txn:   txn,
			seg:   txn.StartSegment(name),
			name:  name,
			start: time.Now(),
		}
	}

	if _, ok := FromContext(ctx); ok {
		return &MethodTracer{
			ctx:   ctx,
			name:  name,
			start: time.Now(),
		}
	}

	return nil
}

// MethodTracer collects analytics for a single method call.
type MethodTracer struct {
	ctx context.Context

	txn *newrelic.Transaction
	seg *newrelic.Segment

	name  string
	start time.Time
}

// AddAttribute adds a key-value pair to the method's segment
func (t *MethodTracer) AddAttribute(key string, value interface{}) {
	if t == nil || t.seg == nil {
		return
	}

	t.seg.AddAttribute(key, value)
}

// AddAttributes adds a set of key-value pairs to the method's segment
func (t *MethodTracer) AddAttributes(attributes map[string]interface{}) {
	for key, value := range attributes {
		t.AddAttribute(key, value)
	}
}

// OnError notices an error that the method could not handle.
func (t *MethodTracer) OnError(err error) {
	if t == nil || err == nil {
		return
	}

	if t.txn != nil {
		t.txn.NoticeError(err)
		return
	}
	RecordCount(t.ctx, t.name+".error", 1)
}

// End completes the trace for the method call.
func (t *MethodTracer) End() {
	if t == nil {
		return
	}

	if t.seg != nil {
		t.seg.End()
		return
	}
	RecordDuration(t.ctx, t.name, time.Since(t.start))
}
