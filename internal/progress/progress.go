// Package progress publishes step lifecycle events to observers.
//
// Delivery is best-effort and at-least-once: sink failures are logged and
// swallowed, duplicates are legal, and observers may see events out of order
// relative to context mutation visibility.
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/uiforge/uiforge/internal/tcc"
)

// Event is one step lifecycle notification.
type Event struct {
	JobID     string                       `json:"job_id"`
	Step      tcc.Step                     `json:"step"`
	Status    tcc.StepStatus               `json:"status"`
	Message   string                       `json:"message,omitempty"`
	Isolated  bool                         `json:"isolated,omitempty"`
	Snapshot  *tcc.ToolConstructionContext `json:"snapshot,omitempty"`
	Timestamp time.Time                    `json:"timestamp"`
}

// Sink receives events. Implementations must tolerate duplicates.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

// Emitter fans events out to sinks without ever blocking or failing the
// pipeline. A nil *Emitter is a valid no-op.
type Emitter struct {
	sinks        []Sink
	log          *logrus.Entry
	deliverWait  time.Duration
	wg           sync.WaitGroup
}

// NewEmitter creates an Emitter over the given sinks.
func NewEmitter(log *logrus.Entry, sinks ...Sink) *Emitter {
	return &Emitter{sinks: sinks, log: log, deliverWait: 5 * time.Second}
}

// Emit delivers e to every sink asynchronously. It returns immediately;
// delivery failures are caught and logged, never propagated.
func (em *Emitter) Emit(e Event) {
	if em == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	for _, sink := range em.sinks {
		sink := sink
		em.wg.Add(1)
		go func() {
			defer em.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					em.log.WithField("sink", sink.Name()).
						Errorf("progress sink panicked: %v", r)
				}
			}()
			ctx, cancel := context.WithTimeout(context.Background(), em.deliverWait)
			defer cancel()
			if err := sink.Deliver(ctx, e); err != nil {
				em.log.WithField("sink", sink.Name()).
					WithError(err).Warn("progress delivery failed")
			}
		}()
	}
}

// Wait blocks until every in-flight delivery finishes. Used at shutdown and
// in tests; the pipeline never calls it.
func (em *Emitter) Wait() {
	if em == nil {
		return
	}
	em.wg.Wait()
}

// LogSink writes each event as a structured log record.
type LogSink struct {
	Log *logrus.Entry
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// Deliver implements Sink.
func (s *LogSink) Deliver(_ context.Context, e Event) error {
	s.Log.WithFields(logrus.Fields{
		"job":      e.JobID,
		"step":     e.Step,
		"status":   e.Status,
		"isolated": e.Isolated,
	}).Info(e.Message)
	return nil
}
