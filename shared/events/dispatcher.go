package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"assurcore-backend/shared/metrics"
)

const defaultDeliveryTimeout = 5 * time.Second

// Sink consumes published events.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event Event) error
}

// Publisher is what the services depend on.
type Publisher interface {
	Publish(events ...Event)
}

// Dispatcher fans events out to every sink on its own goroutine. Failures
// and panics are logged and never reach the publisher.
type Dispatcher struct {
	sinks   []Sink
	log     *logrus.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(log *logrus.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, log: log, timeout: defaultDeliveryTimeout}
}

func (d *Dispatcher) Publish(events ...Event) {
	if d == nil {
		return
	}
	for _, event := range events {
		for _, sink := range d.sinks {
			d.wg.Add(1)
			go d.deliver(sink, event)
		}
	}
}

func (d *Dispatcher) deliver(sink Sink, event Event) {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	entry := d.log.WithFields(logrus.Fields{
		"event":           event.Name(),
		"organization_id": event.OrganizationID(),
		"sink":            sink.Name(),
	})

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		metrics.RecordDelivery(sink.Name(), err)
		if err != nil {
			entry.WithError(err).Error("event delivery failed")
		}
	}()

	err = sink.Deliver(ctx, event)
}

// Wait blocks until every in-flight delivery has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
