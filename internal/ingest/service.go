package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aakso/smarthome-influxdb/internal/infrastructure/influxdb"
	"github.com/aakso/smarthome-influxdb/internal/infrastructure/logging"
	"github.com/aakso/smarthome-influxdb/internal/infrastructure/mqtt"
	"github.com/aakso/smarthome-influxdb/internal/item"
	"github.com/aakso/smarthome-influxdb/internal/spool"
)

// Bus is the subset of the MQTT client the ingest service uses.
type Bus interface {
	Subscribe(topic string, handler mqtt.MessageHandler) error
	PublishRetained(topic string, payload []byte) error
}

// ValueRestorer looks up the last stored value of an item, used to
// seed init-mode items on startup.
type ValueRestorer interface {
	LastValue(ctx context.Context, name string) (influxdb.Row, error)
}

// Service consumes item state messages from the bus and feeds the
// write queue.
//
// Two modes per item, matching the registry:
//   - change ("true"): every state message is enqueued
//   - init: additionally, the last stored value is published back to
//     the item's set topic on startup so the framework restores state
//     after a restart
//
// A periodic collect cycle re-enqueues the last seen value of every
// item, producing a heartbeat series for items that rarely change,
// and checkpoints last-value statistics to the registry store.
type Service struct {
	queue    *spool.Queue
	registry *item.Registry
	bus      Bus
	restorer ValueRestorer
	topics   mqtt.Topics
	log      *logging.Logger

	// collectCycle is the interval between collect passes, 0 disables them.
	collectCycle time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates an ingest service. Call Start to begin consuming.
func New(queue *spool.Queue, registry *item.Registry, bus Bus, restorer ValueRestorer, topics mqtt.Topics, collectCycle time.Duration, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Default()
	}
	return &Service{
		queue:        queue,
		registry:     registry,
		bus:          bus,
		restorer:     restorer,
		topics:       topics,
		log:          log.With("component", "ingest"),
		collectCycle: collectCycle,
		stop:         make(chan struct{}),
	}
}

// Start subscribes to the item state wildcard, restores init-mode
// items, and launches the collect loop.
func (s *Service) Start(ctx context.Context) error {
	if err := s.bus.Subscribe(s.topics.AllItemStates(), s.HandleState); err != nil {
		return fmt.Errorf("subscribe item states: %w", err)
	}

	s.restoreInitItems(ctx)

	if s.collectCycle > 0 {
		s.wg.Add(1)
		go s.collectLoop()
	}

	s.log.Info("ingest started",
		"items", s.registry.Count(),
		"collect_cycle", s.collectCycle,
	)
	return nil
}

// Stop halts the collect loop and checkpoints the registry.
func (s *Service) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
	return s.registry.Checkpoint(ctx)
}

// HandleState processes one message from an item state topic.
//
// Untracked items and malformed payloads are skipped; both are normal
// on a shared bus, so neither fails the handler loudly.
func (s *Service) HandleState(topic string, payload []byte) error {
	name, ok := s.topics.ItemFromStateTopic(topic)
	if !ok {
		return nil
	}
	if _, tracked := s.registry.Lookup(name); !tracked {
		return nil
	}

	value, ts, err := parsePayload(payload, time.Now().UTC())
	if err != nil {
		s.log.Warn("dropping unparseable state",
			"item", name,
			"payload", string(payload),
			"error", err,
		)
		return nil
	}

	s.queue.Enqueue(spool.Point{Item: name, Value: value, Time: ts})
	s.registry.RecordEnqueue(name, value, ts)

	s.log.Debug("state enqueued", "item", name, "value", value)
	return nil
}

// restoreInitItems publishes the last stored value of every init-mode
// item to its set topic. Items with no history yet are skipped.
func (s *Service) restoreInitItems(ctx context.Context) {
	for _, it := range s.registry.All() {
		if it.Mode != item.ModeInit {
			continue
		}

		row, err := s.restorer.LastValue(ctx, it.Name)
		if err != nil {
			if errors.Is(err, influxdb.ErrEmptyResult) {
				s.log.Debug("no stored value to restore", "item", it.Name)
			} else {
				s.log.Warn("restore lookup failed", "item", it.Name, "error", err)
			}
			continue
		}

		topic := s.topics.ItemSet(it.Name)
		if err := s.bus.PublishRetained(topic, []byte(formatValue(row.Value))); err != nil {
			s.log.Warn("restore publish failed", "item", it.Name, "error", err)
			continue
		}

		s.log.Info("restored item value",
			"item", it.Name,
			"value", row.Value,
			"stored_at", row.Time,
		)
	}
}

// collectLoop runs the periodic collect cycle until Stop.
func (s *Service) collectLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.collectCycle)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Collect(context.Background())
		case <-s.stop:
			return
		}
	}
}

// Collect re-enqueues the last seen value of every item that has
// reported at least once, then checkpoints the registry store.
func (s *Service) Collect(ctx context.Context) {
	now := time.Now().UTC()
	enqueued := 0

	for _, it := range s.registry.All() {
		if it.LastValue == nil {
			continue
		}
		s.queue.Enqueue(spool.Point{Item: it.Name, Value: *it.LastValue, Time: now})
		s.registry.RecordEnqueue(it.Name, *it.LastValue, now)
		enqueued++
	}

	if err := s.registry.Checkpoint(ctx); err != nil {
		s.log.Warn("registry checkpoint failed", "error", err)
	}

	s.log.Debug("collect cycle complete", "enqueued", enqueued)
}
