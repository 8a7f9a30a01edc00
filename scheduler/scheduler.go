// Fixed-size worker pool that serializes work per room.
//
// Events for a room that already has an event in flight are chained behind it and run by the same worker, in arrival order.
// Events for different rooms run in parallel.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/groupmod/groupmod/event"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrQueueFull = errors.New("room queue is full")
	ErrShutdown  = errors.New("scheduler is shut down")
)

type HandlerFunc func(context.Context, *event.Envelope) error

type Scheduler struct {
	maxConcurrency int
	// per-room backlog limit; zero means unbounded
	maxQueue int

	do  HandlerFunc
	ctx context.Context

	feeder chan *task
	out    chan struct{}
	// AddWork calls that may still send on feeder
	senders sync.WaitGroup

	lk     sync.Mutex
	active map[string][]*task
	closed bool

	ident string

	itemsAdded     prometheus.Counter
	itemsProcessed prometheus.Counter
	itemsFailed    prometheus.Counter
	itemsQueued    prometheus.Gauge
	workersActive  prometheus.Gauge

	log *slog.Logger
}

func NewScheduler(ctx context.Context, maxC, maxQ int, ident string, do HandlerFunc) *Scheduler {
	if maxC < 1 {
		maxC = 1
	}
	s := &Scheduler{
		maxConcurrency: maxC,
		maxQueue:       maxQ,

		do:  do,
		ctx: ctx,

		feeder: make(chan *task),
		active: make(map[string][]*task),
		out:    make(chan struct{}),

		ident: ident,

		itemsAdded:     workItemsAdded.WithLabelValues(ident),
		itemsProcessed: workItemsProcessed.WithLabelValues(ident),
		itemsFailed:    workItemsFailed.WithLabelValues(ident),
		itemsQueued:    workItemsQueued.WithLabelValues(ident),
		workersActive:  workersActive.WithLabelValues(ident),

		log: slog.Default().With("system", "room-scheduler", "pool", ident),
	}

	for i := 0; i < maxC; i++ {
		go s.worker()
	}
	s.workersActive.Set(float64(maxC))

	return s
}

type task struct {
	room    string
	val     *event.Envelope
	control string
}

// Queues an event for its room. Blocks until a worker accepts it, unless the room already has work in flight.
func (s *Scheduler) AddWork(ctx context.Context, room string, val *event.Envelope) error {
	t := &task{
		room: room,
		val:  val,
	}
	s.lk.Lock()
	if s.closed {
		s.lk.Unlock()
		return ErrShutdown
	}

	a, ok := s.active[room]
	if ok {
		if s.maxQueue > 0 && len(a) >= s.maxQueue {
			s.lk.Unlock()
			return ErrQueueFull
		}
		s.active[room] = append(a, t)
		s.lk.Unlock()
		s.itemsAdded.Inc()
		s.itemsQueued.Inc()
		return nil
	}

	s.active[room] = []*task{}
	s.senders.Add(1)
	s.lk.Unlock()
	defer s.senders.Done()
	s.itemsAdded.Inc()

	select {
	case s.feeder <- t:
		return nil
	case <-ctx.Done():
		s.lk.Lock()
		rem := s.active[room]
		if len(rem) == 0 {
			delete(s.active, room)
			s.lk.Unlock()
			return ctx.Err()
		}
		s.lk.Unlock()
		// others queued behind us while we waited; hand the chain to a worker. Workers outlive every sender, so this
		// cannot block forever.
		s.feeder <- t
		return nil
	}
}

// Stops accepting work, lets workers finish every queued event, and waits for them to exit. Calls after the first are
// no-ops.
func (s *Scheduler) Shutdown() {
	s.lk.Lock()
	if s.closed {
		s.lk.Unlock()
		return
	}
	s.closed = true
	s.lk.Unlock()
	s.log.Info("shutting down room scheduler")

	// a room handed to a worker after the stops went out would never run
	s.senders.Wait()

	for i := 0; i < s.maxConcurrency; i++ {
		s.feeder <- &task{
			control: "stop",
		}
	}

	for i := 0; i < s.maxConcurrency; i++ {
		<-s.out
	}
	s.workersActive.Set(0)

	s.log.Info("room scheduler shutdown complete")
}

func (s *Scheduler) worker() {
	for work := range s.feeder {
		for work != nil {
			if work.control == "stop" {
				s.out <- struct{}{}
				return
			}

			if err := s.do(s.ctx, work.val); err != nil {
				s.itemsFailed.Inc()
				s.log.Error("event handler failed", "room", work.room, "err", err)
			}
			s.itemsProcessed.Inc()

			s.lk.Lock()
			rem, ok := s.active[work.room]
			if !ok {
				s.log.Error("should always have an 'active' entry if a worker is processing a job", "room", work.room)
			}

			if len(rem) == 0 {
				delete(s.active, work.room)
				work = nil
			} else {
				work = rem[0]
				s.active[work.room] = rem[1:]
				s.itemsQueued.Dec()
			}
			s.lk.Unlock()
		}
	}
}
