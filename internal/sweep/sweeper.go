// Package sweep runs the time-driven expiry of stale pending reservations.
package sweep

import (
	"context"
	"log"
	"time"

	"github.com/RektefeMaster/parts-backend/internal/service"
	"github.com/go-co-op/gocron/v2"
)

type Sweeper struct {
	svc      service.ReservationService
	interval time.Duration
	batch    int
	sched    gocron.Scheduler
}

func New(svc service.ReservationService, interval time.Duration, batch int) (*Sweeper, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Sweeper{svc: svc, interval: interval, batch: batch, sched: sched}, nil
}

func (s *Sweeper) Start() error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.run),
	)
	if err != nil {
		return err
	}
	s.sched.Start()
	log.Printf("[sweep] started, interval=%s batch=%d", s.interval, s.batch)
	return nil
}

func (s *Sweeper) Stop() error {
	return s.sched.Shutdown()
}

// run is fire-and-forget: errors are logged and the next tick retries. No
// caller is waiting, so nothing is propagated.
func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()
	n, err := s.svc.ExpireDue(ctx, time.Now(), s.batch)
	if err != nil {
		log.Printf("[sweep] error: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[sweep] expired %d reservations", n)
	}
}
