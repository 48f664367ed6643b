// Package monitor runs the keep-alive check on a schedule and reports service health.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const checkTimeout = 5 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type Status struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Uptime    time.Duration
}

type Monitor struct {
	pinger   Pinger
	interval time.Duration
	log      *zap.Logger
	started  time.Time
	now      func() time.Time

	mu   sync.RWMutex
	last Status

	sched gocron.Scheduler
}

func New(p Pinger, interval time.Duration, log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Monitor{
		pinger:   p,
		interval: interval,
		log:      log.Named("monitor"),
		now:      time.Now,
	}
	m.started = m.now()
	m.last = Status{Healthy: true, Message: "starting"}
	return m
}

// Start schedules the check every interval, beginning immediately.
func (m *Monitor) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(m.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
			defer cancel()
			m.Check(ctx)
		}),
		gocron.WithName("keep-alive"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("keep-alive job: %w", err)
	}
	sched.Start()
	m.sched = sched
	m.log.Info("keep-alive scheduled", zap.Duration("interval", m.interval))
	return nil
}

func (m *Monitor) Stop() error {
	if m.sched == nil {
		return nil
	}
	return m.sched.Shutdown()
}

// Check pings the dependencies once and records the outcome.
func (m *Monitor) Check(ctx context.Context) Status {
	st := Status{Healthy: true, Message: "Bot is running properly", CheckedAt: m.now().UTC()}
	if err := m.pinger.Ping(ctx); err != nil {
		st.Healthy = false
		st.Message = "database unreachable"
		m.log.Warn("keep-alive check failed", zap.Error(err))
	}

	m.mu.Lock()
	was := m.last.Healthy
	m.last = st
	m.mu.Unlock()

	if st.Healthy && !was {
		m.log.Info("keep-alive check recovered")
	}
	return m.Status()
}

func (m *Monitor) Status() Status {
	m.mu.RLock()
	st := m.last
	m.mu.RUnlock()
	st.Uptime = m.now().Sub(m.started)
	return st
}
