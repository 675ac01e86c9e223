package dispatcher

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/renubu/renubu/internal/config"
	"github.com/renubu/renubu/internal/logger"
	"github.com/renubu/renubu/internal/metrics"
	"github.com/renubu/renubu/internal/model"
	"go.uber.org/zap"
)

var (
	ErrNoHealthy = fmt.Errorf("no healthy providers")
	ErrNoAcquire = fmt.Errorf("provider not acquired")
)

// Dispatcher fans notifications out to one healthy provider per attempt, round robin.
type Dispatcher struct {
	providers         []Provider
	roundRobinCounter atomic.Uint64
	maxAttempts       int
}

func NewDispatcher(provs []Provider, maxAttempts int) *Dispatcher {
	if maxAttempts < 1 {
		maxAttempts = 3
	}

	return &Dispatcher{providers: provs, maxAttempts: maxAttempts}
}

// FromConfig builds webhook providers for every enabled entry.
func FromConfig(cfg config.NotifierConfig) *Dispatcher {
	var provs []Provider
	for _, p := range cfg.Providers {
		if !p.Enabled || p.URL == "" {
			continue
		}
		provs = append(provs, NewWebhookProvider(p.Name, p.URL, p.TimeoutMs, p.Breaker.FailThreshold, p.Breaker.OpenForMs))
	}
	return NewDispatcher(provs, cfg.MaxAttempts)
}

func (d *Dispatcher) selectProvider() (Provider, error) {
	healthy := make([]Provider, 0, len(d.providers))
	for _, p := range d.providers {
		if p.Ready() {
			healthy = append(healthy, p)
		}
	}

	if len(healthy) == 0 {
		return nil, ErrNoHealthy
	}

	x := d.roundRobinCounter.Add(1)
	idx := int((x - 1) % uint64(len(healthy)))

	return healthy[idx], nil
}

func (d *Dispatcher) tryOnce(ctx context.Context, n model.Notification) error {
	p, err := d.selectProvider()
	if err != nil {
		return err
	}

	if !p.Acquire() {
		return ErrNoAcquire
	}

	return p.Notify(ctx, n)
}

// Notify delivers n with bounded attempts. Without configured providers it is a no-op.
func (d *Dispatcher) Notify(ctx context.Context, n model.Notification) error {
	if len(d.providers) == 0 {
		metrics.NotificationsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	var last error
	for i := 0; i < d.maxAttempts; i++ {
		if err := d.tryOnce(ctx, n); err == nil {
			metrics.NotificationsTotal.WithLabelValues("sent").Inc()
			return nil
		} else {
			last = err
		}
		if ctx.Err() != nil {
			break
		}
	}

	if last == nil {
		last = fmt.Errorf("notify failed")
	}

	metrics.NotificationsTotal.WithLabelValues("failed").Inc()
	logger.Named("dispatcher").Warn("notification failed",
		zap.String("task_id", n.TaskID), zap.String("urgency", string(n.Urgency)), zap.Error(last))

	return last
}
