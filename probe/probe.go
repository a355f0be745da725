// Package probe checks GetInstance from many goroutines at once and reports
// how many distinct instance addresses came back.
package probe

import (
	"context"
	"reflect"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rayo1uo/singleton"
)

// Report summarizes one Run.
type Report struct {
	Observations int64
	Distinct     int
	// Address is the instance address when exactly one was seen.
	Address uintptr
	Elapsed time.Duration
}

func (r Report) Unique() bool {
	return r.Distinct == 1
}

type Probe struct {
	cfg     Config
	logger  *zap.Logger
	metrics *metrics
	limiter *rate.Limiter
	source  func() uintptr
}

// New validates cfg and registers the probe's metrics on reg. A nil reg
// leaves the metrics unregistered.
func New(cfg Config, logger *zap.Logger, reg prometheus.Registerer) (*Probe, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m, err := newMetrics(reg)
	if err != nil {
		return nil, err
	}

	p := &Probe{
		cfg:     cfg,
		logger:  logger.Named("probe"),
		metrics: m,
		source:  instanceAddress,
	}
	if cfg.Paced() {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)
	}
	return p, nil
}

func instanceAddress() uintptr {
	return reflect.ValueOf(singleton.GetInstance()).Pointer()
}

// Run releases all workers at once, collects every address they observe
// and reports the distinct set. It returns early with the context's error
// when ctx is done, or with an error when a worker panics.
func (p *Probe) Run(ctx context.Context) (Report, error) {
	started := time.Now()
	p.logger.Info("probe starting",
		zap.Int("workers", p.cfg.Workers),
		zap.Int("rounds", p.cfg.Rounds),
		zap.Float64("rate", p.cfg.Rate),
	)
	p.metrics.distinct.Set(0)

	var (
		observed atomic.Int64
		start    = make(chan struct{})
		addrs    = make(chan uintptr, p.cfg.Workers)
		distinct = make(map[uintptr]struct{})
		consumed = make(chan struct{})
	)

	go func() {
		defer close(consumed)
		for addr := range addrs {
			if _, ok := distinct[addr]; ok {
				continue
			}
			distinct[addr] = struct{}{}
			p.metrics.distinct.Set(float64(len(distinct)))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		id := i
		g.Go(func() error {
			return p.produce(gctx, id, start, addrs, &observed)
		})
	}
	close(start)
	err := g.Wait()
	close(addrs)
	<-consumed

	report := Report{
		Observations: observed.Load(),
		Distinct:     len(distinct),
		Elapsed:      time.Since(started),
	}
	if report.Unique() {
		for addr := range distinct {
			report.Address = addr
		}
	}

	if err != nil {
		p.logger.Warn("probe aborted", zap.Error(err), zap.Int64("observations", report.Observations))
		return report, err
	}
	if !report.Unique() {
		p.logger.Error("instance address mismatch",
			zap.Int("distinct", report.Distinct),
			zap.Int64("observations", report.Observations),
		)
		return report, nil
	}
	p.logger.Info("probe finished",
		zap.Uintptr("address", report.Address),
		zap.Int64("observations", report.Observations),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

func (p *Probe) produce(ctx context.Context, id int, start <-chan struct{}, addrs chan<- uintptr, observed *atomic.Int64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("worker %d panicked: %v", id, r)
		}
	}()

	select {
	case <-start:
	case <-ctx.Done():
		return ctx.Err()
	}

	for round := 0; round < p.cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		addr := p.source()
		observed.Inc()
		p.metrics.observations.Inc()

		select {
		case addrs <- addr:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
