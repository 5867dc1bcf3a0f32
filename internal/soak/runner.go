package soak

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/llxisdsh/leftright"
)

// Report summarizes a finished soak run.
type Report struct {
	Publishes uint64        `json:"publishes"`
	Ops       int           `json:"ops"`
	Reads     uint64        `json:"reads"`
	Stalls    uint64        `json:"stalls"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Fields returns r as logrus fields.
func (r *Report) Fields() logrus.Fields {
	return logrus.Fields{
		"publishes": r.Publishes,
		"ops":       r.Ops,
		"reads":     r.Reads,
		"stalls":    r.Stalls,
		"elapsed":   r.Elapsed,
	}
}

// Run drives cfg.Readers read handles against a single writer appending
// cfg.Writes ops in batches of cfg.Batch.
//
// Every guard a reader takes must show a consistent table at a version the
// writer has published, and versions seen by one reader must never go
// backwards. Once the writer is done, both copies must equal a table built
// by applying the same ops sequentially.
func Run(ctx context.Context, cfg *Config, log *logrus.Entry) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var (
		report Report
		stalls atomic.Uint64
		reads  atomic.Uint64
	)

	options := []func(*leftright.Config){leftright.WithWaitStrategy(cfg.Strategy())}
	if cfg.StallWarn > 0 {
		warn := rateLimited(log, time.Second)
		options = append(options, leftright.WithStallHook(cfg.StallWarn, func(ev leftright.StallEvent) {
			stalls.Add(1)
			warn.Warn(logrus.Fields{
				"epoch":    ev.Epoch,
				"waited":   ev.Waited,
				"laggards": ev.Laggards,
			}, "publish waiting on readers")
		}))
	}
	w, f := leftright.New(NewTable, options...)
	defer w.Close()

	log.WithFields(logrus.Fields{
		"readers": cfg.Readers,
		"writes":  cfg.Writes,
		"batch":   cfg.Batch,
		"wait":    cfg.Strategy(),
	}).Info("soak starting")
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	stop := make(chan struct{})
	for i := range cfg.Readers {
		h := f.Handle()
		g.Go(func() error {
			defer h.Close()
			return readLoop(gctx, stop, h, cfg, i, &reads)
		})
	}

	model := NewTable()
	g.Go(func() error {
		defer close(stop)
		n, err := writeLoop(gctx, w, &model, cfg)
		report.Publishes, report.Ops = n, cfg.Writes
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := verify(w, f, &model); err != nil {
		return nil, err
	}
	report.Reads = reads.Load()
	report.Stalls = stalls.Load()
	report.Elapsed = time.Since(start)
	return &report, nil
}

func writeLoop(ctx context.Context, w *leftright.WriteHandle[Table], model *Table, cfg *Config) (uint64, error) {
	limit := rate.Inf
	if cfg.PublishRate > 0 {
		limit = rate.Limit(cfg.PublishRate)
	}
	limiter := rate.NewLimiter(limit, 1)
	ops := NewOpStream(cfg.Seed, cfg.Keys)

	var publishes uint64
	publish := func() error {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if _, err := w.PublishContext(ctx); err != nil {
			return err
		}
		publishes++
		return nil
	}
	for i := 1; i <= cfg.Writes; i++ {
		op := ops.Next()
		op.Apply(model)
		w.Append(op)
		if i%cfg.Batch == 0 {
			if err := publish(); err != nil {
				return publishes, err
			}
		}
	}
	if w.Pending() > 0 {
		if err := publish(); err != nil {
			return publishes, err
		}
	}
	return publishes, nil
}

func readLoop(
	ctx context.Context,
	stop <-chan struct{},
	h *leftright.ReadHandle[Table],
	cfg *Config,
	id int,
	reads *atomic.Uint64,
) error {
	var (
		last uint64
		err  error
		n    uint64
	)
	defer func() { reads.Add(n) }()
	for {
		select {
		case <-stop:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}
		h.Read(func(t *Table) {
			if err = t.Check(); err != nil {
				return
			}
			if t.Version < last {
				err = fmt.Errorf("version went back from %d to %d", last, t.Version)
				return
			}
			if t.Version%uint64(cfg.Batch) != 0 && t.Version != uint64(cfg.Writes) {
				err = fmt.Errorf("observed unpublished version %d", t.Version)
				return
			}
			last = t.Version
			if cfg.HoldGuard > 0 {
				time.Sleep(cfg.HoldGuard)
			}
		})
		if err != nil {
			return fmt.Errorf("reader %d: %w", id, err)
		}
		n++
	}
}

// verify checks that both copies converged to the sequential model.
func verify(w *leftright.WriteHandle[Table], f *leftright.Factory[Table], model *Table) error {
	var err error
	w.Peek(func(t *Table) {
		if !t.Equal(model) {
			err = fmt.Errorf("standby copy diverged: version %d sum %d, want version %d sum %d",
				t.Version, t.Sum, model.Version, model.Sum)
		}
	})
	if err != nil {
		return err
	}
	h := f.Handle()
	defer h.Close()
	h.Read(func(t *Table) {
		if !t.Equal(model) {
			err = fmt.Errorf("active copy diverged: version %d sum %d, want version %d sum %d",
				t.Version, t.Sum, model.Version, model.Sum)
		}
	})
	return err
}
