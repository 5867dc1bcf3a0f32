package soak

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/llxisdsh/leftright"
	"github.com/llxisdsh/leftright/internal/opt"
)

func quietEntry() (*logrus.Entry, *test.Hook) {
	l, hook := test.NewNullLogger()
	return logrus.NewEntry(l), hook
}

func TestRun(t *testing.T) {
	writes := 20_000
	if opt.Race_ {
		writes = 2_000
	}
	for _, s := range []leftright.WaitStrategy{leftright.WaitBackoff, leftright.WaitSpin, leftright.WaitPark} {
		t.Run(s.String(), func(t *testing.T) {
			cfg := Default()
			cfg.Writes = writes
			cfg.Batch = 7
			cfg.WaitStrategy = s.String()
			log, _ := quietEntry()

			r, err := Run(context.Background(), cfg, log)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			wantPublishes := uint64((writes + cfg.Batch - 1) / cfg.Batch)
			if r.Publishes != wantPublishes || r.Ops != writes {
				t.Fatalf("report = %+v, want %d publishes", r, wantPublishes)
			}
		})
	}
}

func TestRunReportsStalls(t *testing.T) {
	cfg := Default()
	cfg.Readers = 4
	cfg.Writes = 20
	cfg.Batch = 1
	cfg.HoldGuard = 5 * time.Millisecond
	cfg.StallWarn = time.Millisecond
	log, hook := quietEntry()

	r, err := Run(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.Stalls == 0 {
		t.Fatal("no stall reported with readers holding guards")
	}
	warned := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned++
		}
	}
	if warned == 0 || uint64(warned) > r.Stalls {
		t.Fatalf("%d stall warnings logged for %d stalls", warned, r.Stalls)
	}
}

func TestRunCanceled(t *testing.T) {
	cfg := Default()
	cfg.Writes = 1_000
	cfg.Batch = 1
	cfg.PublishRate = 10
	log, _ := quietEntry()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := Run(ctx, cfg, log); err == nil {
		t.Fatal("expected Run to fail once its context ended")
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := Default()
	cfg.Batch = 0
	log, _ := quietEntry()
	if _, err := Run(context.Background(), cfg, log); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestOpStreamIsDeterministic(t *testing.T) {
	a, b := NewTable(), NewTable()
	sa, sb := NewOpStream(42, 16), NewOpStream(42, 16)
	for range 1_000 {
		sa.Next().Apply(&a)
		sb.Next().Apply(&b)
	}
	if !a.Equal(&b) {
		t.Fatal("same seed produced different tables")
	}
	if err := a.Check(); err != nil {
		t.Fatal(err)
	}
	if a.Version != 1_000 {
		t.Fatalf("version = %d, want 1000", a.Version)
	}
}
