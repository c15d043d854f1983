package jobs

import (
	"context"
	"errors"
	"testing"
)

type countingReconciler struct {
	calls int
	err   error
}

func (c *countingReconciler) Reconcile(context.Context) (int, error) {
	c.calls++
	return 2, c.err
}

type countingPurger struct{ calls int }

func (c *countingPurger) PurgeExpired(context.Context) (int64, error) {
	c.calls++
	return 1, nil
}

func TestSchedulerRegistersJobs(t *testing.T) {
	s := NewScheduler("Europe/Moscow", &countingReconciler{}, &countingPurger{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	if n := len(s.cron.Entries()); n != 2 {
		t.Fatalf("entries = %d, want 2", n)
	}
	if loc := s.cron.Location().String(); loc != "Europe/Moscow" && loc != "MSK" {
		t.Fatalf("location = %s", loc)
	}
}

func TestSchedulerFallsBackOnBadTimezone(t *testing.T) {
	s := NewScheduler("Mars/Olympus", &countingReconciler{}, &countingPurger{})
	if loc := s.cron.Location().String(); loc != "Europe/Moscow" && loc != "MSK" {
		t.Fatalf("location = %s", loc)
	}
}

func TestJobsSwallowErrors(t *testing.T) {
	r := &countingReconciler{err: errors.New("db down")}
	p := &countingPurger{}
	s := NewScheduler("UTC", r, p)

	s.reconcile(context.Background())
	s.purgeSessions(context.Background())

	if r.calls != 1 || p.calls != 1 {
		t.Fatalf("reconcile=%d purge=%d", r.calls, p.calls)
	}
}
