package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arturoeanton/launchpad-match/internal/adapter/store"
	"github.com/arturoeanton/launchpad-match/internal/domain"
	"github.com/arturoeanton/launchpad-match/internal/port"
)

// titleEmbedder fails for jobs titled "bad" and when batched with one.
type titleEmbedder struct {
	block chan struct{}
}

func (e *titleEmbedder) EmbedJobs(ctx context.Context, jobs []*domain.Job) ([][]float32, error) {
	if e.block != nil {
		<-e.block
	}
	out := make([][]float32, len(jobs))
	for i, j := range jobs {
		if j.Title == "bad" {
			return nil, errors.New("model rejected input")
		}
		out[i] = []float32{1, float32(i)}
	}
	return out, nil
}

func seedJobs(t *testing.T, s *store.MemoryStore, titles ...string) {
	t.Helper()
	for _, title := range titles {
		if _, err := s.CreateJob(context.Background(), &domain.Job{Title: title}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBackfillRun(t *testing.T) {
	s := store.NewMemoryStore()
	seedJobs(t, s, "a", "bad", "c", "d", "e")
	svc := NewBackfillService(s, &titleEmbedder{}, NewRunTracker(), 2, 0, nil)

	status, err := svc.Run(context.Background(), TriggerCLI, 0)
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != RunComplete || status.Total != 5 || status.Embedded != 4 || status.Failed != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.CompletedAt == nil {
		t.Fatal("completion time not set")
	}

	left, _ := s.CountJobsWithoutEmbedding(context.Background())
	if left != 1 {
		t.Fatalf("expected only the bad job left, got %d", left)
	}
}

func TestBackfillRunLimit(t *testing.T) {
	s := store.NewMemoryStore()
	seedJobs(t, s, "a", "b", "c")
	svc := NewBackfillService(s, &titleEmbedder{}, NewRunTracker(), 10, 1000, nil)

	status, err := svc.Run(context.Background(), TriggerCLI, 2)
	if err != nil {
		t.Fatal(err)
	}
	if status.Embedded != 2 {
		t.Fatalf("limit not honoured: %+v", status)
	}
}

func TestBackfillStartIsExclusive(t *testing.T) {
	s := store.NewMemoryStore()
	seedJobs(t, s, "a")
	block := make(chan struct{})
	tracker := NewRunTracker()
	svc := NewBackfillService(s, &titleEmbedder{block: block}, tracker, 10, 0, nil)

	runID, err := svc.Start(context.Background(), TriggerAPI)
	if err != nil {
		t.Fatal(err)
	}
	ch := tracker.Subscribe(runID)
	defer tracker.Unsubscribe(runID, ch)

	if _, err := svc.Start(context.Background(), TriggerAPI); !errors.Is(err, port.ErrBackfillRunning) {
		t.Fatalf("expected ErrBackfillRunning, got %v", err)
	}
	close(block)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-ch:
			if st.Done() {
				if st.Status != RunComplete || st.Embedded != 1 {
					t.Fatalf("unexpected final status: %+v", st)
				}
				return
			}
		case <-deadline:
			t.Fatal("run did not finish")
		}
	}
}

func TestRunTracker(t *testing.T) {
	tr := NewRunTracker()
	tr.Create("r1", TriggerAPI, 3)

	ch := tr.Subscribe("r1")
	tr.Update("r1", func(r *RunStatus) { r.Embedded = 1 })
	if got := <-ch; got.Embedded != 1 || got.Status != RunRunning {
		t.Fatalf("unexpected update: %+v", got)
	}

	tr.Update("r1", func(r *RunStatus) { r.Status = RunError; r.Error = "boom" })
	final, ok := tr.Get("r1")
	if !ok || !final.Done() || final.CompletedAt == nil {
		t.Fatalf("unexpected final state: %+v", final)
	}

	tr.Unsubscribe("r1", ch)
	pending := 0
	for range ch {
		pending++
	}
	if pending != 1 {
		t.Fatalf("expected the error update left in the buffer, got %d", pending)
	}

	tr.Update("missing", func(r *RunStatus) { t.Fatal("must not be called") })
	if _, ok := tr.Get("missing"); ok {
		t.Fatal("unknown run found")
	}
}

func TestRunTrackerUpdateWhileUnsubscribing(t *testing.T) {
	tr := NewRunTracker()
	tr.Create("r1", TriggerAPI, 1)

	for i := 0; i < 2000; i++ {
		ch := tr.Subscribe("r1")
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			tr.Update("r1", func(r *RunStatus) { r.Embedded++ })
		}()
		go func() {
			defer wg.Done()
			tr.Unsubscribe("r1", ch)
		}()
		wg.Wait()
	}

	run, _ := tr.Get("r1")
	if run.Embedded != 2000 {
		t.Fatalf("expected 2000 updates applied, got %d", run.Embedded)
	}
}

func TestRunTrackerEvictsExpiredRuns(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := NewRunTracker(WithRetention(time.Hour))
	tr.now = func() time.Time { return now }

	tr.Create("old", TriggerSchedule, 1)
	tr.Update("old", func(r *RunStatus) { r.Status = RunComplete })
	tr.Create("stuck", TriggerSchedule, 1) // still running

	now = now.Add(30 * time.Minute)
	tr.Create("recent", TriggerAPI, 1)
	tr.Update("recent", func(r *RunStatus) { r.Status = RunComplete })

	now = now.Add(45 * time.Minute)
	tr.Create("new", TriggerCLI, 1)

	tests := []struct {
		id   string
		kept bool
	}{
		{"old", false},
		{"stuck", true},
		{"recent", true},
		{"new", true},
	}
	for _, tt := range tests {
		if _, ok := tr.Get(tt.id); ok != tt.kept {
			t.Errorf("run %s kept=%v, want %v", tt.id, ok, tt.kept)
		}
	}
	if tr.Len() != 3 {
		t.Errorf("expected 3 runs held, got %d", tr.Len())
	}
}
