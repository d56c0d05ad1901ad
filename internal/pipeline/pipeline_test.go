package pipeline

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/nao1215/matsight/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, job *Job) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, job *Job) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, job)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func testJob() *Job {
	return NewJob("test", &model.AnalysisResult{
		ID:       "analysis-1",
		ImageKey: "uploads/flake.png",
		Analysis: gridAnalysis(),
	})
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
	})

	t.Run("applies WithContinueOnError option", func(t *testing.T) {
		t.Parallel()

		p := New(WithContinueOnError(true))

		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
	})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	t.Run("adds multiple steps with AddSteps", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddSteps(&mockStep{name: "step-1"}, &mockStep{name: "step-2"}, &mockStep{name: "step-3"})

		if p.StepCount() != 3 {
			t.Errorf("expected 3 steps, got %d", p.StepCount())
		}
	})

	t.Run("maintains step order", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&mockStep{name: "first"})
		p.AddStep(&mockStep{name: "second"})
		p.AddStep(&mockStep{name: "third"})

		if got, want := p.StepNames(), []string{"first", "second", "third"}; !slices.Equal(got, want) {
			t.Errorf("got %v, expected %v", got, want)
		}
	})
}

// TestPipelineExecute tests pipeline execution.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, *Job) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New()
		p.AddSteps(record("a"), record("b"), record("c"))

		job := testJob()
		if err := p.Execute(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(order, []string{"a", "b", "c"}) {
			t.Errorf("unexpected order %v", order)
		}
		if !slices.Equal(job.PerformedSteps, []string{"a", "b", "c"}) {
			t.Errorf("unexpected performed steps %v", job.PerformedSteps)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		failing := &mockStep{name: "failing", doFunc: func(context.Context, *Job) error { return boom }}
		after := &mockStep{name: "after"}

		p := New()
		p.AddSteps(failing, after)

		job := testJob()
		err := p.Execute(context.Background(), job)
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("expected later step to be skipped")
		}
		if !errors.Is(job.Err, boom) {
			t.Errorf("expected job.Err to record the failure, got %v", job.Err)
		}
	})

	t.Run("continues after errors when configured", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		failing := &mockStep{name: "failing", doFunc: func(context.Context, *Job) error { return boom }}
		after := &mockStep{name: "after"}

		p := New(WithContinueOnError(true))
		p.AddSteps(failing, after)

		job := testJob()
		if err := p.Execute(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if after.callCount != 1 {
			t.Error("expected later step to run")
		}
		if !errors.Is(job.Err, boom) {
			t.Errorf("expected job.Err to record the failure, got %v", job.Err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		first := &mockStep{name: "first", doFunc: func(context.Context, *Job) error {
			cancel()
			return nil
		}}
		second := &mockStep{name: "second"}

		p := New()
		p.AddSteps(first, second)

		job := testJob()
		err := p.Execute(ctx, job)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if second.callCount != 0 {
			t.Error("expected second step to be skipped")
		}
		if !job.Cancelled {
			t.Error("expected job to be marked cancelled")
		}
	})

	t.Run("rejects a job without a result", func(t *testing.T) {
		t.Parallel()

		step := &mockStep{name: "never"}
		p := New()
		p.AddStep(step)

		job := NewJob("empty", nil)
		if err := p.Execute(context.Background(), job); !errors.Is(err, ErrNoResult) {
			t.Fatalf("expected ErrNoResult, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("expected no step to run")
		}
	})
}
