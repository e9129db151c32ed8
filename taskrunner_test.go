package multiredis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestTaskRunnerReturnsFirstErrorAndCancels(t *testing.T) {
	tr := NewTaskRunner(context.Background(), 2)
	boom := errors.New("boom")
	var ran atomic.Int32
	for i := 0; i < 4; i++ {
		tr.Go(func() error {
			ran.Add(1)
			if i == 0 {
				return boom
			}
			return nil
		})
	}
	if err := tr.Wait(); !errors.Is(err, boom) {
		t.Fatalf("Wait = %v", err)
	}
	if ran.Load() != 4 {
		t.Fatalf("ran %d tasks", ran.Load())
	}
	if tr.GetContext().Err() == nil {
		t.Fatalf("context should be canceled after a failure")
	}
}

func TestUUID(t *testing.T) {
	id := NewUUID()
	if id.IsNil() || !NilUUID.IsNil() {
		t.Fatalf("IsNil mismatch")
	}
	if id == NewUUID() {
		t.Fatalf("two NewUUID calls returned the same id")
	}
	if len(id.String()) != 36 {
		t.Fatalf("String = %q", id.String())
	}
}
