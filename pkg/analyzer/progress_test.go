package analyzer

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
)

func TestTracker_ExpectAndDone(t *testing.T) {
	type call struct {
		done, total int
		item        string
	}
	var calls []call

	tracker := NewTracker(func(done, total int, item string) {
		calls = append(calls, call{done, total, item})
	})

	tracker.Expect(2)
	tracker.Done("A.cs")
	tracker.Expect(1)
	tracker.Done("B.cs")
	tracker.Done("C.java")

	if got := tracker.Expected(); got != 3 {
		t.Errorf("Expected() = %d, want 3", got)
	}
	if got := tracker.Completed(); got != 3 {
		t.Errorf("Completed() = %d, want 3", got)
	}
	if len(calls) != 3 {
		t.Fatalf("expected 3 callback calls, got %d", len(calls))
	}
	if calls[0] != (call{1, 2, "A.cs"}) {
		t.Errorf("call 1 = %+v", calls[0])
	}
	if calls[2] != (call{3, 3, "C.java"}) {
		t.Errorf("call 3 = %+v", calls[2])
	}
}

func TestTracker_ConcurrentDone(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Expect(50)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Done("x.cs")
		}()
	}
	wg.Wait()

	if got := tracker.Completed(); got != 50 {
		t.Errorf("Completed() = %d, want 50", got)
	}
}

func TestTrackerFromContext(t *testing.T) {
	if TrackerFromContext(context.Background()) != nil {
		t.Error("expected nil tracker on a bare context")
	}

	tracker := NewTracker(nil)
	ctx := WithTracker(context.Background(), tracker)
	if TrackerFromContext(ctx) != tracker {
		t.Error("TrackerFromContext did not return the attached tracker")
	}
}

func TestMemorySource(t *testing.T) {
	src := MemorySource{"a.cs": []byte("class A {}")}

	content, err := src.Read("a.cs")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if string(content) != "class A {}" {
		t.Errorf("Read() = %q", content)
	}

	if _, err := src.Read("b.cs"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Read(missing) error = %v, want os.ErrNotExist", err)
	}
}
