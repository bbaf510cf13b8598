package fileproc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestMapFiles_PreservesOrder(t *testing.T) {
	tmpDir := t.TempDir()

	files := make([]string, 100)
	for i := range files {
		files[i] = createTestFile(t, tmpDir, fmt.Sprintf("Type%d.cs", i), "class T {}")
	}

	results, errs := MapFiles(context.Background(), files, 8, func(path string) (string, error) {
		// Later items finish first.
		if filepath.Base(path) == "Type0.cs" {
			time.Sleep(5 * time.Millisecond)
		}
		return filepath.Base(path), nil
	}, nil)

	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(results) != len(files) {
		t.Fatalf("expected %d results, got %d", len(files), len(results))
	}
	for i, r := range results {
		if want := fmt.Sprintf("Type%d.cs", i); r != want {
			t.Errorf("results[%d] = %q, want %q", i, r, want)
		}
	}
}

func TestMapFiles_EmptyFileList(t *testing.T) {
	results, errs := MapFiles(context.Background(), nil, 0, func(path string) (string, error) {
		return path, nil
	}, nil)

	if results != nil {
		t.Errorf("expected nil results, got %v", results)
	}
	if errs != nil {
		t.Errorf("expected nil errors, got %v", errs)
	}
}

func TestMapOrdered_CollectsErrors(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	boom := errors.New("boom")

	results, errs := MapOrdered(context.Background(), items, 2,
		func(i int) string { return fmt.Sprintf("item%d", i) },
		func(i int) (int, error) {
			if i%2 == 0 {
				return 0, boom
			}
			return i * 10, nil
		}, nil)

	want := []int{10, 30, 50}
	if fmt.Sprint(results) != fmt.Sprint(want) {
		t.Errorf("results = %v, want %v", results, want)
	}
	if !errs.HasErrors() {
		t.Fatal("expected errors")
	}
	if errs.Len() != 2 {
		t.Fatalf("expected 2 errors, got %d", errs.Len())
	}
	if errs.Errors[0].Path != "item2" || errs.Errors[1].Path != "item4" {
		t.Errorf("errors out of order: %v", errs.Errors)
	}
	if !errors.Is(errs.Errors[0], boom) {
		t.Error("ProcessingError should unwrap to the cause")
	}
}

func TestMapOrdered_Progress(t *testing.T) {
	var seen []string
	items := []string{"a", "b", "c"}

	_, _ = MapOrdered(context.Background(), items, 3,
		func(s string) string { return s },
		func(s string) (string, error) { return s, nil },
		func(key string) { seen = append(seen, key) })

	if fmt.Sprint(seen) != fmt.Sprint(items) {
		t.Errorf("progress order = %v, want %v", seen, items)
	}
}

func TestMapOrdered_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results, errs := MapOrdered(ctx, []int{1, 2, 3}, 1,
		func(i int) string { return fmt.Sprint(i) },
		func(i int) (int, error) {
			calls.Add(1)
			return i, nil
		}, nil)

	if len(results) != 0 {
		t.Errorf("expected no results after cancellation, got %v", results)
	}
	if calls.Load() != 0 {
		t.Errorf("fn called %d times after cancellation", calls.Load())
	}
	if errs.Len() != 3 {
		t.Fatalf("expected 3 errors, got %d", errs.Len())
	}
	if !errors.Is(errs.Errors[0], context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", errs.Errors[0])
	}
}

func TestWorkers(t *testing.T) {
	if got := Workers(3); got != 3 {
		t.Errorf("Workers(3) = %d", got)
	}
	if got, want := Workers(0), runtime.NumCPU()*DefaultWorkerMultiplier; got != want {
		t.Errorf("Workers(0) = %d, want %d", got, want)
	}
}

func TestProcessingErrors_Error(t *testing.T) {
	errs := &ProcessingErrors{}
	if errs.Error() != "no errors" {
		t.Errorf("empty Error() = %q", errs.Error())
	}

	errs.Add("a.cs", errors.New("bad"))
	if errs.Error() != "a.cs: bad" {
		t.Errorf("single Error() = %q", errs.Error())
	}

	errs.Add("b.cs", errors.New("worse"))
	if errs.Error() != "2 items failed to process (first: a.cs: bad)" {
		t.Errorf("multi Error() = %q", errs.Error())
	}

	var nilErrs *ProcessingErrors
	if nilErrs.HasErrors() || nilErrs.Len() != 0 {
		t.Error("nil ProcessingErrors should report no errors")
	}
}
