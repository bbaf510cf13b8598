package watch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/panbanda/lcom/pkg/config"
)

func newTestWatcher(t *testing.T, dir string, opts ...Option) *Watcher {
	t.Helper()
	opts = append([]Option{WithOutput(&bytes.Buffer{})}, opts...)
	w, err := NewWatcher(dir, config.DefaultConfig(), opts...)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestNewWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		debounce time.Duration
		want     time.Duration
	}{
		{"default debounce", 0, DefaultDebounce},
		{"custom debounce", time.Second, time.Second},
		{"negative debounce defaults", -time.Second, DefaultDebounce},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWatcher(t, tmpDir, WithDebounce(tt.debounce))

			if w.fsWatcher == nil {
				t.Error("fsWatcher should not be nil")
			}
			if w.root != tmpDir {
				t.Errorf("root = %v, want %v", w.root, tmpDir)
			}
			if w.pending == nil {
				t.Error("pending map should be initialized")
			}
			if w.debounce != tt.want {
				t.Errorf("debounce = %v, want %v", w.debounce, tt.want)
			}
		})
	}
}

func TestNewWatcher_NilConfig(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if w.config == nil {
		t.Error("config should default when nil")
	}
}

func TestWatcher_SetCallback(t *testing.T) {
	w := newTestWatcher(t, t.TempDir())

	if w.callback != nil {
		t.Error("callback should be nil initially")
	}
	w.SetCallback(func(context.Context, []string) {})
	if w.callback == nil {
		t.Error("callback should be set")
	}
}

func TestWatcher_handleEvent(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name        string
		event       fsnotify.Event
		wantPending bool
	}{
		{"write C# file", fsnotify.Event{Name: filepath.Join(tmpDir, "Cart.cs"), Op: fsnotify.Write}, true},
		{"create Java file", fsnotify.Event{Name: filepath.Join(tmpDir, "Cart.java"), Op: fsnotify.Create}, true},
		{"write type model", fsnotify.Event{Name: filepath.Join(tmpDir, "dump.lcom.yaml"), Op: fsnotify.Write}, true},
		{"remove ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "Old.cs"), Op: fsnotify.Remove}, false},
		{"chmod ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "Mode.cs"), Op: fsnotify.Chmod}, false},
		{"unsupported file ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "readme.md"), Op: fsnotify.Write}, false},
		{"generated pattern ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "Form.Designer.cs"), Op: fsnotify.Write}, false},
		{"excluded dir ignored", fsnotify.Event{Name: filepath.Join(tmpDir, "obj", "Temp.cs"), Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWatcher(t, tmpDir)
			w.handleEvent(tt.event)

			w.mu.Lock()
			_, ok := w.pending[tt.event.Name]
			w.mu.Unlock()
			if ok != tt.wantPending {
				t.Errorf("pending = %v, want %v", ok, tt.wantPending)
			}
		})
	}
}

func TestWatcher_handleEventNewDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir)

	sub := filepath.Join(tmpDir, "src")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	w.handleEvent(fsnotify.Event{Name: sub, Op: fsnotify.Create})

	if !slices.Contains(w.WatchedDirs(), sub) {
		t.Errorf("WatchedDirs() = %v, want to contain %s", w.WatchedDirs(), sub)
	}
	if len(w.pending) != 0 {
		t.Error("directories should not be reported as changes")
	}
}

func TestWatcher_takeReady(t *testing.T) {
	w := newTestWatcher(t, t.TempDir(), WithDebounce(time.Second))
	now := time.Now()

	w.pending["b.cs"] = now.Add(-2 * time.Second)
	w.pending["a.cs"] = now.Add(-time.Second)
	w.pending["c.cs"] = now.Add(-100 * time.Millisecond)

	got := w.takeReady(now)
	if want := []string{"a.cs", "b.cs"}; !reflect.DeepEqual(got, want) {
		t.Errorf("takeReady() = %v, want %v", got, want)
	}
	if _, ok := w.pending["c.cs"]; !ok {
		t.Error("recent change should stay pending")
	}
	if len(w.pending) != 1 {
		t.Errorf("pending has %d entries, want 1", len(w.pending))
	}
}

func TestWatcher_runCallback(t *testing.T) {
	tmpDir := t.TempDir()
	var out bytes.Buffer
	w := newTestWatcher(t, tmpDir, WithOutput(&out))

	var got []string
	w.SetCallback(func(_ context.Context, changed []string) {
		got = changed
	})

	path := filepath.Join(tmpDir, "src", "Cart.cs")
	w.runCallback(context.Background(), []string{path})

	if !reflect.DeepEqual(got, []string{path}) {
		t.Errorf("callback got %v", got)
	}
	if !bytes.Contains(out.Bytes(), []byte(filepath.Join("src", "Cart.cs"))) {
		t.Errorf("output %q should name the relative path", out.String())
	}
}

func TestWatcher_runCallbackWithoutCallback(t *testing.T) {
	w := newTestWatcher(t, t.TempDir())
	w.runCallback(context.Background(), []string{"a.cs"})
}

func TestWatcher_StartSkipsExcludedDirs(t *testing.T) {
	tmpDir := t.TempDir()
	for _, dir := range []string{"src", "obj", filepath.Join("src", "bin")} {
		if err := os.MkdirAll(filepath.Join(tmpDir, dir), 0755); err != nil {
			t.Fatal(err)
		}
	}
	w := newTestWatcher(t, tmpDir)

	if err := w.addTree(tmpDir); err != nil {
		t.Fatalf("addTree() error = %v", err)
	}

	watched := w.WatchedDirs()
	for _, want := range []string{tmpDir, filepath.Join(tmpDir, "src")} {
		if !slices.Contains(watched, want) {
			t.Errorf("WatchedDirs() missing %s", want)
		}
	}
	for _, skip := range []string{filepath.Join(tmpDir, "obj"), filepath.Join(tmpDir, "src", "bin")} {
		if slices.Contains(watched, skip) {
			t.Errorf("WatchedDirs() should not contain %s", skip)
		}
	}
}

func TestWatcher_StartReportsChanges(t *testing.T) {
	tmpDir := t.TempDir()
	w := newTestWatcher(t, tmpDir, WithDebounce(50*time.Millisecond))

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan struct{}, 1)
	w.SetCallback(func(_ context.Context, changed []string) {
		mu.Lock()
		got = append(got, changed...)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- w.Start(ctx) }()

	path := filepath.Join(tmpDir, "Cart.cs")
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	// Keep writing until the watcher has registered the directory and
	// reported the file.
loop:
	for {
		select {
		case <-done:
			break loop
		case <-deadline:
			t.Fatal("timed out waiting for change")
		case <-tick.C:
			if err := os.WriteFile(path, []byte("class Cart {}"), 0644); err != nil {
				t.Fatal(err)
			}
		}
	}

	cancel()
	if err := <-errc; err != context.Canceled {
		t.Errorf("Start() error = %v, want context.Canceled", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !slices.Contains(got, path) {
		t.Errorf("callback got %v, want %s", got, path)
	}
}

func TestWatcher_Stop(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), config.DefaultConfig())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
