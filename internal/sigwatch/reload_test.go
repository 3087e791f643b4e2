//go:build unix

package sigwatch

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestWatchConfigAppliesNewSignalSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sigwatch.toml")
	if err := os.WriteFile(path, []byte("signals = [\"SIGUSR1\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchDone := make(chan error, 1)
	go func() { watchDone <- WatchConfig(ctx, path, w, t.Logf) }()
	runDone := make(chan error, 1)
	go func() { runDone <- w.Run(ctx) }()

	// Give the directory watch a moment to establish before rewriting.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("signals = [\"SIGHUP\", \"SIGUSR2\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	want := []string{"SIGHUP", "SIGUSR2"}
	deadline := time.Now().Add(3 * time.Second)
	for !reflect.DeepEqual(w.Watched(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("watched = %v, want %v", w.Watched(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-watchDone; err != nil {
		t.Fatalf("WatchConfig: %v", err)
	}
	if err := <-runDone; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestWatchConfigIgnoresBrokenConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sigwatch.toml")
	if err := os.WriteFile(path, []byte("signals = [\"SIGUSR1\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(testConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- WatchConfig(ctx, path, w, t.Logf) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("signals = [\"SIGNOPE\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// The bad reload is rejected; the staged set must stay untouched.
	time.Sleep(300 * time.Millisecond)
	if got := w.Watched(); !reflect.DeepEqual(got, []string{"SIGUSR1"}) {
		t.Fatalf("watched = %v after broken reload", got)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("WatchConfig: %v", err)
	}
}
