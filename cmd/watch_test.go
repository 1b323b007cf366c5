package cmd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestIsSceneSource(t *testing.T) {
	dir := filepath.Join(string(filepath.Separator), "scenes")
	match := isSceneSource(dir, filepath.Join(dir, "scene.zip"))

	specs := []struct {
		name string
		exp  bool
	}{
		{filepath.Join(dir, "scene.obj"), true},
		{filepath.Join(dir, "scene.MTL"), true},
		{filepath.Join(dir, "scene.zip"), false},
		{filepath.Join(dir, "notes.txt"), false},
		{filepath.Join(dir, "nested", "part.obj"), false},
	}

	for specIndex, spec := range specs {
		if got := match(spec.name); got != spec.exp {
			t.Errorf("[spec %d] expected match(%q) to be %t; got %t", specIndex, spec.name, spec.exp, got)
		}
	}
}

func TestIsSceneSourceMixedPaths(t *testing.T) {
	// Output named like a source file must still be ignored
	dir := "scenes"
	match := isSceneSource(dir, filepath.Join(dir, "merged.obj"))

	absDir, err := filepath.Abs(dir)
	if err != nil {
		t.Fatal(err)
	}

	specs := []struct {
		name string
		exp  bool
	}{
		{filepath.Join(dir, "scene.obj"), true},
		{filepath.Join(absDir, "scene.obj"), true},
		{filepath.Join(dir, "merged.obj"), false},
		{filepath.Join(absDir, "merged.obj"), false},
	}

	for specIndex, spec := range specs {
		if got := match(spec.name); got != spec.exp {
			t.Errorf("[spec %d] expected match(%q) to be %t; got %t", specIndex, spec.name, spec.exp, got)
		}
	}
}

func TestWatchLoopDebouncesEvents(t *testing.T) {
	events := make(chan fsnotify.Event)
	errs := make(chan error)
	rebuilds := make(chan struct{}, 10)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error)
	go func() {
		done <- watchLoop(ctx, events, errs, func(name string) bool { return name == "scene.obj" }, 100*time.Millisecond, func() {
			rebuilds <- struct{}{}
		})
	}()

	// A burst of writes triggers a single rebuild
	for i := 0; i < 5; i++ {
		events <- fsnotify.Event{Name: "scene.obj", Op: fsnotify.Write}
	}
	// Ignored: wrong file and wrong op
	events <- fsnotify.Event{Name: "other.obj", Op: fsnotify.Write}
	events <- fsnotify.Event{Name: "scene.obj", Op: fsnotify.Chmod}

	select {
	case <-rebuilds:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for rebuild")
	}

	select {
	case <-rebuilds:
		t.Fatal("expected a single rebuild for a burst of events")
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestWatchLoopStopsWhenEventsClose(t *testing.T) {
	events := make(chan fsnotify.Event)
	close(events)

	err := watchLoop(context.Background(), events, make(chan error), func(string) bool { return true }, time.Millisecond, func() {})
	if err != nil {
		t.Fatal(err)
	}
}
