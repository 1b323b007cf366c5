package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/achilleasa/polaris-lbvh/asset"
	"github.com/achilleasa/polaris-lbvh/asset/scene/reader"
	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli"
)

// Quiet period after the last file event before a rebuild starts.
const watchDebounce = 250 * time.Millisecond

// Compile a scene and recompile it whenever a file in its directory changes.
// Runs until interrupted.
func WatchScene(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing scene file")
	}

	// Only local files can be watched
	res, err := asset.NewResource(ctx.Args().First(), nil)
	if err != nil {
		return err
	}
	sceneFile, isLocal := res.LocalPath()
	res.Close()
	if !isLocal {
		return errors.New("watch: scene file must be a local file")
	}

	out := ctx.String("out")
	if out == "" {
		out = zipFilename(sceneFile)
	}

	dev := newDevice(cfg.Build)
	rebuild := func() {
		mesh, err := reader.ReadMesh(sceneFile)
		if err == nil {
			err = compileMesh(dev, mesh, cfg.Build, out)
		}
		if err != nil {
			logger.Errorf("rebuild failed: %v", err)
			return
		}
		logger.Noticef("wrote %s; waiting for changes", out)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Editors often replace files instead of writing them in place so we
	// watch the parent directory instead of the file itself
	if err = watcher.Add(filepath.Dir(sceneFile)); err != nil {
		return err
	}

	sigCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rebuild()
	return watchLoop(sigCtx, watcher.Events, watcher.Errors, isSceneSource(filepath.Dir(sceneFile), out), watchDebounce, rebuild)
}

// Get a filter that accepts events for scene sources (obj and mtl files)
// in dir, ignoring the compiled output. Paths are compared in absolute form.
func isSceneSource(dir, out string) func(string) bool {
	dir, _ = filepath.Abs(dir)
	out, _ = filepath.Abs(out)
	return func(name string) bool {
		name, _ = filepath.Abs(name)
		if filepath.Dir(name) != dir || name == out {
			return false
		}
		switch strings.ToLower(filepath.Ext(name)) {
		case ".obj", ".mtl":
			return true
		}
		return false
	}
}

// Call rebuild once events for matching files stop arriving for the
// debounce interval. Returns nil when ctx is cancelled.
func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, match func(string) bool, debounce time.Duration, rebuild func()) error {
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 || !match(e.Name) {
				continue
			}
			logger.Debugf("detected change: %s", e)
			timer.Reset(debounce)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Warningf("watcher error: %v", err)
		case <-timer.C:
			rebuild()
		}
	}
}
