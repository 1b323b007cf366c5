package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/polaris-lbvh/types"
	"github.com/google/go-cmp/cmp"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to be valid; got %v", err)
	}

	expMin := types.XYZ(-125, -125, -125)
	if cfg.Build.SceneBounds.Min != expMin {
		t.Fatalf("expected default scene min %v; got %v", expMin, cfg.Build.SceneBounds.Min)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lbvh.toml")
	payload := `
[log]
level = "debug"

[build]
radix = 16
block_size = 64
workers = 3
validate = true

[build.scene_bounds]
min = [-10.0, -10.0, -10.0]
max = [10.0, 10.0, 10.0]
`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	exp := Default()
	exp.Log.Level = "debug"
	exp.Build.Radix = 16
	exp.Build.BlockSize = 64
	exp.Build.Workers = 3
	exp.Build.ValidateOutput = true
	exp.Build.SceneBounds = Bounds{Min: types.Splat3(-10), Max: types.Splat3(10)}

	if diff := cmp.Diff(exp, cfg); diff != "" {
		t.Fatalf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lbvh.toml")
	if err := os.WriteFile(path, []byte("[build]\nfoo = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for unknown config keys")
	}
}

func TestValidate(t *testing.T) {
	specs := []func(b *Build){
		func(b *Build) { b.Radix = 0 },
		func(b *Build) { b.Radix = 3 },
		func(b *Build) { b.Radix = 131072 },
		func(b *Build) { b.BlockSize = 0 },
		func(b *Build) { b.Workers = -1 },
		func(b *Build) { b.AABBEpsilon = -1 },
		func(b *Build) { b.SceneBounds.Max = b.SceneBounds.Min },
		func(b *Build) { b.SceneBounds.Min[1] = 200 },
		func(b *Build) { b.SceneBounds.Max[2] = b.SceneBounds.Min[2] },
		func(b *Build) { b.SceneBounds = Bounds{Min: types.XYZ(0, 0, 0), Max: types.XYZ(1, 1, 0)} },
		func(b *Build) { b.Radix, b.BlockSize = 65536, 1024 },
		func(b *Build) { b.Radix, b.BlockSize = 256, 64 },
	}

	for specIndex, mutate := range specs {
		cfg := Default()
		mutate(&cfg.Build)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
			t.Errorf("[spec %d] expected ErrInvalid; got %v", specIndex, err)
		}
	}

	cfg := Default()
	cfg.Build.Radix, cfg.Build.BlockSize = 16, 16
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected block size equal to the radix to be accepted; got %v", err)
	}

	cfg = Default()
	cfg.Log.Level = "chatty"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for unknown log level; got %v", err)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "lbvh.toml")
	if err = os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("unexpected config (-want +got):\n%s", diff)
	}
}
