package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Animation.DefaultSpeed != 1 || cfg.Scene.Workers < 1 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestDecodeOverridesDefaults(t *testing.T) {
	src := `
[log]
level = "debug"

[scene]
workers = 3

[assets]
dir = "rigs"
watch = true
`
	cfg, err := Decode(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Scene.Workers != 3 || cfg.Assets.Dir != "rigs" || !cfg.Assets.Watch {
		t.Fatalf("decoded %+v", cfg)
	}
	if cfg.Scene.QueueSize != Default().Scene.QueueSize || cfg.Animation.DefaultSpeed != 1 {
		t.Fatalf("missing keys must keep their defaults: %+v", cfg)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		invalid bool
	}{
		{name: "unknown_key", src: "[scene]\nthreads = 4\n"},
		{name: "bad_syntax", src: "[scene\n"},
		{name: "bad_level", src: "[log]\nlevel = \"loud\"\n", invalid: true},
		{name: "no_workers", src: "[scene]\nworkers = 0\n", invalid: true},
		{name: "negative_speed", src: "[animation]\ndefault_speed = -1.0\n", invalid: true},
		{name: "watch_without_dir", src: "[assets]\ndir = \"\"\nwatch = true\n", invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.src))
			if err == nil {
				t.Fatalf("expected an error")
			}
			if tt.invalid != errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("errors.Is(%v, ErrInvalidConfig) = %v", err, !tt.invalid)
			}
		})
	}
}

func TestLoadEncodedConfig(t *testing.T) {
	cfg := Default()
	cfg.Scene.Workers = 2
	cfg.Assets.Pack = "stage.res"

	var buf bytes.Buffer
	if err := cfg.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "engine.toml")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v\n%s", err, buf.String())
	}
	if got != cfg {
		t.Fatalf("Load = %+v, want %+v", got, cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
