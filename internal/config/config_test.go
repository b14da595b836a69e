package config

import (
	"os"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BindAddress != "127.0.0.1:1711" {
		t.Fatalf("expected default bind address, got %v", cfg.BindAddress)
	}
	if cfg.NumFeatures != 500 {
		t.Fatalf("expected default num_features 500, got %v", cfg.NumFeatures)
	}
	if cfg.Dialect != "ansi" {
		t.Fatalf("expected default dialect ansi, got %v", cfg.Dialect)
	}
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	t.Setenv("FASTPROP_BIND_ADDRESS", "0.0.0.0:9999")
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BindAddress != "0.0.0.0:9999" {
		t.Fatalf("expected env var to override default, got %v", cfg.BindAddress)
	}
}

func TestLoadFlagOverridesEnvAndDefault(t *testing.T) {
	t.Setenv("FASTPROP_NUM_FEATURES", "200")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("num-features", 500, "")
	if err := flags.Set("num-features", "77"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NumFeatures != 77 {
		t.Fatalf("expected an explicitly set flag to win over env and defaults, got %v", cfg.NumFeatures)
	}
}

func TestLoadConfigFileOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/fastprop.yaml"
	if err := os.WriteFile(path, []byte("dialect: postgres\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dialect != "postgres" {
		t.Fatalf("expected the config file's dialect to override the default, got %v", cfg.Dialect)
	}
}

func TestLoadMissingConfigFileIsNotFatal(t *testing.T) {
	if _, err := Load("/nonexistent/path/fastprop.yaml", nil); err != nil {
		t.Fatalf("expected a missing config file to fall back to defaults, got %v", err)
	}
}
