package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}
	if cfg.Solver.Name != "cp" {
		t.Errorf("Solver.Name = %q, want %q", cfg.Solver.Name, "cp")
	}
	if cfg.Solver.Workers != 1 {
		t.Errorf("Solver.Workers = %d, want 1", cfg.Solver.Workers)
	}
	if !cfg.Solver.Hint {
		t.Error("Solver.Hint should be true by default")
	}
	if cfg.Solver.TimeLimit != 0 {
		t.Errorf("Solver.TimeLimit = %v, want 0", cfg.Solver.TimeLimit)
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Output.Format = %q, want %q", cfg.Output.Format, "text")
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default() does not validate: %v", ValidationErrors(errs))
	}
}

func TestLoadWithoutConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	v, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Solver.Name != "cp" || cfg.Logging.Level != "warn" {
		t.Errorf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mise.yaml")
	content := `solver:
  name: greedy
  time_limit: 30s
  workers: 4
output:
  format: json
  verify: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	v, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Solver.Name != "greedy" {
		t.Errorf("Solver.Name = %q, want greedy", cfg.Solver.Name)
	}
	if cfg.Solver.TimeLimit != 30*time.Second {
		t.Errorf("Solver.TimeLimit = %v, want 30s", cfg.Solver.TimeLimit)
	}
	if cfg.Solver.Workers != 4 {
		t.Errorf("Solver.Workers = %d, want 4", cfg.Solver.Workers)
	}
	if !cfg.Output.Verify || cfg.Output.Format != "json" {
		t.Errorf("Output = %+v, want json with verify", cfg.Output)
	}
	// Untouched keys keep their defaults
	if !cfg.Solver.Hint {
		t.Error("Solver.Hint should keep its default")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("New() should fail for a missing explicit config file")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MISE_SOLVER_WORKERS", "3")
	t.Setenv("MISE_LOGGING_LEVEL", "debug")

	v, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Solver.Workers != 3 {
		t.Errorf("Solver.Workers = %d, want 3", cfg.Solver.Workers)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		fields []string
	}{
		{
			name:   "valid",
			modify: func(*Config) {},
		},
		{
			name:   "unknown solver",
			modify: func(c *Config) { c.Solver.Name = "simplex" },
			fields: []string{"solver.name"},
		},
		{
			name: "bad limits",
			modify: func(c *Config) {
				c.Solver.TimeLimit = -time.Second
				c.Solver.NodeLimit = -1
				c.Solver.Workers = 0
			},
			fields: []string{"solver.time_limit", "solver.node_limit", "solver.workers"},
		},
		{
			name: "bad formats",
			modify: func(c *Config) {
				c.Logging.Level = "loud"
				c.Logging.Format = "xml"
				c.Output.Format = "csv"
				c.Output.Color = "rainbow"
			},
			fields: []string{"logging.level", "logging.format", "output.format", "output.color"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			errs := cfg.Validate()

			if len(errs) != len(tt.fields) {
				t.Fatalf("Validate() = %v, want %d errors", errs, len(tt.fields))
			}
			for i, field := range tt.fields {
				if errs[i].Field != field {
					t.Errorf("errs[%d].Field = %q, want %q", i, errs[i].Field, field)
				}
			}
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MISE_SOLVER_NAME", "simplex")

	v, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = Load(v)

	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Load() error = %v, want ValidationErrors", err)
	}
	if !strings.Contains(err.Error(), "solver.name") {
		t.Errorf("error %q should name the field", err.Error())
	}
}
