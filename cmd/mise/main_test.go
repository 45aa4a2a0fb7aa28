package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runMise(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestTea(t *testing.T) {
	code, stdout, stderr := runMise(t, "testdata/tea.json")

	require.Equal(t, exitOK, code, stderr)
	want := "Optimal schedule will take 00h12m\n" +
		"\n" +
		"boil_water :: 00:00 - 00:10 anywhere\n" +
		"  make_tea :: 00:10 - 00:12 anywhere\n"
	assert.Equal(t, want, stdout)
}

func TestTeaWithEverySolver(t *testing.T) {
	for _, args := range [][]string{
		{"--solver", "greedy"},
		{"--hint=false"},
		{"--workers", "4", "--seed", "9", "--hint=false"},
	} {
		code, stdout, stderr := runMise(t, append(args, "testdata/tea.json")...)
		require.Equal(t, exitOK, code, stderr)
		assert.Contains(t, stdout, "boil_water :: 00:00 - 00:10 anywhere", args)
	}
}

func TestDinnerYAML(t *testing.T) {
	code, stdout, stderr := runMise(t, "--verify", "testdata/dinner.yaml")

	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Optimal schedule will take 00h20m\n")
	assert.Contains(t, stdout, "Start cooking at 19:10 if dinner is to be served by 19:30\n")
	assert.Contains(t, stdout, "     sauce :: 19:10 - 19:30 using [pan, hands] following recipe 0\n")
}

func TestJSONOutput(t *testing.T) {
	code, stdout, stderr := runMise(t, "-o", "json", "testdata/dinner.yaml")
	require.Equal(t, exitOK, code, stderr)

	var got struct {
		Status   string `json:"status"`
		Makespan int    `json:"makespan"`
		Dinner   string `json:"dinner"`
		Tasks    []struct {
			Name string `json:"name"`
		} `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "Optimal", got.Status)
	assert.Equal(t, 20, got.Makespan)
	assert.Equal(t, "19:30", got.Dinner)
	assert.Len(t, got.Tasks, 3)
}

func TestNoSolution(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"cycle", []string{"testdata/cycle.json"}, "Solution was not found.\n"},
		{"zero capacity", []string{"testdata/no_grill.json"}, "Solution was not found.\n"},
		{"greedy dead end", []string{"--solver", "greedy", "testdata/contention.json"}, "Solution was not found within the search limits.\n"},
		{"node limit", []string{"--hint=false", "--node-limit", "1", "testdata/contention.json"}, "Solution was not found within the search limits.\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runMise(t, tt.args...)
			assert.Equal(t, exitNoSolution, code, stderr)
			assert.Equal(t, tt.want, stdout)
		})
	}
}

func TestCycleIsReported(t *testing.T) {
	_, _, stderr := runMise(t, "testdata/cycle.json")
	assert.Contains(t, stderr, "precedence cycle")
	assert.Contains(t, stderr, "chop -> fry -> chop")
}

func TestContentionSolvedByCP(t *testing.T) {
	code, stdout, stderr := runMise(t, "--verify", "testdata/contention.json")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Optimal schedule will take 00h12m\n")
}

func TestConfigurationErrors(t *testing.T) {
	code, stdout, stderr := runMise(t, "testdata/bad_successor.json")
	assert.Equal(t, exitError, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, `unknown successor "butter"`)

	code, _, stderr = runMise(t, "testdata/many_errors.json")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "error: tasks.toast.recipes[0].duration: must be a positive integer\n")
	assert.Contains(t, stderr, `error: tasks.toast.recipes[0].demands[0]: unknown resource "toaster"`)
	assert.Contains(t, stderr, `error: tasks.toast.successors[0]: unknown successor "butter"`)

	code, _, stderr = runMise(t, "testdata/missing.json")
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "missing.json")
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no plan", nil},
		{"two plans", []string{"testdata/tea.json", "testdata/dinner.yaml"}},
		{"unknown flag", []string{"--fast", "testdata/tea.json"}},
		{"unknown solver", []string{"--solver", "simplex", "testdata/tea.json"}},
		{"bad workers", []string{"--workers", "0", "testdata/tea.json"}},
		{"missing config", []string{"--config", "testdata/absent.yaml", "testdata/tea.json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runMise(t, tt.args...)
			assert.Equal(t, exitUsage, code, stderr)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, "--help")
		})
	}
}

func TestConfigFile(t *testing.T) {
	code, stdout, stderr := runMise(t, "--config", "testdata/greedy.yaml", "testdata/tea.json")
	require.Equal(t, exitOK, code, stderr)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "greedy", got["solver"])

	// Flags win over the config file
	code, stdout, stderr = runMise(t, "--config", "testdata/greedy.yaml", "--solver", "cp", "testdata/tea.json")
	require.Equal(t, exitOK, code, stderr)
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "cp", got["solver"])
}

func TestMetricsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mise.prom")
	code, _, stderr := runMise(t, "--metrics-file", path, "testdata/tea.json")
	require.Equal(t, exitOK, code, stderr)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `mise_solves_total{solver="cp",status="Optimal"} 1`)
	assert.Contains(t, string(data), "mise_plan_tasks 2")
}

func TestJSONLogs(t *testing.T) {
	code, _, stderr := runMise(t, "--log-level", "info", "--log-format", "json", "testdata/tea.json")
	require.Equal(t, exitOK, code)

	line, _, _ := bytes.Cut([]byte(stderr), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(line, &entry))
	assert.Equal(t, "plan loaded", entry["msg"])
	assert.Equal(t, "testdata/tea.json", entry["plan"])
	assert.NotEmpty(t, entry["run_id"])
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitNoSolution, exitCode(errNoSolution))
	assert.Equal(t, exitUsage, exitCode(usagef("bad")))
	assert.Equal(t, exitError, exitCode(os.ErrNotExist))
}
