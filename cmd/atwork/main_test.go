package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgast/atwork/pkg/plan"
	"github.com/cgast/atwork/pkg/protocol"
	"github.com/cgast/atwork/pkg/taskspec"
	"github.com/cgast/atwork/pkg/workflow"
)

// execute runs the CLI with a config pointing into a temp dir.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return executeIn(t, t.TempDir(), stdin, args...)
}

// executeIn runs the CLI with its config and store in dir, so consecutive
// calls share one store.
func executeIn(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf("store_path: %s\nlog_level: error\n", filepath.Join(dir, "userdata.db"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	var stdout, stderr bytes.Buffer
	root := newRootCmd(newApp(&stdout, &stderr))
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return stdout.String(), err
}

func TestParseCommandDetectsType(t *testing.T) {
	out, err := execute(t, "", "parse", "PPT<S6,S5>")
	require.NoError(t, err)
	assert.Contains(t, out, "(PPT)")
	assert.Contains(t, out, "S6")
}

func TestParseCommandJSONWithPlan(t *testing.T) {
	out, err := execute(t, "", "parse", "BTT", taskspec.Fixtures[taskspec.TransportationTest], "--plan", "--json")
	require.NoError(t, err)

	var got struct {
		Task     taskspec.Task `json:"task"`
		TaskList plan.Plan     `json:"task_list"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, taskspec.TransportationTest, got.Task.Type)
	assert.Equal(t, "2 fetch, 2 place action(s)", got.TaskList.Summary)
}

func TestParseCommandStdin(t *testing.T) {
	out, err := execute(t, "BNT<(D,W,3),(EXIT,E,3)>\n", "parse", "BNT", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "EXIT")
}

func TestParseCommandRejects(t *testing.T) {
	out, err := execute(t, "", "parse", "PPT", "BNT<(D,W,3)>")
	assert.ErrorIs(t, err, taskspec.PrefixMismatch)
	assert.Contains(t, out, "wrong task format")
	assert.Contains(t, out, "prefix mismatch")
}

func TestParseCommandUnknownType(t *testing.T) {
	_, err := execute(t, "", "parse", "XYZ", "PPT<S6,S5>")
	assert.ErrorIs(t, err, taskspec.UnknownTaskType)
}

func TestFetchCommandSimulated(t *testing.T) {
	out, err := execute(t, "", "fetch", "--simulate", "--test", "BMT")
	require.NoError(t, err)
	assert.Equal(t, taskspec.Fixtures[taskspec.ManipulationTest]+"\n", out)
}

func TestRunCommandSimulated(t *testing.T) {
	out, err := execute(t, "", "run", "--simulate", "--test", "PPT", "--json")
	require.NoError(t, err)

	var got struct {
		Run      workflow.Result `json:"run"`
		TaskList plan.Plan       `json:"task_list"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, workflow.OutcomeSucceeded, got.Run.Outcome)
	assert.Len(t, got.TaskList.Actions, 2)
}

func TestRunCommandText(t *testing.T) {
	out, err := execute(t, "", "run", "--simulate", "--test", "BNT")
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "Task list")
	assert.Contains(t, out, "12 move action(s)")
}

func TestRunCommandReparseWithoutCopy(t *testing.T) {
	_, err := execute(t, "", "run", "--reparse", "--test", "BTT")
	assert.Error(t, err)
}

func TestRunCommandReparseUsesStoredType(t *testing.T) {
	dir := t.TempDir()
	_, err := executeIn(t, dir, "", "run", "--test", "PPT", "--simulate")
	require.NoError(t, err)

	out, err := executeIn(t, dir, "", "run", "--reparse", "--json")
	require.NoError(t, err)

	var got struct {
		Run  workflow.Result `json:"run"`
		Task taskspec.Task   `json:"task"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, workflow.OutcomeSucceeded, got.Run.Outcome)
	assert.Equal(t, workflow.StateReGetTask, got.Run.Visits[0].State)
	assert.Equal(t, taskspec.PrecisionPlacementTest, got.Task.Type)
}

func TestFixturesCommand(t *testing.T) {
	out, err := execute(t, "", "fixtures", "--json")
	require.NoError(t, err)

	var list []protocol.FixtureInfo
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Len(t, list, len(taskspec.TaskTypes))
}

func TestServeCommand(t *testing.T) {
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"task.classify","params":{"spec":"BMT<D1,D1>"}}`,
		`{"jsonrpc":"2.0","id":2,"method":"task.fetch","params":{"type":"PPT","simulate":true}}`,
		`{"jsonrpc":"2.0","id":3,"method":"userdata.get","params":{"scope":"task","key":"spec_copy"}}`,
	}, "\n")
	out, err := execute(t, in, "serve")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)

	var classify struct {
		Result protocol.ClassifyResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &classify))
	assert.Equal(t, "BMT", classify.Result.Type)

	var fetch struct {
		Result protocol.RunResult `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &fetch))
	assert.Equal(t, string(workflow.OutcomeSucceeded), fetch.Result.Outcome)

	var get struct {
		Result string `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &get))
	assert.Equal(t, "PPT<S6,S5>", get.Result)
}

func TestServeParseErrors(t *testing.T) {
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"task.parse","params":{"type":"PPT","spec":"PPT<S6>"}}`,
		`{"jsonrpc":"2.0","id":2,"method":"task.reparse"}`,
		`{"jsonrpc":"2.0","id":3,"method":"task.parse","params":{}}`,
	}, "\n")
	out, err := execute(t, in, "serve")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)

	codes := make([]int, len(lines))
	for i, line := range lines {
		var resp protocol.Response
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		require.NotNil(t, resp.Error, line)
		codes[i] = resp.Error.Code
	}
	assert.Equal(t, []int{protocol.CodeSpecInvalid, protocol.CodeNotFound, protocol.CodeInvalidParams}, codes)
	assert.Contains(t, lines[0], `"kind":"wrong field count"`)
}
