package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/gitkit/internal/model"
	"github.com/shinji-kodama/gitkit/internal/plan"
)

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const dryRunPlan = `
targets:
  - name: app
    path: /work/app
    steps:
      - op: clone
        url: https://example.com/app.git
      - op: tag
        name: v1
  - steps:
      - op: log
        count: 2
`

func TestApply_DryRunText(t *testing.T) {
	planFile := writePlan(t, dryRunPlan)

	stdout, _, err := executeCommand(t, "", "--dry-run", "-C", "/default", "apply", planFile)
	require.NoError(t, err)
	assert.Equal(t, `# app
mkdir -p /work/app && cd /work/app && git clone https://example.com/app.git
cd /work/app && git tag v1
# target-1
cd /default && git log -2
`, stdout)
}

func TestApply_DryRunJSON(t *testing.T) {
	planFile := writePlan(t, dryRunPlan)

	stdout, _, err := executeCommand(t, "", "--dry-run", "--json", "apply", planFile)
	require.NoError(t, err)

	var got struct {
		DryRun  bool `json:"dryRun"`
		Targets []struct {
			Target   string   `json:"target"`
			Commands []string `json:"commands"`
		} `json:"targets"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.True(t, got.DryRun)
	require.Len(t, got.Targets, 2)
	assert.Equal(t, []string{"git log -2"}, got.Targets[1].Commands)
}

func TestApply_DryRunVerboseEmitsEveryStep(t *testing.T) {
	planFile := writePlan(t, dryRunPlan)
	cfg := "log:\n  level: error\n  format: json\n"

	_, stderr, err := executeCommand(t, cfg, "--dry-run", "-v", "-C", "/default", "apply", planFile)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"mkdir -p /work/app && cd /work/app && git clone https://example.com/app.git",
		"cd /work/app && git tag v1",
		"cd /default && git log -2",
	}, gitLogMessages(t, stderr))
}

func TestApply_InvalidPlan(t *testing.T) {
	planFile := writePlan(t, "targets:\n  - steps:\n      - op: commit\n")

	_, _, err := executeCommand(t, "", "--dry-run", "apply", planFile)
	require.Error(t, err)
	assert.Equal(t, model.ExitInvalidPlan, exitCodeFor(err))
	assert.Contains(t, err.Error(), "step 1: commit: missing message")
}

func TestApply_RunsStepsAndReportsJSON(t *testing.T) {
	requireGit(t)

	planFile := writePlan(t, `
concurrency: 2
targets:
  - name: one
    steps:
      - op: raw
        text: version
  - name: two
    steps:
      - op: raw
        text: --version
`)

	stdout, _, err := executeCommand(t, "", "--json", "apply", planFile)
	require.NoError(t, err)

	var result plan.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.NotEmpty(t, result.RunID)
	require.Len(t, result.Targets, 2)
	for _, target := range result.Targets {
		require.Len(t, target.Steps, 1)
		assert.Contains(t, target.Steps[0].Output, "git version")
		assert.Empty(t, target.Steps[0].Error)
	}
}
