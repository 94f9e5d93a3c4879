package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const creditWorkflow = `{
  "nodes": [
    {"id": "applicant", "type": "userInput", "position": {"x": 0, "y": 0}, "data": {"label": "Applicant"}},
    {"id": "gate", "type": "condition", "position": {"x": 200, "y": 0}, "data": {"label": "Score Gate", "condition": "greater", "value": "700"}},
    {"id": "approve", "type": "approval", "position": {"x": 400, "y": 0}, "data": {"label": "Approve"}}
  ],
  "edges": [
    {"id": "eapplicant-gate", "source": "applicant", "target": "gate"},
    {"id": "egate-approve", "source": "gate", "target": "approve"}
  ]
}`

const brokenWorkflow = `{
  "nodes": [
    {"id": "check", "type": "creditCheck", "position": {"x": 0, "y": 0}, "data": {"label": "Check"}}
  ],
  "edges": []
}`

// captureOutput captures stdout output during test execution
func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestMain_VersionFlag(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		version   string
		commit    string
		buildTime string
		want      string
	}{
		{
			name:      "version with dev defaults",
			args:      []string{"creditflow", "version"},
			version:   "dev",
			commit:    "unknown",
			buildTime: "unknown",
			want:      "CreditFlow dev (commit: unknown, built: unknown)\n",
		},
		{
			name:      "version with custom values",
			args:      []string{"creditflow", "version"},
			version:   "v1.0.0",
			commit:    "abc123",
			buildTime: "2024-01-01",
			want:      "CreditFlow v1.0.0 (commit: abc123, built: 2024-01-01)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldVersion, oldCommit, oldBuildTime, oldArgs := Version, Commit, BuildTime, os.Args
			defer func() {
				Version, Commit, BuildTime, os.Args = oldVersion, oldCommit, oldBuildTime, oldArgs
			}()

			Version = tt.version
			Commit = tt.commit
			BuildTime = tt.buildTime
			os.Args = tt.args

			output := captureOutput(func() {
				main()
			})

			assert.Equal(t, tt.want, output)
		})
	}
}

func TestRun_VersionFlag(t *testing.T) {
	oldVersion := Version
	defer func() { Version = oldVersion }()
	Version = "v1.2.3"

	code, stdout, _ := runCLI("--version")
	require.Equal(t, exitOK, code)
	assert.Equal(t, "CreditFlow v1.2.3 (commit: unknown, built: unknown)\n", stdout)
}

func TestRun_Help(t *testing.T) {
	code, stdout, _ := runCLI("--help")
	require.Equal(t, exitOK, code)
	for _, want := range []string{"validate", "convert", "test", "palette", "version"} {
		assert.Contains(t, stdout, want)
	}
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no arguments", args: nil, want: "Usage:\n  creditflow [flags]"},
		{name: "unknown command", args: []string{"deploy"}, want: `unknown command "deploy"`},
		{name: "unknown flag", args: []string{"convert", "--from", "json"}, want: "unknown flag: --from"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(tt.args...)
			assert.Equal(t, exitError, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestRun_Palette(t *testing.T) {
	code, stdout, _ := runCLI("palette")
	require.Equal(t, exitOK, code)

	for _, want := range []string{"Input", "Logic", "Output", "userInput", "Score Calculation", "Manual Review"} {
		assert.Contains(t, stdout, want)
	}
}

func TestRun_Validate(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantCode int
		want     []string
	}{
		{
			name:     "valid workflow",
			content:  creditWorkflow,
			wantCode: exitOK,
			want:     []string{"valid"},
		},
		{
			name:     "invalid workflow",
			content:  brokenWorkflow,
			wantCode: exitInvalid,
			want: []string{
				"workflow: Workflow must start with an input node",
				"workflow: Workflow must have at least one end node",
				"check: Node must be connected",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "workflow.json", tt.content)

			code, stdout, _ := runCLI("validate", path)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, strings.Join(tt.want, "\n")+"\n", stdout)
		})
	}
}

func TestRun_ValidateErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		code, _, stderr := runCLI("validate", filepath.Join(t.TempDir(), "absent.json"))
		assert.Equal(t, exitError, code)
		assert.Contains(t, stderr, "creditflow validate")
	})

	t.Run("malformed document", func(t *testing.T) {
		path := writeFile(t, "workflow.json", `{"nodes": [`)
		code, stdout, stderr := runCLI("validate", path)
		assert.Equal(t, exitError, code)
		assert.Empty(t, stdout)
		assert.Contains(t, stderr, "malformed")
	})

	t.Run("wrong argument count", func(t *testing.T) {
		code, _, stderr := runCLI("validate")
		assert.Equal(t, exitError, code)
		assert.Contains(t, stderr, "accepts 1 arg(s), received 0")
	})
}

func TestRun_Convert(t *testing.T) {
	path := writeFile(t, "workflow.json", creditWorkflow)

	tests := []struct {
		name string
		args []string
	}{
		{name: "flag after file", args: []string{"convert", path, "--to", "yaml"}},
		{name: "flag before file", args: []string{"convert", "--to=yaml", path}},
		{name: "flag split before file", args: []string{"convert", "--to", "yaml", path}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(tt.args...)
			require.Equal(t, exitOK, code, stderr)

			var doc struct {
				Nodes []map[string]any `yaml:"nodes"`
				Edges []map[string]any `yaml:"edges"`
			}
			require.NoError(t, yaml.Unmarshal([]byte(stdout), &doc))
			assert.Len(t, doc.Nodes, 3)
			assert.Len(t, doc.Edges, 2)
			assert.Equal(t, "gate", doc.Nodes[1]["id"])
		})
	}

	t.Run("yaml back to json", func(t *testing.T) {
		_, yamlText, _ := runCLI("convert", path, "--to", "yaml")
		yamlPath := writeFile(t, "workflow.yaml", yamlText)

		code, stdout, _ := runCLI("convert", yamlPath, "--to", "json")
		require.Equal(t, exitOK, code)

		var want, got any
		require.NoError(t, json.Unmarshal([]byte(creditWorkflow), &want))
		require.NoError(t, json.Unmarshal([]byte(stdout), &got))
		assert.Equal(t, want, got)
	})

	t.Run("unknown format", func(t *testing.T) {
		code, _, stderr := runCLI("convert", path, "--to", "toml")
		assert.Equal(t, exitError, code)
		assert.Contains(t, stderr, "toml")
	})
}

func TestRun_Test(t *testing.T) {
	path := writeFile(t, "workflow.json", creditWorkflow)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "no submissions",
			args: nil,
			want: []string{
				"Applicant [applicant]: Waiting for input...",
				"Score Gate [gate]: Waiting for evaluation...",
				"Approve [approve]: Pending",
			},
		},
		{
			name: "score above threshold",
			args: []string{"applicant=720"},
			want: []string{
				"Applicant [applicant]: Input: 720",
				"Score Gate [gate]: Condition Result: true",
				"Approve [approve]: Pending",
			},
		},
		{
			name: "score below threshold",
			args: []string{"applicant=650"},
			want: []string{
				"Applicant [applicant]: Input: 650",
				"Score Gate [gate]: Condition Result: false",
				"Approve [approve]: Pending",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(append([]string{"test", path}, tt.args...)...)
			require.Equal(t, exitOK, code, stderr)
			assert.Equal(t, strings.Join(tt.want, "\n")+"\n", stdout)
		})
	}
}

func TestRun_TestRejects(t *testing.T) {
	t.Run("invalid workflow", func(t *testing.T) {
		path := writeFile(t, "workflow.json", brokenWorkflow)
		code, stdout, _ := runCLI("test", path)
		assert.Equal(t, exitInvalid, code)
		assert.Contains(t, stdout, "Workflow must start with an input node")
	})

	t.Run("bad assignment", func(t *testing.T) {
		path := writeFile(t, "workflow.json", creditWorkflow)
		code, _, stderr := runCLI("test", path, "applicant")
		assert.Equal(t, exitError, code)
		assert.Contains(t, stderr, "node=value")
	})

	t.Run("unknown node", func(t *testing.T) {
		path := writeFile(t, "workflow.json", creditWorkflow)
		code, _, stderr := runCLI("test", path, "ghost=1")
		assert.Equal(t, exitError, code)
		assert.Contains(t, stderr, "ghost")
	})
}
