package commands_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	binaryPath  string
	testdataDir string
)

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "recon-test-*")
	if err != nil {
		panic(err)
	}

	binaryPath = filepath.Join(tmpDir, "recon")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/recon")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		os.RemoveAll(tmpDir)
		panic("failed to build binary: " + err.Error())
	}

	testdataDir, err = filepath.Abs(filepath.Join("..", "..", "testdata"))
	if err != nil {
		os.RemoveAll(tmpDir)
		panic(err)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// runRecon runs the binary inside dir and returns stdout and stderr separately.
func runRecon(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "NO_COLOR=1")
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func testdata(name string) string {
	return filepath.Join(testdataDir, name)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()
	_, _, err := runRecon(t, dir, "init", dir)
	require.NoError(t, err)

	expectedDirs := []string{
		filepath.Join("import", "source"),
		filepath.Join("import", "pos"),
		filepath.Join("import", "processed"),
		"reports",
		"logs",
	}
	for _, d := range expectedDirs {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	data, err := os.ReadFile(filepath.Join(dir, "recon.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "auto_accept: 0.95")
	assert.Contains(t, string(data), "review: 0.8")
}

func TestInit_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	_, _, err := runRecon(t, dir, "init", dir)
	require.NoError(t, err)

	_, stderr, err := runRecon(t, dir, "init", dir)
	require.Error(t, err)
	assert.Contains(t, stderr, "already exists")

	_, _, err = runRecon(t, dir, "init", dir, "--force")
	require.NoError(t, err)
}

func TestInspect_Text(t *testing.T) {
	stdout, _, err := runRecon(t, t.TempDir(), "inspect", testdata("rewards_june.csv"))
	require.NoError(t, err)

	assert.Contains(t, stdout, "source_a_rewards")
	assert.Contains(t, stdout, "Patient Name")
	assert.Contains(t, stdout, "Invalid amount: -10")
}

func TestInspect_JSON(t *testing.T) {
	stdout, _, err := runRecon(t, t.TempDir(), "inspect", testdata("pos_june.csv"), "--json")
	require.NoError(t, err)

	var out struct {
		FileType string `json:"file_type"`
		Side     string `json:"side"`
		Mapping  struct {
			Mapping  map[string]string `json:"mapping"`
			Unmapped []string          `json:"unmapped"`
			IsValid  bool              `json:"is_valid"`
		} `json:"column_mapping"`
		Validation struct {
			TotalRecords   int `json:"total_records"`
			ValidRecords   int `json:"valid_records"`
			InvalidRecords int `json:"invalid_records"`
		} `json:"validation"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))

	assert.Equal(t, "pos_transactions", out.FileType)
	assert.Equal(t, "pos", out.Side)
	assert.True(t, out.Mapping.IsValid)
	assert.Equal(t, "Client", out.Mapping.Mapping["customer"])
	assert.ElementsMatch(t, []string{"Transaction ID", "Payment Method"}, out.Mapping.Unmapped)
	assert.Equal(t, 4, out.Validation.TotalRecords)
	assert.Equal(t, 3, out.Validation.ValidRecords)
	assert.Equal(t, 1, out.Validation.InvalidRecords)
}

func TestInspect_MapFixesIncompleteMapping(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "visits.csv")
	require.NoError(t, os.WriteFile(path, []byte("Patient Name,Product Name,Points Earned,When\nAna Ruiz,Botox,120,06/03/2024\n"), 0o644))

	stdout, _, err := runRecon(t, dir, "inspect", path, "--side", "source")
	require.NoError(t, err)
	assert.Contains(t, stdout, "mapping incomplete")

	stdout, _, err = runRecon(t, dir, "inspect", path, "--side", "source", "--map", "date=When", "--json")
	require.NoError(t, err)

	var out struct {
		Mapping struct {
			Mapping map[string]string `json:"mapping"`
			IsValid bool              `json:"is_valid"`
		} `json:"column_mapping"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.True(t, out.Mapping.IsValid)
	assert.Equal(t, "When", out.Mapping.Mapping["date"])
}

func TestInspect_BadMapFlag(t *testing.T) {
	dir := t.TempDir()

	_, stderr, err := runRecon(t, dir, "inspect", testdata("pos_june.csv"), "--map", "date")
	require.Error(t, err)
	assert.Contains(t, stderr, "want field=header")

	_, stderr, err = runRecon(t, dir, "inspect", testdata("pos_june.csv"), "--map", "date=Visit")
	require.Error(t, err)
	assert.Contains(t, stderr, "Visit")
}

func TestPairs_WritesCrossProduct(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "pairs.csv")

	_, _, err := runRecon(t, dir, "pairs",
		"--source", testdata("rewards_june.csv"),
		"--pos", testdata("pos_june.csv"),
		"-o", out)
	require.NoError(t, err)

	// Header + 4 valid source rows x 3 valid POS rows.
	lines := readLines(t, out)
	assert.Len(t, lines, 13)
	assert.True(t, strings.HasPrefix(lines[0], "source_id,pos_id"))
	assert.Contains(t, lines[1], "source:rewards_june.csv:1")

	entries := readLines(t, filepath.Join(dir, "logs", "run-log.csv"))
	require.Len(t, entries, 2)
	assert.Contains(t, entries[1], "pairs=12")
}

func TestPairs_RequiresBothSides(t *testing.T) {
	_, _, err := runRecon(t, t.TempDir(), "pairs", "--source", testdata("rewards_june.csv"))
	require.Error(t, err)
}

func TestReconcile_EndToEnd(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := runRecon(t, dir, "reconcile",
		"--source", testdata("rewards_june.csv"),
		"--pos", testdata("pos_june.csv"),
		"--scores", testdata("scores.csv"),
		"--no-progress")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Reports written to reports")

	data, err := os.ReadFile(filepath.Join(dir, "reports", "summary.json"))
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, json.Unmarshal(data, &summary))

	assert.Equal(t, 5.0, summary["total"])
	assert.Equal(t, 2.0, summary["auto_accept"])
	assert.Equal(t, 2.0, summary["manual_review"])
	assert.Equal(t, 1.0, summary["no_match"])
	assert.Equal(t, 40.0, summary["auto_accept_rate_percent"])
	assert.Equal(t, 1.0, summary["unmatched_source"])
	assert.Equal(t, 0.0, summary["unmatched_pos"])
	assert.Equal(t, 1.0, summary["superseded"])

	// Header + 3 assigned pairs.
	assert.Len(t, readLines(t, filepath.Join(dir, "reports", "matches.csv")), 4)

	unmatched := readLines(t, filepath.Join(dir, "reports", "unmatched.csv"))
	require.Len(t, unmatched, 2)
	assert.Contains(t, unmatched[1], "Fay Wu")

	entries := readLines(t, filepath.Join(dir, "logs", "run-log.csv"))
	require.Len(t, entries, 2)
	assert.Contains(t, entries[1], "reconcile")
	assert.Contains(t, entries[1], "auto_accept=2")
}

func TestReconcile_JSONAndThresholdFlags(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := runRecon(t, dir, "reconcile",
		"--source", testdata("rewards_june.csv"),
		"--pos", testdata("pos_june.csv"),
		"--scores", testdata("scores.csv"),
		"--auto-accept", "0.85",
		"--json")
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	// 0.97, 0.86 and 0.96 clear 0.85.
	assert.Equal(t, 3.0, summary["auto_accept"])
	assert.Equal(t, 1.0, summary["manual_review"])
	thresholds, ok := summary["thresholds"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0.85, thresholds["auto_accept"])
}

func TestReconcile_InvalidThresholds(t *testing.T) {
	dir := t.TempDir()

	_, stderr, err := runRecon(t, dir, "reconcile",
		"--source", testdata("rewards_june.csv"),
		"--pos", testdata("pos_june.csv"),
		"--scores", testdata("scores.csv"),
		"--auto-accept", "0.5",
		"--review", "0.9")
	require.Error(t, err)
	assert.Contains(t, stderr, "threshold")

	_, err = os.Stat(filepath.Join(dir, "reports"))
	assert.True(t, os.IsNotExist(err), "no reports should be written")
}

func TestReconcile_MapOverride(t *testing.T) {
	dir := t.TempDir()
	visits := filepath.Join(dir, "visits.csv")
	require.NoError(t, os.WriteFile(visits, []byte(
		"Patient Name,Product Name,Points Earned,When\n"+
			"Ana Ruiz,Botox,120,06/03/2024\n"+
			"Dee Park,Dysport,60,06/09/2024\n"), 0o644))
	scores := filepath.Join(dir, "scores.csv")
	require.NoError(t, os.WriteFile(scores, []byte(
		"source_id,pos_id,match_probability\n"+
			"source:visits.csv:1,pos:pos_june.csv:1,0.97\n"+
			"source:visits.csv:2,pos:pos_june.csv:3,0.85\n"), 0o644))

	args := []string{"reconcile",
		"--source", visits,
		"--pos", testdata("pos_june.csv"),
		"--scores", scores,
		"--json"}

	_, stderr, err := runRecon(t, dir, args...)
	require.Error(t, err, "date cannot be mapped without help")
	assert.Contains(t, stderr, "mapping incomplete")
	assert.Contains(t, stderr, "--map visits.csv:field=header")

	stdout, _, err := runRecon(t, dir, append(args, "--map", "visits.csv:date=When")...)
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, 2.0, summary["total"])
	assert.Equal(t, 1.0, summary["auto_accept"])
	assert.Equal(t, 1.0, summary["manual_review"])
	assert.Equal(t, 2.0, summary["source_records"])
	assert.Equal(t, 0.0, summary["unmatched_source"])
	assert.Equal(t, 1.0, summary["unmatched_pos"])
}

func TestPairs_MapErrors(t *testing.T) {
	dir := t.TempDir()
	base := []string{"pairs",
		"--source", testdata("rewards_june.csv"),
		"--pos", testdata("pos_june.csv")}

	_, stderr, err := runRecon(t, dir, append(base, "--map", "other.csv:date=When")...)
	require.Error(t, err)
	assert.Contains(t, stderr, `no input file "other.csv"`)

	_, stderr, err = runRecon(t, dir, append(base, "--map", "rewards_june.csv:date")...)
	require.Error(t, err)
	assert.Contains(t, stderr, "want [file:]field=header")

	_, stderr, err = runRecon(t, dir, append(base, "--map", "rewards_june.csv:date=Visit")...)
	require.Error(t, err)
	assert.Contains(t, stderr, "Visit")
}

func TestReconcile_ScansImportDir(t *testing.T) {
	dir := t.TempDir()
	_, _, err := runRecon(t, dir, "init", dir)
	require.NoError(t, err)

	copyFile(t, testdata("rewards_june.csv"), filepath.Join(dir, "import", "source", "rewards_june.csv"))
	copyFile(t, testdata("pos_june.csv"), filepath.Join(dir, "import", "pos", "pos_june.csv"))

	_, _, err = runRecon(t, dir, "reconcile", "--scores", testdata("scores.csv"), "--no-progress", "--archive")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "reports", "summary.json"))
	assert.FileExists(t, filepath.Join(dir, "import", "processed", "source", "rewards_june.csv"))
	assert.FileExists(t, filepath.Join(dir, "import", "processed", "pos", "pos_june.csv"))
	assert.NoFileExists(t, filepath.Join(dir, "import", "source", "rewards_june.csv"))
}

func TestReconcile_CommitsRun(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	_, _, err := runRecon(t, dir, "init", dir, "--git")
	require.NoError(t, err)

	_, _, err = runRecon(t, dir, "reconcile",
		"--source", testdata("rewards_june.csv"),
		"--pos", testdata("pos_june.csv"),
		"--scores", testdata("scores.csv"),
		"--no-progress", "--commit")
	require.NoError(t, err)

	log := exec.Command("git", "log", "--format=%s")
	log.Dir = dir
	out, err := log.Output()
	require.NoError(t, err)
	subjects := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, subjects, 2)
	assert.True(t, strings.HasPrefix(subjects[0], "reconcile: run "))
	assert.Equal(t, "init: recon workspace", subjects[1])

	files := exec.Command("git", "ls-files")
	files.Dir = dir
	out, err = files.Output()
	require.NoError(t, err)
	assert.Contains(t, string(out), "reports/summary.json")
	assert.Contains(t, string(out), "logs/run-log.csv")
}

func TestReconcile_CommitOutsideRepo(t *testing.T) {
	_, stderr, err := runRecon(t, t.TempDir(), "reconcile",
		"--source", testdata("rewards_june.csv"),
		"--pos", testdata("pos_june.csv"),
		"--scores", testdata("scores.csv"),
		"--no-progress", "--commit")
	require.Error(t, err)
	assert.Contains(t, stderr, "not a git repository")
}

func TestHistory(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := runRecon(t, dir, "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "no runs recorded")

	_, _, err = runRecon(t, dir, "pairs",
		"--source", testdata("rewards_june.csv"),
		"--pos", testdata("pos_june.csv"),
		"-o", filepath.Join(dir, "pairs.csv"))
	require.NoError(t, err)

	stdout, _, err = runRecon(t, dir, "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "pairs")
	assert.Contains(t, stdout, "pairs=12")
}

func TestInvalidLogLevel(t *testing.T) {
	_, stderr, err := runRecon(t, t.TempDir(), "--log-level", "loud", "history")
	require.Error(t, err)
	assert.Contains(t, stderr, "invalid log level")
}

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dst, data, 0o644))
}

func TestVersion(t *testing.T) {
	stdout, _, err := runRecon(t, t.TempDir(), "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "recon version dev")
}
