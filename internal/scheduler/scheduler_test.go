package scheduler

import (
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testManifest = "/data/LinearSweep_260119_143005/scripts/paths.txt"
	testRun      = "/data/LinearSweep_260119_143005/scripts/run.sh"
)

func TestLookup(t *testing.T) {
	for _, name := range []string{"bash", "slurm", "moab", " MOAB "} {
		e, err := Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, strings.ToLower(strings.TrimSpace(name)), e.Name())
		assert.Equal(t, ".sh", e.Extension())
	}

	_, err := Lookup("pbs")
	assert.ErrorIs(t, err, ErrUnknownScheduler)
	assert.Equal(t, []string{"bash", "moab", "slurm"}, Names())
}

func TestEmitters_ReferenceManifestAndRunScript(t *testing.T) {
	emitters := []Emitter{Bash{}, Bash{Parallel: 4}, Slurm{Account: "p1", CPUs: 2}, Moab{Options: DefaultMoabOptions()}}
	for _, e := range emitters {
		t.Run(e.Name(), func(t *testing.T) {
			script, err := e.Emit(testManifest, testRun)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(script, "#!/usr/bin/env bash\n"))
			assert.Contains(t, script, "MANIFEST="+testManifest+"\n")
			assert.Contains(t, script, "RUN="+testRun+"\n")
			assert.Contains(t, script, `"$RUN"`)
			assert.NotContains(t, script, "read PATH", "must not clobber PATH")
			assert.True(t, strings.HasSuffix(script, "\n"))
		})
	}
}

func TestEmit_RequiresPaths(t *testing.T) {
	for _, e := range []Emitter{Bash{}, Slurm{}, Moab{}} {
		_, err := e.Emit("", testRun)
		assert.Error(t, err, e.Name())
		_, err = e.Emit(testManifest, "")
		assert.Error(t, err, e.Name())
	}
}

func TestBash_Parallel(t *testing.T) {
	serial, err := Bash{}.Emit(testManifest, testRun)
	require.NoError(t, err)
	assert.Contains(t, serial, `done < "$MANIFEST"`)
	assert.NotContains(t, serial, "xargs")

	parallel, err := Bash{Parallel: 8}.Emit(testManifest, testRun)
	require.NoError(t, err)
	assert.Contains(t, parallel, "xargs -P 8 -n 1")
}

func TestSlurm_Flags(t *testing.T) {
	script, err := Slurm{Account: "lab", Partition: "short", Time: "01:00:00", Memory: "2G", CPUs: 4}.Emit(testManifest, testRun)
	require.NoError(t, err)
	assert.Contains(t, script, "sbatch --parsable --account=lab --partition=short --time=01:00:00 --mem=2G --cpus-per-task=4")
	assert.Contains(t, script, `--wrap="\"$RUN\" \"$SIMPATH\""`)

	bare, err := Slurm{}.Emit(testManifest, testRun)
	require.NoError(t, err)
	assert.Contains(t, bare, `sbatch --parsable --job-name=`)
}

func TestMoab_Directives(t *testing.T) {
	opts := MoabOptions{
		Account:  "p30653",
		Queue:    "short",
		Walltime: "04:00:00",
		Nodes:    1,
		PPN:      2,
		Memory:   "1gb",
		Email:    "someone@example.org",
		Modules:  []string{"python/3.11"},
	}
	script, err := Moab{Options: opts}.Emit(testManifest, testRun)
	require.NoError(t, err)

	for _, line := range []string{
		"#!/bin/bash",
		"#MSUB -A p30653",
		"#MSUB -q short",
		"#MSUB -l walltime=04:00:00",
		"#MSUB -m abe",
		"#MSUB -M someone@example.org",
		"#MSUB -j oe",
		"#MSUB -l nodes=1:ppn=2",
		"#MSUB -l mem=1gb",
		"module load python/3.11",
		`"$RUN" "$SIMPATH"`,
		"EOJ",
	} {
		assert.Contains(t, strings.Split(script, "\n"), line)
	}

	minimal, err := Moab{}.Emit(testManifest, testRun)
	require.NoError(t, err)
	assert.Contains(t, minimal, "#MSUB -l nodes=1:ppn=1\n")
	assert.NotContains(t, minimal, "#MSUB -A")
	assert.NotContains(t, minimal, "#MSUB -M")

	_, err = Moab{Options: MoabOptions{Email: "$(rm -rf /)"}}.Emit(testManifest, testRun)
	assert.Error(t, err)
}

func TestShellQuote(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"/abs/path/run.sh", "/abs/path/run.sh"},
		{"gram-run", "gram-run"},
		{"", "''"},
		{"/with space/x", "'/with space/x'"},
		{"it's", `'it'\''s'`},
		{"$HOME", "'$HOME'"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, ShellQuote(tc.in), tc.in)
	}
}

func TestRunWrapper(t *testing.T) {
	script, err := RunWrapper("/usr/local/bin/gram-run --engine /opt/ssa")
	require.NoError(t, err)
	assert.Contains(t, script, `exec /usr/local/bin/gram-run --engine /opt/ssa "$1"`)

	_, err = RunWrapper("   ")
	assert.Error(t, err)
}

// TestBash_Executes runs the rendered scripts against a manifest with a stub
// run command and checks each path is dispatched exactly once.
func TestBash_Executes(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}

	for _, parallel := range []int{1, 3} {
		dir := t.TempDir()
		out := filepath.Join(dir, "ran.txt")
		stub := filepath.Join(dir, "stub.sh")
		require.NoError(t, os.WriteFile(stub, []byte("#!/usr/bin/env bash\necho \"$1\" >> "+ShellQuote(out)+"\n"), 0755))

		wrapper, err := RunWrapper(stub)
		require.NoError(t, err)
		runPath := filepath.Join(dir, "run.sh")
		require.NoError(t, os.WriteFile(runPath, []byte(wrapper), 0755))

		manifest := filepath.Join(dir, "paths.txt")
		paths := []string{filepath.Join(dir, "sim", "0"), filepath.Join(dir, "sim", "1"), filepath.Join(dir, "sim", "2")}
		require.NoError(t, os.WriteFile(manifest, []byte(strings.Join(paths, "\n")+"\n\n"), 0644))

		script, err := Bash{Parallel: parallel}.Emit(manifest, runPath)
		require.NoError(t, err)
		jobPath := filepath.Join(dir, "job_submission.sh")
		require.NoError(t, os.WriteFile(jobPath, []byte(script), 0755))

		cmd := exec.Command("bash", jobPath)
		cmd.Dir = "/"
		output, err := cmd.CombinedOutput()
		require.NoError(t, err, string(output))

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		got := strings.Fields(string(data))
		sort.Strings(got)
		assert.Equal(t, paths, got, "parallel=%d", parallel)
	}
}
