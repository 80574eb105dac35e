package mk

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngld/selfbuild/pkg/fsops"
	"github.com/ngld/selfbuild/pkg/logging"
	"github.com/ngld/selfbuild/pkg/runner"
)

type testBuild struct {
	*Build
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	exits  []int
	dir    string
}

func newTestBuild(t *testing.T, level zerolog.Level) *testBuild {
	t.Helper()

	tb := &testBuild{
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		dir:    t.TempDir(),
	}

	logger := zerolog.New(&logging.ConsoleWriter{Out: tb.stdout, Err: tb.stderr, NoColor: true}).Level(level)
	ctx := logging.WithLogger(context.Background(), &logger)

	tb.Build = New(ctx, fsops.OS(), &runner.Exec{Dir: tb.dir}, nil)
	tb.Exit = func(code int) {
		tb.exits = append(tb.exits, code)
	}
	return tb
}

func (tb *testBuild) path(parts ...string) string {
	return filepath.Join(append([]string{tb.dir}, parts...)...)
}

func TestBuildFilesystemSteps(t *testing.T) {
	b := newTestBuild(t, zerolog.InfoLevel)

	b.Mkdir(b.dir, "build", "obj")
	b.Mkfile(b.dir, "build", "stamp")
	assert.True(t, b.IsDir(b.path("build", "obj")))
	assert.True(t, b.IsFile(b.path("build", "stamp")))
	assert.True(t, b.Exists(b.path("build")))
	assert.Equal(t, []string{"obj", "stamp"}, b.ListDir(b.path("build")))

	b.Mv(b.path("build", "stamp"), b.path("build", "obj", "stamp"))
	assert.Equal(t, []string{"stamp"}, b.ListDir(b.path("build", "obj")))

	b.Rm(b.path("build"))
	assert.False(t, b.Exists(b.path("build")))
	// removing again only warns
	b.Rm(b.path("build"))

	assert.Empty(t, b.exits)
	assert.Contains(t, b.stderr.String(), "[WARNING]: Path `"+b.path("build")+"` does not exist")
}

func TestBuildFailureExits(t *testing.T) {
	b := newTestBuild(t, zerolog.InfoLevel)

	b.Mv(b.path("missing"), b.path("other"))

	assert.Equal(t, []int{1}, b.exits)
	assert.Contains(t, b.stderr.String(), "[ERROR]: mv "+b.path("missing")+" "+b.path("other")+": ")
	assert.Contains(t, b.stderr.String(), "failed to move path")
}

func TestBuildProbeFailureReturnsFalse(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	b := newTestBuild(t, zerolog.InfoLevel)
	b.Mkdir(b.dir, "locked", "inner")
	require.NoError(t, os.Chmod(b.path("locked"), 0))
	defer os.Chmod(b.path("locked"), 0700)

	assert.False(t, b.IsDir(b.path("locked", "inner")))
	assert.Equal(t, []int{1}, b.exits)
	assert.Contains(t, b.stderr.String(), "[ERROR]: isdir ")
}

func TestBuildRmStopsAtFirstFailure(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	b := newTestBuild(t, zerolog.InfoLevel)
	b.Mkfile(b.dir, "locked", "file")
	b.Mkfile(b.dir, "second")
	require.NoError(t, os.Chmod(b.path("locked"), 0500))
	defer os.Chmod(b.path("locked"), 0700)

	b.Rm(b.path("locked"), b.path("second"))

	assert.Equal(t, []int{1}, b.exits)
	assert.True(t, b.Exists(b.path("second")))
}

func TestBuildCmd(t *testing.T) {
	b := newTestBuild(t, zerolog.InfoLevel)

	b.Cmd("true")
	assert.Empty(t, b.exits)
	assert.Contains(t, b.stdout.String(), "[INFO]: true\n")

	b.Cmd("false")
	assert.Equal(t, []int{1}, b.exits)
	assert.Contains(t, b.stderr.String(), "[ERROR]: cmd: child process `false` exited with code 1")
}

func TestBuildShellAndEnv(t *testing.T) {
	b := newTestBuild(t, zerolog.InfoLevel)

	withEnv := b.WithEnv(map[string]string{"STAMP": "made-by-env"})
	withEnv.Shell(`touch "$STAMP"`)

	assert.Empty(t, b.exits)
	assert.True(t, b.IsFile(b.path("made-by-env")))

	b.Shell(`echo "unterminated`)
	assert.Equal(t, []int{1}, b.exits)
}

func TestBuildEchoLevels(t *testing.T) {
	b := newTestBuild(t, zerolog.InfoLevel)
	b.Info("building %s", "app")
	b.Trace("hidden")
	b.Warn("careful")
	assert.Equal(t, "[INFO]: building app\n", b.stdout.String())
	assert.Equal(t, "[WARNING]: careful\n", b.stderr.String())

	b = newTestBuild(t, zerolog.DebugLevel)
	b.Trace("visible")
	assert.Equal(t, "[TRACE]: visible\n", b.stdout.String())

	b.Fatal("giving up")
	assert.Equal(t, []int{1}, b.exits)
	assert.Equal(t, "[ERROR]: giving up\n", b.stderr.String())
}

func TestBuildRebuild(t *testing.T) {
	b := newTestBuild(t, zerolog.InfoLevel)
	source := b.path("mk.go")
	binary := b.path("mk")
	require.NoError(t, os.WriteFile(source, []byte("package main"), 0600))
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0700))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(source, old, old))

	b.Rebuild(source, binary)
	assert.Empty(t, b.exits)
	assert.Equal(t, []string{"mk", "mk.go"}, b.ListDir(b.dir))

	// A stale binary whose compiler is missing must exit with 1 and keep the backup.
	require.NoError(t, os.Chtimes(binary, old.Add(-time.Hour), old.Add(-time.Hour)))
	b.Boot.Compiler = []string{"selfbuild-missing-compiler"}
	b.Rebuild(source, binary)
	assert.Equal(t, []int{1}, b.exits)
	assert.Equal(t, []string{"mk.go", "mk.old"}, b.ListDir(b.dir))
}

func TestBuildRebuildStaleRunsNewBinary(t *testing.T) {
	b := newTestBuild(t, zerolog.InfoLevel)
	source := b.path("mk.go")
	binary := b.path("mk")
	marker := b.path("ran")
	require.NoError(t, os.WriteFile(source, []byte("package main"), 0600))
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0700))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(binary, old, old))

	// the "compiler" writes a script that leaves a marker when it runs
	script := "#!/bin/sh\ntouch " + marker + "\n"
	b.Boot.Compiler = []string{"sh", "-c", `printf '%s' "$0" > "$2"; chmod +x "$2"`, script}

	b.Rebuild(source, binary)

	assert.Equal(t, []int{0}, b.exits)
	assert.True(t, b.IsFile(marker))
	assert.Equal(t, []string{"mk", "mk.go", "ran"}, b.ListDir(b.dir))
}

func TestLoadUsesConfiguredCompiler(t *testing.T) {
	file := filepath.Join(t.TempDir(), "selfbuild.toml")
	require.NoError(t, os.WriteFile(file, []byte(`compiler = "cc -O2"`+"\n"), 0600))

	b, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, []string{"cc", "-O2"}, b.Boot.Compiler)
}

func TestLoadRejectsBrokenCompiler(t *testing.T) {
	file := filepath.Join(t.TempDir(), "selfbuild.toml")
	require.NoError(t, os.WriteFile(file, []byte(`compiler = "cc '-O2"`+"\n"), 0600))

	_, err := Load(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compiler")
}
