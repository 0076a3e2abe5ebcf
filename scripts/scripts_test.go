package scripts_test

import (
	"context"
	"io"
	"io/fs"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/rewrite"
	"github.com/jward/rewrite/cst"
	"github.com/jward/rewrite/internal/runtime"
	"github.com/jward/rewrite/scripts"
)

func newTestRuntime(t *testing.T) *runtime.Runtime {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	return runtime.NewRuntime("", runtime.WithRuntimeFS(scripts.FS), runtime.WithLogger(logrus.NewEntry(l)))
}

func parse(t *testing.T, path, src string) *cst.File {
	t.Helper()
	f, err := cst.NewParser().Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	return f
}

func applicable(t *testing.T, name string, f *cst.File) bool {
	t.Helper()
	pre, err := newTestRuntime(t).PreconditionScript(scripts.Precondition(name))
	require.NoError(t, err)
	ok, err := rewrite.Applicable(pre, f, nil)
	require.NoError(t, err)
	return ok
}

const javaClass = "class A { void a() {} }\n"

func TestPreconditions(t *testing.T) {
	t.Parallel()
	gradle := "dependencies {\n    implementation 'g:a:1'\n}\n"
	tests := []struct {
		name string
		file *cst.File
		want map[string]bool
	}{
		{
			name: "root build.gradle",
			file: parse(t, "build.gradle", gradle),
			want: map[string]bool{"gradle_build": true, "java_main_source": false, "java_test_source": false},
		},
		{
			name: "nested build.gradle",
			file: parse(t, "lib/build.gradle", gradle),
			want: map[string]bool{"gradle_build": true},
		},
		{
			name: "settings.gradle",
			file: parse(t, "settings.gradle", gradle),
			want: map[string]bool{"gradle_build": false},
		},
		{
			name: "main source",
			file: parse(t, "core/src/main/java/A.java", javaClass),
			want: map[string]bool{"gradle_build": false, "java_main_source": true, "java_test_source": false},
		},
		{
			name: "test source",
			file: parse(t, "core/src/test/java/A.java", javaClass),
			want: map[string]bool{"java_main_source": false, "java_test_source": true},
		},
		{
			name: "test by name",
			file: parse(t, "ATest.java", javaClass),
			want: map[string]bool{"java_test_source": true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for name, want := range tt.want {
				assert.Equal(t, want, applicable(t, name, tt.file), name)
			}
		})
	}
}

func TestFS_EveryPreconditionEvaluates(t *testing.T) {
	t.Parallel()
	entries, err := fs.ReadDir(scripts.FS, "preconditions")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	f := parse(t, "A.java", javaClass)
	for _, e := range entries {
		pre, err := newTestRuntime(t).PreconditionScript("preconditions/" + e.Name())
		require.NoError(t, err, e.Name())
		_, err = rewrite.Applicable(pre, f, nil)
		assert.NoError(t, err, e.Name())
	}
}
