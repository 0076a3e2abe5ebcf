package config

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/rewrite"
	"github.com/jward/rewrite/cst"
	_ "github.com/jward/rewrite/gradle"
	"github.com/jward/rewrite/internal/runtime"
)

const sourcesConfig = `type: specs.rewrite/v1/recipe
name: com.example.SourcesClassifier
displayName: Use sources jars
description: Switches dependencies to their sources classifier.
preconditions:
  - path: "**/build.gradle"
recipeList:
  - gradle.ChangeDependencyClassifier:
      groupId: org.openrewrite
      artifactId: "*"
      newClassifier: sources
  - com.example.Diagnostics
---
type: specs.rewrite/v1/recipe
name: com.example.Diagnostics
recipeList:
  - rewrite.FindCollidingSourceFiles
  - cst.FindNodes:
      kind: method_declaration
      language: java
`

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewLoader(runtime.NewRuntime(t.TempDir(), runtime.WithLogger(logrus.NewEntry(l))))
}

func load(t *testing.T, src string) *Catalog {
	t.Helper()
	c, err := newTestLoader(t).Load(strings.NewReader(src))
	require.NoError(t, err)
	return c
}

func TestLoad_BuildsComposites(t *testing.T) {
	t.Parallel()
	c := load(t, sourcesConfig)
	assert.Equal(t, []string{"com.example.Diagnostics", "com.example.SourcesClassifier"}, c.Names())
	require.Len(t, c.Recipes(), 2)

	r, ok := c.Lookup("com.example.SourcesClassifier")
	require.True(t, ok)
	assert.Equal(t, "Use sources jars", r.DisplayName())
	assert.Equal(t, "Switches dependencies to their sources classifier.", r.Description())

	diag, ok := c.Lookup("com.example.Diagnostics")
	require.True(t, ok)
	assert.Equal(t, "com.example.Diagnostics", diag.DisplayName(), "display name defaults to the name")
	list, ok := diag.(rewrite.RecipeList)
	require.True(t, ok)
	require.Len(t, list.RecipeList(), 2)
	find, ok := list.RecipeList()[1].(*cst.FindNodes)
	require.True(t, ok)
	assert.Equal(t, "method_declaration", find.Kind)
	assert.Equal(t, "java", find.Language)

	_, ok = c.Lookup("gradle.ChangeDependencyClassifier")
	assert.True(t, ok, "falls back to the registry")
	_, ok = c.Lookup("com.example.Missing")
	assert.False(t, ok)
}

func TestLoad_DecodesOptions(t *testing.T) {
	t.Parallel()
	c := load(t, sourcesConfig)
	r, _ := c.Lookup("com.example.SourcesClassifier")

	l := logrus.New()
	l.SetOutput(io.Discard)
	parse := func(path, src string) rewrite.SourceFile {
		f, err := cst.NewParser().Parse(context.Background(), path, []byte(src))
		require.NoError(t, err)
		return f
	}
	build := "dependencies {\n    implementation 'org.openrewrite:rewrite-core:8.0.0'\n}\n"
	files := []rewrite.SourceFile{
		parse("build.gradle", build),
		parse("other/settings.gradle", build),
	}
	res, err := rewrite.New(rewrite.WithLogger(l)).Run(context.Background(), r, files)
	require.NoError(t, err)
	assert.Equal(t,
		"dependencies {\n    implementation 'org.openrewrite:rewrite-core:8.0.0:sources'\n}\n",
		cst.Print(res.Results[0].After))
	assert.False(t, res.Results[1].Changed())
}

func TestLoad_ScriptPreconditions(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "java.risor"), []byte(`language == "java"`), 0644))
	l := logrus.New()
	l.SetOutput(io.Discard)
	loader := NewLoader(runtime.NewRuntime(dir, runtime.WithLogger(logrus.NewEntry(l))))

	c, err := loader.Load(strings.NewReader(`type: specs.rewrite/v1/recipe
name: com.example.JavaMethods
preconditions:
  - scriptFile: java.risor
  - script: count("method_declaration") > 1
recipeList:
  - cst.FindNodes:
      kind: method_declaration
`))
	require.NoError(t, err)
	r, _ := c.Lookup("com.example.JavaMethods")

	parse := func(path, src string) rewrite.SourceFile {
		f, err := cst.NewParser().Parse(context.Background(), path, []byte(src))
		require.NoError(t, err)
		return f
	}
	files := []rewrite.SourceFile{
		parse("A.java", "class A { void a() {} void b() {} }\n"),
		parse("B.java", "class B { void a() {} }\n"),
		parse("c.go", "package c\n\nfunc a() {}\nfunc b() {}\n"),
	}
	res, err := rewrite.New(rewrite.WithLogger(l)).Run(context.Background(), r, files)
	require.NoError(t, err)
	assert.True(t, res.Results[0].Changed())
	assert.False(t, res.Results[1].Changed())
	assert.False(t, res.Results[2].Changed())
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"wrong type", "type: specs.rewrite/v1/style\nname: a\n", `unsupported type "specs.rewrite/v1/style"`},
		{"no name", "type: specs.rewrite/v1/recipe\n", "recipe has no name"},
		{"duplicate", "type: specs.rewrite/v1/recipe\nname: a\n---\ntype: specs.rewrite/v1/recipe\nname: a\n", "declared twice"},
		{"unknown recipe", "type: specs.rewrite/v1/recipe\nname: a\nrecipeList:\n  - com.example.Nope\n", "unknown recipe com.example.Nope"},
		{"cycle", "type: specs.rewrite/v1/recipe\nname: a\nrecipeList:\n  - b\n---\ntype: specs.rewrite/v1/recipe\nname: b\nrecipeList:\n  - a\n", "includes itself"},
		{"invalid options", "type: specs.rewrite/v1/recipe\nname: a\nrecipeList:\n  - gradle.ChangeDependencyClassifier:\n      groupId: org.openrewrite\n", `option ArtifactID failed "required"`},
		{"options for optionless recipe", "type: specs.rewrite/v1/recipe\nname: a\nrecipeList:\n  - rewrite.FindCollidingSourceFiles:\n      x: 1\n", "takes no options"},
		{"bad entry", "type: specs.rewrite/v1/recipe\nname: a\nrecipeList:\n  - [x, y]\n", "recipeList entries"},
		{"bad glob", "type: specs.rewrite/v1/recipe\nname: a\npreconditions:\n  - path: \"src/[a\"\n", "not a valid glob"},
		{"two kinds", "type: specs.rewrite/v1/recipe\nname: a\npreconditions:\n  - path: \"**\"\n    script: \"true\"\n", "exactly one of"},
		{"missing script", "type: specs.rewrite/v1/recipe\nname: a\npreconditions:\n  - scriptFile: nope.risor\n", "nope.risor"},
		{"malformed", "type: [\n", "decode document 1"},
		{"unknown builtin", "type: specs.rewrite/v1/recipe\nname: a\npreconditions:\n  - builtin: nope\n", `no builtin "nope"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := newTestLoader(t).Load(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_BuiltinPrecondition(t *testing.T) {
	t.Parallel()
	c := load(t, `type: specs.rewrite/v1/recipe
name: com.example.BuildScripts
preconditions:
  - builtin: gradle_build
recipeList:
  - rewrite.FindCollidingSourceFiles
`)
	r, ok := c.Lookup("com.example.BuildScripts")
	require.True(t, ok)
	assert.NoError(t, rewrite.Validate(r))
}

func TestLoad_ScriptsNeedRuntime(t *testing.T) {
	t.Parallel()
	_, err := NewLoader(nil).Load(strings.NewReader("type: specs.rewrite/v1/recipe\nname: a\npreconditions:\n  - script: \"true\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scripts are not enabled")
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "rewrite.yml")
	require.NoError(t, os.WriteFile(path, []byte(sourcesConfig), 0644))

	c, err := newTestLoader(t).LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, c.Names(), 2)

	_, err = newTestLoader(t).LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
