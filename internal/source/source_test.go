package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func rel(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		r, err := filepath.Rel(root, p)
		require.NoError(t, err)
		out[i] = filepath.ToSlash(r)
	}
	return out
}

func TestIsIaCFile(t *testing.T) {
	assert.True(t, IsIaCFile("main.tf"))
	assert.True(t, IsIaCFile("prod.TFVARS"))
	assert.True(t, IsIaCFile("deploy/Dockerfile"))
	assert.True(t, IsIaCFile("Dockerfile.build"))
	assert.True(t, IsIaCFile("aks.bicep"))
	assert.False(t, IsIaCFile("README.md"))
	assert.False(t, IsIaCFile("main.go"))
}

func TestDiscover(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.tf":                     "",
		"README.md":                   "",
		"modules/net/vpc.tf":          "",
		"modules/net/.terraform/x.tf": "",
		"examples/demo/main.tf":       "",
		".git/config.json":            "",
		"charts/values.yaml":          "",
	})

	flat, err := Discover(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.tf"}, rel(t, root, flat))

	all, err := Discover(root, Options{Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"charts/values.yaml",
		"examples/demo/main.tf",
		"main.tf",
		"modules/net/vpc.tf",
	}, rel(t, root, all))

	filtered, err := Discover(root, Options{Recursive: true, Exclude: []string{"examples/**", "**/*.yaml"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.tf", "modules/net/vpc.tf"}, rel(t, root, filtered))
}

func TestDiscover_FileRoot(t *testing.T) {
	root := writeTree(t, map[string]string{"plan.out.json": "{}"})
	path := filepath.Join(root, "plan.out.json")

	got, err := Discover(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{path}, got)
}

func TestDiscover_Errors(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"), Options{})
	assert.Error(t, err)

	_, err = Discover(t.TempDir(), Options{Exclude: []string{"[unclosed"}})
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	root := writeTree(t, map[string]string{"a.tf": "resource {}", "b.yaml": "resources: []"})
	paths := []string{filepath.Join(root, "a.tf"), filepath.Join(root, "b.yaml")}

	files, skipped, err := Load(context.Background(), paths)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, files, 2)
	assert.Equal(t, "resource {}", string(files[0].Data))
	assert.Equal(t, paths[1], files[1].Path)
}

func TestLoad_Cancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"a.tf": ""})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files, _, err := Load(ctx, []string{filepath.Join(root, "a.tf")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, files)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(context.Background(), []string{filepath.Join(t.TempDir(), "nope.tf")})
	assert.Error(t, err)
}
