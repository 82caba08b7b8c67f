package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDir_Content(t *testing.T) {
	bundle, errs := LoadDir("testdata/content", LoadModeCollectAll)
	require.Empty(t, errs)

	assert.Equal(t, 1, bundle.FileCount)
	assert.Len(t, bundle.Items, 5)
	assert.Len(t, bundle.Tests, 1)
	assert.Len(t, bundle.Deliveries, 3)
	assert.Empty(t, ValidateBundle(bundle))
}

func TestLoadDir_NotFound(t *testing.T) {
	_, errs := LoadDir(filepath.Join(t.TempDir(), "missing"), LoadModeFailFast)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadDir_NoFiles(t *testing.T) {
	_, errs := LoadDir(t.TempDir(), LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), ErrCodeNoFiles)
}

func TestLoadDir_CollectsCompileErrors(t *testing.T) {
	dir := t.TempDir()
	src := `package bad

item: a: title: "no body"
item: b: title: "no body either"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte(src), 0o644))

	_, errs := LoadDir(dir, LoadModeCollectAll)
	assert.Len(t, errs, 2)

	_, errs = LoadDir(dir, LoadModeFailFast)
	assert.Len(t, errs, 1)
}
