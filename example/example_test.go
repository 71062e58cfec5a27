package example

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	require.Nil(t, RenderTone(path, 0.1))

	info, err := os.Stat(path)
	require.Nil(t, err)
	assert.Greater(t, info.Size(), int64(44))
}

func TestRenderEcho(t *testing.T) {
	path := filepath.Join(t.TempDir(), "echo.wav")
	require.Nil(t, RenderEcho(path, 0.2))

	info, err := os.Stat(path)
	require.Nil(t, err)
	assert.Greater(t, info.Size(), int64(44))
}
