package packaging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExecDecodesSettings(t *testing.T) {
	p, err := NewExec([]HandlerConfig{
		{Extension: "ogg", Settings: map[string]any{"command": "tag_ogg.sh"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "tag_ogg.sh", p.commands["ogg"])
}

func TestNewExecRejectsMissingCommand(t *testing.T) {
	_, err := NewExec([]HandlerConfig{
		{Extension: "ogg", Settings: map[string]any{}},
	})
	assert.Error(t, err)
}

func TestPackageNoHandlerForExtension(t *testing.T) {
	p, err := NewExec(nil)
	require.NoError(t, err)

	err = p.Package(context.Background(), []byte("audio"), "mp3", Metadata{}, "/tmp/out.mp3")
	assert.Error(t, err)
}

func TestPackageRunsHandler(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "captured")

	// Stand-in handler: copies stdin to the file named by its fourth argument.
	script := filepath.Join(dir, "handler.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\ncat > \"$4\"\n"), 0o755))

	p, err := NewExec([]HandlerConfig{
		{Extension: "ogg", Settings: map[string]any{"command": script}},
	})
	require.NoError(t, err)

	meta := Metadata{
		TrackID:      "T1",
		Title:        "Song",
		GroupName:    "Record",
		CoverURL:     "https://img/cover.jpg",
		Contributors: []string{"A", "B"},
	}
	require.NoError(t, p.Package(context.Background(), []byte("audio-bytes"), "ogg", meta, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "audio-bytes", string(data))
}

func TestPackageHandlerNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "failing.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho broken >&2\nexit 3\n"), 0o755))

	p, err := NewExec([]HandlerConfig{
		{Extension: "ogg", Settings: map[string]any{"command": script}},
	})
	require.NoError(t, err)

	err = p.Package(context.Background(), []byte("audio"), "ogg", Metadata{}, filepath.Join(dir, "out.ogg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestPackageMissingExecutable(t *testing.T) {
	p, err := NewExec([]HandlerConfig{
		{Extension: "ogg", Settings: map[string]any{"command": "/no/such/binary"}},
	})
	require.NoError(t, err)

	err = p.Package(context.Background(), []byte("audio"), "ogg", Metadata{}, "/tmp/out.ogg")
	assert.Error(t, err)
}
