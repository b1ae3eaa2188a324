// Package packaging hands finished audio to an external tagging process.
package packaging

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

// Metadata identifies the item being packaged.
type Metadata struct {
	TrackID      string
	Title        string
	GroupName    string
	CoverURL     string
	Contributors []string
}

// Packager embeds metadata into finished audio and writes the destination
// file. Implementations may be swapped or stubbed.
type Packager interface {
	Package(ctx context.Context, audio []byte, ext string, meta Metadata, destPath string) error
}

// HandlerConfig is one packager entry from the configuration.
type HandlerConfig struct {
	Extension string
	Settings  map[string]any
}

// execSettings are the decoded settings of an exec handler.
type execSettings struct {
	Command string `mapstructure:"command"`
}

// ExecPackager spawns a per-extension external command, passes identifying
// metadata as arguments and streams the audio over stdin.
type ExecPackager struct {
	commands map[string]string
}

// NewExec creates an ExecPackager from configured handlers.
func NewExec(handlers []HandlerConfig) (*ExecPackager, error) {
	commands := make(map[string]string, len(handlers))
	for i, h := range handlers {
		var settings execSettings
		if err := mapstructure.Decode(h.Settings, &settings); err != nil {
			return nil, errors.Wrapf(err, "failed to decode packager settings (index %d, extension %s)", i, h.Extension)
		}
		if settings.Command == "" {
			return nil, errors.Newf("packager for extension %s has no command", h.Extension)
		}
		commands[h.Extension] = settings.Command
		zlog.Debug().Msgf("registered packager: extension=%s command=%s", h.Extension, settings.Command)
	}
	return &ExecPackager{commands: commands}, nil
}

// Package invokes the handler for ext.
// Argument order is part of the handler contract:
// [track_id, title, group_name, dest_path, cover_url, contributors...].
// A non-zero exit is a failure.
func (p *ExecPackager) Package(ctx context.Context, audio []byte, ext string, meta Metadata, destPath string) error {
	command, ok := p.commands[ext]
	if !ok {
		return errors.Newf("no packager for extension %s", ext)
	}

	args := append([]string{meta.TrackID, meta.Title, meta.GroupName, destPath, meta.CoverURL}, meta.Contributors...)
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdin = bytes.NewReader(audio)

	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Wrapf(err, "packager %s failed: %s", command, bytes.TrimSpace(out))
	}
	return nil
}
