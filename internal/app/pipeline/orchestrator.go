package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/okabe3/trackbox/internal/app/loader"
	"github.com/okabe3/trackbox/internal/app/packaging"
	"github.com/okabe3/trackbox/internal/domain/item"
	"github.com/okabe3/trackbox/internal/infra/report"
)

// TrackLoader loads one item into decrypted audio.
type TrackLoader interface {
	Load(ctx context.Context, id item.ID) (*loader.LoadedTrack, error)
}

// FailureJournal records abandoned items. Implementations must tolerate
// being called once per failure; errors are logged, never propagated.
type FailureJournal interface {
	Record(ctx context.Context, f report.Failure) error
}

// Config holds the orchestrator's tunables.
type Config struct {
	// BasePath is the root of the produced directory tree.
	BasePath string
	// Pacing is the delay between items within one group.
	Pacing time.Duration
	// PenaltyStep is added to the backoff delay on each key denial.
	PenaltyStep time.Duration
	// PenaltyCeiling aborts the run once the cumulative delay passes it.
	PenaltyCeiling time.Duration
}

// Orchestrator walks grouped identifiers and drives one download at a time,
// pacing requests and backing off on the service's penalty signal.
type Orchestrator struct {
	cfg      Config
	resolver *Resolver
	loader   TrackLoader
	packager packaging.Packager
	journal  FailureJournal
	store    *GroupingStore

	runID        string
	penalty      time.Duration
	penaltyTotal time.Duration
	sleep        func(ctx context.Context, d time.Duration)
}

// NewOrchestrator creates an Orchestrator. journal may be nil.
func NewOrchestrator(cfg Config, resolver *Resolver, ldr TrackLoader, packager packaging.Packager, journal FailureJournal) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		resolver: resolver,
		loader:   ldr,
		packager: packager,
		journal:  journal,
		store:    NewGroupingStore(),
		runID:    uuid.NewString(),
		sleep:    sleepContext,
	}
}

// RunID identifies this orchestrator run in logs and the failure journal.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// IngestLine parses one input line and merges its resolved members into the
// grouping store. Lines without a recognized identifier are skipped silently.
func (o *Orchestrator) IngestLine(ctx context.Context, line string) error {
	id, ok := item.Parse(line)
	if !ok {
		return nil
	}

	key, members, err := o.resolver.Resolve(ctx, id)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}

	o.store.Ingest(key, members)
	zlog.Debug().Msgf("ingested %s: %d member(s) under %s", id.URI(), len(members), key)
	return nil
}

// Process drains the grouping store and downloads every member, group by
// group. It returns an error only when the backoff ceiling is exceeded;
// every other failure is logged, journaled and skipped.
func (o *Orchestrator) Process(ctx context.Context) error {
	if o.store.Empty() {
		zlog.Warn().Msg("No items to process")
		return nil
	}

	groups := o.store.Drain()
	zlog.Info().Msgf("processing %d group(s), run %s", len(groups), o.runID)

	for key, members := range groups {
		if len(members) == 0 {
			continue
		}

		dir := filepath.Join(o.cfg.BasePath, filepath.FromSlash(key))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			zlog.Error().Msgf("Cannot create directory for group %s: %v. Skipping group", key, err)
			o.record(ctx, item.ID{}, key, "io", err)
			continue
		}

		for i, id := range members {
			if err := o.processItem(ctx, id, key, dir); err != nil {
				return err
			}
			if i != len(members)-1 {
				o.sleep(ctx, o.cfg.Pacing)
			}
		}
	}
	return nil
}

// processItem retries a single item until it succeeds or fails terminally.
// Key denial is the service telling us to slow down: the penalty delay grows
// by a fixed step each time and the same item is retried after sleeping it.
// Once the cumulative slept delay passes the ceiling the whole run aborts,
// since by then the session is being treated as abusive and waiting longer
// will not help. Every other failure kind is not recoverable by waiting, so
// the item is abandoned.
func (o *Orchestrator) processItem(ctx context.Context, id item.ID, key, dir string) error {
	for {
		err := o.saveItem(ctx, id, key, dir)
		if err == nil {
			o.penalty = 0
			o.penaltyTotal = 0
			return nil
		}

		var lerr *loader.Error
		if errors.As(err, &lerr) && lerr.Kind == loader.KindKeyDenied {
			if o.penaltyTotal > o.cfg.PenaltyCeiling {
				return errors.Wrapf(err, "cumulative penalty delay %s exceeds ceiling, aborting run", o.penaltyTotal)
			}
			o.penalty += o.cfg.PenaltyStep
			zlog.Warn().Msgf("Audio key denied for %s. Waiting %s and retrying", id.URI(), o.penalty)
			o.sleep(ctx, o.penalty)
			o.penaltyTotal += o.penalty
			continue
		}

		kind := "error"
		if errors.As(err, &lerr) {
			kind = lerr.Kind.String()
		}
		zlog.Error().Msgf("Abandoning %s: %v", id.URI(), err)
		o.record(ctx, id, key, kind, err)
		return nil
	}
}

// saveItem performs one full load-and-save attempt.
func (o *Orchestrator) saveItem(ctx context.Context, id item.ID, key, dir string) error {
	lt, err := o.loader.Load(ctx, id)
	if err != nil {
		return err
	}

	ext := lt.Encoding.Extension()
	if ext == "" {
		return &loader.Error{Kind: loader.KindUnsupportedFormat, Item: id,
			Err: errors.Newf("no container extension for encoding %s", lt.Encoding)}
	}

	cover := lt.Item.Cover()
	if cover == "" {
		return errors.Newf("no covers available for %s", id.URI())
	}

	contributors := lt.Item.Contributors()
	name := Sanitize(lt.Item.Name + " - " + strings.Join(contributors, ", "))
	dest := filepath.Join(dir, name+"."+ext)

	if _, err := os.Stat(dest); err == nil {
		zlog.Warn().Msgf("File '%s' already exists. Skipping", dest)
		return nil
	}

	meta := packaging.Metadata{
		TrackID:      id.Value,
		Title:        lt.Item.Name,
		GroupName:    lt.Item.GroupName(),
		CoverURL:     cover,
		Contributors: contributors,
	}
	if err := o.packager.Package(ctx, lt.Audio, ext, meta, dest); err != nil {
		zlog.Warn().Msgf("Packager failed for %s: %v. Saving file without metadata", id.URI(), err)
		if werr := os.WriteFile(dest, lt.Audio, 0o644); werr != nil {
			return &loader.Error{Kind: loader.KindIO, Item: id, Err: werr}
		}
	}
	return nil
}

// record writes one abandoned failure to the journal, if one is configured.
func (o *Orchestrator) record(ctx context.Context, id item.ID, key, kind string, cause error) {
	if o.journal == nil {
		return
	}
	uri := ""
	if id != (item.ID{}) {
		uri = id.URI()
	}
	f := report.Failure{
		RunID:    o.runID,
		Item:     uri,
		GroupKey: key,
		Kind:     kind,
		Detail:   cause.Error(),
	}
	if err := o.journal.Record(ctx, f); err != nil {
		zlog.Warn().Msgf("Failed to journal failure for %s: %v", uri, err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
