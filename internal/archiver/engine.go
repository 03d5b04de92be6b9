// Package archiver runs the segmentation cycle: record a segment up to the
// close point padding seconds before the next grid boundary, classify it,
// and record the padding across the boundary that both closes the kept file
// and seeds the next segment's overlap.
package archiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/maauso/wcfm-archiver/internal/audio"
	"github.com/maauso/wcfm-archiver/internal/boundary"
	"github.com/maauso/wcfm-archiver/internal/metrics"
	"github.com/maauso/wcfm-archiver/internal/naming"
	"github.com/maauso/wcfm-archiver/internal/retention"
	"github.com/maauso/wcfm-archiver/internal/runid"
	"github.com/maauso/wcfm-archiver/internal/segment"
	"github.com/maauso/wcfm-archiver/internal/storage"
)

// State is the engine's position in the cycle.
type State string

const (
	// StateColdStart is the state before the first segment begins.
	StateColdStart State = "COLD_START"
	// StateRecording means live audio is streaming into the current segment.
	StateRecording State = "RECORDING"
	// StateClassifying means the finished segment is being kept or discarded.
	StateClassifying State = "CLASSIFYING"
	// StatePadding means the overlap for the next segment is being captured.
	StatePadding State = "PADDING"
	// StateStopped is terminal.
	StateStopped State = "STOPPED"
)

// ErrTooManyWriteFailures is returned when archive files keep failing to be
// created or written.
var ErrTooManyWriteFailures = errors.New("archiver: too many consecutive write failures")

// Journal records archived segments.
type Journal interface {
	Record(name string, at time.Time) error
}

// Settings are the cycle parameters.
type Settings struct {
	Interval  boundary.Interval
	Prefix    string
	Threshold int64
}

// Engine owns all cycle state: the overlap buffer, the naming counter and
// the open archive file. It is driven by a single goroutine.
type Engine struct {
	settings   Settings
	source     audio.Source
	store      storage.Storage
	ledger     *retention.Ledger
	recorder   *segment.Recorder
	classifier segment.Classifier
	resolver   *naming.Resolver
	clock      boundary.Clock
	journal    Journal
	metrics    *metrics.Metrics
	logger     *slog.Logger
	runID      string

	location    *time.Location
	queueBlocks int
	maxFailures int
	failures    int

	mu      sync.Mutex
	state   State
	overlap *segment.OverlapBuffer
}

// Option is a function that configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used for boundaries and file names.
func WithClock(c boundary.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithJournal sets the segment log.
func WithJournal(j Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLocation sets the time zone used for file names.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		e.location = loc
	}
}

// WithWriteQueue decouples file writes from capture with a queue of n
// blocks. Zero writes synchronously.
func WithWriteQueue(n int) Option {
	return func(e *Engine) {
		e.queueBlocks = n
	}
}

// WithMaxWriteFailures sets how many consecutive segments may fail to be
// written before Run gives up.
func WithMaxWriteFailures(n int) Option {
	return func(e *Engine) {
		e.maxFailures = n
	}
}

// NewEngine creates an Engine that archives audio from source into store.
func NewEngine(settings Settings, source audio.Source, store storage.Storage, ledger *retention.Ledger, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		settings:    settings,
		source:      source,
		store:       store,
		ledger:      ledger,
		classifier:  segment.Classifier{Threshold: settings.Threshold},
		clock:       boundary.SystemClock{},
		location:    time.Local,
		maxFailures: 3,
		state:       StateColdStart,
		overlap:     segment.NewOverlapBuffer(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.metrics == nil {
		e.metrics = metrics.New(prometheus.NewRegistry())
	}
	e.recorder = segment.NewRecorder(source, e.clock)
	e.resolver = naming.NewResolver(settings.Prefix, e.location)
	e.runID = runid.Generate(e.clock.Now())
	e.logger = runid.Logger(logger, e.runID)
	return e
}

// RunID returns the identifier attached to this engine's logs.
func (e *Engine) RunID() string {
	return e.runID
}

// State returns the current cycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Overlap returns the overlap buffer that will lead the next segment.
func (e *Engine) Overlap() *segment.OverlapBuffer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.overlap
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
	e.metrics.SetState(string(s))
}

func (e *Engine) setOverlap(b *segment.OverlapBuffer) {
	e.mu.Lock()
	e.overlap = b
	e.mu.Unlock()
}

// Run archives segments until ctx is cancelled or a fatal error occurs.
// Cancellation is a normal stop and returns nil. The audio source is closed
// before Run returns.
func (e *Engine) Run(ctx context.Context) (err error) {
	e.setState(StateColdStart)
	e.metrics.ArchivedFiles.Set(float64(len(e.ledger.Files())))

	defer func() {
		if cerr := e.source.Close(); cerr != nil {
			e.logger.Warn("failed to close audio source", slog.String("error", cerr.Error()))
		}
		e.setState(StateStopped)
		if err != nil {
			e.logger.Error("archiver stopped", slog.String("error", err.Error()))
			return
		}
		e.logger.Info("archiver stopped")
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		stopped, err := e.cycle(ctx)
		if err != nil {
			return err
		}
		if stopped {
			return nil
		}
	}
}

// cycle runs one RECORDING, CLASSIFYING, PADDING pass.
func (e *Engine) cycle(ctx context.Context) (stopped bool, err error) {
	now := e.clock.Now()
	end, closeAt := e.settings.Interval.NextClose(now)

	name, err := e.resolver.Resolve(now, e.store.Exists)
	if err != nil {
		return false, fmt.Errorf("resolve file name: %w", err)
	}

	seg := segment.New(name, now, closeAt)
	log := e.logger.With(slog.String("segment", name))

	sink, created := e.openSink(ctx, seg, log)

	e.setState(StateRecording)
	log.Info("recording segment",
		slog.Time("close", closeAt),
		slog.Time("end", end),
		slog.Int("overlap_blocks", e.Overlap().Len()),
	)

	outcome, err := e.recorder.Record(ctx, seg, sink, e.Overlap())
	e.metrics.BlocksCaptured.Add(float64(seg.Blocks))
	if err != nil {
		_ = e.closeSink(sink, log)
		return false, err
	}
	if outcome == segment.OutcomeStopped {
		if e.closeSink(sink, log) == nil && created {
			log.Info("stopped mid-recording, partial file left on disk",
				slog.Int("blocks", seg.Blocks),
			)
		}
		return true, nil
	}

	e.setState(StateClassifying)
	kept, err := e.classify(ctx, seg, sink, created, log)
	if err != nil {
		return false, err
	}

	e.setState(StatePadding)
	var tail audio.Writer
	if kept {
		tail = sink
	}

	res, err := e.recorder.Pad(ctx, e.settings.Interval.PaddingPoint(end), tail)
	e.setOverlap(res.Overlap)
	e.metrics.BlocksCaptured.Add(float64(res.Overlap.Len()))
	if kept {
		e.finishKept(ctx, name, sink, res.WriteErr, log)
	}
	if err != nil {
		return false, err
	}
	return res.Outcome == segment.OutcomeStopped, nil
}

// openSink creates the archive file for seg. On failure the segment is
// marked failed and recorded without a file so the grid stays aligned.
func (e *Engine) openSink(ctx context.Context, seg *segment.Segment, log *slog.Logger) (audio.Writer, bool) {
	f, err := e.store.Create(ctx, seg.Name)
	if err != nil {
		seg.Fail(err)
		log.Error("failed to create archive file", slog.String("error", err.Error()))
		return nil, false
	}

	w, err := audio.NewWAVWriter(f, e.source.Format())
	if err != nil {
		_ = f.Close()
		seg.Fail(err)
		log.Error("failed to start archive file", slog.String("error", err.Error()))
		return nil, true
	}

	if e.queueBlocks > 0 {
		return audio.NewQueuedWriter(w, e.queueBlocks), true
	}
	return w, true
}

func (e *Engine) closeSink(sink audio.Writer, log *slog.Logger) error {
	if sink == nil {
		return nil
	}
	if err := sink.Close(); err != nil {
		log.Warn("failed to close archive file", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// classify finalizes seg. A kept segment is admitted to the ledger and
// journaled with its file left open for padding. A discarded one has its
// file closed and deleted.
func (e *Engine) classify(ctx context.Context, seg *segment.Segment, sink audio.Writer, created bool, log *slog.Logger) (bool, error) {
	state, err := e.classifier.Classify(seg, e.clock.Now())
	if err != nil {
		return false, fmt.Errorf("classify segment: %w", err)
	}

	if state == segment.StateKept {
		e.failures = 0
		e.metrics.RecordKept(seg.Peak)

		ev := e.ledger.Admit(context.WithoutCancel(ctx), seg.Name)
		if ev.Name != "" {
			e.metrics.RecordEviction(ev.Err)
		}
		e.metrics.ArchivedFiles.Set(float64(len(e.ledger.Files())))

		if e.journal != nil {
			if err := e.journal.Record(seg.Name, seg.FinalizedAt.In(e.location)); err != nil {
				e.metrics.JournalFailures.Inc()
				log.Warn("failed to write segment log", slog.String("error", err.Error()))
			}
		}

		log.Info("segment kept",
			slog.Int64("peak", seg.Peak),
			slog.Int64("threshold", e.settings.Threshold),
			slog.String("evicted", ev.Name),
		)
		return true, nil
	}

	failed := seg.Err() != nil
	e.metrics.RecordDiscarded(seg.Peak, failed)
	_ = e.closeSink(sink, log)
	if created {
		if err := e.store.Remove(context.WithoutCancel(ctx), seg.Name); err != nil {
			e.metrics.DeleteFailures.Inc()
			log.Warn("failed to delete discarded file", slog.String("error", err.Error()))
		}
	}

	if !failed {
		e.failures = 0
		log.Info("segment discarded as silence",
			slog.Int64("peak", seg.Peak),
			slog.Int64("threshold", e.settings.Threshold),
		)
		return false, nil
	}

	e.failures++
	e.metrics.WriteFailures.Inc()
	log.Error("segment discarded after write failure",
		slog.String("error", seg.Err().Error()),
		slog.Int("consecutive_failures", e.failures),
	)
	if e.failures > e.maxFailures {
		return false, fmt.Errorf("%w: %d: %v", ErrTooManyWriteFailures, e.failures, seg.Err())
	}
	return false, nil
}

// finishKept closes a kept file after its padding tail and publishes it.
func (e *Engine) finishKept(ctx context.Context, name string, sink audio.Writer, padErr error, log *slog.Logger) {
	closeErr := e.closeSink(sink, log)
	if padErr != nil || closeErr != nil {
		e.metrics.WriteFailures.Inc()
		if padErr != nil {
			log.Warn("archive file padding incomplete", slog.String("error", padErr.Error()))
		}
		return
	}

	if info, err := os.Stat(e.store.Path(name)); err == nil {
		e.metrics.RecordArchived(info.Size())
	}

	location, err := e.store.Publish(context.WithoutCancel(ctx), name)
	switch {
	case errors.Is(err, storage.ErrS3NotConfigured):
	case err != nil:
		e.metrics.RecordPublish(err)
		log.Warn("failed to publish archive file", slog.String("error", err.Error()))
	default:
		e.metrics.RecordPublish(nil)
		log.Info("archive file published", slog.String("location", location))
	}
}
