package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jgoulah/binpusher/internal/sensor"
	"github.com/jgoulah/binpusher/pkg/models"
)

// Store is the remote document store the loop publishes to
type Store interface {
	PutBinStatus(ctx context.Context, status models.BinStatus) error
	PushWasteLog(ctx context.Context, entry models.WasteLogEntry) (string, error)
}

// Mirror receives a copy of every published cycle (e.g. an MQTT broker)
type Mirror interface {
	Mirror(ctx context.Context, status models.BinStatus, entry models.WasteLogEntry) error
}

// Journal keeps a local record of each sampled cycle
type Journal interface {
	InsertCycle(cycle *models.Cycle) error
}

// Config is fixed for the lifetime of a Loop
type Config struct {
	BinID     string
	BinHeight float64 // centimeters
	Interval  time.Duration
}

// Loop samples the sensors, derives the bin state and publishes it once per interval
type Loop struct {
	cfg        Config
	sensors    sensor.SensorSource
	classifier sensor.Classifier
	store      Store
	mirror     Mirror
	journal    Journal
	out        io.Writer

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

// Option customizes a Loop
type Option func(*Loop)

// WithMirror copies every published cycle to m
func WithMirror(m Mirror) Option {
	return func(l *Loop) { l.mirror = m }
}

// WithJournal records every sampled cycle in j
func WithJournal(j Journal) Option {
	return func(l *Loop) { l.journal = j }
}

// WithOutput sends progress and error lines to w instead of stdout
func WithOutput(w io.Writer) Option {
	return func(l *Loop) { l.out = w }
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// New creates a telemetry loop
func New(cfg Config, sensors sensor.SensorSource, classifier sensor.Classifier, store Store, opts ...Option) *Loop {
	l := &Loop{
		cfg:        cfg,
		sensors:    sensors,
		classifier: classifier,
		store:      store,
		out:        os.Stdout,
		now:        time.Now,
		wait:       sleep,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run executes cycles until ctx is cancelled. A failed cycle is reported and
// abandoned; the wait before the next cycle is the same either way.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cycle, err := l.Cycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(l.out, "Error: %v\n", err)
		} else {
			l.Report(cycle)
		}

		if err := l.wait(ctx, l.cfg.Interval); err != nil {
			return err
		}
	}
}

// Report writes the progress line for a published cycle
func (l *Loop) Report(cycle *models.Cycle) {
	fmt.Fprintf(l.out, "[%s] Pushed: Level=%d%%, Type=%s\n",
		cycle.Status.LastUpdated, cycle.Status.FillLevel, cycle.Log.WasteType)
}

// Cycle performs one sample-derive-publish pass. The returned cycle is nil when
// sampling failed, otherwise it describes what was (or failed to be) published.
func (l *Loop) Cycle(ctx context.Context) (*models.Cycle, error) {
	distance, weight, wasteType, confidence, err := l.sample(ctx)
	if err != nil {
		return nil, err
	}

	// Derived once and shared by both records
	sampledAt := l.now()
	timestamp := FormatTimestamp(sampledAt)
	fill := FillLevel(distance, l.cfg.BinHeight)

	cycle := &models.Cycle{
		ID:        uuid.NewString(),
		SampledAt: sampledAt,
		Status: models.BinStatus{
			HouseID:     l.cfg.BinID,
			FillLevel:   fill,
			LastUpdated: timestamp,
			Status:      StatusFor(fill),
		},
		Log: models.WasteLogEntry{
			HouseID:      l.cfg.BinID,
			WasteType:    wasteType,
			Weight:       RoundWeight(weight),
			Timestamp:    timestamp,
			FillLevel:    fill,
			MLConfidence: confidence,
		},
	}

	if err := l.publish(ctx, cycle); err != nil {
		cycle.Error = err.Error()
		l.record(cycle)
		return cycle, err
	}

	cycle.Published = true
	if l.mirror != nil {
		if err := l.mirror.Mirror(ctx, cycle.Status, cycle.Log); err != nil {
			fmt.Fprintf(l.out, "Warning: mirroring cycle %s failed: %v\n", cycle.ID, err)
		}
	}
	l.record(cycle)
	return cycle, nil
}

func (l *Loop) sample(ctx context.Context) (distance, weight float64, wasteType models.WasteType, confidence int, err error) {
	if distance, err = l.sensors.Distance(ctx); err != nil {
		return 0, 0, "", 0, fmt.Errorf("reading distance sensor: %w", err)
	}
	if err = sensor.CheckReading("distance", distance); err != nil {
		return 0, 0, "", 0, err
	}
	if weight, err = l.sensors.Weight(ctx); err != nil {
		return 0, 0, "", 0, fmt.Errorf("reading weight sensor: %w", err)
	}
	if err = sensor.CheckReading("weight", weight); err != nil {
		return 0, 0, "", 0, err
	}
	if wasteType, confidence, err = l.classifier.Classify(ctx); err != nil {
		return 0, 0, "", 0, fmt.Errorf("classifying waste: %w", err)
	}
	if !wasteType.Valid() {
		return 0, 0, "", 0, fmt.Errorf("classifying waste: unknown waste type %q", wasteType)
	}
	if confidence < 0 || confidence > 100 {
		return 0, 0, "", 0, fmt.Errorf("classifying waste: confidence %d out of range", confidence)
	}
	return distance, weight, wasteType, confidence, nil
}

func (l *Loop) publish(ctx context.Context, cycle *models.Cycle) error {
	if err := l.store.PutBinStatus(ctx, cycle.Status); err != nil {
		return fmt.Errorf("updating bin status: %w", err)
	}

	key, err := l.store.PushWasteLog(ctx, cycle.Log)
	if err != nil {
		return fmt.Errorf("appending waste log: %w", err)
	}
	cycle.LogKey = key
	return nil
}

func (l *Loop) record(cycle *models.Cycle) {
	if l.journal == nil {
		return
	}
	if err := l.journal.InsertCycle(cycle); err != nil {
		fmt.Fprintf(l.out, "Warning: failed to journal cycle %s: %v\n", cycle.ID, err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
