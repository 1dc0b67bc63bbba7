package loading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spaghettifunk/character-studio/engine/containers"
	"github.com/spaghettifunk/character-studio/engine/core"
	"github.com/spaghettifunk/character-studio/engine/math"
	"github.com/spaghettifunk/character-studio/engine/metadata"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/spaghettifunk/character-studio/engine/loading"

// Backend fetches and decodes single assets. *assets.AssetManager satisfies it.
type Backend interface {
	LoadModel(ctx context.Context, location string, progress metadata.ProgressFunc) (*metadata.Model, error)
	LoadTexture(ctx context.Context, location string, progress metadata.ProgressFunc) (*metadata.Texture, error)
}

type Options struct {
	// OnProgress receives a non-decreasing percentage in [0, 100].
	OnProgress func(percent float64)
	// FailureHistory bounds RecentFailures.
	FailureHistory int
	Metrics        *core.Metrics
}

/**
 * @brief Loads every asset referenced by a batch of load requests
 * concurrently and hands the results back in request order.
 */
type TraitLoadingManager struct {
	backend Backend
	opts    Options

	batchMu  sync.Mutex
	loading  atomic.Bool
	clock    *core.Clock
	metrics  *core.Metrics
	failures *containers.RingQueue[*core.AssetFetchError]
	tracer   trace.Tracer

	slot func(ctx context.Context, req metadata.LoadRequest, tracker *progressTracker, span trace.Span) *metadata.LoadedData
}

func NewTraitLoadingManager(backend Backend, opts Options) (*TraitLoadingManager, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: loading manager needs a backend", core.ErrConfiguration)
	}
	if opts.FailureHistory <= 0 {
		opts.FailureHistory = 32
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = core.NewMetrics()
	}
	m := &TraitLoadingManager{
		backend:  backend,
		opts:     opts,
		clock:    core.NewClock(),
		metrics:  metrics,
		failures: containers.NewRingQueue[*core.AssetFetchError](opts.FailureHistory),
		tracer:   otel.Tracer(tracerName),
	}
	m.slot = m.loadSlot
	return m, nil
}

// IsLoading reports whether a batch is in flight.
func (m *TraitLoadingManager) IsLoading() bool {
	return m.loading.Load()
}

// RecentFailures returns the last asset fetch failures, oldest first.
func (m *TraitLoadingManager) RecentFailures() []*core.AssetFetchError {
	return m.failures.Items()
}

func (m *TraitLoadingManager) Metrics() *core.Metrics {
	return m.metrics
}

// LoadBatch resolves one LoadedData per request, in request order. A nil
// option resolves to nil. Asset failures leave nil handles and never fail the
// batch; a slot that fails as a whole resolves to an aborted item. A second
// caller waits for the batch in flight to settle.
func (m *TraitLoadingManager) LoadBatch(ctx context.Context, requests []metadata.LoadRequest) []*metadata.LoadedData {
	m.batchMu.Lock()
	defer m.batchMu.Unlock()
	m.loading.Store(true)
	defer m.loading.Store(false)

	batchID := uuid.New()
	ctx, span := m.tracer.Start(ctx, "loading.batch", trace.WithAttributes(
		attribute.String("batch.id", batchID.String()),
		attribute.Int("batch.size", len(requests)),
	))
	defer span.End()
	logger := core.LogWith("batch", batchID.String()[:8])

	m.clock.Start()
	tracker := newProgressTracker(m.opts.OnProgress)

	results := make([]*metadata.LoadedData, len(requests))
	var g errgroup.Group
	for i := range requests {
		i, req := i, requests[i]
		if req.Option == nil {
			continue
		}
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("trait slot panicked", "group", req.GroupID, "panic", r)
					span.AddEvent("slot.panic", trace.WithAttributes(attribute.String("group", req.GroupID)))
					results[i] = metadata.NewAborted(req.GroupID, req.Option)
				}
			}()
			results[i] = m.slot(ctx, req, tracker, span)
			return nil
		})
	}
	_ = g.Wait()

	tracker.finish()
	m.clock.Stop()

	loaded, failed := 0, 0
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Aborted {
			failed++
			continue
		}
		f := r.FailedCount()
		failed += f
		loaded += len(r.Models) + len(r.Textures) - f
	}
	m.metrics.RecordBatch(m.clock.Elapsed(), loaded, failed)

	span.SetAttributes(attribute.Int("assets.loaded", loaded), attribute.Int("assets.failed", failed))
	if failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d assets failed", failed))
	}
	logger.Debug("batch settled", "requests", len(requests), "loaded", loaded, "failed", failed, "elapsed", m.clock.Elapsed())
	return results
}

// loadSlot fans out every model, texture and colour of one request and waits
// for all of them.
func (m *TraitLoadingManager) loadSlot(ctx context.Context, req metadata.LoadRequest, tracker *progressTracker, span trace.Span) *metadata.LoadedData {
	modelURLs := req.Option.ModelURLs()
	textureURLs := req.Option.TextureURLs()

	out := &metadata.LoadedData{
		GroupID:  req.GroupID,
		Source:   req.Option,
		Models:   make([]*metadata.Model, len(modelURLs)),
		Textures: make([]*metadata.Texture, len(textureURLs)),
	}

	var g errgroup.Group
	for i, location := range modelURLs {
		i, location := i, location
		g.Go(func() error {
			defer m.recoverAsset(location, core.AssetKindModel, span)
			model, err := m.backend.LoadModel(ctx, location, tracker.asset())
			if err != nil {
				m.recordFailure(location, core.AssetKindModel, err, span)
				return nil
			}
			out.Models[i] = model
			return nil
		})
	}
	for i, location := range textureURLs {
		i, location := i, location
		g.Go(func() error {
			defer m.recoverAsset(location, core.AssetKindTexture, span)
			tex, err := m.backend.LoadTexture(ctx, location, tracker.asset())
			if err != nil {
				m.recordFailure(location, core.AssetKindTexture, err, span)
				return nil
			}
			out.Textures[i] = tex
			return nil
		})
	}
	_ = g.Wait()
	out.Colors = parseColors(req.GroupID, req.Option.ColorValues())
	return out
}

// recoverAsset turns a decoder panic into an ordinary asset failure.
func (m *TraitLoadingManager) recoverAsset(location string, kind core.AssetKind, span trace.Span) {
	if r := recover(); r != nil {
		m.recordFailure(location, kind, fmt.Errorf("panic: %v", r), span)
	}
}

func (m *TraitLoadingManager) recordFailure(location string, kind core.AssetKind, err error, span trace.Span) {
	var fetchErr *core.AssetFetchError
	if !errors.As(err, &fetchErr) {
		fetchErr = core.NewAssetFetchError(location, kind, err)
	}
	m.failures.Push(fetchErr)
	span.AddEvent("asset.failed", trace.WithAttributes(
		attribute.String("asset.url", location),
		attribute.String("asset.kind", kind.String()),
	))
	core.LogError("%v", fetchErr)
}

func parseColors(groupID string, values []string) []math.Color {
	if len(values) == 0 {
		return nil
	}
	colors := make([]math.Color, 0, len(values))
	for _, v := range values {
		c, err := math.ParseHexColor(v)
		if err != nil {
			core.LogWarn("group %s: skipping colour %q: %v", groupID, v, err)
			continue
		}
		colors = append(colors, c)
	}
	return colors
}
