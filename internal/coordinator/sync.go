// Package coordinator turns admin product records into the published shop
// catalog. A run is a short saga of steps (prepare, publish) retried as a
// whole with exponential backoff. Runs never overlap.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/jcmexdev/bakery-storefront/internal/catalog/catalogcache"
	"github.com/jcmexdev/bakery-storefront/internal/catalog/domain"
	"github.com/jcmexdev/bakery-storefront/internal/catalog/mappers"
	"github.com/jcmexdev/bakery-storefront/internal/coordinator/synclog"
)

// ErrNoProducts is reported when a full sync finds no active product. An
// empty catalog is far more likely an upstream mistake than intended.
var ErrNoProducts = errors.New("No products to sync")

var tracer = otel.Tracer("github.com/jcmexdev/bakery-storefront/internal/coordinator")

type Counts = synclog.Counts

// SnapshotMirror receives the catalog before it is swapped into the cache.
type SnapshotMirror interface {
	Save(ctx context.Context, s catalogcache.Snapshot) error
}

// SyncResult is the structured outcome of a run. Success means the cache
// now serves the result; Errors may be non-empty on success when single
// products were skipped.
type SyncResult struct {
	RunID   string   `json:"runId"`
	Success bool     `json:"success"`
	Added   int      `json:"added"`
	Updated int      `json:"updated"`
	Removed int      `json:"removed"`
	Errors  []string `json:"errors"`
}

// ChangeKind names the admin mutation behind a single product sync.
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ProductChange is one admin mutation.
type ProductChange struct {
	Kind    ChangeKind
	Product domain.AdminProduct
}

// SyncCoordinator owns every write to the catalog cache.
type SyncCoordinator struct {
	cache    *catalogcache.Cache
	mirror   SnapshotMirror
	logRepo  synclog.Repository
	retry    RetryPolicy
	inFlight *semaphore.Weighted
	newRunID func() string
}

type Option func(*SyncCoordinator)

// WithMirror publishes every catalog to m before swapping it in.
func WithMirror(m SnapshotMirror) Option {
	return func(s *SyncCoordinator) { s.mirror = m }
}

// WithSyncLog records every run transition. Nil disables logging.
func WithSyncLog(repo synclog.Repository) Option {
	return func(s *SyncCoordinator) { s.logRepo = repo }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *SyncCoordinator) { s.retry = p }
}

func NewSyncCoordinator(cache *catalogcache.Cache, opts ...Option) *SyncCoordinator {
	s := &SyncCoordinator{
		cache:    cache,
		retry:    DefaultRetryPolicy,
		inFlight: semaphore.NewWeighted(1),
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncAll republishes the whole catalog from the given admin products. A call
// made while another run is in flight waits for it to finish.
func (s *SyncCoordinator) SyncAll(ctx context.Context, products []domain.AdminProduct) (res SyncResult) {
	runID := s.newRunID()
	ctx, span := tracer.Start(ctx, "catalog.sync_all", trace.WithAttributes(
		attribute.String("sync.run_id", runID),
		attribute.Int("sync.input_products", len(products)),
	))
	defer func() { endSpan(span, res) }()

	if err := s.inFlight.Acquire(ctx, 1); err != nil {
		return failure(runID, fmt.Errorf("waiting for running sync: %w", err))
	}
	defer s.inFlight.Release(1)

	active := make([]domain.AdminProduct, 0, len(products))
	for _, p := range products {
		if p.IsActive {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		s.record(ctx, runID, synclog.KindFull, synclog.StatusRejected, 0, Counts{}, []string{ErrNoProducts.Error()})
		slog.WarnContext(ctx, "full sync rejected", "run_id", runID, "reason", ErrNoProducts)
		return failure(runID, ErrNoProducts)
	}

	s.record(ctx, runID, synclog.KindFull, synclog.StatusStarted, 0, Counts{}, nil)
	slog.InfoContext(ctx, "full sync started", "run_id", runID, "active_products", len(active))

	var (
		prepare *PrepareCatalogStep
		publish *PublishCatalogStep
	)
	err := s.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		prepare = NewPrepareCatalogStep(active)
		publish = NewPublishCatalogStep(s.cache, s.mirror, prepare)
		err := NewOrchestrator(prepare, publish).Start(ctx)
		if err != nil && !isPermanent(err) {
			s.record(ctx, runID, synclog.KindFull, synclog.StatusAttemptFailed, attempt, Counts{}, []string{err.Error()})
			slog.WarnContext(ctx, "sync attempt failed", "run_id", runID, "attempt", attempt, "error", err)
		}
		return err
	})

	switch {
	case errors.Is(err, errNothingToPublish):
		s.record(ctx, runID, synclog.KindFull, synclog.StatusFailed, 0, Counts{}, prepare.itemErrs)
		slog.ErrorContext(ctx, "full sync found nothing publishable", "run_id", runID, "errors", len(prepare.itemErrs))
		return SyncResult{RunID: runID, Errors: prepare.itemErrs}
	case err != nil:
		s.record(ctx, runID, synclog.KindFull, synclog.StatusFailed, 0, Counts{}, []string{err.Error()})
		slog.ErrorContext(ctx, "full sync failed", "run_id", runID, "error", err)
		return failure(runID, err)
	}

	res = SyncResult{
		RunID:   runID,
		Success: true,
		Added:   publish.counts.Added,
		Updated: publish.counts.Updated,
		Removed: publish.counts.Removed,
		Errors:  nonNil(prepare.itemErrs),
	}
	s.record(ctx, runID, synclog.KindFull, synclog.StatusCompleted, 0, publish.counts, prepare.itemErrs)
	slog.InfoContext(ctx, "full sync completed",
		"run_id", runID,
		"added", res.Added,
		"updated", res.Updated,
		"removed", res.Removed,
		"skipped", len(res.Errors),
	)
	return res
}

// SyncProduct applies one admin mutation to the catalog without a full
// resync. Validation and transform failures leave the cache untouched and are
// never retried.
func (s *SyncCoordinator) SyncProduct(ctx context.Context, change ProductChange) (res SyncResult) {
	runID := s.newRunID()
	ctx, span := tracer.Start(ctx, "catalog.sync_product", trace.WithAttributes(
		attribute.String("sync.run_id", runID),
		attribute.String("product.id", change.Product.ID),
		attribute.String("product.change", string(change.Kind)),
	))
	defer func() { endSpan(span, res) }()

	if err := s.inFlight.Acquire(ctx, 1); err != nil {
		return failure(runID, fmt.Errorf("waiting for running sync: %w", err))
	}
	defer s.inFlight.Release(1)

	p := change.Product
	var step *PublishProductStep

	switch change.Kind {
	case ChangeDeleted:
		id, err := mappers.ParseCatalogID(p.ID)
		if err != nil {
			return s.reject(ctx, runID, (&mappers.TransformError{ProductID: p.ID, Err: err}).Error())
		}
		step = NewRemoveProductStep(s.cache, s.mirror, id)

	case ChangeCreated, ChangeUpdated:
		if err := domain.ValidateForCatalog(p); err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				return s.reject(ctx, runID, ve.Fields...)
			}
			return s.reject(ctx, runID, err.Error())
		}
		cake, err := mappers.CakeFromAdmin(p)
		if err != nil {
			return s.reject(ctx, runID, err.Error())
		}
		if existing, ok := s.cache.Get(cake.ID); ok && existing.SourceID != p.ID {
			return s.reject(ctx, runID, integrityError(cake.ID, existing.SourceID, p.ID).Error())
		}
		step = NewUpsertProductStep(s.cache, s.mirror, cake)

	default:
		return s.reject(ctx, runID, fmt.Sprintf("unknown change kind %q", change.Kind))
	}

	s.record(ctx, runID, synclog.KindProduct, synclog.StatusStarted, 0, Counts{}, nil)
	err := s.retry.Do(ctx, func(ctx context.Context, attempt int) error {
		err := NewOrchestrator(step).Start(ctx)
		if err != nil {
			s.record(ctx, runID, synclog.KindProduct, synclog.StatusAttemptFailed, attempt, Counts{}, []string{err.Error()})
		}
		return err
	})
	if err != nil {
		s.record(ctx, runID, synclog.KindProduct, synclog.StatusFailed, 0, Counts{}, []string{err.Error()})
		slog.ErrorContext(ctx, "product sync failed", "run_id", runID, "product_id", p.ID, "error", err)
		return failure(runID, err)
	}

	s.record(ctx, runID, synclog.KindProduct, synclog.StatusCompleted, 0, step.counts, nil)
	slog.InfoContext(ctx, "product synced", "run_id", runID, "product_id", p.ID, "kind", change.Kind)
	return SyncResult{
		RunID:   runID,
		Success: true,
		Added:   step.counts.Added,
		Updated: step.counts.Updated,
		Removed: step.counts.Removed,
		Errors:  []string{},
	}
}

func (s *SyncCoordinator) reject(ctx context.Context, runID string, msgs ...string) SyncResult {
	s.record(ctx, runID, synclog.KindProduct, synclog.StatusRejected, 0, Counts{}, msgs)
	slog.WarnContext(ctx, "product sync rejected", "run_id", runID, "errors", msgs)
	return SyncResult{RunID: runID, Errors: msgs}
}

func (s *SyncCoordinator) record(ctx context.Context, runID string, kind synclog.Kind, status synclog.Status, attempt int, counts Counts, errs []string) {
	if s.logRepo == nil {
		return
	}
	entry := synclog.NewEntry(ctx, runID, kind, status, attempt, counts, errs)
	if err := s.logRepo.Save(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "failed to write sync log", "run_id", runID, "status", status, "error", err)
	}
}

func endSpan(span trace.Span, res SyncResult) {
	span.SetAttributes(
		attribute.Bool("sync.success", res.Success),
		attribute.Int("sync.added", res.Added),
		attribute.Int("sync.updated", res.Updated),
		attribute.Int("sync.removed", res.Removed),
		attribute.Int("sync.errors", len(res.Errors)),
	)
	if !res.Success {
		msg := "sync failed"
		if len(res.Errors) > 0 {
			msg = res.Errors[0]
		}
		span.SetStatus(codes.Error, msg)
	}
	span.End()
}

func failure(runID string, err error) SyncResult {
	return SyncResult{RunID: runID, Errors: []string{err.Error()}}
}

func isPermanent(err error) bool {
	var perm *permanentError
	return errors.As(err, &perm)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
