// Package service orchestrates registry operations: capability checks,
// foreign-key validation, the indexed mutation, and the audit side channel,
// in that order. Queries bypass the gate entirely.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"onsd/internal/audit"
	"onsd/internal/platform/metrics"
	"onsd/internal/registry/access"
	"onsd/internal/registry/models"
	"onsd/pkg/domain"
	dErrors "onsd/pkg/domain-errors"
	"onsd/pkg/platform/sentinel"
)

// Store is the registry core the service drives. Implemented by
// store/memory; the interface keeps the orchestration testable against
// fakes.
type Store interface {
	AddCode(ctx context.Context, key domain.CodeKey) error
	DeleteCode(ctx context.Context, key domain.CodeKey) error
	HasCode(ctx context.Context, key domain.CodeKey) bool
	CodeCount(ctx context.Context) int
	ChildCount(ctx context.Context, key domain.CodeKey) (int, error)
	ChildAt(ctx context.Context, key domain.CodeKey, row int) (domain.RecordKey, error)

	AddRecord(ctx context.Context, rec models.ONSRecord) error
	DeleteRecord(ctx context.Context, key domain.RecordKey) (models.ONSRecord, error)
	HasRecord(ctx context.Context, key domain.RecordKey) bool
	RecordCount(ctx context.Context) int
	GetRecord(ctx context.Context, key domain.RecordKey) (models.ONSRecord, error)

	AddServiceType(ctx context.Context, st models.ServiceType) error
	DeleteServiceType(ctx context.Context, key domain.ServiceKey) error
	HasServiceType(ctx context.Context, key domain.ServiceKey) bool
	ServiceTypeCount(ctx context.Context) int
	GetServiceType(ctx context.Context, key domain.ServiceKey) (models.ServiceType, error)
	Documentation(ctx context.Context, key domain.ServiceKey, lang domain.LanguageCode) (string, error)

	Snapshot(ctx context.Context) models.Snapshot
	Restore(ctx context.Context, snap models.Snapshot) error
}

// AuditPublisher emits mutation events to the side channel.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// RecordCache sits on the record query path. All methods are best-effort;
// failures fall through to the store.
type RecordCache interface {
	Find(ctx context.Context, key domain.RecordKey) (models.ONSRecord, error)
	Save(ctx context.Context, rec models.ONSRecord) error
	Invalidate(ctx context.Context, key domain.RecordKey) error
}

// SnapshotStore persists registry snapshots externally.
type SnapshotStore interface {
	Save(ctx context.Context, snap models.Snapshot) error
	Load(ctx context.Context) (models.Snapshot, error)
}

// Service wires the registry core to its collaborators.
type Service struct {
	store Store
	gate  access.Gate

	logger    *slog.Logger
	publisher AuditPublisher
	metrics   *metrics.Metrics
	cache     RecordCache
	snapshots SnapshotStore
	tracer    trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithRecordCache(cache RecordCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithSnapshotStore(store SnapshotStore) Option {
	return func(s *Service) { s.snapshots = store }
}

// New constructs a Service. The store and gate are required collaborators;
// everything else is optional wiring.
func New(store Store, gate access.Gate, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("registry store is required")
	}
	if gate == nil {
		return nil, errors.New("access gate is required")
	}
	s := &Service{
		store:  store,
		gate:   gate,
		logger: slog.Default(),
		tracer: otel.Tracer("onsd/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// --- GS1 codes ---

func (s *Service) AddCode(ctx context.Context, caller domain.CallerID, key domain.CodeKey) error {
	ctx, span := s.tracer.Start(ctx, "registry.AddCode",
		trace.WithAttributes(attribute.String("gs1.code", key.String())))
	defer span.End()

	if err := s.store.AddCode(ctx, key); err != nil {
		return s.reject(translate(err, "gs1 code"))
	}
	s.metrics.Created("gs1_code", s.store.CodeCount(ctx))
	s.logAudit(ctx, audit.Event{
		Caller: caller,
		Action: string(audit.EventCodeCreated),
		Key:    key.String(),
	})
	return nil
}

func (s *Service) DeleteCode(ctx context.Context, caller domain.CallerID, key domain.CodeKey) error {
	ctx, span := s.tracer.Start(ctx, "registry.DeleteCode",
		trace.WithAttributes(attribute.String("gs1.code", key.String())))
	defer span.End()

	if !s.gate.IsOwner(ctx, caller) {
		return s.reject(dErrors.New(dErrors.CodeUnauthorized, "caller is not the registry owner"))
	}
	if err := s.store.DeleteCode(ctx, key); err != nil {
		return s.reject(translate(err, "gs1 code"))
	}
	s.metrics.Deleted("gs1_code", s.store.CodeCount(ctx))
	s.logAudit(ctx, audit.Event{
		Caller: caller,
		Action: string(audit.EventCodeDeleted),
		Key:    key.String(),
	})
	return nil
}

func (s *Service) IsCode(ctx context.Context, key domain.CodeKey) bool {
	return s.store.HasCode(ctx, key)
}

func (s *Service) CodeCount(ctx context.Context) int {
	return s.store.CodeCount(ctx)
}

func (s *Service) ChildCount(ctx context.Context, key domain.CodeKey) (int, error) {
	count, err := s.store.ChildCount(ctx, key)
	if err != nil {
		return 0, translate(err, "gs1 code")
	}
	return count, nil
}

func (s *Service) ChildAt(ctx context.Context, key domain.CodeKey, row int) (domain.RecordKey, error) {
	child, err := s.store.ChildAt(ctx, key, row)
	if err != nil {
		return "", translate(err, "gs1 code")
	}
	return child, nil
}

// --- ONS records ---

func (s *Service) AddRecord(ctx context.Context, caller domain.CallerID, rec models.ONSRecord) error {
	ctx, span := s.tracer.Start(ctx, "registry.AddRecord", trace.WithAttributes(
		attribute.String("ons.record", rec.Key.String()),
		attribute.String("gs1.code", rec.GS1Code.String()),
	))
	defer span.End()

	if err := s.store.AddRecord(ctx, rec); err != nil {
		return s.reject(translate(err, "ons record"))
	}
	s.metrics.Created("ons_record", s.store.RecordCount(ctx))
	s.logAudit(ctx, audit.Event{
		Caller:      caller,
		Action:      string(audit.EventRecordCreated),
		Key:         rec.Key.String(),
		ParentKey:   rec.GS1Code.String(),
		ServiceType: rec.ServiceType.String(),
	})
	return nil
}

func (s *Service) DeleteRecord(ctx context.Context, caller domain.CallerID, key domain.RecordKey) error {
	ctx, span := s.tracer.Start(ctx, "registry.DeleteRecord",
		trace.WithAttributes(attribute.String("ons.record", key.String())))
	defer span.End()

	if !s.gate.IsOwner(ctx, caller) {
		return s.reject(dErrors.New(dErrors.CodeUnauthorized, "caller is not the registry owner"))
	}
	rec, err := s.store.DeleteRecord(ctx, key)
	if err != nil {
		return s.reject(translate(err, "ons record"))
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "record cache invalidation failed", "key", key, "error", err)
		}
	}
	s.metrics.Deleted("ons_record", s.store.RecordCount(ctx))
	s.logAudit(ctx, audit.Event{
		Caller:    caller,
		Action:    string(audit.EventRecordDeleted),
		Key:       key.String(),
		ParentKey: rec.GS1Code.String(),
	})
	return nil
}

func (s *Service) IsRecord(ctx context.Context, key domain.RecordKey) bool {
	return s.store.HasRecord(ctx, key)
}

func (s *Service) RecordCount(ctx context.Context) int {
	return s.store.RecordCount(ctx)
}

// GetRecord serves from the cache when one is wired; cache failures fall
// through to the store, and a store hit back-fills the cache best effort.
func (s *Service) GetRecord(ctx context.Context, key domain.RecordKey) (models.ONSRecord, error) {
	if s.cache != nil {
		if rec, err := s.cache.Find(ctx, key); err == nil {
			return rec, nil
		}
	}
	rec, err := s.store.GetRecord(ctx, key)
	if err != nil {
		return models.ONSRecord{}, translate(err, "ons record")
	}
	if s.cache != nil {
		if err := s.cache.Save(ctx, rec); err != nil {
			s.logger.WarnContext(ctx, "record cache save failed", "key", key, "error", err)
		}
	}
	return rec, nil
}

// --- Service types ---

func (s *Service) AddServiceType(ctx context.Context, caller domain.CallerID, st models.ServiceType) error {
	ctx, span := s.tracer.Start(ctx, "registry.AddServiceType",
		trace.WithAttributes(attribute.String("service.type", st.Key.String())))
	defer span.End()

	if err := s.store.AddServiceType(ctx, st); err != nil {
		return s.reject(translate(err, "service type"))
	}
	s.metrics.Created("service_type", s.store.ServiceTypeCount(ctx))
	s.logAudit(ctx, audit.Event{
		Caller: caller,
		Action: string(audit.EventServiceTypeCreated),
		Key:    st.Key.String(),
	})
	return nil
}

func (s *Service) DeleteServiceType(ctx context.Context, caller domain.CallerID, key domain.ServiceKey) error {
	ctx, span := s.tracer.Start(ctx, "registry.DeleteServiceType",
		trace.WithAttributes(attribute.String("service.type", key.String())))
	defer span.End()

	if !s.gate.IsOwner(ctx, caller) {
		return s.reject(dErrors.New(dErrors.CodeUnauthorized, "caller is not the registry owner"))
	}
	if err := s.store.DeleteServiceType(ctx, key); err != nil {
		return s.reject(translate(err, "service type"))
	}
	s.metrics.Deleted("service_type", s.store.ServiceTypeCount(ctx))
	s.logAudit(ctx, audit.Event{
		Caller: caller,
		Action: string(audit.EventServiceTypeDeleted),
		Key:    key.String(),
	})
	return nil
}

func (s *Service) IsServiceType(ctx context.Context, key domain.ServiceKey) bool {
	return s.store.HasServiceType(ctx, key)
}

func (s *Service) ServiceTypeCount(ctx context.Context) int {
	return s.store.ServiceTypeCount(ctx)
}

func (s *Service) GetServiceType(ctx context.Context, key domain.ServiceKey) (models.ServiceType, error) {
	st, err := s.store.GetServiceType(ctx, key)
	if err != nil {
		return models.ServiceType{}, translate(err, "service type")
	}
	return st, nil
}

func (s *Service) Documentation(ctx context.Context, key domain.ServiceKey, lang domain.LanguageCode) (string, error) {
	loc, err := s.store.Documentation(ctx, key, lang)
	if err != nil {
		return "", translate(err, "service type")
	}
	return loc, nil
}

// --- Snapshot persistence ---

// PersistSnapshot writes the current registry state to the snapshot store.
// No-op when persistence is not wired.
func (s *Service) PersistSnapshot(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "registry.PersistSnapshot")
	defer span.End()

	if err := s.snapshots.Save(ctx, s.store.Snapshot(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "persist snapshot")
	}
	return nil
}

// LoadPersisted restores the registry from the snapshot store at boot.
// An empty snapshot leaves a fresh registry untouched.
func (s *Service) LoadPersisted(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}
	snap, err := s.snapshots.Load(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load snapshot")
	}
	if len(snap.Codes) == 0 && len(snap.Records) == 0 && len(snap.Services) == 0 {
		return nil
	}
	if err := s.store.Restore(ctx, snap); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "restore snapshot")
	}
	s.logger.InfoContext(ctx, "registry restored from snapshot",
		"codes", len(snap.Codes), "records", len(snap.Records), "service_types", len(snap.Services))
	return nil
}

// --- Internals ---

// logAudit forwards to the publisher when wired; the side channel never
// gates the mutation, so failures are logged and swallowed.
func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emission failed", "action", event.Action, "error", err)
	}
}

// reject counts the rejection and passes the error through unchanged.
func (s *Service) reject(err error) error {
	s.metrics.Rejected(string(dErrors.CodeOf(err)))
	return err
}

// translate maps storage facts to coded domain errors, keeping the sentinel
// in the chain for errors.Is.
func translate(err error, entity string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, entity+" not found")
	case errors.Is(err, sentinel.ErrDuplicateKey):
		return dErrors.Wrap(err, dErrors.CodeConflict, entity+" already exists")
	case errors.Is(err, sentinel.ErrHasDependents):
		return dErrors.Wrap(err, dErrors.CodeIntegrity, entity+" still has dependent records")
	case errors.Is(err, sentinel.ErrOutOfRange):
		return dErrors.Wrap(err, dErrors.CodeOutOfRange, "row index out of range")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, entity+" operation failed")
	}
}
