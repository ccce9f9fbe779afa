// Package memory holds the registry core: the three indexed tables, the
// per-code child sets, and the referential-integrity rules between them.
// It is the source of truth; persistence and caching layers sit outside and
// never participate in these invariants.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"onsd/internal/registry/indexed"
	"onsd/internal/registry/models"
	"onsd/pkg/domain"
	"onsd/pkg/platform/sentinel"
)

// Store owns the code, record, and service-type tables exclusively. A single
// mutex serializes every operation, reads included: the cross-table paths
// (record add/delete touch the record table and a code's child set as one
// logical step) are not safe under interleaving, and the original execution
// environment guaranteed total ordering of all calls.
//
// Atomicity is validate-then-mutate: every precondition of an operation is
// checked before the first structure is touched, and the in-memory mutations
// that follow cannot fail, so no partial state is ever observable.
type Store struct {
	mu sync.Mutex

	codes    *indexed.Set[domain.CodeKey]
	children map[domain.CodeKey]*indexed.Set[domain.RecordKey]

	records    *indexed.Set[domain.RecordKey]
	recordData map[domain.RecordKey]models.ONSRecord

	services    *indexed.Set[domain.ServiceKey]
	serviceData map[domain.ServiceKey]models.ServiceType
}

func New() *Store {
	return &Store{
		codes:       indexed.New[domain.CodeKey](),
		children:    make(map[domain.CodeKey]*indexed.Set[domain.RecordKey]),
		records:     indexed.New[domain.RecordKey](),
		recordData:  make(map[domain.RecordKey]models.ONSRecord),
		services:    indexed.New[domain.ServiceKey](),
		serviceData: make(map[domain.ServiceKey]models.ServiceType),
	}
}

// --- GS1 codes ---

func (s *Store) AddCode(_ context.Context, key domain.CodeKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.codes.Append(key); err != nil {
		return fmt.Errorf("gs1 code %q: %w", key, err)
	}
	s.children[key] = indexed.New[domain.RecordKey]()
	return nil
}

// DeleteCode removes a code. A code still referenced by records cannot be
// removed; delete the records first.
func (s *Store) DeleteCode(_ context.Context, key domain.CodeKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.codes.Contains(key) {
		return fmt.Errorf("gs1 code %q: %w", key, sentinel.ErrNotFound)
	}
	if s.children[key].Len() > 0 {
		return fmt.Errorf("gs1 code %q: %w", key, sentinel.ErrHasDependents)
	}
	if err := s.codes.Remove(key); err != nil {
		return fmt.Errorf("gs1 code %q: %w", key, err)
	}
	delete(s.children, key)
	return nil
}

func (s *Store) HasCode(_ context.Context, key domain.CodeKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes.Contains(key)
}

func (s *Store) CodeCount(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes.Len()
}

// ChildCount returns the number of records referencing key.
func (s *Store) ChildCount(_ context.Context, key domain.CodeKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.children[key]
	if !ok {
		return 0, fmt.Errorf("gs1 code %q: %w", key, sentinel.ErrNotFound)
	}
	return set.Len(), nil
}

// ChildAt returns the record key at position row of the code's child set.
// Row positions are physical and shift on deletion; they are enumeration
// handles, not stable identifiers.
func (s *Store) ChildAt(_ context.Context, key domain.CodeKey, row int) (domain.RecordKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.children[key]
	if !ok {
		return "", fmt.Errorf("gs1 code %q: %w", key, sentinel.ErrNotFound)
	}
	child, err := set.At(row)
	if err != nil {
		return "", fmt.Errorf("gs1 code %q row %d: %w", key, row, err)
	}
	return child, nil
}

// --- ONS records ---

// AddRecord inserts a record and registers it in the parent code's child set
// as one logical step. The parent must exist; the service-type reference is
// stored as supplied without validation.
func (s *Store) AddRecord(_ context.Context, rec models.ONSRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	childSet, ok := s.children[rec.GS1Code]
	if !ok || !s.codes.Contains(rec.GS1Code) {
		return fmt.Errorf("gs1 code %q: %w", rec.GS1Code, sentinel.ErrNotFound)
	}
	if s.records.Contains(rec.Key) {
		return fmt.Errorf("ons record %q: %w", rec.Key, sentinel.ErrDuplicateKey)
	}

	// All preconditions hold; neither append below can fail.
	if _, err := s.records.Append(rec.Key); err != nil {
		return fmt.Errorf("ons record %q: %w", rec.Key, err)
	}
	if _, err := childSet.Append(rec.Key); err != nil {
		// Unreachable: the record table rejected duplicates above. Undo the
		// first half so a broken invariant cannot leak partial state.
		_ = s.records.Remove(rec.Key)
		return fmt.Errorf("ons record %q child link: %w", rec.Key, err)
	}
	s.recordData[rec.Key] = rec
	return nil
}

// DeleteRecord removes a record from the record table and from its parent
// code's child set, both via swap-removal. Returns the removed record so the
// caller can report what was deleted.
func (s *Store) DeleteRecord(_ context.Context, key domain.RecordKey) (models.ONSRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recordData[key]
	if !ok || !s.records.Contains(key) {
		return models.ONSRecord{}, fmt.Errorf("ons record %q: %w", key, sentinel.ErrNotFound)
	}

	if err := s.records.Remove(key); err != nil {
		return models.ONSRecord{}, fmt.Errorf("ons record %q: %w", key, err)
	}
	if set, ok := s.children[rec.GS1Code]; ok {
		if err := set.Remove(key); err != nil {
			// Unreachable while the add path registers both sides; restore
			// the record table rather than continue half-deleted.
			_, _ = s.records.Append(key)
			return models.ONSRecord{}, fmt.Errorf("ons record %q child link: %w", key, err)
		}
	}
	delete(s.recordData, key)
	return rec, nil
}

func (s *Store) HasRecord(_ context.Context, key domain.RecordKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Contains(key)
}

func (s *Store) RecordCount(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records.Len()
}

func (s *Store) GetRecord(_ context.Context, key domain.RecordKey) (models.ONSRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recordData[key]
	if !ok {
		return models.ONSRecord{}, fmt.Errorf("ons record %q: %w", key, sentinel.ErrNotFound)
	}
	return rec, nil
}

// --- Service types ---

// AddServiceType inserts a service type. Obsolescence lists are normalized
// and the documentation map is copied so the caller cannot mutate stored
// state afterwards.
func (s *Store) AddServiceType(_ context.Context, st models.ServiceType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.services.Append(st.Key); err != nil {
		return fmt.Errorf("service type %q: %w", st.Key, err)
	}
	st.Docs = maps.Clone(st.Docs)
	st.Obsoletes = models.NormalizeRelated(st.Obsoletes)
	st.ObsoletedBy = models.NormalizeRelated(st.ObsoletedBy)
	s.serviceData[st.Key] = st
	return nil
}

func (s *Store) DeleteServiceType(_ context.Context, key domain.ServiceKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.services.Remove(key); err != nil {
		return fmt.Errorf("service type %q: %w", key, err)
	}
	delete(s.serviceData, key)
	return nil
}

func (s *Store) HasServiceType(_ context.Context, key domain.ServiceKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.services.Contains(key)
}

func (s *Store) ServiceTypeCount(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.services.Len()
}

func (s *Store) GetServiceType(_ context.Context, key domain.ServiceKey) (models.ServiceType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.serviceData[key]
	if !ok {
		return models.ServiceType{}, fmt.Errorf("service type %q: %w", key, sentinel.ErrNotFound)
	}
	st.Docs = maps.Clone(st.Docs)
	st.Obsoletes = slices.Clone(st.Obsoletes)
	st.ObsoletedBy = slices.Clone(st.ObsoletedBy)
	return st, nil
}

// Documentation returns the per-language documentation location, or the
// empty string when no entry exists for lang. Absence of the language is not
// an error; absence of the service type is.
func (s *Store) Documentation(_ context.Context, key domain.ServiceKey, lang domain.LanguageCode) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.serviceData[key]
	if !ok {
		return "", fmt.Errorf("service type %q: %w", key, sentinel.ErrNotFound)
	}
	return st.DocumentationFor(lang), nil
}

// --- Snapshot persistence hooks ---

// Snapshot copies the full registry state in the persisted layout: dense
// lists whose order encodes every position index.
func (s *Store) Snapshot(_ context.Context) models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.Snapshot{
		Codes:    s.codes.Keys(),
		Children: make(map[domain.CodeKey][]domain.RecordKey, len(s.children)),
		Records:  make([]models.ONSRecord, 0, s.records.Len()),
		Services: make([]models.ServiceType, 0, s.services.Len()),
	}
	for code, set := range s.children {
		snap.Children[code] = set.Keys()
	}
	for _, key := range s.records.Keys() {
		snap.Records = append(snap.Records, s.recordData[key])
	}
	for _, key := range s.services.Keys() {
		st := s.serviceData[key]
		st.Docs = maps.Clone(st.Docs)
		st.Obsoletes = slices.Clone(st.Obsoletes)
		st.ObsoletedBy = slices.Clone(st.ObsoletedBy)
		snap.Services = append(snap.Services, st)
	}
	return snap
}

// Restore replaces the registry state with a snapshot, rebuilding all index
// maps from list order. It refuses snapshots that violate the core
// invariants rather than load them partially.
func (s *Store) Restore(_ context.Context, snap models.Snapshot) error {
	fresh := New()

	for _, key := range snap.Codes {
		if _, err := fresh.codes.Append(key); err != nil {
			return fmt.Errorf("restore gs1 code %q: %w", key, err)
		}
		fresh.children[key] = indexed.New[domain.RecordKey]()
	}
	for _, rec := range snap.Records {
		if !fresh.codes.Contains(rec.GS1Code) {
			return fmt.Errorf("restore ons record %q: gs1 code %q: %w",
				rec.Key, rec.GS1Code, sentinel.ErrNotFound)
		}
		if _, err := fresh.records.Append(rec.Key); err != nil {
			return fmt.Errorf("restore ons record %q: %w", rec.Key, err)
		}
		fresh.recordData[rec.Key] = rec
	}
	for _, st := range snap.Services {
		if _, err := fresh.services.Append(st.Key); err != nil {
			return fmt.Errorf("restore service type %q: %w", st.Key, err)
		}
		fresh.serviceData[st.Key] = st
	}

	// Child lists keep their own persisted order; swap-removal lets it
	// diverge from record-table order, so they are restored as stored, not
	// rebuilt from record order.
	for code, childKeys := range snap.Children {
		set, ok := fresh.children[code]
		if !ok {
			return fmt.Errorf("restore child set: gs1 code %q: %w", code, sentinel.ErrNotFound)
		}
		for _, key := range childKeys {
			rec, ok := fresh.recordData[key]
			if !ok || rec.GS1Code != code {
				return fmt.Errorf("restore child set for gs1 code %q: record %q does not reference it", code, key)
			}
			if _, err := set.Append(key); err != nil {
				return fmt.Errorf("restore child set for gs1 code %q: %w", code, err)
			}
		}
	}
	// Every record must appear in exactly its parent's child set.
	for _, rec := range snap.Records {
		if set := fresh.children[rec.GS1Code]; set == nil || !set.Contains(rec.Key) {
			return fmt.Errorf("restore ons record %q: missing child link under gs1 code %q",
				rec.Key, rec.GS1Code)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = fresh.codes
	s.children = fresh.children
	s.records = fresh.records
	s.recordData = fresh.recordData
	s.services = fresh.services
	s.serviceData = fresh.serviceData
	return nil
}
