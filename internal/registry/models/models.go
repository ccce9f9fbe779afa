package models

import (
	"onsd/pkg/domain"
	pstrings "onsd/pkg/platform/strings"
)

// RecordFlags carries the resolution flags of an ONS record. The registry
// stores the value without interpreting it; the two well-known values are
// defined for callers.
type RecordFlags uint8

const (
	// FlagsNonTerminal marks a record whose rewrite output is another query.
	FlagsNonTerminal RecordFlags = 0
	// FlagsTerminal marks a record whose rewrite output is a final endpoint.
	FlagsTerminal RecordFlags = 1
)

// GS1Code is the parent aggregate of the registry. Its child record keys are
// owned and maintained by the store, not carried on the model: a code is
// created bare and accumulates children as records reference it.
//
// Invariants:
//   - Key is unique across the code table
//   - A code with a non-empty child set cannot be deleted
type GS1Code struct {
	Key domain.CodeKey `json:"key"`
}

// ONSRecord is a single resolution rule binding a GS1 code to a service type
// and a rewrite pattern. Records are immutable once created; the only
// mutation is delete (and re-create).
//
// Invariants:
//   - Key is unique across the record table
//   - GS1Code references an existing code at insert time, immutable after
//   - ServiceType is stored as supplied and deliberately NOT validated
//     against the service-type table (see the service-type asymmetry test)
type ONSRecord struct {
	Key         domain.RecordKey  `json:"key"`
	GS1Code     domain.CodeKey    `json:"gs1_code"`
	ServiceType domain.ServiceKey `json:"service_type"`
	Flags       RecordFlags       `json:"flags"`
	Pattern     string            `json:"pattern"`
}

// Terminal reports whether the record's rewrite output is a final endpoint.
func (r ONSRecord) Terminal() bool {
	return r.Flags == FlagsTerminal
}

// ServiceType describes how to interpret a resolved endpoint. All fields
// besides Key are informational: Extends and the obsolescence lists are not
// integrity-checked against the table.
type ServiceType struct {
	Key         domain.ServiceKey              `json:"key"`
	Abstract    bool                           `json:"abstract"`
	Extends     domain.ServiceKey              `json:"extends,omitempty"`
	WSDLURI     string                         `json:"wsdl_uri,omitempty"`
	HomepageURI string                         `json:"homepage_uri,omitempty"`
	Docs        map[domain.LanguageCode]string `json:"docs,omitempty"`
	Obsoletes   []domain.ServiceKey            `json:"obsoletes,omitempty"`
	ObsoletedBy []domain.ServiceKey            `json:"obsoleted_by,omitempty"`
}

// DocumentationFor returns the documentation location for lang, or the empty
// string when unset. Absence is not an error.
func (s ServiceType) DocumentationFor(lang domain.LanguageCode) string {
	return s.Docs[lang]
}

// NormalizeRelated trims and deduplicates an obsoletes/obsoleted-by list,
// preserving first-occurrence order.
func NormalizeRelated(keys []domain.ServiceKey) []domain.ServiceKey {
	if len(keys) == 0 {
		return nil
	}
	raw := make([]string, len(keys))
	for i, k := range keys {
		raw[i] = string(k)
	}
	deduped := pstrings.DedupeAndTrim(raw)
	if len(deduped) == 0 {
		return nil
	}
	out := make([]domain.ServiceKey, len(deduped))
	for i, s := range deduped {
		out[i] = domain.ServiceKey(s)
	}
	return out
}
