package models

import "onsd/pkg/domain"

// Snapshot is the externally persisted layout of the registry: the three
// dense lists plus one child list per code. Positions are implicit in list
// order, so restoring a snapshot rebuilds every index map exactly.
type Snapshot struct {
	Codes    []domain.CodeKey                      `json:"codes"`
	Children map[domain.CodeKey][]domain.RecordKey `json:"children"`
	Records  []ONSRecord                           `json:"records"`
	Services []ServiceType                         `json:"services"`
}
