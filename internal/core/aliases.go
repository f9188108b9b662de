// Package core is the service facade over the container domain and the
// persistence layer: one Service type carrying a store plus the
// observability hooks, and aliases so facade callers need only this
// package for the common types.
package core

import (
	"spatialcore/internal/persistence"
	"spatialcore/pkg/domain"
)

// Domain aliases.
type (
	Container        = domain.Container
	Element          = domain.Element
	ElementRef       = domain.ElementRef
	Kind             = domain.Kind
	Table            = domain.Table
	AnnotationTarget = domain.AnnotationTarget
	Violation        = domain.Violation
	Result           = domain.Result
	Severity         = domain.Severity
)

const (
	KindImages = domain.KindImages
	KindLabels = domain.KindLabels
	KindPoints = domain.KindPoints
	KindShapes = domain.KindShapes
	KindTables = domain.KindTables

	SeverityWarn = domain.SeverityWarn
	SeverityLog  = domain.SeverityLog
)

// Persistence aliases.
type (
	WriteOptions  = persistence.WriteOptions
	ReadOptions   = persistence.ReadOptions
	ReadReport    = persistence.ReadReport
	ElementStatus = persistence.ElementStatus
	OnBadKeys     = persistence.OnBadKeys
)

const (
	OnBadKeysError = persistence.OnBadKeysError
	OnBadKeysWarn  = persistence.OnBadKeysWarn
)

// NewContainer returns an empty container.
func NewContainer() *Container { return domain.NewContainer() }
