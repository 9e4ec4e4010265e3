// Package batch defines the import batch lifecycle and the entities an
// import can create. Every entity created by an import is tagged with its
// batch ID so a batch can be rolled back exactly.
package batch

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an import batch.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusRolledBack Status = "rolled_back"
)

// MaxStoredErrors caps how many row errors a batch keeps. Past the cap only
// the error counter grows.
const MaxStoredErrors = 1000

// ImportError is one recorded row-level problem.
type ImportError struct {
	Row     int    `json:"row"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ImportBatch tracks one import run end to end.
type ImportBatch struct {
	ID           uuid.UUID
	Name         string
	SourceName   string
	Fingerprint  string
	Status       Status
	TotalRows    int
	CreatedCount int
	FoundCount   int
	UpdatedCount int
	ErrorCount   int
	EntityCounts map[string]int
	Errors       []ImportError
	CreatedAt    time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

// New creates a pending batch.
func New(name, sourceName string) *ImportBatch {
	return &ImportBatch{
		ID:           uuid.New(),
		Name:         name,
		SourceName:   sourceName,
		Status:       StatusPending,
		EntityCounts: make(map[string]int),
		CreatedAt:    time.Now().UTC(),
	}
}

// Start transitions the batch to processing.
func (b *ImportBatch) Start() {
	now := time.Now().UTC()
	b.Status = StatusProcessing
	b.StartedAt = &now
}

// Complete marks the batch finished successfully.
func (b *ImportBatch) Complete() {
	now := time.Now().UTC()
	b.Status = StatusCompleted
	b.FinishedAt = &now
}

// Fail marks the batch finished with a hard failure. Nothing the batch staged
// is committed when this is the outcome.
func (b *ImportBatch) Fail() {
	now := time.Now().UTC()
	b.Status = StatusFailed
	b.FinishedAt = &now
}

// CanRollback reports whether the batch is in a terminal state that permits
// rollback.
func (b *ImportBatch) CanRollback() bool {
	return b.Status == StatusCompleted || b.Status == StatusFailed
}

// MarkRolledBack records a completed rollback.
func (b *ImportBatch) MarkRolledBack() {
	b.Status = StatusRolledBack
}

// AddError records a row error, dropping the detail past MaxStoredErrors.
func (b *ImportBatch) AddError(row int, code, message string) {
	b.ErrorCount++
	if len(b.Errors) < MaxStoredErrors {
		b.Errors = append(b.Errors, ImportError{Row: row, Code: code, Message: message})
	}
}

// AddEntityCount accumulates per-entity-type creation counts.
func (b *ImportBatch) AddEntityCount(entityType string, n int) {
	if b.EntityCounts == nil {
		b.EntityCounts = make(map[string]int)
	}
	b.EntityCounts[entityType] += n
}

// ProgressPercent reports processed rows against total, 0-100.
func (b *ImportBatch) ProgressPercent() int {
	if b.TotalRows == 0 {
		return 0
	}
	processed := b.CreatedCount + b.FoundCount + b.UpdatedCount + b.ErrorCount
	pct := processed * 100 / b.TotalRows
	if pct > 100 {
		pct = 100
	}
	return pct
}
