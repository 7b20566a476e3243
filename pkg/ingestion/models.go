package ingestion

import (
	"io"
	"time"

	"gorm.io/datatypes"
)

const (
	StatusAccepted  = "accepted"
	StatusImported  = "imported"
	StatusPublished = "published"
	StatusFailed    = "failed"
)

// ImportRequest carries the two planning exports. DVH is optional.
type ImportRequest struct {
	Source   string
	Patients io.Reader
	DVH      io.Reader
}

// Record is the audit trail of one import.
type Record struct {
	ID           string            `json:"id" gorm:"primaryKey;column:id"`
	Source       string            `json:"source" gorm:"column:source"`
	Status       string            `json:"status" gorm:"column:status"`
	Plans        int               `json:"plans" gorm:"column:plans"`
	WithDVH      int               `json:"with_dvh" gorm:"column:with_dvh"`
	SkippedLines int               `json:"skipped_lines" gorm:"column:skipped_lines"`
	Stats        datatypes.JSONMap `json:"stats,omitempty" gorm:"column:stats"`
	Error        string            `json:"error,omitempty" gorm:"column:error"`
	CreatedAt    time.Time         `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time         `json:"updated_at" gorm:"column:updated_at"`
}

func (Record) TableName() string {
	return "plan_imports"
}
