// Package domain holds the persisted records of ingestion runs and
// their fault logs.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Run statuses
const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// IngestRun represents one file ingestion from upload to fault log
type IngestRun struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FileName    string     `gorm:"type:varchar(500);not null" json:"file_name"`
	SchemaName  string     `gorm:"type:varchar(255);not null" json:"schema_name"`
	Status      string     `gorm:"type:varchar(50);not null;default:'queued'" json:"status"`
	TotalRows   int        `gorm:"default:0" json:"total_rows"`
	BrokenRows  int        `gorm:"default:0" json:"broken_rows"`
	Metadata    JSONB      `gorm:"type:jsonb" json:"metadata"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Relations
	Faults []RowFault `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"faults,omitempty"`
}

// TableName specifies the table name for GORM
func (IngestRun) TableName() string {
	return "ingest_runs"
}

// BeforeCreate GORM hook
func (r *IngestRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ValidRunStatuses returns the allowed run statuses
func ValidRunStatuses() []string {
	return []string{RunStatusQueued, RunStatusRunning, RunStatusCompleted, RunStatusFailed}
}

// IsValidRunStatus checks if a status is allowed
func IsValidRunStatus(status string) bool {
	for _, s := range ValidRunStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// JSONB is a custom type for JSONB columns
type JSONB map[string]interface{}

// Value implements driver.Valuer
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
}
