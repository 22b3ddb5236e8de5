package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RowFault is one field's outcome in one processed row of a run.
// Every schema field of every non-skipped row gets one record, so an
// entirely clean run still documents what was checked.
type RowFault struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RunID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_run_row_field" json:"run_id"`
	RowIndex    int       `gorm:"not null;uniqueIndex:idx_run_row_field" json:"row_index"`
	FieldName   string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_run_row_field" json:"field_name"`
	VerboseName string    `gorm:"type:varchar(255)" json:"verbose_name"`
	Value       string    `gorm:"type:text" json:"value"`
	Broken      bool      `gorm:"default:false;index:idx_row_faults_broken" json:"broken"`
	Comment     string    `gorm:"type:text" json:"comment"`
	State       string    `gorm:"type:varchar(20);not null;default:'ok'" json:"state"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Run *IngestRun `gorm:"foreignKey:RunID" json:"run,omitempty"`
}

// TableName specifies the table name for GORM
func (RowFault) TableName() string {
	return "row_faults"
}

// BeforeCreate GORM hook
func (f *RowFault) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
