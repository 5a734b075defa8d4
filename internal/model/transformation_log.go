package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransformationLog is the SQL row behind the audit trail. The full record is
// kept in Payload; the other columns exist for filtering.
type TransformationLog struct {
	BaseModel
	Timestamp    time.Time            `gorm:"column:performed_at;index;not null" json:"timestamp"`
	User         string               `gorm:"column:actor;type:varchar(255)" json:"user"`
	SourceItemID string               `gorm:"type:varchar(100);index" json:"source_item_id"`
	TargetItemID string               `gorm:"type:varchar(100);index" json:"target_item_id"`
	Status       TransformationStatus `gorm:"type:varchar(20);index" json:"status"`
	Payload      string               `gorm:"type:text" json:"payload"`
}

func (TransformationLog) TableName() string {
	return "transformation_logs"
}

// NewTransformationLog converts a record into its SQL row.
func NewTransformationLog(record TransformationRecord) (*TransformationLog, error) {
	id, err := uuid.Parse(record.ID)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	log := &TransformationLog{
		Timestamp:    record.Timestamp,
		User:         record.User,
		SourceItemID: record.SourceItem.ID,
		TargetItemID: record.TargetItem.ID,
		Status:       record.Status,
		Payload:      string(payload),
	}
	log.ID = id
	return log, nil
}

// ToRecord decodes the stored payload.
func (l *TransformationLog) ToRecord() (TransformationRecord, error) {
	var record TransformationRecord
	err := json.Unmarshal([]byte(l.Payload), &record)
	return record, err
}
