package repository

import (
	"context"
	"errors"

	"go-inventory-uom/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrRecordNotFound = errors.New("transformation record not found")

// AuditRepository is the sink for finished transformation records.
// Logging the same record ID twice overwrites the earlier entry.
type AuditRepository interface {
	LogTransformation(ctx context.Context, record model.TransformationRecord) error
	GetTransformationHistory(ctx context.Context, filter model.HistoryFilter) ([]model.TransformationRecord, error)
	GetTransformationByID(ctx context.Context, id string) (*model.TransformationRecord, error)
}

type auditRepo struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) AuditRepository {
	return &auditRepo{db}
}

func (r *auditRepo) LogTransformation(ctx context.Context, record model.TransformationRecord) error {
	row, err := model.NewTransformationLog(record)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *auditRepo) GetTransformationHistory(ctx context.Context, filter model.HistoryFilter) ([]model.TransformationRecord, error) {
	query := r.db.WithContext(ctx).Model(&model.TransformationLog{}).Order("performed_at DESC")
	if filter.ItemID != "" {
		query = query.Where("source_item_id = ? OR target_item_id = ?", filter.ItemID, filter.ItemID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []model.TransformationLog
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]model.TransformationRecord, 0, len(rows))
	for i := range rows {
		record, err := rows[i].ToRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *auditRepo) GetTransformationByID(ctx context.Context, id string) (*model.TransformationRecord, error) {
	rowID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrRecordNotFound
	}
	var row model.TransformationLog
	err = r.db.WithContext(ctx).First(&row, "id = ?", rowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	record, err := row.ToRecord()
	if err != nil {
		return nil, err
	}
	return &record, nil
}
