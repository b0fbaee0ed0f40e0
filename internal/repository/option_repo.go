package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OptionRepository is the durable key-value settings store. Writes are not
// transactional with any other table.
type OptionRepository interface {
	Get(ctx context.Context, name string) (string, bool, error)
	Set(ctx context.Context, name, value string) error
}

type GormOptionRepo struct {
	db *gorm.DB
}

func NewGormOptionRepo(db *gorm.DB) *GormOptionRepo {
	return &GormOptionRepo{db: db}
}

func (r *GormOptionRepo) Get(ctx context.Context, name string) (string, bool, error) {
	var model OptionModel
	err := r.db.WithContext(ctx).First(&model, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return model.Value, true, nil
}

func (r *GormOptionRepo) Set(ctx context.Context, name, value string) error {
	model := OptionModel{Name: name, Value: value, UpdatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return persistenceError("set option", err)
	}
	return nil
}
