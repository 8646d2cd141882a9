package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/LJTian/NewsDesk/internal/model"
)

// ActiveCriteria 启用的评判标准，按 id 升序
func (s *Store) ActiveCriteria(ctx context.Context) ([]model.Criterion, error) {
	var list []model.Criterion
	err := s.DB.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

// SettingValue 读取设置表中的单个值
func (s *Store) SettingValue(ctx context.Context, key string) (string, bool, error) {
	var row model.Setting
	err := s.DB.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Value, true, nil
}
