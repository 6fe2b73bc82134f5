package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"calendario/internal/model"
)

// Setting is the gorm model of the settings table.
type Setting struct {
	Name  string `gorm:"column:name;primaryKey;type:text"`
	Value string `gorm:"column:value;type:text;not null"`
}

func (Setting) TableName() string {
	return "settings"
}

// GormSettings is the SettingsRepository backed by gorm. The schema is owned
// by the goose migrations, so no AutoMigrate happens here.
type GormSettings struct {
	db *gorm.DB
}

// NewGormSettings opens gorm on an existing *sql.DB.
func NewGormSettings(sqlDB *sql.DB) (*GormSettings, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return &GormSettings{db: db}, nil
}

func (g *GormSettings) Get(ctx context.Context, name string) (string, bool, error) {
	var s Setting
	err := g.db.WithContext(ctx).Where("name = ?", name).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s.Value, true, nil
}

func (g *GormSettings) Set(ctx context.Context, name, value string) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&Setting{Name: name, Value: value}).Error
}

// LoadSettings reads location and time format, falling back to def for
// names never written.
func LoadSettings(ctx context.Context, repo SettingsRepository, def model.Settings) (model.Settings, error) {
	out := def
	loc, ok, err := repo.Get(ctx, model.SettingLocation)
	if err != nil {
		return def, persistence("get setting", err)
	}
	if ok {
		out.Location = loc
	}
	tf, ok, err := repo.Get(ctx, model.SettingTimeFormat)
	if err != nil {
		return def, persistence("get setting", err)
	}
	if ok {
		out.TimeFormat = model.TimeFormat(tf)
	}
	return out.Normalize(), nil
}

// SaveSettings persists both recognized names.
func SaveSettings(ctx context.Context, repo SettingsRepository, s model.Settings) error {
	s = s.Normalize()
	if err := repo.Set(ctx, model.SettingLocation, s.Location); err != nil {
		return persistence("set setting", err)
	}
	if err := repo.Set(ctx, model.SettingTimeFormat, string(s.TimeFormat)); err != nil {
		return persistence("set setting", err)
	}
	return nil
}
