package scenario

import (
	"context"

	"gorm.io/gorm"

	"hot-seat/internal/db"
)

// GormLibrary samples the scenario_library table.
type GormLibrary struct {
	conn *gorm.DB
}

func NewGormLibrary(conn *gorm.DB) *GormLibrary {
	return &GormLibrary{conn: conn}
}

func (l *GormLibrary) Sample(ctx context.Context, category string, n int) ([]string, error) {
	var texts []string
	err := l.conn.WithContext(ctx).
		Model(&db.ScenarioLibrary{}).
		Where("LOWER(category) = LOWER(?)", category).
		Order("RANDOM()").
		Limit(n).
		Pluck("text", &texts).Error
	if err != nil {
		return nil, err
	}
	return texts, nil
}
