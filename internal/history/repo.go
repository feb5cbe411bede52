package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ctrl-sourav/SkyCast/internal/models"
	"github.com/ctrl-sourav/SkyCast/internal/owm"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

type Repo struct {
	db  *gorm.DB
	now func() time.Time
}

func OpenPostgres(user, password, dbName, host, port, sslMode string) (*gorm.DB, error) {
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC", host, user, password, dbName, port, sslMode)
	return gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
}

func OpenSQLite(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
}

func New(db *gorm.DB) (*Repo, error) {
	if err := db.AutoMigrate(&SearchRecord{}); err != nil {
		return nil, err
	}
	return &Repo{db: db, now: time.Now}, nil
}

// Record stores an accepted lookup together with its daily trend.
func (r *Repo) Record(ctx context.Context, q owm.Query, d models.Dashboard) error {
	trend, err := json.Marshal(d.Trend)
	if err != nil {
		return fmt.Errorf("encoding trend: %w", err)
	}
	rec := &SearchRecord{
		ID:         uuid.New(),
		Query:      q.String(),
		ByCoords:   q.ByCoords,
		Lat:        d.Current.Lat,
		Lon:        d.Current.Lon,
		Location:   d.Location,
		TempC:      d.Current.TempC,
		Condition:  d.Current.Condition.Main,
		Trend:      trend,
		SearchedAt: r.now().UTC(),
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

// List returns the most recent records first.
func (r *Repo) List(ctx context.Context, limit int) ([]SearchRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	var rows []SearchRecord
	err := r.db.WithContext(ctx).Order("searched_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Prune deletes records older than cutoff and reports how many were removed.
func (r *Repo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("searched_at < ?", cutoff).Delete(&SearchRecord{})
	return res.RowsAffected, res.Error
}
