package baseline

import (
	"context"
	"time"

	"github.com/coursehub/perfwatch/internal/domain"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GormStore keeps baselines in the relational store alongside the rest of the
// application tables.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

type baselinePayload struct {
	Endpoints map[string]domain.ExpectedStats `json:"endpoints"`
	System    domain.ExpectedStats            `json:"system"`
	Metadata  map[string]string               `json:"metadata,omitempty"`
}

func (s *GormStore) Save(ctx context.Context, b *domain.Baseline) error {
	data, err := json.Marshal(baselinePayload{
		Endpoints: b.Endpoints,
		System:    b.System,
		Metadata:  b.Metadata,
	})
	if err != nil {
		return errors.Wrap(err, "marshal baseline payload")
	}
	row := domain.PerfBaseline{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		Version:     b.Version,
		Status:      b.Status,
		Payload:     string(data),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   time.Now(),
	}
	err = s.db.WithContext(ctx).
		Where("id = ?", row.ID).
		Assign(map[string]interface{}{
			"name":        row.Name,
			"description": row.Description,
			"version":     row.Version,
			"status":      row.Status,
			"payload":     row.Payload,
			"updated_at":  row.UpdatedAt,
		}).
		FirstOrCreate(&row).Error
	return errors.Wrap(err, "save baseline")
}

func (s *GormStore) LoadLatest(ctx context.Context) (*domain.Baseline, error) {
	var row domain.PerfBaseline
	err := s.db.WithContext(ctx).
		Where("status = ?", domain.BaselineActive).
		Order("version DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoBaseline
	}
	if err != nil {
		return nil, errors.Wrap(err, "load latest baseline")
	}
	return rowToBaseline(&row)
}

func (s *GormStore) LoadAll(ctx context.Context) ([]*domain.Baseline, error) {
	var rows []domain.PerfBaseline
	err := s.db.WithContext(ctx).Order("version DESC").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "load baselines")
	}
	out := make([]*domain.Baseline, 0, len(rows))
	for i := range rows {
		b, err := rowToBaseline(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func rowToBaseline(row *domain.PerfBaseline) (*domain.Baseline, error) {
	var payload baselinePayload
	if err := json.Unmarshal([]byte(row.Payload), &payload); err != nil {
		return nil, errors.Wrapf(err, "decode baseline %d payload", row.ID)
	}
	return &domain.Baseline{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Version:     row.Version,
		Status:      row.Status,
		CreatedAt:   row.CreatedAt,
		Endpoints:   payload.Endpoints,
		System:      payload.System,
		Metadata:    payload.Metadata,
	}, nil
}
