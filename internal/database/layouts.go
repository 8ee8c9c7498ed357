package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carteirinha/internal/card"
)

// ErrLayoutNotFound is returned for lookups of an unknown layout id.
var ErrLayoutNotFound = errors.New("card layout not found")

// LayoutStore mediates between the card.Layout domain type and the
// card_layouts table. Geometry round-trips through jsonb; the normalizing
// Position decode tolerates rows written by older drivers that stored
// positions as JSON strings.
type LayoutStore struct {
	db *gorm.DB
}

func NewLayoutStore(db *gorm.DB) *LayoutStore {
	return &LayoutStore{db: db}
}

func encodeLayout(l card.Layout, userID uint) (CardLayout, error) {
	geometry, err := json.Marshal(l)
	if err != nil {
		return CardLayout{}, fmt.Errorf("encode layout geometry: %w", err)
	}
	return CardLayout{
		ID:            l.ID,
		Title:         l.Title,
		BackgroundKey: l.BackgroundImage,
		Geometry:      datatypes.JSON(geometry),
		UserID:        userID,
	}, nil
}

func decodeLayout(row CardLayout) (card.Layout, error) {
	var l card.Layout
	if len(row.Geometry) > 0 {
		if err := json.Unmarshal(row.Geometry, &l); err != nil {
			return card.Layout{}, fmt.Errorf("decode layout %s geometry: %w", row.ID, err)
		}
	}
	// Columns win over whatever the jsonb snapshot says.
	l.ID = row.ID
	l.Title = row.Title
	l.BackgroundImage = row.BackgroundKey
	l.CreatedAt = row.CreatedAt
	l.UpdatedAt = row.UpdatedAt
	l.Normalize()
	return l, nil
}

// List returns every stored layout ordered by title.
func (s *LayoutStore) List(ctx context.Context) ([]card.Layout, error) {
	var rows []CardLayout
	if err := s.db.WithContext(ctx).Order("title").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}

	layouts := make([]card.Layout, 0, len(rows))
	for _, row := range rows {
		l, err := decodeLayout(row)
		if err != nil {
			return nil, err
		}
		layouts = append(layouts, l)
	}
	return layouts, nil
}

// Get loads one layout by id.
func (s *LayoutStore) Get(ctx context.Context, id string) (card.Layout, error) {
	var row CardLayout
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return card.Layout{}, ErrLayoutNotFound
		}
		return card.Layout{}, fmt.Errorf("load layout %s: %w", id, err)
	}
	return decodeLayout(row)
}

// Upsert saves a full layout: insert on a new id, overwrite on an existing
// one. Concurrent saves of the same id are last-write-wins.
func (s *LayoutStore) Upsert(ctx context.Context, l card.Layout, userID uint) (card.Layout, error) {
	l.Normalize()
	row, err := encodeLayout(l, userID)
	if err != nil {
		return card.Layout{}, err
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return card.Layout{}, fmt.Errorf("upsert layout %s: %w", l.ID, err)
	}

	if err := s.db.WithContext(ctx).First(&row, "id = ?", row.ID).Error; err != nil {
		return card.Layout{}, fmt.Errorf("reload layout %s: %w", l.ID, err)
	}
	return decodeLayout(row)
}

// Delete removes a layout by id. Deleting an unknown id reports
// ErrLayoutNotFound.
func (s *LayoutStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&CardLayout{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete layout %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrLayoutNotFound
	}
	return nil
}

// Count returns the number of stored layouts.
func (s *LayoutStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&CardLayout{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count layouts: %w", err)
	}
	return count, nil
}
