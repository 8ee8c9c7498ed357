package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"carteirinha/internal/card"
)

func newStoreTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&CardLayout{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestUpsertRoundTripsLayout(t *testing.T) {
	store := NewLayoutStore(newStoreTestDB(t))
	ctx := context.Background()

	layout := card.NewLayout("Padrão")
	layout.BackgroundImage = "backgrounds/base.png"
	layout.SetVisible(card.FieldName, true)
	layout.SetPosition(card.FieldName, card.Position{X: 100, Y: 40})

	saved, err := store.Upsert(ctx, layout, 1)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if saved.CreatedAt.IsZero() {
		t.Fatal("created_at not populated")
	}

	got, err := store.Get(ctx, layout.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Padrão" || got.BackgroundImage != "backgrounds/base.png" {
		t.Fatalf("got = %+v", got)
	}
	if got.NamePosition != (card.Position{X: 100, Y: 40}) || !got.ShowName {
		t.Fatalf("geometry lost: %+v", got)
	}
}

func TestUpsertOverwritesExistingID(t *testing.T) {
	store := NewLayoutStore(newStoreTestDB(t))
	ctx := context.Background()

	layout := card.NewLayout("Antes")
	if _, err := store.Upsert(ctx, layout, 1); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	layout.Title = "Depois"
	layout.SetVisible(card.FieldCPF, true)
	if _, err := store.Upsert(ctx, layout, 1); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d", count)
	}

	got, err := store.Get(ctx, layout.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Depois" || !got.ShowCPF {
		t.Fatalf("got = %+v", got)
	}
}

func TestDecodeToleratesStringPositions(t *testing.T) {
	db := newStoreTestDB(t)
	store := NewLayoutStore(db)
	ctx := context.Background()

	// Rows written by an older driver serialized positions as JSON strings.
	geometry := map[string]any{
		"name_position": `{"x": 900, "y": 120}`,
		"show_name":     true,
	}
	raw, err := json.Marshal(geometry)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	row := CardLayout{
		ID:       "legacy-row",
		Title:    "Legado",
		Geometry: datatypes.JSON(raw),
		UserID:   1,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("seed row: %v", err)
	}

	got, err := store.Get(ctx, "legacy-row")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.NamePosition != (card.Position{X: card.Width, Y: 120}) {
		t.Fatalf("name position = %v", got.NamePosition)
	}
	if !got.ShowName {
		t.Fatal("show_name lost")
	}
}

func TestListOrdersByTitle(t *testing.T) {
	store := NewLayoutStore(newStoreTestDB(t))
	ctx := context.Background()

	for _, title := range []string{"Zeta", "Alfa", "Meio"} {
		if _, err := store.Upsert(ctx, card.NewLayout(title), 1); err != nil {
			t.Fatalf("upsert %s: %v", title, err)
		}
	}

	layouts, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var titles []string
	for _, l := range layouts {
		titles = append(titles, l.Title)
	}
	want := []string{"Alfa", "Meio", "Zeta"}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("titles = %v", titles)
		}
	}
}

func TestDeleteUnknownLayout(t *testing.T) {
	store := NewLayoutStore(newStoreTestDB(t))

	err := store.Delete(context.Background(), "missing")
	if !errors.Is(err, ErrLayoutNotFound) {
		t.Fatalf("err = %v", err)
	}
}
