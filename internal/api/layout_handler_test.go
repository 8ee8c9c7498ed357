package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"carteirinha/internal/card"
	"carteirinha/internal/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// One shared-cache memory database per test, so every pooled
	// connection sees the same data and tests stay isolated.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&database.User{},
		&database.Associate{},
		&database.Dependent{},
		&database.CardLayout{},
		&database.PrintJob{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// authAs injects an authenticated identity, standing in for the JWT
// middleware.
func authAs(userID uint, admin bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("isAdmin", admin)
		c.Set("mustChangePassword", false)
		c.Next()
	}
}

func newLayoutTestRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := NewLayoutHandler(database.NewLayoutStore(db), nil, testLogger())

	router := gin.New()
	group := router.Group("/v1/layouts", authAs(1, true))
	group.GET("", handler.ListLayouts)
	group.POST("", handler.CreateLayout)
	group.GET("/:id", handler.GetLayout)
	group.PUT("/:id", handler.SaveLayout)
	group.POST("/:id/duplicate", handler.DuplicateLayout)
	group.DELETE("/:id", handler.DeleteLayout)
	group.GET("/:id/preview", handler.PreviewLayout)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListLayoutsSeedsDefault(t *testing.T) {
	router := newLayoutTestRouter(t, newTestDB(t))

	rec := doJSON(t, router, http.MethodGet, "/v1/layouts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var layouts []card.Layout
	if err := json.Unmarshal(rec.Body.Bytes(), &layouts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(layouts) != 1 {
		t.Fatalf("layouts = %d", len(layouts))
	}
	if layouts[0].Title != "Novo Layout" {
		t.Fatalf("title = %q", layouts[0].Title)
	}
}

func TestSaveLayoutRoundTripsGeometry(t *testing.T) {
	router := newLayoutTestRouter(t, newTestDB(t))

	layout := card.NewLayout("Carteirinha Padrão")
	layout.SetVisible(card.FieldName, true)
	layout.SetPosition(card.FieldName, card.Position{X: 120, Y: 45})
	layout.SetVisible(card.FieldPhoto, true)
	layout.SetPosition(card.FieldPhoto, card.Position{X: 700, Y: 60})
	layout.BackgroundImage = "backgrounds/base.png"

	rec := doJSON(t, router, http.MethodPut, "/v1/layouts/"+layout.ID, layout)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/layouts/"+layout.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got card.Layout
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != "Carteirinha Padrão" {
		t.Fatalf("title = %q", got.Title)
	}
	if got.NamePosition != (card.Position{X: 120, Y: 45}) {
		t.Fatalf("name position = %v", got.NamePosition)
	}
	if !got.ShowName || !got.ShowPhoto || got.ShowCPF {
		t.Fatalf("visibility flags wrong: %+v", got)
	}
	if got.BackgroundImage != "backgrounds/base.png" {
		t.Fatalf("background = %q", got.BackgroundImage)
	}
}

func TestSavedPositionsAreClamped(t *testing.T) {
	router := newLayoutTestRouter(t, newTestDB(t))

	layout := card.NewLayout("t")
	body := map[string]any{
		"id":            layout.ID,
		"title":         "t",
		"name_position": map[string]int{"x": 5000, "y": -40},
	}
	rec := doJSON(t, router, http.MethodPut, "/v1/layouts/"+layout.ID, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var got card.Layout
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.NamePosition != (card.Position{X: card.Width, Y: 0}) {
		t.Fatalf("name position = %v", got.NamePosition)
	}
}

func TestCreateLayoutAutoTitles(t *testing.T) {
	db := newTestDB(t)
	router := newLayoutTestRouter(t, db)

	first := card.NewLayout("Padrão")
	if rec := doJSON(t, router, http.MethodPut, "/v1/layouts/"+first.ID, first); rec.Code != http.StatusOK {
		t.Fatalf("save status = %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/v1/layouts", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created card.Layout
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Title != "Layout 2" {
		t.Fatalf("title = %q", created.Title)
	}
}

func TestDuplicateLayoutAppendsCopySuffix(t *testing.T) {
	router := newLayoutTestRouter(t, newTestDB(t))

	layout := card.NewLayout("Padrão")
	layout.SetVisible(card.FieldRG, true)
	layout.SetPosition(card.FieldRG, card.Position{X: 50, Y: 60})
	if rec := doJSON(t, router, http.MethodPut, "/v1/layouts/"+layout.ID, layout); rec.Code != http.StatusOK {
		t.Fatalf("save status = %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodPost, "/v1/layouts/"+layout.ID+"/duplicate", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var dup card.Layout
	if err := json.Unmarshal(rec.Body.Bytes(), &dup); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dup.Title != "Padrão (Cópia)" {
		t.Fatalf("title = %q", dup.Title)
	}
	if dup.ID == layout.ID {
		t.Fatal("duplicate reused id")
	}
	if dup.RGPosition != (card.Position{X: 50, Y: 60}) || !dup.ShowRG {
		t.Fatalf("duplicate lost geometry: %+v", dup)
	}
}

func TestDeleteLastLayoutRefused(t *testing.T) {
	router := newLayoutTestRouter(t, newTestDB(t))

	layout := card.NewLayout("Única")
	if rec := doJSON(t, router, http.MethodPut, "/v1/layouts/"+layout.ID, layout); rec.Code != http.StatusOK {
		t.Fatalf("save status = %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodDelete, "/v1/layouts/"+layout.ID, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteLayoutWithSiblings(t *testing.T) {
	router := newLayoutTestRouter(t, newTestDB(t))

	a, b := card.NewLayout("a"), card.NewLayout("b")
	for _, l := range []card.Layout{a, b} {
		if rec := doJSON(t, router, http.MethodPut, "/v1/layouts/"+l.ID, l); rec.Code != http.StatusOK {
			t.Fatalf("save status = %d", rec.Code)
		}
	}

	rec := doJSON(t, router, http.MethodDelete, "/v1/layouts/"+a.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/layouts/"+a.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPreviewLayoutRendersHTML(t *testing.T) {
	router := newLayoutTestRouter(t, newTestDB(t))

	layout := card.NewLayout("Visual")
	layout.SetVisible(card.FieldName, true)
	if rec := doJSON(t, router, http.MethodPut, "/v1/layouts/"+layout.ID, layout); rec.Code != http.StatusOK {
		t.Fatalf("save status = %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/v1/layouts/"+layout.ID+"/preview", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !bytes.Contains([]byte(body), []byte("NOME DO ASSOCIADO")) {
		t.Fatal("sample content missing from preview")
	}
}
