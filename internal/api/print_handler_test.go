package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"carteirinha/internal/card"
	"carteirinha/internal/database"
	"carteirinha/internal/tasks"
)

func newPrintTestRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	// The validation paths under test never reach the queue or storage.
	handler := NewPrintHandler(db, database.NewLayoutStore(db), nil, nil, testLogger())

	router := gin.New()
	group := router.Group("/v1/print-jobs", authAs(1, false))
	group.POST("", handler.CreatePrintJob)
	group.GET("/:id", handler.GetPrintJob)
	group.GET("/:id/download", handler.GetPrintJobDownload)
	return router
}

func seedPrintLayout(t *testing.T, db *gorm.DB) card.Layout {
	t.Helper()
	layout := card.NewLayout("Padrão")
	saved, err := database.NewLayoutStore(db).Upsert(context.Background(), layout, 1)
	if err != nil {
		t.Fatalf("seed layout: %v", err)
	}
	return saved
}

func seedPrintAssociate(t *testing.T, db *gorm.DB) database.Associate {
	t.Helper()
	associate := database.Associate{Name: "Maria Silva", CPF: validTestCPF}
	if err := db.Create(&associate).Error; err != nil {
		t.Fatalf("seed associate: %v", err)
	}
	return associate
}

func TestCreatePrintJobRejectsEmptySelection(t *testing.T) {
	router := newPrintTestRouter(t, newTestDB(t))

	rec := doJSON(t, router, http.MethodPost, "/v1/print-jobs", map[string]any{
		"items": []any{},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCreatePrintJobRejectsUnknownKind(t *testing.T) {
	db := newTestDB(t)
	router := newPrintTestRouter(t, db)
	layout := seedPrintLayout(t, db)

	rec := doJSON(t, router, http.MethodPost, "/v1/print-jobs", map[string]any{
		"items": []map[string]any{
			{"kind": "visitor", "id": 1, "layout_id": layout.ID},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCreatePrintJobRequiresLayoutAssignments(t *testing.T) {
	db := newTestDB(t)
	router := newPrintTestRouter(t, db)
	layout := seedPrintLayout(t, db)
	associate := seedPrintAssociate(t, db)

	rec := doJSON(t, router, http.MethodPost, "/v1/print-jobs", map[string]any{
		"items": []map[string]any{
			{"kind": tasks.KindAssociate, "id": associate.ID, "layout_id": layout.ID},
			{"kind": tasks.KindAssociate, "id": associate.ID, "layout_id": ""},
			{"kind": tasks.KindDependent, "id": 7, "layout_id": "does-not-exist"},
		},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Error string `json:"error"`
		Items []struct {
			Kind   string `json:"kind"`
			ID     uint   `json:"id"`
			Reason string `json:"reason"`
		} `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("offending items = %d, body = %s", len(resp.Items), rec.Body.String())
	}
	if resp.Items[0].Reason != "no layout assigned" || resp.Items[1].Reason != "layout not found" {
		t.Fatalf("reasons = %+v", resp.Items)
	}

	// Nothing was persisted for the refused request.
	var count int64
	if err := db.Model(&database.PrintJob{}).Count(&count).Error; err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	if count != 0 {
		t.Fatalf("jobs persisted = %d", count)
	}
}

func TestCreatePrintJobRejectsVanishedPeople(t *testing.T) {
	db := newTestDB(t)
	router := newPrintTestRouter(t, db)
	layout := seedPrintLayout(t, db)

	rec := doJSON(t, router, http.MethodPost, "/v1/print-jobs", map[string]any{
		"items": []map[string]any{
			{"kind": tasks.KindAssociate, "id": 4242, "layout_id": layout.ID},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestGetPrintJobScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	router := newPrintTestRouter(t, db)

	mine := database.PrintJob{UserID: 1, Status: PrintJobQueued, CardCount: 2, PageCount: 1}
	theirs := database.PrintJob{UserID: 2, Status: PrintJobQueued}
	if err := db.Create(&mine).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
	if err := db.Create(&theirs).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}

	rec := doJSON(t, router, http.MethodGet, "/v1/print-jobs/"+strconv.Itoa(int(mine.ID)), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp printJobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != PrintJobQueued || resp.CardCount != 2 || resp.PageCount != 1 {
		t.Fatalf("resp = %+v", resp)
	}

	rec = doJSON(t, router, http.MethodGet, "/v1/print-jobs/"+strconv.Itoa(int(theirs.ID)), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDownloadBeforeCompletionConflicts(t *testing.T) {
	db := newTestDB(t)
	router := newPrintTestRouter(t, db)

	job := database.PrintJob{UserID: 1, Status: PrintJobProcessing}
	if err := db.Create(&job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}

	rec := doJSON(t, router, http.MethodGet, "/v1/print-jobs/"+strconv.Itoa(int(job.ID))+"/download", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}
