package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"carteirinha/internal/database"
)

const validTestCPF = "390.533.447-05"

func newAssociateTestRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := NewAssociateHandler(db)

	router := gin.New()
	group := router.Group("/v1/associates", authAs(1, false))
	group.POST("", handler.CreateAssociate)
	group.GET("", handler.ListAssociates)
	group.GET("/:id", handler.GetAssociate)
	group.PUT("/:id", handler.UpdateAssociate)
	group.DELETE("/:id", handler.DeleteAssociate)
	group.POST("/:id/dependents", handler.CreateDependent)
	group.PUT("/:id/dependents/:dependentID", handler.UpdateDependent)
	group.DELETE("/:id/dependents/:dependentID", handler.DeleteDependent)
	return router
}

func createTestAssociate(t *testing.T, router *gin.Engine, body map[string]any) associateResponse {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/v1/associates", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create associate status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp associateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestCreateAssociateMasksCPFAndDefaultsExpiration(t *testing.T) {
	router := newAssociateTestRouter(t, newTestDB(t))

	resp := createTestAssociate(t, router, map[string]any{
		"name":             "Maria Silva",
		"rg":              "123456789",
		"cpf":              "39053344705",
		"role":             "Analista",
		"company":          "ACME",
		"association_date": "2024-03-10",
	})

	if resp.CPF != validTestCPF {
		t.Fatalf("cpf = %q", resp.CPF)
	}
	if resp.AssociationDate == nil || *resp.AssociationDate != "2024-03-10" {
		t.Fatalf("association_date = %v", resp.AssociationDate)
	}
	if resp.ExpirationDate == nil || *resp.ExpirationDate != "2025-03-10" {
		t.Fatalf("expiration_date = %v", resp.ExpirationDate)
	}
}

func TestCreateAssociateRejectsInvalidCPF(t *testing.T) {
	router := newAssociateTestRouter(t, newTestDB(t))

	rec := doJSON(t, router, http.MethodPost, "/v1/associates", map[string]any{
		"name": "Maria Silva",
		"cpf":  "111.111.111-11",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCreateAssociateRejectsDuplicateCPF(t *testing.T) {
	router := newAssociateTestRouter(t, newTestDB(t))

	createTestAssociate(t, router, map[string]any{"name": "Maria Silva", "cpf": validTestCPF})

	rec := doJSON(t, router, http.MethodPost, "/v1/associates", map[string]any{
		"name": "Outra Pessoa",
		"cpf":  "39053344705",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestCreateAssociateExpirationStaysEmptyWithoutAssociationDate(t *testing.T) {
	router := newAssociateTestRouter(t, newTestDB(t))

	resp := createTestAssociate(t, router, map[string]any{
		"name": "Sem Datas",
		"cpf":  validTestCPF,
	})
	if resp.AssociationDate != nil || resp.ExpirationDate != nil {
		t.Fatalf("dates should be empty: %v / %v", resp.AssociationDate, resp.ExpirationDate)
	}
}

func TestListAssociatesFiltersByName(t *testing.T) {
	router := newAssociateTestRouter(t, newTestDB(t))

	createTestAssociate(t, router, map[string]any{"name": "Maria Silva", "cpf": validTestCPF})
	createTestAssociate(t, router, map[string]any{"name": "João Souza", "cpf": "529.982.247-25"})

	rec := doJSON(t, router, http.MethodGet, "/v1/associates?q=silva", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var items []associateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Maria Silva" {
		t.Fatalf("items = %+v", items)
	}
}

func TestUpdateAssociateKeepsExpirationEditable(t *testing.T) {
	router := newAssociateTestRouter(t, newTestDB(t))

	created := createTestAssociate(t, router, map[string]any{
		"name":             "Maria Silva",
		"cpf":              validTestCPF,
		"association_date": "2024-03-10",
	})

	rec := doJSON(t, router, http.MethodPut, "/v1/associates/"+strconv.Itoa(int(created.ID)), map[string]any{
		"name":             "Maria Silva",
		"cpf":              validTestCPF,
		"association_date": "2024-03-10",
		"expiration_date":  "2030-12-31",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp associateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ExpirationDate == nil || *resp.ExpirationDate != "2030-12-31" {
		t.Fatalf("expiration_date = %v", resp.ExpirationDate)
	}
}

func TestCreateDependentCopiesAssociateDefaults(t *testing.T) {
	router := newAssociateTestRouter(t, newTestDB(t))

	associate := createTestAssociate(t, router, map[string]any{
		"name":             "Maria Silva",
		"cpf":              validTestCPF,
		"company":          "ACME",
		"association_date": "2024-03-10",
		"expiration_date":  "2025-03-10",
	})

	rec := doJSON(t, router, http.MethodPost, "/v1/associates/"+strconv.Itoa(int(associate.ID))+"/dependents", map[string]any{
		"name": "Pedro Silva",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var dep dependentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &dep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dep.Company != "ACME" {
		t.Fatalf("company = %q", dep.Company)
	}
	if dep.AssociationDate == nil || *dep.AssociationDate != "2024-03-10" {
		t.Fatalf("association_date = %v", dep.AssociationDate)
	}
	if dep.ExpirationDate == nil || *dep.ExpirationDate != "2025-03-10" {
		t.Fatalf("expiration_date = %v", dep.ExpirationDate)
	}
}

func TestCreateDependentExplicitValuesWin(t *testing.T) {
	router := newAssociateTestRouter(t, newTestDB(t))

	associate := createTestAssociate(t, router, map[string]any{
		"name":    "Maria Silva",
		"cpf":     validTestCPF,
		"company": "ACME",
	})

	rec := doJSON(t, router, http.MethodPost, "/v1/associates/"+strconv.Itoa(int(associate.ID))+"/dependents", map[string]any{
		"name":    "Pedro Silva",
		"company": "Outra Empresa",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var dep dependentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &dep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dep.Company != "Outra Empresa" {
		t.Fatalf("company = %q", dep.Company)
	}
}

func TestUpdateDependentIsIndependentOfAssociate(t *testing.T) {
	db := newTestDB(t)
	router := newAssociateTestRouter(t, db)

	associate := createTestAssociate(t, router, map[string]any{
		"name":    "Maria Silva",
		"cpf":     validTestCPF,
		"company": "ACME",
	})
	rec := doJSON(t, router, http.MethodPost, "/v1/associates/"+strconv.Itoa(int(associate.ID))+"/dependents", map[string]any{
		"name": "Pedro Silva",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create dependent status = %d", rec.Code)
	}
	var dep dependentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &dep); err != nil {
		t.Fatalf("decode: %v", err)
	}

	base := "/v1/associates/" + strconv.Itoa(int(associate.ID))
	rec = doJSON(t, router, http.MethodPut, base+"/dependents/"+strconv.Itoa(int(dep.ID)), map[string]any{
		"name":    "Pedro Silva",
		"company": "Independente",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update dependent status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// The associate keeps its own company.
	var stored database.Associate
	if err := db.First(&stored, associate.ID).Error; err != nil {
		t.Fatalf("load associate: %v", err)
	}
	if stored.Company != "ACME" {
		t.Fatalf("associate company = %q", stored.Company)
	}
}

func TestDeleteAssociateCascadesDependents(t *testing.T) {
	db := newTestDB(t)
	router := newAssociateTestRouter(t, db)

	associate := createTestAssociate(t, router, map[string]any{"name": "Maria Silva", "cpf": validTestCPF})
	rec := doJSON(t, router, http.MethodPost, "/v1/associates/"+strconv.Itoa(int(associate.ID))+"/dependents", map[string]any{
		"name": "Pedro Silva",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create dependent status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/v1/associates/"+strconv.Itoa(int(associate.ID)), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var count int64
	if err := db.Model(&database.Dependent{}).Where("associate_id = ?", associate.ID).Count(&count).Error; err != nil {
		t.Fatalf("count dependents: %v", err)
	}
	if count != 0 {
		t.Fatalf("dependents left = %d", count)
	}
}

func TestGetAssociateNotFound(t *testing.T) {
	router := newAssociateTestRouter(t, newTestDB(t))

	rec := doJSON(t, router, http.MethodGet, "/v1/associates/999", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodGet, "/v1/associates/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}
