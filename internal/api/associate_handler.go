package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"carteirinha/internal/br"
	"carteirinha/internal/database"
)

// AssociateHandler serves associate and dependent registration.
type AssociateHandler struct {
	db *gorm.DB
}

// NewAssociateHandler builds the handler.
func NewAssociateHandler(db *gorm.DB) *AssociateHandler {
	return &AssociateHandler{db: db}
}

var errInvalidMemberID = errors.New("invalid member id")

const dateLayout = "2006-01-02"

type associateRequest struct {
	Name            string  `json:"name" binding:"required"`
	RG              string  `json:"rg"`
	CPF             string  `json:"cpf" binding:"required"`
	Role            string  `json:"role"`
	Company         string  `json:"company"`
	AssociationDate *string `json:"association_date"`
	ExpirationDate  *string `json:"expiration_date"`
	PhotoKey        string  `json:"photo_key"`
}

type dependentRequest struct {
	Name            string  `json:"name" binding:"required"`
	RG              string  `json:"rg"`
	CPF             string  `json:"cpf"`
	Company         *string `json:"company"`
	AssociationDate *string `json:"association_date"`
	ExpirationDate  *string `json:"expiration_date"`
	PhotoKey        string  `json:"photo_key"`
}

type dependentResponse struct {
	ID              uint      `json:"id"`
	AssociateID     uint      `json:"associate_id"`
	Name            string    `json:"name"`
	RG              string    `json:"rg"`
	CPF             string    `json:"cpf"`
	Company         string    `json:"company"`
	AssociationDate *string   `json:"association_date"`
	ExpirationDate  *string   `json:"expiration_date"`
	PhotoKey        string    `json:"photo_key,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type associateResponse struct {
	ID              uint                `json:"id"`
	Name            string              `json:"name"`
	RG              string              `json:"rg"`
	CPF             string              `json:"cpf"`
	Role            string              `json:"role"`
	Company         string              `json:"company"`
	AssociationDate *string             `json:"association_date"`
	ExpirationDate  *string             `json:"expiration_date"`
	PhotoKey        string              `json:"photo_key,omitempty"`
	Dependents      []dependentResponse `json:"dependents,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func formatDatePtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func parseDatePtr(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(*s))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func newDependentResponse(d database.Dependent) dependentResponse {
	return dependentResponse{
		ID:              d.ID,
		AssociateID:     d.AssociateID,
		Name:            d.Name,
		RG:              d.RG,
		CPF:             d.CPF,
		Company:         d.Company,
		AssociationDate: formatDatePtr(d.AssociationDate),
		ExpirationDate:  formatDatePtr(d.ExpirationDate),
		PhotoKey:        d.PhotoKey,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func newAssociateResponse(a database.Associate) associateResponse {
	resp := associateResponse{
		ID:              a.ID,
		Name:            a.Name,
		RG:              a.RG,
		CPF:             a.CPF,
		Role:            a.Role,
		Company:         a.Company,
		AssociationDate: formatDatePtr(a.AssociationDate),
		ExpirationDate:  formatDatePtr(a.ExpirationDate),
		PhotoKey:        a.PhotoKey,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	for _, d := range a.Dependents {
		resp.Dependents = append(resp.Dependents, newDependentResponse(d))
	}
	return resp
}

// CreateAssociate registers a new associate. The expiration date defaults
// to one year after the association date when omitted; once set it is a
// freely editable value like any other.
func (h *AssociateHandler) CreateAssociate(c *gin.Context) {
	var req associateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	cpf := br.Digits(req.CPF)
	if !br.ValidCPF(cpf) {
		BadRequest(c, "invalid cpf")
		return
	}

	associationDate, err := parseDatePtr(req.AssociationDate)
	if err != nil {
		BadRequest(c, "invalid association_date")
		return
	}
	expirationDate, err := parseDatePtr(req.ExpirationDate)
	if err != nil {
		BadRequest(c, "invalid expiration_date")
		return
	}
	if expirationDate == nil && associationDate != nil {
		d := associationDate.AddDate(1, 0, 0)
		expirationDate = &d
	}

	ctx := c.Request.Context()
	masked := br.MaskCPF(cpf)

	var existing database.Associate
	if err := h.db.WithContext(ctx).Where("cpf = ?", masked).First(&existing).Error; err == nil {
		Conflict(c, "cpf already registered")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		Internal(c, "failed to check cpf")
		return
	}

	associate := database.Associate{
		Name:            strings.TrimSpace(req.Name),
		RG:              strings.TrimSpace(req.RG),
		CPF:             masked,
		Role:            strings.TrimSpace(req.Role),
		Company:         strings.TrimSpace(req.Company),
		AssociationDate: associationDate,
		ExpirationDate:  expirationDate,
		PhotoKey:        strings.TrimSpace(req.PhotoKey),
	}

	if err := h.db.WithContext(ctx).Create(&associate).Error; err != nil {
		Internal(c, "failed to create associate")
		return
	}

	c.JSON(http.StatusCreated, newAssociateResponse(associate))
}

// ListAssociates lists associates, optionally filtered by a name fragment.
func (h *AssociateHandler) ListAssociates(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	query := h.db.WithContext(ctx).Model(&database.Associate{}).Order("name")
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var associates []database.Associate
	if err := query.Preload("Dependents").Find(&associates).Error; err != nil {
		Internal(c, "failed to list associates")
		return
	}

	items := make([]associateResponse, 0, len(associates))
	for _, a := range associates {
		items = append(items, newAssociateResponse(a))
	}
	c.JSON(http.StatusOK, items)
}

// GetAssociate returns one associate with its dependents.
func (h *AssociateHandler) GetAssociate(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	associate, err := h.getAssociate(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, errInvalidMemberID):
			BadRequest(c, "invalid associate id")
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "associate not found")
		default:
			Internal(c, "failed to query associate")
		}
		return
	}

	c.JSON(http.StatusOK, newAssociateResponse(*associate))
}

// UpdateAssociate overwrites an associate's registration data.
func (h *AssociateHandler) UpdateAssociate(c *gin.Context) {
	var req associateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	associate, err := h.getAssociate(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, errInvalidMemberID):
			BadRequest(c, "invalid associate id")
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "associate not found")
		default:
			Internal(c, "failed to query associate")
		}
		return
	}

	cpf := br.Digits(req.CPF)
	if !br.ValidCPF(cpf) {
		BadRequest(c, "invalid cpf")
		return
	}
	masked := br.MaskCPF(cpf)

	associationDate, err := parseDatePtr(req.AssociationDate)
	if err != nil {
		BadRequest(c, "invalid association_date")
		return
	}
	expirationDate, err := parseDatePtr(req.ExpirationDate)
	if err != nil {
		BadRequest(c, "invalid expiration_date")
		return
	}

	ctx := c.Request.Context()

	if masked != associate.CPF {
		var existing database.Associate
		if err := h.db.WithContext(ctx).Where("cpf = ? AND id <> ?", masked, associate.ID).First(&existing).Error; err == nil {
			Conflict(c, "cpf already registered")
			return
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			Internal(c, "failed to check cpf")
			return
		}
	}

	updates := map[string]any{
		"name":             strings.TrimSpace(req.Name),
		"rg":               strings.TrimSpace(req.RG),
		"cpf":              masked,
		"role":             strings.TrimSpace(req.Role),
		"company":          strings.TrimSpace(req.Company),
		"association_date": associationDate,
		"expiration_date":  expirationDate,
		"photo_key":        strings.TrimSpace(req.PhotoKey),
	}

	if err := h.db.WithContext(ctx).Model(associate).Updates(updates).Error; err != nil {
		Internal(c, "failed to update associate")
		return
	}

	if err := h.db.WithContext(ctx).Preload("Dependents").First(associate, associate.ID).Error; err != nil {
		Internal(c, "failed to reload associate")
		return
	}

	c.JSON(http.StatusOK, newAssociateResponse(*associate))
}

// DeleteAssociate removes an associate and, through the FK constraint, its
// dependents.
func (h *AssociateHandler) DeleteAssociate(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	associate, err := h.getAssociate(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, errInvalidMemberID):
			BadRequest(c, "invalid associate id")
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "associate not found")
		default:
			Internal(c, "failed to query associate")
		}
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Select("Dependents").Delete(associate).Error; err != nil {
		Internal(c, "failed to delete associate")
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateDependent registers a dependent under an associate. Company and
// both dates are copied from the associate when the request omits them;
// after creation they evolve independently.
func (h *AssociateHandler) CreateDependent(c *gin.Context) {
	var req dependentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	associate, err := h.getAssociate(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, errInvalidMemberID):
			BadRequest(c, "invalid associate id")
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "associate not found")
		default:
			Internal(c, "failed to query associate")
		}
		return
	}

	cpf := strings.TrimSpace(req.CPF)
	if cpf != "" {
		digits := br.Digits(cpf)
		if !br.ValidCPF(digits) {
			BadRequest(c, "invalid cpf")
			return
		}
		cpf = br.MaskCPF(digits)
	}

	associationDate, err := parseDatePtr(req.AssociationDate)
	if err != nil {
		BadRequest(c, "invalid association_date")
		return
	}
	expirationDate, err := parseDatePtr(req.ExpirationDate)
	if err != nil {
		BadRequest(c, "invalid expiration_date")
		return
	}

	company := associate.Company
	if req.Company != nil {
		company = strings.TrimSpace(*req.Company)
	}
	if associationDate == nil {
		associationDate = associate.AssociationDate
	}
	if expirationDate == nil {
		expirationDate = associate.ExpirationDate
	}

	dependent := database.Dependent{
		AssociateID:     associate.ID,
		Name:            strings.TrimSpace(req.Name),
		RG:              strings.TrimSpace(req.RG),
		CPF:             cpf,
		Company:         company,
		AssociationDate: associationDate,
		ExpirationDate:  expirationDate,
		PhotoKey:        strings.TrimSpace(req.PhotoKey),
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Create(&dependent).Error; err != nil {
		Internal(c, "failed to create dependent")
		return
	}

	c.JSON(http.StatusCreated, newDependentResponse(dependent))
}

// UpdateDependent overwrites a dependent's data.
func (h *AssociateHandler) UpdateDependent(c *gin.Context) {
	var req dependentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	dependent, err := h.getDependent(c.Request.Context(), c.Param("id"), c.Param("dependentID"))
	if err != nil {
		switch {
		case errors.Is(err, errInvalidMemberID):
			BadRequest(c, "invalid dependent id")
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "dependent not found")
		default:
			Internal(c, "failed to query dependent")
		}
		return
	}

	cpf := strings.TrimSpace(req.CPF)
	if cpf != "" {
		digits := br.Digits(cpf)
		if !br.ValidCPF(digits) {
			BadRequest(c, "invalid cpf")
			return
		}
		cpf = br.MaskCPF(digits)
	}

	associationDate, err := parseDatePtr(req.AssociationDate)
	if err != nil {
		BadRequest(c, "invalid association_date")
		return
	}
	expirationDate, err := parseDatePtr(req.ExpirationDate)
	if err != nil {
		BadRequest(c, "invalid expiration_date")
		return
	}

	company := dependent.Company
	if req.Company != nil {
		company = strings.TrimSpace(*req.Company)
	}

	updates := map[string]any{
		"name":             strings.TrimSpace(req.Name),
		"rg":               strings.TrimSpace(req.RG),
		"cpf":              cpf,
		"company":          company,
		"association_date": associationDate,
		"expiration_date":  expirationDate,
		"photo_key":        strings.TrimSpace(req.PhotoKey),
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Model(dependent).Updates(updates).Error; err != nil {
		Internal(c, "failed to update dependent")
		return
	}

	if err := h.db.WithContext(ctx).First(dependent, dependent.ID).Error; err != nil {
		Internal(c, "failed to reload dependent")
		return
	}

	c.JSON(http.StatusOK, newDependentResponse(*dependent))
}

// DeleteDependent removes a dependent.
func (h *AssociateHandler) DeleteDependent(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		AbortUnauthorized(c)
		return
	}

	dependent, err := h.getDependent(c.Request.Context(), c.Param("id"), c.Param("dependentID"))
	if err != nil {
		switch {
		case errors.Is(err, errInvalidMemberID):
			BadRequest(c, "invalid dependent id")
		case errors.Is(err, gorm.ErrRecordNotFound):
			NotFound(c, "dependent not found")
		default:
			Internal(c, "failed to query dependent")
		}
		return
	}

	ctx := c.Request.Context()
	if err := h.db.WithContext(ctx).Delete(&database.Dependent{}, dependent.ID).Error; err != nil {
		Internal(c, "failed to delete dependent")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AssociateHandler) getAssociate(ctx context.Context, idParam string) (*database.Associate, error) {
	id, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil {
		return nil, errInvalidMemberID
	}

	var associate database.Associate
	if err := h.db.WithContext(ctx).Preload("Dependents").First(&associate, uint(id)).Error; err != nil {
		return nil, err
	}
	return &associate, nil
}

func (h *AssociateHandler) getDependent(ctx context.Context, associateParam, dependentParam string) (*database.Dependent, error) {
	associateID, err := strconv.ParseUint(associateParam, 10, 64)
	if err != nil {
		return nil, errInvalidMemberID
	}
	dependentID, err := strconv.ParseUint(dependentParam, 10, 64)
	if err != nil {
		return nil, errInvalidMemberID
	}

	var dependent database.Dependent
	if err := h.db.WithContext(ctx).
		Where("id = ? AND associate_id = ?", uint(dependentID), uint(associateID)).
		First(&dependent).Error; err != nil {
		return nil, err
	}
	return &dependent, nil
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}
