package card

import (
	"time"

	"github.com/google/uuid"
)

// Layout is a named ID-card template: one position and one visibility flag
// for every Field, plus an optional background image reference (an object
// key in photo storage, empty when the card has no background).
//
// A Layout is always fully populated. Freshly created layouts carry the
// default geometry (all positions at the origin, all fields hidden); decode
// paths clamp whatever arrives back into card bounds.
type Layout struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	BackgroundImage string `json:"background_image"`

	PhotoPosition           Position `json:"photo_position"`
	NamePosition            Position `json:"name_position"`
	RGPosition              Position `json:"rg_position"`
	CPFPosition             Position `json:"cpf_position"`
	RolePosition            Position `json:"role_position"`
	CompanyPosition         Position `json:"company_position"`
	AssociationDatePosition Position `json:"association_date_position"`
	ExpirationDatePosition  Position `json:"expiration_date_position"`
	DependentNamePosition   Position `json:"dependent_name_position"`

	ShowPhoto           bool `json:"show_photo"`
	ShowName            bool `json:"show_name"`
	ShowRG              bool `json:"show_rg"`
	ShowCPF             bool `json:"show_cpf"`
	ShowRole            bool `json:"show_role"`
	ShowCompany         bool `json:"show_company"`
	ShowAssociationDate bool `json:"show_association_date"`
	ShowExpirationDate  bool `json:"show_expiration_date"`
	ShowDependentName   bool `json:"show_dependent_name"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// NewLayout returns a layout with a generated id, the given title and
// default geometry.
func NewLayout(title string) Layout {
	return Layout{
		ID:    uuid.NewString(),
		Title: title,
	}
}

// PositionOf returns the stored position for a field.
func (l *Layout) PositionOf(f Field) Position {
	switch f {
	case FieldPhoto:
		return l.PhotoPosition
	case FieldName:
		return l.NamePosition
	case FieldRG:
		return l.RGPosition
	case FieldCPF:
		return l.CPFPosition
	case FieldRole:
		return l.RolePosition
	case FieldCompany:
		return l.CompanyPosition
	case FieldAssociationDate:
		return l.AssociationDatePosition
	case FieldExpirationDate:
		return l.ExpirationDatePosition
	case FieldDependentName:
		return l.DependentNamePosition
	}
	return Position{}
}

// SetPosition stores a new position for a field, clamped to card bounds.
// This is the position-editor contract: both axes are always emitted and a
// coordinate can never leave [0, bound], whatever the input magnitude.
func (l *Layout) SetPosition(f Field, p Position) {
	p = p.Clamp()
	switch f {
	case FieldPhoto:
		l.PhotoPosition = p
	case FieldName:
		l.NamePosition = p
	case FieldRG:
		l.RGPosition = p
	case FieldCPF:
		l.CPFPosition = p
	case FieldRole:
		l.RolePosition = p
	case FieldCompany:
		l.CompanyPosition = p
	case FieldAssociationDate:
		l.AssociationDatePosition = p
	case FieldExpirationDate:
		l.ExpirationDatePosition = p
	case FieldDependentName:
		l.DependentNamePosition = p
	}
}

// Visible reports whether a field is drawn. A hidden field may still hold a
// stale position; renderers must omit it entirely.
func (l *Layout) Visible(f Field) bool {
	switch f {
	case FieldPhoto:
		return l.ShowPhoto
	case FieldName:
		return l.ShowName
	case FieldRG:
		return l.ShowRG
	case FieldCPF:
		return l.ShowCPF
	case FieldRole:
		return l.ShowRole
	case FieldCompany:
		return l.ShowCompany
	case FieldAssociationDate:
		return l.ShowAssociationDate
	case FieldExpirationDate:
		return l.ShowExpirationDate
	case FieldDependentName:
		return l.ShowDependentName
	}
	return false
}

// SetVisible toggles a field's visibility flag.
func (l *Layout) SetVisible(f Field, visible bool) {
	switch f {
	case FieldPhoto:
		l.ShowPhoto = visible
	case FieldName:
		l.ShowName = visible
	case FieldRG:
		l.ShowRG = visible
	case FieldCPF:
		l.ShowCPF = visible
	case FieldRole:
		l.ShowRole = visible
	case FieldCompany:
		l.ShowCompany = visible
	case FieldAssociationDate:
		l.ShowAssociationDate = visible
	case FieldExpirationDate:
		l.ShowExpirationDate = visible
	case FieldDependentName:
		l.ShowDependentName = visible
	}
}

// Normalize clamps every position into card bounds and backfills a missing
// id. Called after decoding a layout from a client or the store.
func (l *Layout) Normalize() {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	for _, f := range DrawOrder {
		l.SetPosition(f, l.PositionOf(f))
	}
}

// Clone deep-copies the layout geometry under a fresh id. Timestamps reset;
// the caller decides the new title.
func (l Layout) Clone() Layout {
	dup := l
	dup.ID = uuid.NewString()
	dup.CreatedAt = time.Time{}
	dup.UpdatedAt = time.Time{}
	return dup
}
