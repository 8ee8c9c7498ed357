package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is an operator account. Admin capability is a server-side role
// column surfaced through the access token, never a client-side check.
type User struct {
	gorm.Model
	Username           string `gorm:"uniqueIndex;size:64"`
	PasswordHash       string `gorm:"size:255"`
	IsAdmin            bool   `gorm:"default:false"`
	MustChangePassword bool   `gorm:"default:false"`
}

// Associate is a primary registered member.
type Associate struct {
	gorm.Model
	Name            string `gorm:"size:255;index"`
	RG              string `gorm:"size:32"`
	CPF             string `gorm:"size:14;uniqueIndex"`
	Role            string `gorm:"size:128"`
	Company         string `gorm:"size:255"`
	AssociationDate *time.Time
	ExpirationDate  *time.Time
	PhotoKey        string      `gorm:"size:512"`
	Dependents      []Dependent `gorm:"constraint:OnDelete:CASCADE"`
}

// Dependent is registered under an Associate. Company and dates are copied
// from the associate at creation time and evolve independently afterwards.
type Dependent struct {
	gorm.Model
	AssociateID     uint   `gorm:"index"`
	Name            string `gorm:"size:255"`
	RG              string `gorm:"size:32"`
	CPF             string `gorm:"size:14"`
	Company         string `gorm:"size:255"`
	AssociationDate *time.Time
	ExpirationDate  *time.Time
	PhotoKey        string `gorm:"size:512"`
}

// CardLayout persists one card template. The id is client-generatable (a
// uuid), so saving is an upsert: insert on a new id, overwrite on an
// existing one. Geometry holds the nine position/visibility pairs as jsonb.
type CardLayout struct {
	ID            string         `gorm:"primaryKey;size:36"`
	Title         string         `gorm:"size:255"`
	BackgroundKey string         `gorm:"size:512"`
	Geometry      datatypes.JSON `gorm:"type:jsonb"`
	UserID        uint           `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PrintJob tracks one batch card-print request through the worker.
type PrintJob struct {
	gorm.Model
	UserID    uint           `gorm:"index"`
	Status    string         `gorm:"size:32"`
	Selection datatypes.JSON `gorm:"type:jsonb"`
	CardCount int
	PageCount int
	PdfKey    string `gorm:"size:512"`
}
