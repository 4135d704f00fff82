// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"gorm.io/gorm"
)

// User represents the user entity
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Email       string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password    string         `gorm:"not null;size:255" json:"-"` // Don't return in JSON
	FirstName   string         `gorm:"size:100" json:"first_name"`
	LastName    string         `gorm:"size:100" json:"last_name"`
	Phone       string         `gorm:"size:20" json:"phone"`
	Role        auth.Role      `gorm:"not null;size:20;default:'customer'" json:"role"`
	IsActive    bool           `gorm:"not null" json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Addresses []Address `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"addresses,omitempty"`
}

// Address represents user addresses
type Address struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	FirstName    string    `gorm:"size:100" json:"first_name"`
	LastName     string    `gorm:"size:100" json:"last_name"`
	Company      string    `gorm:"size:100" json:"company"`
	AddressLine1 string    `gorm:"size:255;not null" json:"address_line1"`
	AddressLine2 string    `gorm:"size:255" json:"address_line2"`
	City         string    `gorm:"size:100;not null" json:"city"`
	State        string    `gorm:"size:100" json:"state"`
	PostalCode   string    `gorm:"size:20" json:"postal_code"`
	Country      string    `gorm:"size:2;not null;default:'ES'" json:"country"` // ISO 2-letter code
	Phone        string    `gorm:"size:20" json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// TableName overrides the table name for Address
func (Address) TableName() string {
	return "addresses"
}

// BeforeCreate hook to handle business logic before user creation
func (u *User) BeforeCreate(tx *gorm.DB) error {
	// Email should be lowercase
	u.Email = strings.ToLower(u.Email)
	return nil
}

// GetFullName returns the user's full name
func (u *User) GetFullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Lines renders the address as printable lines
func (a *Address) Lines() []string {
	lines := []string{}
	if name := strings.TrimSpace(a.FirstName + " " + a.LastName); name != "" {
		lines = append(lines, name)
	}
	for _, part := range []string{a.Company, a.AddressLine1, a.AddressLine2} {
		if part != "" {
			lines = append(lines, part)
		}
	}
	city := strings.TrimSpace(strings.Join([]string{a.PostalCode, a.City}, " "))
	if a.State != "" {
		city = strings.TrimSpace(city + ", " + a.State)
	}
	if city != "" {
		lines = append(lines, city)
	}
	if a.Country != "" {
		lines = append(lines, a.Country)
	}
	return lines
}
