// internal/domain/user/address_service.go
package user

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
)

// MaxAddressesPerUser caps the address book size
const MaxAddressesPerUser = 20

// CreateAddressRequest represents address creation data
type CreateAddressRequest struct {
	FirstName    string `json:"first_name" binding:"required,max=100"`
	LastName     string `json:"last_name" binding:"required,max=100"`
	Company      string `json:"company" binding:"max=100"`
	AddressLine1 string `json:"address_line1" binding:"required,max=255"`
	AddressLine2 string `json:"address_line2" binding:"max=255"`
	City         string `json:"city" binding:"required,max=100"`
	State        string `json:"state" binding:"max=100"`
	PostalCode   string `json:"postal_code" binding:"required,max=20"`
	Country      string `json:"country" binding:"required,len=2,alpha"` // ISO 2-letter code
	Phone        string `json:"phone" binding:"max=20"`
}

// ListAddresses returns the caller's addresses, newest first
func (s *Service) ListAddresses(ctx context.Context, userID uint) ([]Address, error) {
	var addresses []Address
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&addresses).Error
	if err != nil {
		return nil, apperrors.Internal(err, "listing addresses")
	}
	return addresses, nil
}

// CreateAddress adds an address to the caller's address book
func (s *Service) CreateAddress(ctx context.Context, userID uint, req *CreateAddressRequest) (*Address, error) {
	if _, err := s.FindUser(ctx, userID); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&Address{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, apperrors.Internal(err, "counting addresses")
	}
	if count >= MaxAddressesPerUser {
		return nil, apperrors.Newf(apperrors.CodeValidation, "address book is limited to %d entries", MaxAddressesPerUser)
	}

	address := Address{
		UserID:       userID,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Company:      strings.TrimSpace(req.Company),
		AddressLine1: strings.TrimSpace(req.AddressLine1),
		AddressLine2: strings.TrimSpace(req.AddressLine2),
		City:         strings.TrimSpace(req.City),
		State:        strings.TrimSpace(req.State),
		PostalCode:   strings.TrimSpace(req.PostalCode),
		Country:      strings.ToUpper(req.Country),
		Phone:        strings.TrimSpace(req.Phone),
	}
	if err := s.db.WithContext(ctx).Create(&address).Error; err != nil {
		return nil, apperrors.Internal(err, "creating address")
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"address_id": address.ID,
	}).Info("address created")
	return &address, nil
}

// DeleteAddress removes one of the caller's addresses. Orders keep their
// address_id; invoices already hold a printed snapshot.
func (s *Service) DeleteAddress(ctx context.Context, userID, addressID uint) error {
	result := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", addressID, userID).Delete(&Address{})
	if result.Error != nil {
		return apperrors.Internal(result.Error, "deleting address")
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.CodeNotFound, "address %d not found", addressID)
	}
	return nil
}
