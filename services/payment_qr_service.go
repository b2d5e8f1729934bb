package services

import (
	"errors"
	"strings"

	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/repository"

	"gorm.io/gorm"
)

type PaymentQRService struct {
	Repo *repository.PaymentQRRepository
}

func NewPaymentQRService(repo *repository.PaymentQRRepository) *PaymentQRService {
	return &PaymentQRService{Repo: repo}
}

type PaymentQRIn struct {
	Type   *string `json:"type"`
	QRCode *string `json:"qrCode"`
}

func (s *PaymentQRService) List() ([]entity.PaymentQR, error) { return s.Repo.List() }

func (s *PaymentQRService) Get(id uint) (*entity.PaymentQR, error) {
	q, err := s.Repo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("payment qr")
	}
	return q, err
}

func (s *PaymentQRService) Create(in *PaymentQRIn) (*entity.PaymentQR, error) {
	q := &entity.PaymentQR{Type: "GCASH"}
	if in.Type != nil && strings.TrimSpace(*in.Type) != "" {
		q.Type = strings.ToUpper(strings.TrimSpace(*in.Type))
	}
	if in.QRCode == nil || strings.TrimSpace(*in.QRCode) == "" {
		return nil, Validation("qr code is required", "qrCode")
	}
	q.QRCode = strings.TrimSpace(*in.QRCode)
	if err := s.Repo.Create(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *PaymentQRService) Update(id uint, in *PaymentQRIn) (*entity.PaymentQR, error) {
	q, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if in.Type != nil {
		t := strings.ToUpper(strings.TrimSpace(*in.Type))
		if t == "" {
			return nil, Validation("type cannot be empty", "type")
		}
		q.Type = t
	}
	if in.QRCode != nil {
		code := strings.TrimSpace(*in.QRCode)
		if code == "" {
			return nil, Validation("qr code cannot be empty", "qrCode")
		}
		q.QRCode = code
	}
	if err := s.Repo.Save(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *PaymentQRService) Delete(id uint) error {
	n, err := s.Repo.Delete(id)
	if err != nil {
		return err
	}
	if n == 0 {
		return NotFound("payment qr")
	}
	return nil
}
