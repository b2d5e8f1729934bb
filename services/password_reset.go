package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/duckieducksrgood/winchpoint/entity"
	"github.com/duckieducksrgood/winchpoint/pkg/logging"
	"github.com/duckieducksrgood/winchpoint/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	resetCodeTTL     = 15 * time.Minute
	maxResetAttempts = 5
)

type PasswordResetService struct {
	userRepo *repository.UserRepository
	events   EventPublisher
	now      func() time.Time
}

func NewPasswordResetService(repo *repository.UserRepository, events EventPublisher) *PasswordResetService {
	return &PasswordResetService{userRepo: repo, events: events, now: time.Now}
}

// newResetCode returns a code in 1000..9999.
func newResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return big.NewInt(0).Add(n, big.NewInt(1000)).String(), nil
}

// Request stores a fresh code on the user and emails it.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	user, err := s.find(email)
	if err != nil {
		return err
	}
	code, err := newResetCode()
	if err != nil {
		return err
	}
	if err := s.userRepo.SetResetCode(user.ID, code, s.now().Add(resetCodeTTL)); err != nil {
		return err
	}
	if s.events != nil {
		ev := PasswordResetCode{Code: code, ExpiresIn: resetCodeTTL, Customer: Recipient{Email: user.Email, Name: user.FullName()}}
		if err := s.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
			logging.From(ctx).Warn("event_publish_failed", zap.String("event", ev.EventName()), zap.Error(err))
		}
	}
	logging.From(ctx).Info("password_reset_requested", zap.Uint("user_id", user.ID))
	return nil
}

func (s *PasswordResetService) Verify(email, code string) error {
	user, err := s.find(email)
	if err != nil {
		return err
	}
	return s.check(user, code)
}

func (s *PasswordResetService) Confirm(email, code, newPassword string) error {
	user, err := s.find(email)
	if err != nil {
		return err
	}
	if err := s.check(user, code); err != nil {
		return err
	}
	if len(newPassword) < minPasswordLen {
		return Validation("password must be at least 8 characters", "newPassword")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userRepo.ResetPassword(user.ID, string(hash))
}

func (s *PasswordResetService) find(email string) (*entity.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, Validation("email is required", "email")
	}
	user, err := s.userRepo.FindByEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("user with that email")
	}
	return user, err
}

// check spends one attempt before comparing, so parallel guesses cannot
// get past the limit. Verify followed by Confirm costs two.
func (s *PasswordResetService) check(user *entity.User, code string) error {
	code = strings.TrimSpace(code)
	if user.ResetCode == "" {
		return Validation("invalid reset code", "code")
	}
	ok, err := s.userRepo.TakeResetAttempt(user.ID, maxResetAttempts)
	if err != nil {
		return err
	}
	if !ok {
		if err := s.userRepo.ClearResetCode(user.ID); err != nil {
			return err
		}
		return Validation("too many attempts, request a new code", "code")
	}
	if code == "" || subtle.ConstantTimeCompare([]byte(user.ResetCode), []byte(code)) != 1 {
		return Validation("invalid reset code", "code")
	}
	if user.ResetCodeExpiresAt == nil || s.now().After(*user.ResetCodeExpiresAt) {
		return Validation("reset code has expired", "code")
	}
	return nil
}
