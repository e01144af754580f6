package lib

import (
	"context"
	"errors"

	"github.com/gojalifs/saving-challenge/config"
	"github.com/gojalifs/saving-challenge/lib/models"
	"github.com/gojalifs/saving-challenge/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Request-level failure classes. The HTTP layer maps these onto status codes.
var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailTaken          = errors.New("email is already registered")
	ErrInvalidWeek         = errors.New("week number is outside the challenge calendar")
	ErrInvalidSubscription = errors.New("subscription payload is missing endpoint or keys")
)

type Service struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	senders senders.Registry

	*onboardUser
	*savings
	*pushSubscriptions
}

func NewService(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, db *gorm.DB, senders senders.Registry) *Service {
	return &Service{
		cfg, log, db, senders,
		&onboardUser{cfg, log, db, senders},
		&savings{log, db},
		&pushSubscriptions{log, db},
	}
}

// VerifyEmail flips the user behind the nonce to verified. Unknown or expired
// nonces report false without error.
func (svc *Service) VerifyEmail(ctx context.Context, nonce string) (bool, error) {
	confirm := models.EmailConfirmation{}
	tx := svc.db.WithContext(ctx).Where("nonce = ?", nonce).First(&confirm)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	tx = svc.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", confirm.UserID).Update("verified", true)
	if err := tx.Error; err != nil {
		return false, err
	}

	return true, nil
}
