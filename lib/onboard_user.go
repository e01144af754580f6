package lib

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gojalifs/saving-challenge/config"
	"github.com/gojalifs/saving-challenge/lib/models"
	"github.com/gojalifs/saving-challenge/senders"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type onboardUser struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	senders senders.Registry
}

func (svc *onboardUser) OnboardUser(ctx context.Context, email string, password string) (*models.User, error) {
	user, confirmation, err := svc.createUserAndConfirmation(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err = svc.sendVerificationEmail(ctx, email, confirmation.Nonce); err != nil {
		return nil, err
	}
	svc.log.Sugar().Infof("Created user %v (%s), confirmation nonce: %s", user.ID, email, confirmation.Nonce)
	return user, nil
}

func (svc *onboardUser) createUserAndConfirmation(ctx context.Context, email string, password string) (*models.User, *models.EmailConfirmation, error) {
	var existing models.User
	tx := svc.db.WithContext(ctx).Where("email = ?", email).First(&existing)
	if tx.Error == nil {
		return nil, nil, ErrEmailTaken
	} else if !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, nil, tx.Error
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
	}
	tx = svc.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Create(user)
	if err := tx.Error; err != nil {
		return nil, nil, err
	}

	confirm := &models.EmailConfirmation{
		UserID: user.ID,
		Nonce:  svc.generateNonce(),
		Expiry: time.Now().UTC().Add(3 * 24 * time.Hour),
	}
	tx = svc.db.WithContext(ctx).Create(confirm)
	if err := tx.Error; err != nil {
		return nil, nil, err
	}

	return user, confirm, nil
}

func (svc *onboardUser) sendVerificationEmail(ctx context.Context, email, nonce string) error {
	url := fmt.Sprintf("%s/verify/%s", svc.cfg.BaseURL, nonce)

	id, err := svc.senders.Email.Send(
		ctx,
		"Saving Challenge: Email verification required",
		fmt.Sprintf(`Click here to verify your email: <a href="%s">%s</a>`, url, url),
		email,
	)
	if err != nil {
		svc.log.Sugar().Infow("Failed to send verification email", "err", err)
	} else {
		svc.log.Sugar().Infow("Sent verification to "+email, "message_id", id)
	}
	return err
}

func (svc *onboardUser) generateNonce() string {
	return uuid.NewString()
}
