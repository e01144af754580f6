package lib

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gojalifs/saving-challenge/lib/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const sessionTTL = 30 * 24 * time.Hour

// Login checks the credentials and mints a bearer token for the session.
func (svc *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user := &models.User{}
	tx := svc.db.WithContext(ctx).Where("email = ?", email).First(user)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, ErrInvalidCredentials
	} else if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"iat":     now.Unix(),
		"exp":     now.Add(sessionTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(svc.cfg.JWTSecret))
	if err != nil {
		return "", nil, err
	}

	tx = svc.db.WithContext(ctx).Model(user).Update("last_login_at", sql.NullTime{Time: now, Valid: true})
	if err := tx.Error; err != nil {
		svc.log.Sugar().Warnw("Failed to record login time", "user_id", user.ID, "err", err)
	}

	return token, user, nil
}

// ResolveSession validates a bearer token and returns the user id inside it.
func (svc *Service) ResolveSession(token string) (uint, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(svc.cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidCredentials
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidCredentials
	}
	id, ok := claims["user_id"].(float64)
	if !ok {
		return 0, ErrInvalidCredentials
	}
	return uint(id), nil
}
