package lib

import (
	"context"

	"github.com/gojalifs/saving-challenge/lib/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type pushSubscriptions struct {
	log *zap.Logger
	db  *gorm.DB
}

// RegisterPushSubscription upserts a subscription keyed by endpoint. A repeat
// registration of the same endpoint refreshes owner and keys, it never creates
// a second row.
func (svc *pushSubscriptions) RegisterPushSubscription(ctx context.Context, userID uint, endpoint, p256dh, auth string) (*models.PushSubscription, error) {
	if endpoint == "" || p256dh == "" || auth == "" {
		return nil, ErrInvalidSubscription
	}

	sub := &models.PushSubscription{
		UserID:   userID,
		Endpoint: endpoint,
		P256DH:   p256dh,
		Auth:     auth,
	}
	tx := svc.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256_dh", "auth", "updated_at"}),
	}).Create(sub)
	if err := tx.Error; err != nil {
		return nil, err
	}

	svc.log.Sugar().Infow("Registered push subscription", "user_id", userID)
	return sub, nil
}

// UnregisterPushSubscription drops the subscription scoped to the user and
// endpoint. Deleting an endpoint that is already gone is not an error. The
// delete is unscoped: a soft-deleted row would keep holding the endpoint's
// unique index slot, so a later opt-in would refresh an invisible row.
func (svc *pushSubscriptions) UnregisterPushSubscription(ctx context.Context, userID uint, endpoint string) error {
	if endpoint == "" {
		return ErrInvalidSubscription
	}

	tx := svc.db.WithContext(ctx).
		Unscoped().
		Where("user_id = ?", userID).
		Where("endpoint = ?", endpoint).
		Delete(&models.PushSubscription{})
	if err := tx.Error; err != nil {
		return err
	}

	svc.log.Sugar().Infow("Unregistered push subscription", "user_id", userID)
	return nil
}
