package lib

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gojalifs/saving-challenge/lib/challenge"
	"github.com/gojalifs/saving-challenge/lib/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type savings struct {
	log *zap.Logger
	db  *gorm.DB
}

// ToggleSaving marks one challenge week as saved or unsaved. The first toggle
// creates the entry; later toggles update it in place. Entries are never
// deleted here.
func (svc *savings) ToggleSaving(ctx context.Context, userID uint, week int, saved bool) (*models.SavingsEntry, error) {
	amount, ok := challenge.Amount(week)
	if !ok {
		return nil, ErrInvalidWeek
	}

	savedAt := sql.NullTime{}
	if saved {
		savedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	entry := &models.SavingsEntry{}
	tx := svc.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("week_number = ?", week).
		First(entry)

	switch {
	case errors.Is(tx.Error, gorm.ErrRecordNotFound):
		entry = &models.SavingsEntry{
			UserID:     userID,
			WeekNumber: week,
			Amount:     amount,
			Saved:      saved,
			SavedAt:    savedAt,
		}
		tx = svc.db.WithContext(ctx).Clauses(clause.Returning{}).Create(entry)
		if err := tx.Error; err != nil {
			return nil, err
		}

	case tx.Error != nil:
		return nil, tx.Error

	default:
		tx = svc.db.WithContext(ctx).Model(entry).Updates(map[string]any{
			"saved":    saved,
			"saved_at": savedAt,
		})
		if err := tx.Error; err != nil {
			return nil, err
		}
		entry.Saved = saved
		entry.SavedAt = savedAt
	}

	svc.log.Sugar().Infow("Toggled saving entry",
		"user_id", userID, "week", week, "saved", saved)
	return entry, nil
}

// Progress returns the user's entries and the sum of their saved amounts.
func (svc *savings) Progress(ctx context.Context, userID uint) (models.SavingsEntries, int, error) {
	var entries models.SavingsEntries
	tx := svc.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("week_number asc").
		Find(&entries)
	if err := tx.Error; err != nil {
		return nil, 0, err
	}

	totalSaved := 0
	for _, entry := range entries {
		if entry.Saved {
			totalSaved += entry.Amount
		}
	}
	return entries, totalSaved, nil
}
