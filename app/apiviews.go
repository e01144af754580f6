package app

import (
	"database/sql"
	"time"

	"github.com/gojalifs/saving-challenge/lib/models"
)

type UserView struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

func (view UserView) From(entity *models.User) UserView {
	return UserView{
		ID:       entity.ID,
		Email:    entity.Email,
		Verified: entity.Verified,
	}
}

type ProgressView struct {
	Entries    []SavingsEntryView `json:"entries"`
	TotalSaved int                `json:"total_saved"`
}

type SavingsEntryView struct {
	WeekNumber int     `json:"week_number"`
	Amount     int     `json:"amount"`
	Saved      bool    `json:"saved"`
	SavedAt    *string `json:"saved_at"`
}

func (view SavingsEntryView) From(entity models.SavingsEntry) SavingsEntryView {
	return SavingsEntryView{
		WeekNumber: entity.WeekNumber,
		Amount:     entity.Amount,
		Saved:      entity.Saved,
		SavedAt:    isoformat(entity.SavedAt),
	}
}

type SubscriptionView struct {
	ID       uint   `json:"id"`
	UserID   uint   `json:"user_id"`
	Endpoint string `json:"endpoint"`
}

func (view SubscriptionView) From(entity models.PushSubscription) SubscriptionView {
	return SubscriptionView{
		ID:       entity.ID,
		UserID:   entity.UserID,
		Endpoint: entity.Endpoint,
	}
}

type Fromable[Entity any, Repr any] interface {
	From(Entity) Repr
}

func FromMany[U Fromable[T, U], T any](elems []T) []U {
	out := make([]U, len(elems))
	for i, t := range elems {
		var u U
		out[i] = u.From(t)
	}
	return out
}

func isoformat(t sql.NullTime) *string {
	if t.Valid {
		s := t.Time.UTC().Format(time.RFC3339)
		return &s
	}
	return nil
}
