package storage

import (
	"time"

	"github.com/google/uuid"
)

// Subscription is a row of the subscriptions table.
type Subscription struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"type:text;not null;uniqueIndex"`
	Name         string    `gorm:"type:text;not null"`
	SubscribedAt time.Time `gorm:"type:timestamptz;not null"`
}

// TableName implements gorm's tabler.
func (Subscription) TableName() string { return "subscriptions" }

// NewSubscription returns a subscription with a random ID, subscribed now.
func NewSubscription(email, name string) *Subscription {
	return &Subscription{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		SubscribedAt: time.Now().UTC(),
	}
}
