package models

import "time"

// User is an anonymous-but-identified participant. The contact number is only
// kept as a keyed digest.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	ContactKey   string    `gorm:"size:64;not null;uniqueIndex" bson:"contact_key" json:"-"`
	RegisteredAt time.Time `gorm:"not null" bson:"registered_at" json:"registered_at"`
}
