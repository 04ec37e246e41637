package models

import "time"

// Reaction is a single user's vote on a report. Confirm=false is a denunciation.
type Reaction struct {
	ID            string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	ReportID      string    `gorm:"size:36;not null;index" bson:"report_id" json:"report_id"`
	UserID        string    `gorm:"size:36;not null;index" bson:"user_id" json:"user_id"`
	ReactedAt     time.Time `gorm:"not null" bson:"reacted_at" json:"reacted_at"`
	Justification string    `gorm:"size:1000" bson:"justification,omitempty" json:"justification,omitempty"`
	Confirm       bool      `gorm:"not null" bson:"confirm" json:"confirm"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}

func (r *Reaction) Ref() ReactionRef {
	return ReactionRef{ID: r.ID, UserID: r.UserID, Confirm: r.Confirm}
}
