package models

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

// ReactionRef is the denormalized copy of a reaction kept on its report.
type ReactionRef struct {
	ID      string `bson:"id" json:"id"`
	UserID  string `bson:"user_id" json:"user_id"`
	Confirm bool   `bson:"confirm" json:"confirm"`
}

// Report is a geolocated civic complaint. UserIDs holds the reporter first.
type Report struct {
	ID             string                           `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	UserIDs        datatypes.JSONSlice[string]      `bson:"users" json:"users"`
	PublishedAt    time.Time                        `gorm:"not null;index" bson:"published_at" json:"published_at"`
	Description    string                           `gorm:"size:2000" bson:"description" json:"description,omitempty"`
	Latitude       float64                          `bson:"latitude" json:"latitude"`
	Longitude      float64                          `bson:"longitude" json:"longitude"`
	ImageURL       string                           `gorm:"size:500" bson:"image_url" json:"image_url"`
	ConfirmedCount int                              `gorm:"not null;default:0" bson:"confirmed" json:"confirmed"`
	DeniedCount    int                              `gorm:"not null;default:0" bson:"denied" json:"denied"`
	Reactions      datatypes.JSONSlice[ReactionRef] `bson:"reactions" json:"reactions,omitempty"`
	Version        int64                            `gorm:"not null;default:0" bson:"version" json:"-"`
	CreatedAt      time.Time                        `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time                        `bson:"updated_at" json:"updated_at"`
}

// Reporter returns the id of the user who published the report.
func (r *Report) Reporter() string {
	if len(r.UserIDs) == 0 {
		return ""
	}
	return r.UserIDs[0]
}

func (r *Report) HasUser(userID string) bool {
	return slices.Contains(r.UserIDs, userID)
}

// HasVoted reports whether userID already owns one of the report's reactions.
func (r *Report) HasVoted(userID string) bool {
	return slices.ContainsFunc(r.Reactions, func(ref ReactionRef) bool {
		return ref.UserID == userID
	})
}

// Tally counts the stored reaction refs by polarity.
func (r *Report) Tally() (confirmed, denied int) {
	for _, ref := range r.Reactions {
		if ref.Confirm {
			confirmed++
		} else {
			denied++
		}
	}
	return confirmed, denied
}

// Consistent reports whether the counters match the stored reaction refs.
func (r *Report) Consistent() bool {
	c, d := r.Tally()
	return c == r.ConfirmedCount && d == r.DeniedCount
}

func (r *Report) Clone() *Report {
	out := *r
	out.UserIDs = slices.Clone(r.UserIDs)
	out.Reactions = slices.Clone(r.Reactions)
	return &out
}
