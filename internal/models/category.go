package models

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

// Category groups reports and owns the authoritative list of its active report ids.
type Category struct {
	ID          string                      `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Name        string                      `gorm:"size:120;not null;index" bson:"name" json:"name"`
	Description string                      `gorm:"size:500" bson:"description" json:"description"`
	ReportIDs   datatypes.JSONSlice[string] `bson:"reports" json:"reports,omitempty"`
	CreatedAt   time.Time                   `bson:"created_at" json:"created_at"`
}

func (c *Category) HasReport(reportID string) bool {
	return slices.Contains(c.ReportIDs, reportID)
}

// AddReport appends reportID unless it is already listed.
func (c *Category) AddReport(reportID string) {
	if c.HasReport(reportID) {
		return
	}
	c.ReportIDs = append(c.ReportIDs, reportID)
}

// RemoveReport drops reportID from the list and reports whether it was present.
func (c *Category) RemoveReport(reportID string) bool {
	i := slices.Index(c.ReportIDs, reportID)
	if i < 0 {
		return false
	}
	c.ReportIDs = slices.Delete(c.ReportIDs, i, i+1)
	return true
}

// Clone returns a copy that shares no slices with c.
func (c *Category) Clone() *Category {
	out := *c
	out.ReportIDs = slices.Clone(c.ReportIDs)
	return &out
}
