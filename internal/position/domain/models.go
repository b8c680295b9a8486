package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusOpen            Status = "open"
	StatusPendingApproval Status = "pending_approval"
	StatusClosed          Status = "closed"
)

// Position is a hiring requisition.
type Position struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	ReferenceNumber string       `gorm:"not null;uniqueIndex" json:"reference_number"`
	Title           string       `gorm:"not null" json:"title"`
	Department      string       `json:"department"`
	Status          Status       `gorm:"not null" json:"status"`
	Headcount       int          `gorm:"not null" json:"headcount"`
	SLADays         int          `gorm:"column:sla_days;not null" json:"sla_days"`
	ManagerID       string       `gorm:"column:manager_id;not null;index" json:"manager_id"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null" json:"updated_at"`
}

// DaysOpen counts whole days since the position was created.
func (p Position) DaysOpen(now time.Time) int {
	if p.CreatedAt.IsZero() || now.Before(p.CreatedAt) {
		return 0
	}
	return int(now.Sub(p.CreatedAt).Hours() / 24)
}

// SLABreached reports whether the position has stayed open past its SLA.
func (p Position) SLABreached(now time.Time) bool {
	if p.SLADays <= 0 || p.Status == StatusClosed {
		return false
	}
	return p.DaysOpen(now) > p.SLADays
}
