package models

import "time"

// Task represents a piece of classroom work that can be assigned to users.
// The deadline is optional; tasks without one never produce reminders.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Deadline    *time.Time `gorm:"index" json:"deadline"`
	Priority    string     `gorm:"size:32" json:"priority"`
	AuthorID    uint       `gorm:"not null;index" json:"author_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Author User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"author"`
}

// HasDeadline reports whether the task carries a deadline.
func (t Task) HasDeadline() bool {
	return t.Deadline != nil
}

// IsPastDue returns true when the task deadline has already passed.
func (t Task) IsPastDue(reference time.Time) bool {
	return t.Deadline != nil && reference.After(*t.Deadline)
}
