package models

import "time"

type Booking struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	RoomName  string    `json:"room_name"` // denormalized accommodation name snapshot
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	TotalCost float64   `json:"total_cost"`
	CreatedAt time.Time `json:"created_at"`
}

// Nights returns the whole-day span between start and end dates.
func (b *Booking) Nights() int64 {
	return int64(b.EndDate.Sub(b.StartDate).Hours() / 24)
}
