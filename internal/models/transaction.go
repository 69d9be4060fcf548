package models

import "time"

// Transaction is the payment-tracking record accompanying a booking.
// Created unpaid with both dates unset; settlement happens outside this
// service.
type Transaction struct {
	ID          int64      `json:"id"`
	BookingID   int64      `json:"booking_id"`
	IsPaid      bool       `json:"is_paid"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
