package model

import "time"

type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// CanTransitionTo encodes the reservation lifecycle: active may be cancelled,
// cancelled is terminal.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	return s == ReservationStatusActive && next == ReservationStatusCancelled
}

type Reservation struct {
	ID       string            `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	OfficeID string            `json:"office_id" bson:"office_id" validate:"required,mongodb"`
	UserID   string            `json:"user_id" bson:"user_id" validate:"required"`
	Status   ReservationStatus `json:"status" bson:"status" validate:"required,oneof=active cancelled"`

	StartDate Date `json:"start_date" bson:"start_date" validate:"required"`
	EndDate   Date `json:"end_date" bson:"end_date" validate:"required"`

	// Price is computed once at booking time, in the smallest currency unit,
	// and never recomputed afterwards.
	Price int64 `json:"price" bson:"price"`

	// WifiPassword is sealed (AES-GCM) before it is persisted and unsealed
	// only when the reservation is returned to its owner.
	WifiPassword string `json:"wifi_password,omitempty" bson:"wifi_password,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Range returns the reserved span of calendar days.
func (r *Reservation) Range() DateRange {
	return DateRange{Start: r.StartDate, End: r.EndDate}
}
