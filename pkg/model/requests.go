package model

// BookReservationRequest is the payload for booking an office.
type BookReservationRequest struct {
	OfficeID  string `json:"office_id" validate:"required,mongodb"`
	UserID    string `json:"user_id" validate:"required"`
	StartDate Date   `json:"start_date" validate:"required"`
	EndDate   Date   `json:"end_date" validate:"required"`
}

func (r *BookReservationRequest) Range() DateRange {
	return DateRange{Start: r.StartDate, End: r.EndDate}
}

// CancelReservationRequest identifies the requester; only the reservation
// owner may cancel.
type CancelReservationRequest struct {
	UserID string `json:"user_id" validate:"required"`
}
