package service

import (
	"deskhub/pkg/model"

	reservationserrors "deskhub/internal/reservations/errors"
)

const (
	// MinReservationDays is the duration floor: a reservation spans at least
	// two calendar days.
	MinReservationDays = 2

	// MonthlyDiscountMinDays is the threshold at which the office's monthly
	// discount applies.
	MonthlyDiscountMinDays = 28
)

// ComputePrice prices a reservation of the office over rng. The total is
// days * price_per_day in the smallest currency unit; stays of
// MonthlyDiscountMinDays or longer get the office's monthly discount,
// with truncating integer division.
func ComputePrice(office *model.Office, rng model.DateRange) (int64, error) {
	days := rng.Days()
	if days < MinReservationDays {
		return 0, reservationserrors.ErrInvalidDuration
	}

	total := int64(days) * office.PricePerDay
	if days >= MonthlyDiscountMinDays && office.MonthlyDiscount > 0 {
		total -= total * int64(office.MonthlyDiscount) / 100
	}

	return total, nil
}
