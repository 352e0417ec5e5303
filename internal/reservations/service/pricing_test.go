package service

import (
	"errors"
	"testing"

	reservationserrors "deskhub/internal/reservations/errors"
	"deskhub/pkg/model"
)

func rangeOfDays(days int) model.DateRange {
	start := model.NewDate(2026, 3, 1)
	return model.DateRange{Start: start, End: start.AddDays(days - 1)}
}

func TestComputePrice(t *testing.T) {
	tests := []struct {
		name     string
		price    int64
		discount int
		days     int
		want     int64
	}{
		{"two days no discount", 1000, 0, 2, 2000},
		{"forty days with ten percent discount", 1000, 10, 40, 36000},
		{"twenty seven days keeps full price", 1000, 10, 27, 27000},
		{"twenty eight days triggers discount", 1000, 10, 28, 25200},
		{"discount division truncates", 33, 3, 28, 897},
		{"long stay with zero discount", 500, 0, 30, 15000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			office := &model.Office{PricePerDay: tt.price, MonthlyDiscount: tt.discount}

			got, err := ComputePrice(office, rangeOfDays(tt.days))
			if err != nil {
				t.Fatalf("ComputePrice: %v", err)
			}
			if got != tt.want {
				t.Errorf("ComputePrice() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputePrice_DurationFloor(t *testing.T) {
	office := &model.Office{PricePerDay: 1000}

	_, err := ComputePrice(office, rangeOfDays(1))
	if !errors.Is(err, reservationserrors.ErrInvalidDuration) {
		t.Errorf("expected ErrInvalidDuration, got %v", err)
	}

	if _, err := ComputePrice(office, rangeOfDays(MinReservationDays)); err != nil {
		t.Errorf("expected %d-day reservation to be allowed, got %v", MinReservationDays, err)
	}
}
