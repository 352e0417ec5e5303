package notifier

import (
	"context"
	"time"

	"deskhub/pkg/kafka"
	"deskhub/pkg/logger"
	"deskhub/pkg/model"
)

const (
	EventReservationBooked    = "reservation.booked"
	EventReservationCancelled = "reservation.cancelled"

	schemaVersion = "1"
	sourceService = "reservations"
)

// ReservationEvent is the payload emitted for every lifecycle change. The
// notification workers downstream fan it out to the guest and the host.
type ReservationEvent struct {
	ReservationID string     `json:"reservation_id"`
	OfficeID      string     `json:"office_id"`
	OfficeTitle   string     `json:"office_title"`
	GuestID       string     `json:"guest_id"`
	HostID        string     `json:"host_id"`
	StartDate     model.Date `json:"start_date"`
	EndDate       model.Date `json:"end_date"`
	Price         int64      `json:"price"`
	Status        string     `json:"status"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// Notifier publishes reservation lifecycle events. Implementations must be
// fire-and-forget: a delivery failure never fails the booking.
type Notifier interface {
	ReservationBooked(ctx context.Context, reservation *model.Reservation, office *model.Office)
	ReservationCancelled(ctx context.Context, reservation *model.Reservation, office *model.Office)
}

type kafkaNotifier struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func NewKafkaNotifier(producer *kafka.Producer, log *logger.Logger) Notifier {
	return &kafkaNotifier{
		producer: producer,
		log:      log,
	}
}

func (n *kafkaNotifier) ReservationBooked(ctx context.Context, reservation *model.Reservation, office *model.Office) {
	n.publish(ctx, EventReservationBooked, reservation, office)
}

func (n *kafkaNotifier) ReservationCancelled(ctx context.Context, reservation *model.Reservation, office *model.Office) {
	n.publish(ctx, EventReservationCancelled, reservation, office)
}

func (n *kafkaNotifier) publish(ctx context.Context, eventType string, reservation *model.Reservation, office *model.Office) {
	event := ReservationEvent{
		ReservationID: reservation.ID,
		OfficeID:      reservation.OfficeID,
		OfficeTitle:   office.Title,
		GuestID:       reservation.UserID,
		HostID:        office.OwnerID,
		StartDate:     reservation.StartDate,
		EndDate:       reservation.EndDate,
		Price:         reservation.Price,
		Status:        string(reservation.Status),
		OccurredAt:    time.Now().UTC(),
	}

	// Events for one office share a partition key so their order survives.
	msg := kafka.NewMessage().
		WithKey(reservation.OfficeID).
		WithValue(event).
		WithEventType(eventType).
		WithSchemaVersion(schemaVersion).
		WithSource(sourceService).
		Build()

	if err := n.producer.Publish(ctx, msg); err != nil {
		n.log.Error("Failed to publish reservation event",
			"event_type", eventType,
			"reservation_id", reservation.ID,
			"office_id", reservation.OfficeID,
			"error", err,
		)
		return
	}

	n.log.Debug("Reservation event published",
		"event_type", eventType,
		"reservation_id", reservation.ID,
	)
}
