package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	officeserrors "deskhub/internal/offices/errors"
	officesrepo "deskhub/internal/offices/repository"
	reservationserrors "deskhub/internal/reservations/errors"
	"deskhub/internal/reservations/notifier"
	"deskhub/internal/reservations/repository"
	"deskhub/internal/reservations/validator"
	"deskhub/pkg/clock"
	"deskhub/pkg/config"
	apperrors "deskhub/pkg/errors"
	"deskhub/pkg/model"
	"deskhub/pkg/sealer"
)

// Availability is the read-only conflict preview for an office and range.
type Availability struct {
	OfficeID  string            `json:"office_id"`
	StartDate model.Date        `json:"start_date"`
	EndDate   model.Date        `json:"end_date"`
	Available bool              `json:"available"`
	Conflicts []model.DateRange `json:"conflicts,omitempty"`
}

type ReservationService interface {
	Book(ctx context.Context, req *model.BookReservationRequest) (*model.Reservation, error)
	Cancel(ctx context.Context, id string, req *model.CancelReservationRequest) (*model.Reservation, error)
	GetByID(ctx context.Context, id string, userID string) (*model.Reservation, error)
	CheckAvailability(ctx context.Context, officeID string, rng model.DateRange) (*Availability, error)
	ListByUser(ctx context.Context, userID string, filter repository.ListFilter, limit int, offset int64) ([]*model.Reservation, int64, error)
	ListByHost(ctx context.Context, hostID string, filter repository.ListFilter, limit int, offset int64) ([]*model.Reservation, int64, error)
}

type reservationService struct {
	repo       repository.ReservationRepository
	lockRepo   repository.OfficeLockRepository
	officeRepo officesrepo.OfficeRepository
	validator  *validator.ReservationValidator
	notifier   notifier.Notifier
	sealer     *sealer.Sealer
	clock      clock.Clock
	cfg        *config.Config
}

func NewReservationService(
	repo repository.ReservationRepository,
	lockRepo repository.OfficeLockRepository,
	officeRepo officesrepo.OfficeRepository,
	validator *validator.ReservationValidator,
	notifier notifier.Notifier,
	sealer *sealer.Sealer,
	clock clock.Clock,
	cfg *config.Config,
) ReservationService {
	return &reservationService{
		repo:       repo,
		lockRepo:   lockRepo,
		officeRepo: officeRepo,
		validator:  validator,
		notifier:   notifier,
		sealer:     sealer,
		clock:      clock,
		cfg:        cfg,
	}
}

func (s *reservationService) Book(ctx context.Context, req *model.BookReservationRequest) (*model.Reservation, error) {
	if err := s.validator.ValidateBooking(req, s.clock.Today()); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "error", err)
		return nil, apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}

	office, err := s.resolveBookableOffice(ctx, req.OfficeID, req.UserID)
	if err != nil {
		return nil, err
	}

	reservation, wifiPassword, err := s.bookUnderLock(ctx, req, office)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Reservation booked successfully",
		"id", reservation.ID,
		"office_id", reservation.OfficeID,
		"user_id", reservation.UserID,
		"start_date", reservation.StartDate.String(),
		"end_date", reservation.EndDate.String(),
		"price", reservation.Price,
	)

	// The lock is already released here; a slow broker must not eat into
	// the lease.
	if s.notifier != nil {
		s.notifier.ReservationBooked(ctx, reservation, office)
	}

	// The caller gets the plaintext secret once; only the sealed form is
	// ever persisted.
	reservation.WifiPassword = wifiPassword
	return reservation, nil
}

// bookUnderLock runs the conflict-sensitive part of a booking. The advisory
// lock is held from Acquire until this function returns, so the critical
// section ends at the transaction commit and nothing slower than Mongo runs
// inside it.
func (s *reservationService) bookUnderLock(ctx context.Context, req *model.BookReservationRequest, office *model.Office) (*model.Reservation, string, error) {
	lock, err := s.lockRepo.Acquire(ctx, req.OfficeID, uuid.New().String())
	if err != nil {
		if errors.Is(err, reservationserrors.ErrLockNotAcquired) {
			return nil, "", apperrors.Conflict("This office is currently being booked by another request. Please try again.").AsRetryable()
		}
		return nil, "", apperrors.Internal("Failed to acquire office lock", err)
	}
	defer func() {
		if releaseErr := s.lockRepo.Release(context.WithoutCancel(ctx), lock); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release office lock", "lock_id", lock.ID, "error", releaseErr)
		}
	}()

	price, err := ComputePrice(office, req.Range())
	if err != nil {
		return nil, "", apperrors.Validation("Reservation must span at least two days", map[string]any{
			"min_days": MinReservationDays,
		})
	}

	wifiPassword := uuid.New().String()
	sealedPassword, err := s.sealer.Seal(wifiPassword)
	if err != nil {
		return nil, "", apperrors.Internal("Failed to seal wifi password", err)
	}

	reservation := &model.Reservation{
		OfficeID:     req.OfficeID,
		UserID:       req.UserID,
		Status:       model.ReservationStatusActive,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Price:        price,
		WifiPassword: sealedPassword,
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.verifyNoConflict(sessCtx, req.OfficeID, req.Range()); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, reservation); err != nil {
			return apperrors.Internal("Failed to create reservation", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to book office", "office_id", req.OfficeID, "error", err)
		return nil, "", err
	}

	return reservation, wifiPassword, nil
}

func (s *reservationService) Cancel(ctx context.Context, id string, req *model.CancelReservationRequest) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}
	if err := s.validator.ValidateCancel(req); err != nil {
		return nil, apperrors.Validation("Cancel validation failed", map[string]any{"error": err.Error()})
	}

	reservation, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkCancelPolicy(reservation, req.UserID); err != nil {
		return nil, err
	}

	matched, err := s.repo.UpdateStatus(ctx, id, model.ReservationStatusActive, model.ReservationStatusCancelled)
	if err != nil {
		return nil, apperrors.Internal("Failed to cancel reservation", err)
	}
	if matched == 0 {
		// Lost a cancel/cancel race; the reservation is no longer active.
		return nil, apperrors.Forbidden("Reservation can no longer be cancelled")
	}

	reservation.Status = model.ReservationStatusCancelled
	reservation.WifiPassword = ""

	s.cfg.Log.Info("Reservation cancelled", "id", id, "user_id", req.UserID)

	if s.notifier != nil {
		if office, officeErr := s.officeRepo.FindByID(ctx, reservation.OfficeID); officeErr == nil {
			s.notifier.ReservationCancelled(ctx, reservation, office)
		} else {
			s.cfg.Log.Warn("Skipping cancellation event, office lookup failed",
				"office_id", reservation.OfficeID, "error", officeErr)
		}
	}

	return reservation, nil
}

func (s *reservationService) GetByID(ctx context.Context, id string, userID string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}
	if userID == "" {
		return nil, apperrors.InvalidInput("user_id is required")
	}

	reservation, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if reservation.UserID != userID {
		return nil, apperrors.Forbidden("Reservation belongs to another user")
	}

	s.revealWifiPassword(reservation)
	return reservation, nil
}

func (s *reservationService) CheckAvailability(ctx context.Context, officeID string, rng model.DateRange) (*Availability, error) {
	if officeID == "" {
		return nil, apperrors.InvalidInput("office_id is required")
	}
	if rng.End.Before(rng.Start.Time) {
		return nil, apperrors.Validation("end_date must not be before start_date", nil)
	}

	if _, err := s.officeRepo.FindByID(ctx, officeID); err != nil {
		if errors.Is(err, officeserrors.ErrNotFound) || errors.Is(err, officeserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Office", officeID)
		}
		return nil, apperrors.Internal("Failed to resolve office", err)
	}

	overlapping, err := s.repo.FindActiveOverlapping(ctx, officeID, rng)
	if err != nil {
		return nil, apperrors.Internal("Failed to check availability", err)
	}

	availability := &Availability{
		OfficeID:  officeID,
		StartDate: rng.Start,
		EndDate:   rng.End,
		Available: len(overlapping) == 0,
	}
	for _, r := range overlapping {
		availability.Conflicts = append(availability.Conflicts, r.Range())
	}

	return availability, nil
}

func (s *reservationService) ListByUser(ctx context.Context, userID string, filter repository.ListFilter, limit int, offset int64) ([]*model.Reservation, int64, error) {
	if userID == "" {
		return nil, 0, apperrors.InvalidInput("user_id is required")
	}

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByUser(ctx, userID, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count reservations", "user_id", userID, "error", errCount)
			errCount = apperrors.Internal("Failed to count reservations", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.repo.FindByUser(ctx, userID, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list reservations", "user_id", userID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve reservations", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	hideWifiPasswords(reservations)
	return reservations, count, nil
}

func (s *reservationService) ListByHost(ctx context.Context, hostID string, filter repository.ListFilter, limit int, offset int64) ([]*model.Reservation, int64, error) {
	if hostID == "" {
		return nil, 0, apperrors.InvalidInput("user_id is required")
	}

	officeIDs, err := s.officeRepo.FindIDsByOwner(ctx, hostID)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to resolve host offices", err)
	}
	if len(officeIDs) == 0 {
		return []*model.Reservation{}, 0, nil
	}

	if filter.OfficeID != "" {
		if !containsString(officeIDs, filter.OfficeID) {
			return nil, 0, apperrors.Forbidden("Office does not belong to this host")
		}
		officeIDs = []string{filter.OfficeID}
		filter.OfficeID = ""
	}

	var count int64
	var reservations []*model.Reservation
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.CountByOffices(ctx, officeIDs, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count host reservations", "host_id", hostID, "error", errCount)
			errCount = apperrors.Internal("Failed to count reservations", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		reservations, errFind = s.repo.FindByOffices(ctx, officeIDs, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list host reservations", "host_id", hostID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve reservations", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	// Hosts never see guest wifi secrets.
	hideWifiPasswords(reservations)
	return reservations, count, nil
}

// --- Helpers ---

func (s *reservationService) resolveBookableOffice(ctx context.Context, officeID, userID string) (*model.Office, error) {
	office, err := s.officeRepo.FindByID(ctx, officeID)
	if err != nil {
		if errors.Is(err, officeserrors.ErrNotFound) || errors.Is(err, officeserrors.ErrInvalidID) {
			return nil, apperrors.Validation("Office cannot be reserved", map[string]any{
				"office_id": officeID,
				"reason":    "office does not exist",
			})
		}
		return nil, apperrors.Internal("Failed to resolve office", err)
	}

	if !office.BookableBy(userID) {
		return nil, apperrors.Validation("Office cannot be reserved", map[string]any{
			"office_id": officeID,
			"reason":    "office is not approved, hidden, or owned by the requester",
		})
	}

	return office, nil
}

func (s *reservationService) verifyNoConflict(ctx context.Context, officeID string, rng model.DateRange) error {
	existing, err := s.repo.FindActiveOverlapping(ctx, officeID, rng)
	if err != nil {
		return apperrors.Internal("Failed to check existing reservations", err)
	}

	if len(existing) > 0 {
		first := existing[0]
		return apperrors.Conflict(fmt.Sprintf(
			"Requested dates overlap with an existing reservation (%s - %s)",
			first.StartDate.String(),
			first.EndDate.String(),
		))
	}
	return nil
}

func (s *reservationService) checkCancelPolicy(reservation *model.Reservation, userID string) error {
	if reservation.UserID != userID {
		return apperrors.Forbidden("Reservation belongs to another user")
	}
	if reservation.Status != model.ReservationStatusActive {
		return apperrors.Forbidden("Only active reservations can be cancelled")
	}
	if !reservation.StartDate.After(s.clock.Today().Time) {
		return apperrors.Forbidden("Reservation has already started")
	}
	return nil
}

func (s *reservationService) findByID(ctx context.Context, id string) (*model.Reservation, error) {
	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Reservation", id)
		}
		if errors.Is(err, reservationserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid reservation ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve reservation", err)
	}
	return reservation, nil
}

func (s *reservationService) revealWifiPassword(reservation *model.Reservation) {
	if reservation.WifiPassword == "" || reservation.Status != model.ReservationStatusActive {
		reservation.WifiPassword = ""
		return
	}

	plaintext, err := s.sealer.Open(reservation.WifiPassword)
	if err != nil {
		s.cfg.Log.Warn("Failed to unseal wifi password", "reservation_id", reservation.ID, "error", err)
		reservation.WifiPassword = ""
		return
	}
	reservation.WifiPassword = plaintext
}

func hideWifiPasswords(reservations []*model.Reservation) {
	for _, r := range reservations {
		r.WifiPassword = ""
	}
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
