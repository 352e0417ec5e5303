package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	officeserrors "deskhub/internal/offices/errors"
	officesrepo "deskhub/internal/offices/repository"
	reservationserrors "deskhub/internal/reservations/errors"
	"deskhub/internal/reservations/notifier"
	"deskhub/internal/reservations/repository"
	"deskhub/internal/reservations/validator"
	"deskhub/pkg/clock"
	"deskhub/pkg/config"
	mongotx "deskhub/pkg/db/mongo"
	apperrors "deskhub/pkg/errors"
	"deskhub/pkg/logger"
	"deskhub/pkg/model"
	"deskhub/pkg/sealer"
)

const (
	officeID      = "507f1f77bcf86cd799439011"
	otherOfficeID = "507f1f77bcf86cd799439022"
	guestID       = "guest-1"
	hostID        = "host-1"
	reservationID = "65f000000000000000000001"
)

// --- Mocks ---

type mockReservationRepository struct {
	mu           sync.Mutex
	created      []*model.Reservation
	overlapCalls int

	findByIDFunc        func(ctx context.Context, id string) (*model.Reservation, error)
	findOverlappingFunc func(ctx context.Context, officeID string, rng model.DateRange) ([]*model.Reservation, error)
	updateStatusFunc    func(ctx context.Context, id string, from, to model.ReservationStatus) (int64, error)
	findByUserFunc      func(ctx context.Context, userID string, filter repository.ListFilter, limit int, offset int64) ([]*model.Reservation, error)
	findByOfficesFunc   func(ctx context.Context, officeIDs []string, filter repository.ListFilter, limit int, offset int64) ([]*model.Reservation, error)
}

func (m *mockReservationRepository) Create(ctx context.Context, r *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = fmt.Sprintf("65f0000000000000000000%02d", len(m.created)+1)
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	copied := *r
	m.created = append(m.created, &copied)
	return nil
}

func (m *mockReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, reservationserrors.ErrNotFound
}

func (m *mockReservationRepository) FindActiveOverlapping(ctx context.Context, officeID string, rng model.DateRange) ([]*model.Reservation, error) {
	m.mu.Lock()
	m.overlapCalls++
	m.mu.Unlock()
	if m.findOverlappingFunc != nil {
		return m.findOverlappingFunc(ctx, officeID, rng)
	}
	return nil, nil
}

func (m *mockReservationRepository) UpdateStatus(ctx context.Context, id string, from, to model.ReservationStatus) (int64, error) {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, from, to)
	}
	return 1, nil
}

func (m *mockReservationRepository) FindByUser(ctx context.Context, userID string, filter repository.ListFilter, limit int, offset int64) ([]*model.Reservation, error) {
	if m.findByUserFunc != nil {
		return m.findByUserFunc(ctx, userID, filter, limit, offset)
	}
	return []*model.Reservation{}, nil
}

func (m *mockReservationRepository) CountByUser(ctx context.Context, userID string, filter repository.ListFilter) (int64, error) {
	return 0, nil
}

func (m *mockReservationRepository) FindByOffices(ctx context.Context, officeIDs []string, filter repository.ListFilter, limit int, offset int64) ([]*model.Reservation, error) {
	if m.findByOfficesFunc != nil {
		return m.findByOfficesFunc(ctx, officeIDs, filter, limit, offset)
	}
	return []*model.Reservation{}, nil
}

func (m *mockReservationRepository) CountByOffices(ctx context.Context, officeIDs []string, filter repository.ListFilter) (int64, error) {
	return 0, nil
}

func (m *mockReservationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.NewSessionContext(ctx, nil))
}

type mockOfficeLockRepository struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired int
	released int
	failWith error
}

func newMockOfficeLockRepository() *mockOfficeLockRepository {
	return &mockOfficeLockRepository{held: map[string]bool{}}
}

func (m *mockOfficeLockRepository) Acquire(ctx context.Context, officeID, owner string) (*model.OfficeLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	key := model.OfficeLockKey(officeID)
	if m.held[key] {
		return nil, reservationserrors.ErrLockNotAcquired
	}
	m.held[key] = true
	m.acquired++
	return &model.OfficeLock{ID: key, Owner: owner}, nil
}

func (m *mockOfficeLockRepository) Release(ctx context.Context, lock *model.OfficeLock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, lock.ID)
	m.released++
	return nil
}

type mockOfficeRepository struct {
	offices map[string]*model.Office
	byOwner map[string][]string
}

func (m *mockOfficeRepository) FindByID(ctx context.Context, id string) (*model.Office, error) {
	if office, ok := m.offices[id]; ok {
		copied := *office
		return &copied, nil
	}
	return nil, officeserrors.ErrNotFound
}

func (m *mockOfficeRepository) FindIDsByOwner(ctx context.Context, ownerID string) ([]string, error) {
	return m.byOwner[ownerID], nil
}

type mockNotifier struct {
	mu         sync.Mutex
	booked     []string
	cancelled  []string
	bookedFunc func(r *model.Reservation, o *model.Office)
}

func (m *mockNotifier) ReservationBooked(ctx context.Context, r *model.Reservation, o *model.Office) {
	if m.bookedFunc != nil {
		m.bookedFunc(r, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.booked = append(m.booked, r.ID)
}

func (m *mockNotifier) ReservationCancelled(ctx context.Context, r *model.Reservation, o *model.Office) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, r.ID)
}

// --- Fixtures ---

type fixture struct {
	service  ReservationService
	repo     *mockReservationRepository
	lockRepo *mockOfficeLockRepository
	offices  *mockOfficeRepository
	notifier *mockNotifier
}

func today() model.Date {
	return model.NewDate(2026, 3, 1)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Service: "test",
	})
	cfg := &config.Config{
		Log:          log,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	wifiSealer, err := sealer.NewFromEnv()
	if err != nil {
		t.Fatalf("sealer.NewFromEnv: %v", err)
	}

	f := &fixture{
		repo:     &mockReservationRepository{},
		lockRepo: newMockOfficeLockRepository(),
		offices: &mockOfficeRepository{
			offices: map[string]*model.Office{
				officeID: {
					ID:              officeID,
					OwnerID:         hostID,
					Title:           "Corner loft",
					PricePerDay:     1000,
					MonthlyDiscount: 10,
					ApprovalStatus:  model.OfficeApprovalApproved,
				},
			},
			byOwner: map[string][]string{
				hostID: {officeID},
			},
		},
		notifier: &mockNotifier{},
	}

	f.service = NewReservationService(
		f.repo,
		f.lockRepo,
		f.offices,
		validator.NewReservationValidator(log),
		f.notifier,
		wifiSealer,
		clock.Fixed(today().Time),
		cfg,
	)
	return f
}

var _ officesrepo.OfficeRepository = (*mockOfficeRepository)(nil)
var _ notifier.Notifier = (*mockNotifier)(nil)

func bookRequest(startDay, endDay int) *model.BookReservationRequest {
	return &model.BookReservationRequest{
		OfficeID:  officeID,
		UserID:    guestID,
		StartDate: model.NewDate(2026, 3, startDay),
		EndDate:   model.NewDate(2026, 3, endDay),
	}
}

func assertAppError(t *testing.T, err error, code string) *apperrors.AppError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, appErr.Code, err)
	}
	return appErr
}

// --- Book ---

func TestBook_Success(t *testing.T) {
	f := newFixture(t)

	reservation, err := f.service.Book(context.Background(), bookRequest(10, 12))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if reservation.Status != model.ReservationStatusActive {
		t.Errorf("expected active status, got %s", reservation.Status)
	}
	if reservation.Price != 3000 {
		t.Errorf("expected price 3000 for three days, got %d", reservation.Price)
	}
	if reservation.WifiPassword == "" {
		t.Errorf("expected plaintext wifi password in the booking response")
	}
	if len(f.repo.created) != 1 {
		t.Fatalf("expected one persisted reservation, got %d", len(f.repo.created))
	}
	if stored := f.repo.created[0]; stored.WifiPassword == reservation.WifiPassword {
		t.Errorf("persisted wifi password must be sealed, not plaintext")
	}
	if f.lockRepo.acquired != 1 || f.lockRepo.released != 1 {
		t.Errorf("expected lock acquired and released once, got %d/%d", f.lockRepo.acquired, f.lockRepo.released)
	}
	if len(f.notifier.booked) != 1 {
		t.Errorf("expected one booked notification, got %d", len(f.notifier.booked))
	}
}

func TestBook_MonthlyDiscountApplied(t *testing.T) {
	f := newFixture(t)

	req := &model.BookReservationRequest{
		OfficeID:  officeID,
		UserID:    guestID,
		StartDate: model.NewDate(2026, 3, 10),
		EndDate:   model.NewDate(2026, 3, 10).AddDays(39),
	}

	reservation, err := f.service.Book(context.Background(), req)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if reservation.Price != 36000 {
		t.Errorf("expected discounted price 36000 for forty days, got %d", reservation.Price)
	}
}

func TestBook_ValidationFailures(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  *model.BookReservationRequest
	}{
		{
			name: "missing office id",
			req: &model.BookReservationRequest{
				UserID:    guestID,
				StartDate: model.NewDate(2026, 3, 10),
				EndDate:   model.NewDate(2026, 3, 12),
			},
		},
		{
			name: "malformed office id",
			req: &model.BookReservationRequest{
				OfficeID:  "not-an-object-id",
				UserID:    guestID,
				StartDate: model.NewDate(2026, 3, 10),
				EndDate:   model.NewDate(2026, 3, 12),
			},
		},
		{
			name: "missing user id",
			req: &model.BookReservationRequest{
				OfficeID:  officeID,
				StartDate: model.NewDate(2026, 3, 10),
				EndDate:   model.NewDate(2026, 3, 12),
			},
		},
		{
			name: "end before start",
			req:  bookRequest(12, 10),
		},
		{
			name: "start equals end",
			req:  bookRequest(10, 10),
		},
		{
			name: "start is today",
			req:  bookRequest(1, 5),
		},
		{
			name: "start in the past",
			req: &model.BookReservationRequest{
				OfficeID:  officeID,
				UserID:    guestID,
				StartDate: model.NewDate(2026, 2, 20),
				EndDate:   model.NewDate(2026, 2, 25),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Book(context.Background(), tt.req)
			assertAppError(t, err, apperrors.CodeValidation)
		})
	}

	if f.lockRepo.acquired != 0 {
		t.Errorf("validation failures must not touch the lock, acquired %d times", f.lockRepo.acquired)
	}
}

func TestBook_OfficeNotBookable(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture, req *model.BookReservationRequest)
	}{
		{
			name: "office does not exist",
			mutate: func(f *fixture, req *model.BookReservationRequest) {
				req.OfficeID = otherOfficeID
			},
		},
		{
			name: "office pending approval",
			mutate: func(f *fixture, req *model.BookReservationRequest) {
				f.offices.offices[officeID].ApprovalStatus = model.OfficeApprovalPending
			},
		},
		{
			name: "office rejected",
			mutate: func(f *fixture, req *model.BookReservationRequest) {
				f.offices.offices[officeID].ApprovalStatus = model.OfficeApprovalRejected
			},
		},
		{
			name: "office hidden",
			mutate: func(f *fixture, req *model.BookReservationRequest) {
				f.offices.offices[officeID].Hidden = true
			},
		},
		{
			name: "booking own office",
			mutate: func(f *fixture, req *model.BookReservationRequest) {
				req.UserID = hostID
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := bookRequest(10, 12)
			tt.mutate(f, req)

			_, err := f.service.Book(context.Background(), req)
			assertAppError(t, err, apperrors.CodeValidation)
			if len(f.repo.created) != 0 {
				t.Errorf("no reservation must be created")
			}
		})
	}
}

func TestBook_SingleDayRejectedBeforeLock(t *testing.T) {
	f := newFixture(t)
	f.repo.findOverlappingFunc = func(ctx context.Context, officeID string, rng model.DateRange) ([]*model.Reservation, error) {
		t.Fatal("conflict check must not run for a too-short reservation")
		return nil, nil
	}

	_, err := f.service.Book(context.Background(), bookRequest(10, 10))
	assertAppError(t, err, apperrors.CodeValidation)

	if f.lockRepo.acquired != 0 {
		t.Errorf("a same-day range must be rejected before the lock is touched")
	}
}

func TestBook_NotifiesAfterLockReleased(t *testing.T) {
	f := newFixture(t)

	lockedAtNotify := true
	f.notifier.bookedFunc = func(r *model.Reservation, o *model.Office) {
		f.lockRepo.mu.Lock()
		lockedAtNotify = len(f.lockRepo.held) > 0
		f.lockRepo.mu.Unlock()
	}

	if _, err := f.service.Book(context.Background(), bookRequest(10, 12)); err != nil {
		t.Fatalf("Book: %v", err)
	}

	if lockedAtNotify {
		t.Errorf("the booked event must be published after the office lock is released")
	}
	if len(f.notifier.booked) != 1 {
		t.Fatalf("expected one booked notification, got %d", len(f.notifier.booked))
	}
}

func TestBook_DateRangeConflict(t *testing.T) {
	f := newFixture(t)
	existing := &model.Reservation{
		ID:        "65f000000000000000000099",
		OfficeID:  officeID,
		Status:    model.ReservationStatusActive,
		StartDate: model.NewDate(2026, 3, 11),
		EndDate:   model.NewDate(2026, 3, 14),
	}
	f.repo.findOverlappingFunc = func(ctx context.Context, officeID string, rng model.DateRange) ([]*model.Reservation, error) {
		return []*model.Reservation{existing}, nil
	}

	_, err := f.service.Book(context.Background(), bookRequest(10, 12))
	appErr := assertAppError(t, err, apperrors.CodeConflict)
	if appErr.Retryable {
		t.Errorf("a date conflict is not retryable")
	}

	if len(f.repo.created) != 0 {
		t.Errorf("no reservation must be created on conflict")
	}
	if f.lockRepo.released != 1 {
		t.Errorf("lock must be released on the conflict path")
	}
	if len(f.notifier.booked) != 0 {
		t.Errorf("no notification on conflict")
	}
}

func TestBook_LockTimeout(t *testing.T) {
	f := newFixture(t)
	f.lockRepo.failWith = reservationserrors.ErrLockNotAcquired

	_, err := f.service.Book(context.Background(), bookRequest(10, 12))
	appErr := assertAppError(t, err, apperrors.CodeConflict)
	if !appErr.Retryable {
		t.Errorf("a lock timeout must be marked retryable")
	}
	if f.repo.overlapCalls != 0 {
		t.Errorf("conflict check must not run without the lock")
	}
}

// --- Concurrency ---

func TestBook_ConcurrentRequestsExactlyOneWinner(t *testing.T) {
	f := newFixture(t)

	// The conflict scan reads what Create persisted. Both run between
	// Acquire and Release, so the lock is what serializes them.
	f.repo.findOverlappingFunc = func(ctx context.Context, officeID string, rng model.DateRange) ([]*model.Reservation, error) {
		f.repo.mu.Lock()
		defer f.repo.mu.Unlock()
		var out []*model.Reservation
		for _, r := range f.repo.created {
			if r.OfficeID == officeID && r.Status == model.ReservationStatusActive && r.Range().Overlaps(rng) {
				out = append(out, r)
			}
		}
		return out, nil
	}

	const attempts = 16
	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Overlapping but not identical ranges.
			_, err := f.service.Book(context.Background(), bookRequest(10+i%3, 14+i%3))
			results[i] = err
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		appErr := apperrors.AsAppError(err)
		if appErr.Code != apperrors.CodeConflict {
			t.Errorf("losers must see a conflict, got %s", appErr.Code)
		}
	}
	if wins != 1 {
		t.Errorf("expected exactly one winning booking, got %d", wins)
	}
}

// Full lifecycle over a stateful store: a long discounted booking, a
// conflicting second attempt, a cancellation, and a rebooking of the freed
// dates by a third user.
func TestBook_CancelFreesDatesForRebooking(t *testing.T) {
	f := newFixture(t)

	f.repo.findOverlappingFunc = func(ctx context.Context, officeID string, rng model.DateRange) ([]*model.Reservation, error) {
		f.repo.mu.Lock()
		defer f.repo.mu.Unlock()
		var out []*model.Reservation
		for _, r := range f.repo.created {
			if r.OfficeID == officeID && r.Status == model.ReservationStatusActive && r.Range().Overlaps(rng) {
				out = append(out, r)
			}
		}
		return out, nil
	}
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Reservation, error) {
		f.repo.mu.Lock()
		defer f.repo.mu.Unlock()
		for _, r := range f.repo.created {
			if r.ID == id {
				copied := *r
				return &copied, nil
			}
		}
		return nil, reservationserrors.ErrNotFound
	}
	f.repo.updateStatusFunc = func(ctx context.Context, id string, from, to model.ReservationStatus) (int64, error) {
		f.repo.mu.Lock()
		defer f.repo.mu.Unlock()
		for _, r := range f.repo.created {
			if r.ID == id && r.Status == from {
				r.Status = to
				return 1, nil
			}
		}
		return 0, nil
	}

	ctx := context.Background()
	start := today().AddDays(1)

	first, err := f.service.Book(ctx, &model.BookReservationRequest{
		OfficeID:  officeID,
		UserID:    guestID,
		StartDate: start,
		EndDate:   start.AddDays(39),
	})
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if first.Price != 36000 {
		t.Errorf("expected discounted price 36000 for forty days, got %d", first.Price)
	}

	_, err = f.service.Book(ctx, &model.BookReservationRequest{
		OfficeID:  officeID,
		UserID:    "guest-2",
		StartDate: start.AddDays(19),
		EndDate:   start.AddDays(24),
	})
	assertAppError(t, err, apperrors.CodeConflict)

	if _, err := f.service.Cancel(ctx, first.ID, &model.CancelReservationRequest{UserID: guestID}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	third, err := f.service.Book(ctx, &model.BookReservationRequest{
		OfficeID:  officeID,
		UserID:    "guest-3",
		StartDate: start.AddDays(19),
		EndDate:   start.AddDays(24),
	})
	if err != nil {
		t.Fatalf("rebooking the freed dates: %v", err)
	}
	if third.Price != 6000 {
		t.Errorf("expected price 6000 for six days, got %d", third.Price)
	}

	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	if len(f.repo.created) != 2 {
		t.Fatalf("expected two persisted reservations, got %d", len(f.repo.created))
	}
	if f.repo.created[0].Status != model.ReservationStatusCancelled {
		t.Errorf("first reservation must be cancelled, got %s", f.repo.created[0].Status)
	}
	if f.repo.created[1].Status != model.ReservationStatusActive {
		t.Errorf("rebooking must be active, got %s", f.repo.created[1].Status)
	}
}

// --- Cancel ---

func activeReservation() *model.Reservation {
	return &model.Reservation{
		ID:        reservationID,
		OfficeID:  officeID,
		UserID:    guestID,
		Status:    model.ReservationStatusActive,
		StartDate: model.NewDate(2026, 3, 10),
		EndDate:   model.NewDate(2026, 3, 12),
		Price:     3000,
	}
}

func TestCancel_Success(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Reservation, error) {
		return activeReservation(), nil
	}

	reservation, err := f.service.Cancel(context.Background(), reservationID, &model.CancelReservationRequest{UserID: guestID})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if reservation.Status != model.ReservationStatusCancelled {
		t.Errorf("expected cancelled status, got %s", reservation.Status)
	}
	if reservation.WifiPassword != "" {
		t.Errorf("cancelled reservation must not expose the wifi password")
	}
	if len(f.notifier.cancelled) != 1 {
		t.Errorf("expected one cancellation notification, got %d", len(f.notifier.cancelled))
	}
}

func TestCancel_ForbiddenMatrix(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *model.Reservation)
		userID string
	}{
		{
			name:   "wrong user",
			mutate: func(r *model.Reservation) {},
			userID: "someone-else",
		},
		{
			name:   "already cancelled",
			mutate: func(r *model.Reservation) { r.Status = model.ReservationStatusCancelled },
			userID: guestID,
		},
		{
			name: "already started",
			mutate: func(r *model.Reservation) {
				r.StartDate = model.NewDate(2026, 2, 25)
			},
			userID: guestID,
		},
		{
			name: "starts today",
			mutate: func(r *model.Reservation) {
				r.StartDate = today()
			},
			userID: guestID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			reservation := activeReservation()
			tt.mutate(reservation)
			f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Reservation, error) {
				return reservation, nil
			}
			f.repo.updateStatusFunc = func(ctx context.Context, id string, from, to model.ReservationStatus) (int64, error) {
				t.Fatal("status must not be updated when the policy rejects the cancel")
				return 0, nil
			}

			_, err := f.service.Cancel(context.Background(), reservationID, &model.CancelReservationRequest{UserID: tt.userID})
			assertAppError(t, err, apperrors.CodeForbidden)
		})
	}
}

func TestCancel_LostRaceIsForbidden(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Reservation, error) {
		return activeReservation(), nil
	}
	f.repo.updateStatusFunc = func(ctx context.Context, id string, from, to model.ReservationStatus) (int64, error) {
		return 0, nil // another cancel won the conditional update
	}

	_, err := f.service.Cancel(context.Background(), reservationID, &model.CancelReservationRequest{UserID: guestID})
	assertAppError(t, err, apperrors.CodeForbidden)
	if len(f.notifier.cancelled) != 0 {
		t.Errorf("the losing cancel must not notify")
	}
}

func TestCancel_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Cancel(context.Background(), reservationID, &model.CancelReservationRequest{UserID: guestID})
	assertAppError(t, err, apperrors.CodeNotFound)
}

// --- GetByID / availability / listings ---

func TestGetByID_OwnerSeesWifiPassword(t *testing.T) {
	f := newFixture(t)

	booked, err := f.service.Book(context.Background(), bookRequest(10, 12))
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	stored := f.repo.created[0]
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Reservation, error) {
		copied := *stored
		return &copied, nil
	}

	fetched, err := f.service.GetByID(context.Background(), reservationID, guestID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.WifiPassword != booked.WifiPassword {
		t.Errorf("owner must see the plaintext wifi password")
	}
}

func TestGetByID_OtherUserForbidden(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFunc = func(ctx context.Context, id string) (*model.Reservation, error) {
		return activeReservation(), nil
	}

	_, err := f.service.GetByID(context.Background(), reservationID, "someone-else")
	assertAppError(t, err, apperrors.CodeForbidden)
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	existing := activeReservation()
	f.repo.findOverlappingFunc = func(ctx context.Context, officeID string, rng model.DateRange) ([]*model.Reservation, error) {
		if existing.Range().Overlaps(rng) {
			return []*model.Reservation{existing}, nil
		}
		return nil, nil
	}

	busy, err := f.service.CheckAvailability(context.Background(), officeID, model.DateRange{
		Start: model.NewDate(2026, 3, 11),
		End:   model.NewDate(2026, 3, 15),
	})
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if busy.Available {
		t.Errorf("expected overlapping range to be unavailable")
	}
	if len(busy.Conflicts) != 1 {
		t.Errorf("expected one conflict, got %d", len(busy.Conflicts))
	}

	free, err := f.service.CheckAvailability(context.Background(), officeID, model.DateRange{
		Start: model.NewDate(2026, 4, 1),
		End:   model.NewDate(2026, 4, 5),
	})
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if !free.Available {
		t.Errorf("expected disjoint range to be available")
	}
}

func TestCheckAvailability_UnknownOffice(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CheckAvailability(context.Background(), otherOfficeID, model.DateRange{
		Start: model.NewDate(2026, 3, 11),
		End:   model.NewDate(2026, 3, 15),
	})
	assertAppError(t, err, apperrors.CodeNotFound)
}

func TestListByHost_ForeignOfficeFilterForbidden(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.service.ListByHost(context.Background(), hostID, repository.ListFilter{OfficeID: otherOfficeID}, 10, 0)
	assertAppError(t, err, apperrors.CodeForbidden)
}

func TestListByHost_NoOffices(t *testing.T) {
	f := newFixture(t)

	reservations, count, err := f.service.ListByHost(context.Background(), "host-without-offices", repository.ListFilter{}, 10, 0)
	if err != nil {
		t.Fatalf("ListByHost: %v", err)
	}
	if count != 0 || len(reservations) != 0 {
		t.Errorf("expected empty listing for a host without offices")
	}
}

func TestListByUser_HidesWifiPasswords(t *testing.T) {
	f := newFixture(t)
	f.repo.findByUserFunc = func(ctx context.Context, userID string, filter repository.ListFilter, limit int, offset int64) ([]*model.Reservation, error) {
		r := activeReservation()
		r.WifiPassword = "sealed-blob"
		return []*model.Reservation{r}, nil
	}

	reservations, _, err := f.service.ListByUser(context.Background(), guestID, repository.ListFilter{}, 10, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if reservations[0].WifiPassword != "" {
		t.Errorf("listings must not expose wifi secrets")
	}
}
