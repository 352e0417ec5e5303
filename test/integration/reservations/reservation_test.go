package integrationtests

import (
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"deskhub/pkg/client"
	"deskhub/pkg/model"
	"deskhub/test/integration/common"
)

const (
	ServiceName = "reservations-integration-tests"

	guestID     = "it-guest-1"
	secondGuest = "it-guest-2"
	hostID      = "it-host-1"
	pricePerDay = int64(1000)
	discount    = 10
	dateLayout  = "2006-01-02"
	startupWait = 30 * time.Second
)

var (
	api         *client.ReservationClient
	mongoHelper *common.MongoHelper
	officeID    string
)

// The suite drives a running service over HTTP and seeds the office
// directory through Mongo directly. It needs TEST_SERVER_URL (and a
// reachable Mongo at TEST_MONGO_URI or localhost).
func TestMain(t *testing.T) {
	if os.Getenv("TEST_SERVER_URL") == "" {
		t.Skip("TEST_SERVER_URL not set; skipping integration suite")
	}

	setup(t)
	defer teardown(t)

	testBookingLifecycle(t)
	testBookingRejections(t)
	testAvailability(t)
	testListings(t)
}

func setup(t *testing.T) {
	api = client.NewReservationClient(os.Getenv("TEST_SERVER_URL"))
	if err := api.WaitForHealthy(startupWait); err != nil {
		t.Fatalf("service never became healthy: %v", err)
	}

	mongoHelper = common.NewMongoHelper(t, os.Getenv("TEST_MONGO_URI"), os.Getenv("TEST_MONGO_DATABASE"))
	mongoHelper.CleanCollection(t, common.ReservationsCollection)
	mongoHelper.CleanCollection(t, common.OfficesCollection)
	mongoHelper.CleanCollection(t, common.OfficeLocksCollection)

	officeID = mongoHelper.SeedOffice(t, hostID, pricePerDay, discount, model.OfficeApprovalApproved, false)
}

func teardown(t *testing.T) {
	mongoHelper.CleanCollection(t, common.ReservationsCollection)
	mongoHelper.CleanCollection(t, common.OfficesCollection)
	mongoHelper.Close(t)
}

// --- Helpers ---

func day(offset int) string {
	return time.Now().UTC().AddDate(0, 0, offset).Format(dateLayout)
}

func bookingBody(userID string, startOffset, endOffset int) map[string]any {
	return map[string]any{
		"office_id":  officeID,
		"user_id":    userID,
		"start_date": day(startOffset),
		"end_date":   day(endOffset),
	}
}

func bookReservation(t *testing.T, userID string, startOffset, endOffset int) *model.Reservation {
	t.Helper()

	resp, err := api.Book(bookingBody(userID, startOffset, endOffset))
	if err != nil {
		t.Fatalf("book request failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %s", resp.ToString())
	}

	reservation, err := api.DecodeReservation(resp)
	if err != nil {
		t.Fatalf("decode reservation: %v", err)
	}
	return reservation
}

// --- Scenarios ---

func testBookingLifecycle(t *testing.T) {
	// Forty days from tomorrow triggers the monthly discount.
	first := bookReservation(t, guestID, 1, 40)
	if first.Price != 36000 {
		t.Errorf("expected discounted price 36000, got %d", first.Price)
	}
	if first.Status != model.ReservationStatusActive {
		t.Errorf("expected active reservation, got %s", first.Status)
	}
	if first.WifiPassword == "" {
		t.Errorf("booking response must carry the wifi password")
	}

	// Overlapping dates are rejected while the first booking is active.
	resp, err := api.Book(bookingBody(secondGuest, 20, 25))
	if err != nil {
		t.Fatalf("conflicting book request failed: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for overlapping dates, got %s", resp.ToString())
	}

	// The owner can fetch it back, wifi password included.
	resp, err = api.GetByID(first.ID, guestID)
	if err != nil {
		t.Fatalf("get request failed: %v", err)
	}
	fetched, err := api.DecodeReservation(resp)
	if err != nil {
		t.Fatalf("decode reservation: %v", err)
	}
	if fetched.WifiPassword != first.WifiPassword {
		t.Errorf("owner must see the same wifi password")
	}

	// Anyone else is rejected.
	resp, err = api.GetByID(first.ID, secondGuest)
	if err != nil {
		t.Fatalf("get request failed: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for a foreign reservation, got %s", resp.ToString())
	}

	// Cancelling frees the dates for another guest.
	resp, err = api.Cancel(first.ID, map[string]any{"user_id": guestID})
	if err != nil {
		t.Fatalf("cancel request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on cancel, got %s", resp.ToString())
	}

	rebooked := bookReservation(t, secondGuest, 20, 25)
	if rebooked.Price != 6000 {
		t.Errorf("expected price 6000 for six days, got %d", rebooked.Price)
	}

	// A second cancel of the first reservation always fails.
	resp, err = api.Cancel(first.ID, map[string]any{"user_id": guestID})
	if err != nil {
		t.Fatalf("cancel request failed: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 on double cancel, got %s", resp.ToString())
	}
}

func testBookingRejections(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]any
		expectCode int
	}{
		{"same day start and end", bookingBody(guestID, 50, 50), http.StatusUnprocessableEntity},
		{"start in the past", bookingBody(guestID, -5, 5), http.StatusUnprocessableEntity},
		{"missing user", map[string]any{"office_id": officeID, "start_date": day(50), "end_date": day(52)}, http.StatusUnprocessableEntity},
		{"unknown office", map[string]any{"office_id": "65f000000000000000000099", "user_id": guestID, "start_date": day(50), "end_date": day(52)}, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		resp, err := api.Book(tt.body)
		if err != nil {
			t.Fatalf("%s: request failed: %v", tt.name, err)
		}
		if resp.StatusCode != tt.expectCode {
			t.Errorf("%s: expected %d, got %s (%s)", tt.name, tt.expectCode, resp.ToString(), client.GetErrorMessage(resp))
		}
	}

	resp, err := api.BookRaw([]byte("{not json"))
	if err != nil {
		t.Fatalf("malformed book request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed JSON, got %s", resp.ToString())
	}
}

func testAvailability(t *testing.T) {
	// The rebooked range from the lifecycle scenario is still active.
	resp, err := api.Availability(officeID, day(20), day(25))
	if err != nil {
		t.Fatalf("availability request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %s", resp.ToString())
	}

	var busy struct {
		Data struct {
			Available bool              `json:"available"`
			Conflicts []model.DateRange `json:"conflicts"`
		} `json:"data"`
	}
	if err := resp.DecodeJSON(&busy); err != nil {
		t.Fatalf("decode availability: %v", err)
	}
	if busy.Data.Available {
		t.Errorf("expected booked range to be unavailable")
	}
	if len(busy.Data.Conflicts) == 0 {
		t.Errorf("expected at least one conflict")
	}

	resp, err = api.Availability(officeID, day(60), day(65))
	if err != nil {
		t.Fatalf("availability request failed: %v", err)
	}
	var free struct {
		Data struct {
			Available bool `json:"available"`
		} `json:"data"`
	}
	if err := resp.DecodeJSON(&free); err != nil {
		t.Fatalf("decode availability: %v", err)
	}
	if !free.Data.Available {
		t.Errorf("expected free range to be available")
	}
}

func testListings(t *testing.T) {
	resp, err := api.List(secondGuest, map[string]string{"status": "active"}, 10, 0)
	if err != nil {
		t.Fatalf("list request failed: %v", err)
	}
	reservations, metadata, err := api.DecodeReservations(resp)
	if err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if metadata.TotalCount != 1 || len(reservations) != 1 {
		t.Fatalf("expected one active reservation for %s, got %d (total %d)", secondGuest, len(reservations), metadata.TotalCount)
	}
	if reservations[0].WifiPassword != "" {
		t.Errorf("listings must not expose wifi passwords")
	}

	// The host sees both reservations across their office.
	resp, err = api.ListForHost(hostID, nil, 10, 0)
	if err != nil {
		t.Fatalf("host list request failed: %v", err)
	}
	_, metadata, err = api.DecodeReservations(resp)
	if err != nil {
		t.Fatalf("decode host listing: %v", err)
	}
	if metadata.TotalCount != 2 {
		t.Errorf("expected two reservations for the host, got %d", metadata.TotalCount)
	}

	// Filtering by a foreign office is rejected.
	resp, err = api.ListForHost(hostID, map[string]string{"office_id": "65f000000000000000000099"}, 10, 0)
	if err != nil {
		t.Fatalf("host list request failed: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for a foreign office filter, got %s", resp.ToString())
	}

	// Between-dates window around the rebooked range.
	resp, err = api.List(secondGuest, map[string]string{
		"start_date": day(18),
		"end_date":   day(27),
	}, 10, 0)
	if err != nil {
		t.Fatalf("list request failed: %v", err)
	}
	reservations, _, err = api.DecodeReservations(resp)
	if err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(reservations) != 1 {
		t.Errorf("expected the rebooked reservation inside the window, got %d", len(reservations))
	}

	if count := mongoHelper.CountDocuments(t, common.ReservationsCollection); count != 2 {
		t.Errorf("expected two persisted reservations, found %d", count)
	}
	fmt.Println("listings scenario complete")
}
