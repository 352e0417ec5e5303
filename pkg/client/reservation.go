package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"deskhub/pkg/model"
)

type Metadata struct {
	TotalCount int64
	Limit      int
	Offset     int64
}

// ReservationClient is the service-to-service client for the reservations
// API, used by integration tooling and sibling services.
type ReservationClient struct {
	httpClient *HttpClient
}

func NewReservationClient(baseUrl string) *ReservationClient {
	return &ReservationClient{
		httpClient: NewHttpClient(baseUrl),
	}
}

func (c *ReservationClient) WaitForHealthy(maxWait time.Duration) error {
	return c.httpClient.WaitForHealthy(maxWait)
}

func (c *ReservationClient) Book(body any) (*Response, error) {
	return c.httpClient.POST("/api/v1/reservations", body)
}

func (c *ReservationClient) Cancel(id string, body any) (*Response, error) {
	path := "/api/v1/reservations/id/" + url.PathEscape(id) + "/cancel"
	return c.httpClient.POST(path, body)
}

func (c *ReservationClient) GetByID(id, userID string) (*Response, error) {
	path := "/api/v1/reservations/id/" + url.PathEscape(id) + "?user_id=" + url.QueryEscape(userID)
	return c.httpClient.GET(path)
}

func (c *ReservationClient) List(userID string, filters map[string]string, limit int, offset int64) (*Response, error) {
	return c.httpClient.GET("/api/v1/reservations?" + listQuery(userID, filters, limit, offset))
}

func (c *ReservationClient) ListForHost(userID string, filters map[string]string, limit int, offset int64) (*Response, error) {
	return c.httpClient.GET("/api/v1/host/reservations?" + listQuery(userID, filters, limit, offset))
}

func (c *ReservationClient) Availability(officeID, startDate, endDate string) (*Response, error) {
	q := url.Values{}
	q.Set("office_id", officeID)
	q.Set("start_date", startDate)
	q.Set("end_date", endDate)
	return c.httpClient.GET("/api/v1/reservations/availability?" + q.Encode())
}

func (c *ReservationClient) BookRaw(rawBody []byte) (*Response, error) {
	return c.httpClient.POSTRaw("/api/v1/reservations", rawBody)
}

func listQuery(userID string, filters map[string]string, limit int, offset int64) string {
	q := url.Values{}
	q.Set("user_id", userID)
	for key, value := range filters {
		if value != "" {
			q.Set(key, value)
		}
	}
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("offset", fmt.Sprintf("%d", offset))
	return q.Encode()
}

func (c *ReservationClient) DecodeReservation(resp *Response) (*model.Reservation, error) {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, fmt.Errorf("could not decode reservation wrapper:\n%+v\n%s", resp.ToString(), err)
	}

	var reservation model.Reservation
	if err := json.Unmarshal(wrapper.Data, &reservation); err != nil {
		return nil, fmt.Errorf("could not decode reservation json:\n%+v\n%s", resp.ToString(), err)
	}

	return &reservation, nil
}

func (c *ReservationClient) DecodeReservations(resp *Response) ([]*model.Reservation, *Metadata, error) {
	var wrapper struct {
		Data       json.RawMessage `json:"data"`
		TotalCount int64           `json:"total_count"`
		Limit      int             `json:"limit"`
		Offset     int64           `json:"offset"`
	}

	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return nil, nil, fmt.Errorf("could not decode paginated resp:\n%+v\n%s", resp.ToString(), err)
	}

	var reservations []*model.Reservation
	if err := json.Unmarshal(wrapper.Data, &reservations); err != nil {
		return nil, nil, fmt.Errorf("could not decode reservation list:\n%+v\n%s", resp.ToString(), err)
	}

	metadata := &Metadata{
		TotalCount: wrapper.TotalCount,
		Limit:      wrapper.Limit,
		Offset:     wrapper.Offset,
	}

	return reservations, metadata, nil
}
