package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/equiplend/frontend/internal/models"
)

const DefaultRejectReason = "Request rejected by staff"

// CreateBorrowRequest is the POST /api/requests/ body. Dates are RFC 3339
// instants in UTC.
type CreateBorrowRequest struct {
	Equipment   int64  `json:"equipment"`
	Quantity    int    `json:"quantity"`
	Purpose     string `json:"purpose"`
	BorrowFrom  string `json:"borrow_from"`
	BorrowUntil string `json:"borrow_until"`
	Notes       string `json:"notes,omitempty"`
}

// ListRequests returns every request visible to a privileged caller,
// optionally narrowed by status on the server.
func (c *Client) ListRequests(ctx context.Context, token string, status models.Status) ([]models.BorrowRequest, error) {
	path := "/api/requests/"
	if status != "" {
		path += "?" + url.Values{"status": {string(status)}}.Encode()
	}
	var out List[models.BorrowRequest]
	if err := c.do(ctx, http.MethodGet, "/api/requests/", path, token, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) MyRequests(ctx context.Context, token string) ([]models.BorrowRequest, error) {
	var out List[models.BorrowRequest]
	if err := c.do(ctx, http.MethodGet, "/api/requests/my_requests/", "/api/requests/my_requests/", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) CreateRequest(ctx context.Context, token string, in CreateBorrowRequest) (*models.BorrowRequest, error) {
	var out models.BorrowRequest
	if err := c.do(ctx, http.MethodPost, "/api/requests/", "/api/requests/", token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transition fires one lifecycle command. reason is only sent for reject.
func (c *Client) Transition(ctx context.Context, token string, id int64, action models.Action, reason string) (*models.BorrowRequest, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("unknown action %q", action)
	}
	var body any
	if action == models.ActionReject {
		if reason == "" {
			reason = DefaultRejectReason
		}
		body = map[string]string{"reason": reason}
	}
	path := fmt.Sprintf("/api/requests/%d/%s/", id, action)
	endpoint := "/api/requests/{id}/" + string(action) + "/"

	var out models.BorrowRequest
	if err := c.do(ctx, http.MethodPost, endpoint, path, token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
