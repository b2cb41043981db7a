// Package snapshot talks to the backend REST API: the three snapshot
// fetches that seed the board and the operator actions that change it.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/joao-fontenele/dispatch-board/internal/auth"
	"github.com/joao-fontenele/dispatch-board/internal/domain"
)

// ErrSessionExpired is returned when the backend rejects the bearer token
// as expired. The operator has to sign in again.
var ErrSessionExpired = errors.New("session expired")

type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: backend returned status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: backend returned status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if strings.Contains(e.Message, "jwt expired") {
		return ErrSessionExpired
	}
	return nil
}

type Client struct {
	baseURL string
	client  *http.Client
	tokens  auth.TokenSource
}

func NewClient(baseURL string, client *http.Client, tokens auth.TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		tokens:  tokens,
	}
}

// UnassignedOrders fetches orders awaiting a courier, optionally scoped to one branch.
func (c *Client) UnassignedOrders(ctx context.Context, branchID string) ([]domain.RawOrder, error) {
	path := "/api/orders/unassigned-delivery"
	if branchID != "" {
		path += "?branch=" + url.QueryEscape(branchID)
	}
	var orders []domain.RawOrder
	if err := c.do(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) AssignedOrders(ctx context.Context) ([]domain.RawOrder, error) {
	var orders []domain.RawOrder
	if err := c.do(ctx, http.MethodGet, "/api/orders/assigned-delivery", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) Dashboard(ctx context.Context) (domain.Dashboard, error) {
	var d domain.Dashboard
	if err := c.do(ctx, http.MethodGet, "/api/deliveries/delivery-dashboard", nil, &d); err != nil {
		return domain.Dashboard{}, err
	}
	return d, nil
}

func (c *Client) ReturnCourier(ctx context.Context, courierID string) (domain.RawCourier, error) {
	var resp domain.CourierEvent
	path := "/api/deliveries/" + url.PathEscape(courierID) + "/return"
	if err := c.do(ctx, http.MethodPut, path, struct{}{}, &resp); err != nil {
		return domain.RawCourier{}, err
	}
	return resp.Courier, nil
}

func (c *Client) SetCourierAvailable(ctx context.Context, courierID string) (domain.RawCourier, error) {
	var resp domain.CourierEvent
	path := "/api/deliveries/" + url.PathEscape(courierID) + "/set-available"
	if err := c.do(ctx, http.MethodPut, path, struct{}{}, &resp); err != nil {
		return domain.RawCourier{}, err
	}
	return resp.Courier, nil
}

type assignRequest struct {
	OrderIDs  []string `json:"orderIds"`
	CourierID string   `json:"deliveryId"`
}

type unassignRequest struct {
	OrderIDs []string `json:"orderIds"`
}

// AssignOrders asks the backend to hand orderIDs to courierID. The backend
// may answer with the updated orders or leave that to the push event.
func (c *Client) AssignOrders(ctx context.Context, orderIDs []string, courierID string) (domain.AssignedEvent, error) {
	var resp domain.AssignedEvent
	req := assignRequest{OrderIDs: orderIDs, CourierID: courierID}
	if err := c.do(ctx, http.MethodPut, "/api/orders/assign-multiple-delivery", req, &resp); err != nil {
		return domain.AssignedEvent{}, err
	}
	return resp, nil
}

func (c *Client) UnassignOrders(ctx context.Context, orderIDs []string) ([]domain.RawOrder, error) {
	var resp domain.UnassignedEvent
	req := unassignRequest{OrderIDs: orderIDs}
	if err := c.do(ctx, http.MethodPut, "/api/orders/unassign-multiple", req, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode}
		var eb errorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err == nil {
			apiErr.Message = eb.Message
			if apiErr.Message == "" {
				apiErr.Message = eb.Error
			}
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
