package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/ports"
)

var _ ports.ProductionAPI = (*Client)(nil)

// envelope is the backend's {"data": ...} wrapper for resource endpoints.
type envelope[T any] struct {
	Data T `json:"data"`
}

func get[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out envelope[T]
	err := c.Do(ctx, http.MethodGet, path, nil, &out)
	return out.Data, err
}

func send[T any](ctx context.Context, c *Client, method, path string, in any) (*T, error) {
	var out envelope[T]
	if err := c.Do(ctx, method, path, in, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	return send[domain.DashboardStats](ctx, c, http.MethodGet, "/dashboard/stats", nil)
}

func (c *Client) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	return get[[]domain.Department](ctx, c, "/departments")
}

func (c *Client) CreateDepartment(ctx context.Context, in ports.DepartmentInput) (*domain.Department, error) {
	return send[domain.Department](ctx, c, http.MethodPost, "/departments", in)
}

func (c *Client) DeleteDepartment(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/departments/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListOperations(ctx context.Context) ([]domain.Operation, error) {
	return get[[]domain.Operation](ctx, c, "/operations")
}

func (c *Client) CreateOperation(ctx context.Context, in ports.OperationInput) (*domain.Operation, error) {
	return send[domain.Operation](ctx, c, http.MethodPost, "/operations", in)
}

func (c *Client) ListQCCheckpoints(ctx context.Context) ([]domain.QCCheckpoint, error) {
	return get[[]domain.QCCheckpoint](ctx, c, "/qc-checkpoints")
}

func (c *Client) CreateQCCheckpoint(ctx context.Context, in ports.QCCheckpointInput) (*domain.QCCheckpoint, error) {
	return send[domain.QCCheckpoint](ctx, c, http.MethodPost, "/qc-checkpoints", in)
}

// ListOrders calls GET /orders with optional status and search filters.
func (c *Client) ListOrders(ctx context.Context, filter ports.OrderFilter) ([]domain.Order, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	path := "/orders"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return get[[]domain.Order](ctx, c, path)
}

func (c *Client) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return send[domain.Order](ctx, c, http.MethodGet, "/orders/"+url.PathEscape(id), nil)
}

func (c *Client) CreateOrder(ctx context.Context, in ports.OrderInput) (*domain.Order, error) {
	return send[domain.Order](ctx, c, http.MethodPost, "/orders", in)
}

type orderStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (c *Client) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	return send[domain.Order](ctx, c, http.MethodPatch, "/orders/"+url.PathEscape(id)+"/status", orderStatusRequest{Status: status})
}

func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	return get[[]domain.User](ctx, c, "/users")
}

func (c *Client) CreateUser(ctx context.Context, in ports.UserInput) (*domain.User, error) {
	return send[domain.User](ctx, c, http.MethodPost, "/users", in)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil)
}
