package ports

import (
	"context"
	"time"

	"github.com/darziflow/console/internal/core/domain"
)

// DepartmentInput carries the fields of a new department.
type DepartmentInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	HeadEmail   string `json:"headEmail,omitempty"`
}

// OperationInput carries a new operation and its ordered stages.
type OperationInput struct {
	Name   string         `json:"name"`
	Stages []domain.Stage `json:"stages"`
}

// QCCheckpointInput carries a new QC checkpoint.
type QCCheckpointInput struct {
	Name        string `json:"name"`
	OperationID string `json:"operationId"`
	Stage       int    `json:"stage"`
	Criteria    string `json:"criteria,omitempty"`
}

// OrderInput carries a new order.
type OrderInput struct {
	Customer    string             `json:"customer"`
	OperationID string             `json:"operationId,omitempty"`
	Items       []domain.OrderItem `json:"items"`
	DueDate     time.Time          `json:"dueDate"`
}

// OrderFilter narrows the order list. Zero values mean no filter.
type OrderFilter struct {
	Status domain.OrderStatus
	Search string
}

// UserInput carries a new backend account.
type UserInput struct {
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Password   string      `json:"password"`
	Role       domain.Role `json:"role"`
	Department string      `json:"department,omitempty"`
}

// ProductionAPI is what the leaf views call. Every method goes through the
// authenticated client, so rotation and forced logout apply to all of them.
type ProductionAPI interface {
	DashboardStats(ctx context.Context) (*domain.DashboardStats, error)

	ListDepartments(ctx context.Context) ([]domain.Department, error)
	CreateDepartment(ctx context.Context, in DepartmentInput) (*domain.Department, error)
	DeleteDepartment(ctx context.Context, id string) error

	ListOperations(ctx context.Context) ([]domain.Operation, error)
	CreateOperation(ctx context.Context, in OperationInput) (*domain.Operation, error)

	ListQCCheckpoints(ctx context.Context) ([]domain.QCCheckpoint, error)
	CreateQCCheckpoint(ctx context.Context, in QCCheckpointInput) (*domain.QCCheckpoint, error)

	ListOrders(ctx context.Context, filter OrderFilter) ([]domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	CreateOrder(ctx context.Context, in OrderInput) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)

	ListUsers(ctx context.Context) ([]domain.User, error)
	CreateUser(ctx context.Context, in UserInput) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error

	ChangePassword(ctx context.Context, current, next string) error
}
