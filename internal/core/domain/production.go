package domain

import "time"

// Department is a production floor unit (cutting, stitching, finishing...).
type Department struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	HeadEmail   string    `json:"headEmail,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Stage is one step of a multi-stage operation, run by a department.
type Stage struct {
	Sequence     int    `json:"sequence"`
	Name         string `json:"name"`
	DepartmentID string `json:"departmentId"`
}

// Operation is an ordered chain of stages a garment passes through.
type Operation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Stages    []Stage   `json:"stages"`
	CreatedAt time.Time `json:"createdAt"`
}

// QCCheckpoint is a quality gate attached to an operation stage.
type QCCheckpoint struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	OperationID string `json:"operationId"`
	Stage       int    `json:"stage"`
	Criteria    string `json:"criteria,omitempty"`
}

// OrderStatus is the backend's order lifecycle value; the console only
// displays and forwards it.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderQC         OrderStatus = "QC"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// OrderItem is a single garment line on an order.
type OrderItem struct {
	Garment  string `json:"garment"`
	Size     string `json:"size,omitempty"`
	Quantity int    `json:"quantity"`
}

// Order is a customer order routed through an operation.
type Order struct {
	ID          string      `json:"id"`
	Reference   string      `json:"reference"`
	Customer    string      `json:"customer"`
	OperationID string      `json:"operationId,omitempty"`
	Status      OrderStatus `json:"status"`
	Items       []OrderItem `json:"items"`
	DueDate     time.Time   `json:"dueDate"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// DashboardStats is the summary shown on the landing dashboard.
type DashboardStats struct {
	Departments    int                 `json:"departments"`
	Operations     int                 `json:"operations"`
	Users          int                 `json:"users"`
	OrdersByStatus map[OrderStatus]int `json:"ordersByStatus"`
}
