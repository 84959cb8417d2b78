package handler

import (
	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/service"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Forms ---

type loginRequest struct {
	Email    string `json:"email"    form:"email"    validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `form:"currentPassword" validate:"required"`
	NewPassword     string `form:"newPassword"     validate:"required,min=8"`
	ConfirmPassword string `form:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

type departmentRequest struct {
	Name        string `form:"name"        validate:"required"`
	Description string `form:"description"`
	HeadEmail   string `form:"headEmail"   validate:"omitempty,email"`
}

type operationRequest struct {
	Name   string `form:"name"   validate:"required"`
	Stages string `form:"stages" validate:"required"`
}

type checkpointRequest struct {
	Name        string `form:"name"        validate:"required"`
	OperationID string `form:"operationId" validate:"required"`
	Stage       int    `form:"stage"       validate:"required,gt=0"`
	Criteria    string `form:"criteria"`
}

type orderRequest struct {
	Customer    string `form:"customer"    validate:"required"`
	OperationID string `form:"operationId"`
	Garment     string `form:"garment"     validate:"required"`
	Quantity    int    `form:"quantity"    validate:"required,gt=0"`
	DueDate     string `form:"dueDate"     validate:"required,datetime=2006-01-02"`
}

type orderStatusRequest struct {
	Status string `form:"status" validate:"required,oneof=PENDING IN_PROGRESS QC COMPLETED CANCELLED"`
}

type userRequest struct {
	Name       string `form:"name"       validate:"required"`
	Email      string `form:"email"      validate:"required,email"`
	Password   string `form:"password"   validate:"required,min=8"`
	Role       string `form:"role"       validate:"required,oneof=ADMIN MODERATOR WORKER"`
	Department string `form:"department"`
}

// --- JSON session API ---

type overlayResponse struct {
	Visible bool   `json:"visible"`
	Target  string `json:"target,omitempty"`
}

type sessionResponse struct {
	State     string            `json:"state"`
	Loading   bool              `json:"loading"`
	Principal *domain.Principal `json:"principal"`
	Overlay   overlayResponse   `json:"overlay"`
}

type loginResponse struct {
	Principal *domain.Principal `json:"principal"`
}

type sessionEventResponse struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Path   string `json:"path,omitempty"`
	Detail string `json:"detail,omitempty"`
	At     string `json:"at"`
}

type sessionEventsResponse struct {
	Data []sessionEventResponse `json:"data"`
}

func toSessionResponse(snap service.Snapshot, ov service.OverlayView) sessionResponse {
	return sessionResponse{
		State:     snap.State.String(),
		Loading:   snap.Loading,
		Principal: snap.Principal,
		Overlay:   overlayResponse{Visible: ov.Visible, Target: ov.Target},
	}
}
