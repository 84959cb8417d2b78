package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/darziflow/console/internal/api/views"
	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/ports"
	"github.com/darziflow/console/internal/core/service"
)

// ProductionHandler serves the leaf views. Every backend call goes through
// the console session's client, so token rotation and forced logout apply.
type ProductionHandler struct {
	interstitial *service.Interstitial
	log          zerolog.Logger
}

func NewProductionHandler(interstitial *service.Interstitial, log zerolog.Logger) *ProductionHandler {
	return &ProductionHandler{interstitial: interstitial, log: log}
}

// loader fetches the data a list page shows.
type loader func(ctx context.Context, api ports.ProductionAPI) (any, error)

// list renders a page whose data comes from load.
func (h *ProductionHandler) list(c echo.Context, name, title string, load loader) error {
	b, err := ctxBundle(c)
	if err != nil {
		return err
	}
	data, err := load(c.Request().Context(), b.Client)
	if err != nil {
		return err
	}
	page := newPage(c, b, h.interstitial, title)
	page.Data = data
	return c.Render(http.StatusOK, name, page)
}

// submit runs a form action. Failures the user can fix redraw the page with
// the message and what was typed; success redirects to target with flash.
func (h *ProductionHandler) submit(c echo.Context, name, title string, form map[string]string, load loader,
	action func(ctx context.Context, api ports.ProductionAPI) error, target, flash string) error {
	b, err := ctxBundle(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	actErr := action(ctx, b.Client)
	if actErr == nil {
		return redirectFlash(c, target, flash)
	}
	if !isInline(actErr) {
		return actErr
	}

	page := newPage(c, b, h.interstitial, title)
	page.Form = form
	page.Error = domain.MessageOf(actErr)
	if load != nil {
		if page.Data, err = load(ctx, b.Client); err != nil {
			return err
		}
	}
	return c.Render(http.StatusOK, name, page)
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return c.Validate(req)
}

// --- Dashboard ---

func (h *ProductionHandler) Dashboard(c echo.Context) error {
	return h.list(c, views.PageDashboard, "Dashboard", func(ctx context.Context, api ports.ProductionAPI) (any, error) {
		return api.DashboardStats(ctx)
	})
}

// --- Departments ---

func loadDepartments(ctx context.Context, api ports.ProductionAPI) (any, error) {
	return api.ListDepartments(ctx)
}

func (h *ProductionHandler) Departments(c echo.Context) error {
	return h.list(c, views.PageDepartments, "Departments", loadDepartments)
}

func (h *ProductionHandler) CreateDepartment(c echo.Context) error {
	var req departmentRequest
	return h.submit(c, views.PageDepartments, "Departments",
		formValues(c, "name", "description", "headEmail"), loadDepartments,
		func(ctx context.Context, api ports.ProductionAPI) error {
			if err := bindAndValidate(c, &req); err != nil {
				return err
			}
			_, err := api.CreateDepartment(ctx, toDepartmentInput(req))
			return err
		}, "/departments", "Department created")
}

func (h *ProductionHandler) DeleteDepartment(c echo.Context) error {
	return h.submit(c, views.PageDepartments, "Departments", nil, loadDepartments,
		func(ctx context.Context, api ports.ProductionAPI) error {
			return api.DeleteDepartment(ctx, c.Param("id"))
		}, "/departments", "Department deleted")
}

// --- Operations ---

func loadOperations(ctx context.Context, api ports.ProductionAPI) (any, error) {
	return api.ListOperations(ctx)
}

func (h *ProductionHandler) Operations(c echo.Context) error {
	return h.list(c, views.PageOperations, "Operations", loadOperations)
}

func (h *ProductionHandler) CreateOperation(c echo.Context) error {
	var req operationRequest
	return h.submit(c, views.PageOperations, "Operations",
		formValues(c, "name", "stages"), loadOperations,
		func(ctx context.Context, api ports.ProductionAPI) error {
			if err := bindAndValidate(c, &req); err != nil {
				return err
			}
			in, err := toOperationInput(req)
			if err != nil {
				return err
			}
			_, err = api.CreateOperation(ctx, in)
			return err
		}, "/operations", "Operation created")
}

// --- QC checkpoints ---

func loadCheckpoints(ctx context.Context, api ports.ProductionAPI) (any, error) {
	return api.ListQCCheckpoints(ctx)
}

func (h *ProductionHandler) Checkpoints(c echo.Context) error {
	return h.list(c, views.PageQC, "QC checkpoints", loadCheckpoints)
}

func (h *ProductionHandler) CreateCheckpoint(c echo.Context) error {
	var req checkpointRequest
	return h.submit(c, views.PageQC, "QC checkpoints",
		formValues(c, "name", "operationId", "stage", "criteria"), loadCheckpoints,
		func(ctx context.Context, api ports.ProductionAPI) error {
			if err := bindAndValidate(c, &req); err != nil {
				return err
			}
			_, err := api.CreateQCCheckpoint(ctx, toCheckpointInput(req))
			return err
		}, "/qc", "Checkpoint created")
}

// --- Orders ---

func (h *ProductionHandler) Orders(c echo.Context) error {
	b, err := ctxBundle(c)
	if err != nil {
		return err
	}
	status, search := c.QueryParam("status"), c.QueryParam("search")
	orders, err := b.Client.ListOrders(c.Request().Context(), toOrderFilter(status, search))
	if err != nil {
		return err
	}
	page := newPage(c, b, h.interstitial, "Orders")
	page.Form["status"] = status
	page.Form["search"] = search
	page.Data = orders
	return c.Render(http.StatusOK, views.PageOrders, page)
}

func (h *ProductionHandler) Order(c echo.Context) error {
	id := c.Param("id")
	return h.list(c, views.PageOrder, "Order", func(ctx context.Context, api ports.ProductionAPI) (any, error) {
		return api.GetOrder(ctx, id)
	})
}

func (h *ProductionHandler) CreateOrder(c echo.Context) error {
	var req orderRequest
	return h.submit(c, views.PageOrders, "Orders",
		formValues(c, "customer", "operationId", "garment", "quantity", "dueDate"),
		func(ctx context.Context, api ports.ProductionAPI) (any, error) {
			return api.ListOrders(ctx, ports.OrderFilter{})
		},
		func(ctx context.Context, api ports.ProductionAPI) error {
			if err := bindAndValidate(c, &req); err != nil {
				return err
			}
			in, err := toOrderInput(req)
			if err != nil {
				return err
			}
			_, err = api.CreateOrder(ctx, in)
			return err
		}, "/orders", "Order created")
}

func (h *ProductionHandler) UpdateOrderStatus(c echo.Context) error {
	id := c.Param("id")
	var req orderStatusRequest
	return h.submit(c, views.PageOrder, "Order", nil,
		func(ctx context.Context, api ports.ProductionAPI) (any, error) {
			return api.GetOrder(ctx, id)
		},
		func(ctx context.Context, api ports.ProductionAPI) error {
			if err := bindAndValidate(c, &req); err != nil {
				return err
			}
			_, err := api.UpdateOrderStatus(ctx, id, domain.OrderStatus(req.Status))
			return err
		}, "/orders/"+id, "Status updated")
}

// --- Users ---

func loadUsers(ctx context.Context, api ports.ProductionAPI) (any, error) {
	return api.ListUsers(ctx)
}

func (h *ProductionHandler) Users(c echo.Context) error {
	return h.list(c, views.PageUsers, "Users", loadUsers)
}

func (h *ProductionHandler) CreateUser(c echo.Context) error {
	var req userRequest
	return h.submit(c, views.PageUsers, "Users",
		formValues(c, "name", "email", "role", "department"), loadUsers,
		func(ctx context.Context, api ports.ProductionAPI) error {
			if err := bindAndValidate(c, &req); err != nil {
				return err
			}
			_, err := api.CreateUser(ctx, toUserInput(req))
			return err
		}, "/users", "User created")
}

func (h *ProductionHandler) DeleteUser(c echo.Context) error {
	return h.submit(c, views.PageUsers, "Users", nil, loadUsers,
		func(ctx context.Context, api ports.ProductionAPI) error {
			return api.DeleteUser(ctx, c.Param("id"))
		}, "/users", "User deleted")
}

// --- Profile ---

func (h *ProductionHandler) Profile(c echo.Context) error {
	b, err := ctxBundle(c)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, views.PageProfile, newPage(c, b, h.interstitial, "Profile"))
}

// ChangePassword handles POST /profile/password. Success lifts the forced
// rotation flag for the rest of the console session.
func (h *ProductionHandler) ChangePassword(c echo.Context) error {
	b, err := ctxBundle(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	return h.submit(c, views.PageProfile, "Profile", nil, nil,
		func(ctx context.Context, api ports.ProductionAPI) error {
			if err := bindAndValidate(c, &req); err != nil {
				return err
			}
			if err := api.ChangePassword(ctx, req.CurrentPassword, req.NewPassword); err != nil {
				return err
			}
			b.Session.ClearMustChangePassword()
			h.log.Info().Str("session_id", b.ID).Msg("password changed")
			return nil
		}, "/profile", "Password updated")
}
