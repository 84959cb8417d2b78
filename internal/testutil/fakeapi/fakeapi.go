// Package fakeapi is an in-process stand-in for the DarziFlow REST backend,
// used by tests. It issues HS256 tokens, checks bcrypt password hashes,
// rotates tokens on demand through the x-access-token header and answers 401
// for unknown or revoked tokens.
package fakeapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/ports"
)

const (
	secret      = "fakeapi-secret"
	tokenTTL    = time.Hour
	rotateHdr   = "x-access-token"
	ctxEmailKey = "fakeapi.email"
	ctxTokenKey = "fakeapi.token"
)

// Request is one call the server received.
type Request struct {
	Method string
	Path   string
	Token  string
}

type account struct {
	user domain.User
	hash []byte
}

// Server is the fake backend. All methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	accounts    map[string]*account // by email
	tokens      map[string]string   // token -> email
	rotateNext  bool
	requests    []Request
	departments []domain.Department
	operations  []domain.Operation
	checkpoints []domain.QCCheckpoint
	orders      []domain.Order
	seq         int
}

// New starts a fake backend. Close it when done.
func New() *Server {
	s := &Server{
		accounts: map[string]*account{},
		tokens:   map[string]string{},
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

// BaseURL returns the API base URL (with the /api prefix).
func (s *Server) BaseURL() string { return s.Server.URL + "/api" }

// AddUser registers an account with a bcrypt-hashed password.
func (s *Server) AddUser(email, password string, role domain.Role, mustChange bool) domain.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := domain.User{
		ID:                 uuid.NewString(),
		Name:               strings.Split(email, "@")[0],
		Email:              email,
		Role:               role,
		MustChangePassword: mustChange,
		CreatedAt:          time.Now().UTC(),
	}
	s.accounts[email] = &account{user: u, hash: hash}
	return u
}

// IssueToken mints a valid token for email without going through login.
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(email)
}

// RotateNext makes the next authenticated response carry a replacement
// token; the old token stops working immediately.
func (s *Server) RotateNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotateNext = true
}

// RevokeAll invalidates every issued token.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]string{}
}

// Requests returns a copy of the calls received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// SeedDepartment adds a department and returns it.
func (s *Server) SeedDepartment(name string) domain.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := domain.Department{ID: s.nextID("dep"), Name: name, CreatedAt: time.Now().UTC()}
	s.departments = append(s.departments, d)
	return d
}

// SeedOrder adds an order and returns it.
func (s *Server) SeedOrder(customer string, status domain.OrderStatus) domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("ord")
	o := domain.Order{
		ID:        id,
		Reference: strings.ToUpper(id),
		Customer:  customer,
		Status:    status,
		Items:     []domain.OrderItem{{Garment: "kurta", Quantity: 1}},
		DueDate:   time.Now().Add(72 * time.Hour).UTC(),
		CreatedAt: time.Now().UTC(),
	}
	s.orders = append(s.orders, o)
	return o
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *Server) issueLocked(email string) string {
	a := s.accounts[email]
	role := ""
	if a != nil {
		role = string(a.user.Role)
	}
	claims := jwt.MapClaims{
		"sub":  email,
		"role": role,
		"jti":  uuid.NewString(),
		"exp":  time.Now().Add(tokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	s.tokens[token] = email
	return token
}

func (s *Server) routes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api := e.Group("/api", s.record)
	api.POST("/auth/login", s.login)

	authed := api.Group("", s.authenticate)
	authed.POST("/auth/logout", s.logout)
	authed.GET("/auth/me", s.me)
	authed.POST("/auth/change-password", s.changePassword)
	authed.GET("/dashboard/stats", s.stats)
	authed.GET("/departments", s.listDepartments)
	authed.POST("/departments", s.createDepartment)
	authed.DELETE("/departments/:id", s.deleteDepartment)
	authed.GET("/operations", s.listOperations)
	authed.POST("/operations", s.createOperation)
	authed.GET("/qc-checkpoints", s.listCheckpoints)
	authed.POST("/qc-checkpoints", s.createCheckpoint)
	authed.GET("/orders", s.listOrders)
	authed.POST("/orders", s.createOrder)
	authed.GET("/orders/:id", s.getOrder)
	authed.PATCH("/orders/:id/status", s.updateOrderStatus)
	authed.GET("/users", s.listUsers, s.adminOnly)
	authed.POST("/users", s.createUser, s.adminOnly)
	authed.DELETE("/users/:id", s.deleteUser, s.adminOnly)
	return e
}

func message(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"message": msg})
}

func data(c echo.Context, status int, v any) error {
	return c.JSON(status, map[string]any{"data": v})
}

func bearer(c echo.Context) string {
	h := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func (s *Server) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: c.Request().Method,
			Path:   strings.TrimPrefix(c.Request().URL.Path, "/api"),
			Token:  bearer(c),
		})
		s.mu.Unlock()
		return next(c)
	}
}

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearer(c)
		if token == "" {
			return message(c, http.StatusUnauthorized, "Authentication required")
		}
		if _, err := jwt.Parse(token, func(*jwt.Token) (any, error) { return []byte(secret), nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})); err != nil {
			return message(c, http.StatusUnauthorized, "Token expired")
		}

		s.mu.Lock()
		email, ok := s.tokens[token]
		if ok && s.rotateNext {
			s.rotateNext = false
			delete(s.tokens, token)
			c.Response().Header().Set(rotateHdr, s.issueLocked(email))
		}
		s.mu.Unlock()
		if !ok {
			return message(c, http.StatusUnauthorized, "Token expired")
		}

		c.Set(ctxEmailKey, email)
		c.Set(ctxTokenKey, token)
		return next(c)
	}
}

func (s *Server) adminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if a := s.current(c); a == nil || a.user.Role != domain.RoleAdmin {
			return message(c, http.StatusForbidden, "Admins only")
		}
		return next(c)
	}
}

func (s *Server) current(c echo.Context) *account {
	email, _ := c.Get(ctxEmailKey).(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[email]
}

func (s *Server) login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Platform string `json:"platform"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Password == "" {
		return message(c, http.StatusBadRequest, "Email and password are required")
	}

	s.mu.Lock()
	a := s.accounts[req.Email]
	s.mu.Unlock()
	if a == nil || bcrypt.CompareHashAndPassword(a.hash, []byte(req.Password)) != nil {
		return message(c, http.StatusUnauthorized, "Invalid email or password")
	}

	s.mu.Lock()
	token := s.issueLocked(req.Email)
	user := a.user
	s.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]any{"user": user, "accessToken": token})
}

func (s *Server) logout(c echo.Context) error {
	token, _ := c.Get(ctxTokenKey).(string)
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	return message(c, http.StatusOK, "Logged out")
}

func (s *Server) me(c echo.Context) error {
	a := s.current(c)
	if a == nil {
		return message(c, http.StatusUnauthorized, "Unknown user")
	}
	s.mu.Lock()
	user := a.user
	s.mu.Unlock()
	return c.JSON(http.StatusOK, map[string]any{"user": user})
}

func (s *Server) changePassword(c echo.Context) error {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil || req.NewPassword == "" {
		return message(c, http.StatusBadRequest, "New password is required")
	}
	a := s.current(c)
	if a == nil || bcrypt.CompareHashAndPassword(a.hash, []byte(req.CurrentPassword)) != nil {
		return message(c, http.StatusBadRequest, "Current password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.MinCost)
	if err != nil {
		return message(c, http.StatusInternalServerError, "hash failed")
	}
	s.mu.Lock()
	a.hash = hash
	a.user.MustChangePassword = false
	s.mu.Unlock()
	return message(c, http.StatusOK, "Password updated")
}

func (s *Server) stats(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byStatus := map[domain.OrderStatus]int{}
	for _, o := range s.orders {
		byStatus[o.Status]++
	}
	return data(c, http.StatusOK, domain.DashboardStats{
		Departments:    len(s.departments),
		Operations:     len(s.operations),
		Users:          len(s.accounts),
		OrdersByStatus: byStatus,
	})
}

func (s *Server) listDepartments(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return data(c, http.StatusOK, append([]domain.Department{}, s.departments...))
}

func (s *Server) createDepartment(c echo.Context) error {
	var in ports.DepartmentInput
	if err := c.Bind(&in); err != nil || in.Name == "" {
		return message(c, http.StatusBadRequest, "Department name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := domain.Department{ID: s.nextID("dep"), Name: in.Name, Description: in.Description, HeadEmail: in.HeadEmail, CreatedAt: time.Now().UTC()}
	s.departments = append(s.departments, d)
	return data(c, http.StatusCreated, d)
}

func (s *Server) deleteDepartment(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.departments {
		if d.ID == c.Param("id") {
			s.departments = append(s.departments[:i], s.departments[i+1:]...)
			return c.NoContent(http.StatusNoContent)
		}
	}
	return message(c, http.StatusNotFound, "Department not found")
}

func (s *Server) listOperations(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return data(c, http.StatusOK, append([]domain.Operation{}, s.operations...))
}

func (s *Server) createOperation(c echo.Context) error {
	var in ports.OperationInput
	if err := c.Bind(&in); err != nil || in.Name == "" {
		return message(c, http.StatusBadRequest, "Operation name is required")
	}
	stages := append([]domain.Stage{}, in.Stages...)
	sort.Slice(stages, func(i, j int) bool { return stages[i].Sequence < stages[j].Sequence })
	s.mu.Lock()
	defer s.mu.Unlock()
	op := domain.Operation{ID: s.nextID("op"), Name: in.Name, Stages: stages, CreatedAt: time.Now().UTC()}
	s.operations = append(s.operations, op)
	return data(c, http.StatusCreated, op)
}

func (s *Server) listCheckpoints(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return data(c, http.StatusOK, append([]domain.QCCheckpoint{}, s.checkpoints...))
}

func (s *Server) createCheckpoint(c echo.Context) error {
	var in ports.QCCheckpointInput
	if err := c.Bind(&in); err != nil || in.Name == "" || in.OperationID == "" {
		return message(c, http.StatusBadRequest, "Checkpoint name and operation are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := domain.QCCheckpoint{ID: s.nextID("qc"), Name: in.Name, OperationID: in.OperationID, Stage: in.Stage, Criteria: in.Criteria}
	s.checkpoints = append(s.checkpoints, cp)
	return data(c, http.StatusCreated, cp)
}

func (s *Server) listOrders(c echo.Context) error {
	status := domain.OrderStatus(c.QueryParam("status"))
	search := strings.ToLower(c.QueryParam("search"))
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Order{}
	for _, o := range s.orders {
		if status != "" && o.Status != status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(o.Customer+" "+o.Reference), search) {
			continue
		}
		out = append(out, o)
	}
	return data(c, http.StatusOK, out)
}

func (s *Server) findOrderLocked(id string) (int, error) {
	for i, o := range s.orders {
		if o.ID == id {
			return i, nil
		}
	}
	return -1, errors.New("not found")
}

func (s *Server) getOrder(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.findOrderLocked(c.Param("id"))
	if err != nil {
		return message(c, http.StatusNotFound, "Order not found")
	}
	return data(c, http.StatusOK, s.orders[i])
}

func (s *Server) createOrder(c echo.Context) error {
	var in ports.OrderInput
	if err := c.Bind(&in); err != nil || in.Customer == "" || len(in.Items) == 0 {
		return message(c, http.StatusBadRequest, "Customer and at least one item are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("ord")
	o := domain.Order{
		ID:          id,
		Reference:   strings.ToUpper(id),
		Customer:    in.Customer,
		OperationID: in.OperationID,
		Status:      domain.OrderPending,
		Items:       in.Items,
		DueDate:     in.DueDate,
		CreatedAt:   time.Now().UTC(),
	}
	s.orders = append(s.orders, o)
	return data(c, http.StatusCreated, o)
}

func (s *Server) updateOrderStatus(c echo.Context) error {
	var req struct {
		Status domain.OrderStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return message(c, http.StatusBadRequest, "Status is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.findOrderLocked(c.Param("id"))
	if err != nil {
		return message(c, http.StatusNotFound, "Order not found")
	}
	s.orders[i].Status = req.Status
	return data(c, http.StatusOK, s.orders[i])
}

func (s *Server) listUsers(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.User, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return data(c, http.StatusOK, out)
}

func (s *Server) createUser(c echo.Context) error {
	var in ports.UserInput
	if err := c.Bind(&in); err != nil || in.Email == "" || in.Password == "" {
		return message(c, http.StatusBadRequest, "Email and password are required")
	}
	s.mu.Lock()
	_, exists := s.accounts[in.Email]
	s.mu.Unlock()
	if exists {
		return message(c, http.StatusConflict, "User already exists")
	}
	u := s.AddUser(in.Email, in.Password, in.Role, true)
	if in.Name != "" {
		s.mu.Lock()
		s.accounts[in.Email].user.Name = in.Name
		u = s.accounts[in.Email].user
		s.mu.Unlock()
	}
	return data(c, http.StatusCreated, u)
}

func (s *Server) deleteUser(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, a := range s.accounts {
		if a.user.ID == c.Param("id") {
			delete(s.accounts, email)
			return c.NoContent(http.StatusNoContent)
		}
	}
	return message(c, http.StatusNotFound, "User not found")
}
