package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/darziflow/console/internal/api/views"
	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/infrastructure/sessions"
	"github.com/darziflow/console/internal/infrastructure/tokenstore"
)

type captureSink struct {
	mu     sync.Mutex
	events []domain.SessionEvent
}

func (s *captureSink) Record(ev domain.SessionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *captureSink) kinds() []domain.SessionEventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SessionEventKind, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Kind
	}
	return out
}

type fixture struct {
	e    *echo.Echo
	reg  *sessions.Registry
	mem  *tokenstore.Memory
	sink *captureSink
}

func newFixture(t *testing.T, backendURL string) *fixture {
	t.Helper()
	mem := tokenstore.NewMemory()
	sink := &captureSink{}
	reg, err := sessions.NewRegistry(sessions.Config{BaseURL: backendURL, Stores: mem, Sink: sink}, zerolog.Nop())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	renderer, err := views.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	e := echo.New()
	e.Renderer = renderer
	return &fixture{e: e, reg: reg, mem: mem, sink: sink}
}

// bundle returns the console session "sid", seeded with token when non-empty.
func (f *fixture) bundle(t *testing.T, token string) *sessions.Bundle {
	t.Helper()
	if token != "" {
		if err := f.mem.ForSession("sid").Save(context.Background(), token); err != nil {
			t.Fatalf("seed token: %v", err)
		}
	}
	b, err := f.reg.Get(context.Background(), "sid")
	if err != nil {
		t.Fatalf("bundle: %v", err)
	}
	return b
}

func (f *fixture) context(req *http.Request, b *sessions.Bundle) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c := f.e.NewContext(req, rec)
	if b != nil {
		SetBundle(c, b)
	}
	return c, rec
}

func okHandler(called *bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		*called = true
		return c.String(http.StatusOK, "view")
	}
}
