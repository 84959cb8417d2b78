package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/guard"
	"github.com/darziflow/console/internal/testutil/fakeapi"
)

var (
	staffRoute = guard.Route{Path: "/orders", AllowedRoles: []domain.Role{domain.RoleAdmin, domain.RoleModerator}}
	adminRoute = guard.Route{Path: "/users", AllowedRoles: []domain.Role{domain.RoleAdmin}}
)

func TestGuard_AnonymousRedirectsToEntry(t *testing.T) {
	api := fakeapi.New()
	defer api.Close()
	f := newFixture(t, api.BaseURL())

	c, rec := f.context(httptest.NewRequest(http.MethodGet, "/orders", nil), f.bundle(t, ""))
	called := false
	if err := Guard(staffRoute, zerolog.Nop())(okHandler(&called))(c); err != nil {
		t.Fatalf("guard: %v", err)
	}
	if called {
		t.Fatal("view must not run for an anonymous session")
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != guard.EntryPath {
		t.Fatalf("expected 303 to /, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestGuard_AllowedRoleRenders(t *testing.T) {
	api := fakeapi.New()
	defer api.Close()
	api.AddUser("m@x", "pw", domain.RoleModerator, false)
	f := newFixture(t, api.BaseURL())

	c, rec := f.context(httptest.NewRequest(http.MethodGet, "/orders", nil), f.bundle(t, api.IssueToken("m@x")))
	called := false
	if err := Guard(staffRoute, zerolog.Nop())(okHandler(&called))(c); err != nil {
		t.Fatalf("guard: %v", err)
	}
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected view rendered, got %d", rec.Code)
	}
}

func TestGuard_RoleDeniedRedirectsAndAudits(t *testing.T) {
	api := fakeapi.New()
	defer api.Close()
	api.AddUser("m@x", "pw", domain.RoleModerator, false)
	f := newFixture(t, api.BaseURL())

	c, rec := f.context(httptest.NewRequest(http.MethodGet, "/users", nil), f.bundle(t, api.IssueToken("m@x")))
	called := false
	if err := Guard(adminRoute, zerolog.Nop())(okHandler(&called))(c); err != nil {
		t.Fatalf("guard: %v", err)
	}
	if called || rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != guard.EntryPath {
		t.Fatalf("expected redirect to /, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	kinds := f.sink.kinds()
	if kinds[len(kinds)-1] != domain.EventDenied {
		t.Fatalf("expected denied event, got %v", kinds)
	}
}

func TestGuard_MustChangePasswordGoesToProfile(t *testing.T) {
	api := fakeapi.New()
	defer api.Close()
	api.AddUser("a@x", "pw", domain.RoleAdmin, true)
	f := newFixture(t, api.BaseURL())
	b := f.bundle(t, api.IssueToken("a@x"))

	c, rec := f.context(httptest.NewRequest(http.MethodGet, "/users", nil), b)
	called := false
	if err := Guard(adminRoute, zerolog.Nop())(okHandler(&called))(c); err != nil {
		t.Fatalf("guard: %v", err)
	}
	if called || rec.Header().Get("Location") != guard.ProfilePath {
		t.Fatalf("expected redirect to /profile, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	// The profile route itself renders, as does POST /profile/password which
	// is guarded by the same route.
	profile := guard.Route{Path: guard.ProfilePath, AllowedRoles: staffRoute.AllowedRoles}
	c, rec = f.context(httptest.NewRequest(http.MethodPost, "/profile/password", nil), b)
	if err := Guard(profile, zerolog.Nop())(okHandler(&called))(c); err != nil {
		t.Fatalf("guard: %v", err)
	}
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected profile rendered, got %d", rec.Code)
	}
}

func TestGuard_HTMXRedirectHeader(t *testing.T) {
	api := fakeapi.New()
	defer api.Close()
	f := newFixture(t, api.BaseURL())

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Hx-Request", "true")
	c, rec := f.context(req, f.bundle(t, ""))
	called := false
	if err := Guard(staffRoute, zerolog.Nop())(okHandler(&called))(c); err != nil {
		t.Fatalf("guard: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Header().Get("Hx-Redirect") != guard.EntryPath {
		t.Fatalf("expected Hx-Redirect to /, got %d %q", rec.Code, rec.Header().Get("Hx-Redirect"))
	}
}

func TestGuard_SlowBootstrapServesLoadingPage(t *testing.T) {
	release := make(chan struct{})
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{"user":{"id":"1","email":"m@x","role":"MODERATOR"}}`))
	}))
	defer backend.Close()
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }
	defer unblock()
	f := newFixture(t, backend.URL)
	b := f.bundle(t, "T1")

	c, rec := f.context(httptest.NewRequest(http.MethodGet, "/orders", nil), b)
	called := false
	if err := Guard(staffRoute, zerolog.Nop(), WithBootstrapWait(20*time.Millisecond))(okHandler(&called))(c); err != nil {
		t.Fatalf("guard: %v", err)
	}
	if called || rec.Code != http.StatusOK || rec.Header().Get("Refresh") != "1" {
		t.Fatalf("expected loading page, got %d refresh=%q", rec.Code, rec.Header().Get("Refresh"))
	}

	unblock()
	c, rec = f.context(httptest.NewRequest(http.MethodGet, "/orders", nil), b)
	if err := Guard(staffRoute, zerolog.Nop())(okHandler(&called))(c); err != nil {
		t.Fatalf("guard: %v", err)
	}
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected view once bootstrapped, got %d", rec.Code)
	}
}

func TestGuard_MissingBundle(t *testing.T) {
	api := fakeapi.New()
	defer api.Close()
	f := newFixture(t, api.BaseURL())

	c, _ := f.context(httptest.NewRequest(http.MethodGet, "/orders", nil), nil)
	called := false
	if err := Guard(staffRoute, zerolog.Nop())(okHandler(&called))(c); err == nil {
		t.Fatal("expected an error without a console session")
	}
}
