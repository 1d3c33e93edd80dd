package modules

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-fixture-users/internal/application"
	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/entity"
	"github.com/oksasatya/go-ddd-fixture-users/internal/infrastructure/memory"
	handlers "github.com/oksasatya/go-ddd-fixture-users/internal/interface/http"
	"github.com/oksasatya/go-ddd-fixture-users/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/helpers"
)

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   json.RawMessage `json:"error"`
}

func (e envelope) errors() map[string]string {
	var m map[string]string
	_ = json.Unmarshal(e.Error, &m)
	return m
}

type api struct {
	t       *testing.T
	engine  *gin.Engine
	svc     *application.Service
	cookies []*http.Cookie
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwt := helpers.NewJWTManager("access", "refresh", time.Minute, time.Hour)
	assocs := memory.NewAssociationRepository()
	svc := application.NewService(application.Options{
		Users:        memory.NewUserRepository().Cascade(assocs),
		Associations: assocs,
		Attachments:  memory.NewAttachmentRepository(),
		Auth:         application.NewBcryptAuthPolicy("secret", time.Hour),
		Slugs:        application.FriendlySlugPolicy{},
		JWT:          jwt,
		Blobs:        memory.NewBlobStore(),
	})

	e := gin.New()
	e.Use(middleware.RequestIDMiddleware(), middleware.RealIP())
	rg := e.Group("/api")
	NewAuthModule(handlers.NewAuthHandler(svc, nil, "", false), jwt, nil).Register(rg)
	NewUserModule(handlers.NewUserHandler(svc, nil), jwt, nil).Register(rg)
	NewAdminModule(handlers.NewAdminHandler(svc, nil), jwt, nil).Register(rg)
	NewDebugModule(nil).Register(rg)
	return &api{t: t, engine: e, svc: svc}
}

func (a *api) do(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.send(req)
}

func (a *api) send(req *http.Request) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	for _, c := range a.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			a.t.Fatalf("%s %s: decode %q: %v", req.Method, req.URL, w.Body.String(), err)
		}
	}
	return w, env
}

func (a *api) expect(w *httptest.ResponseRecorder, status int) {
	a.t.Helper()
	if w.Code != status {
		a.t.Fatalf("status = %d, want %d: %s", w.Code, status, w.Body.String())
	}
}

func (a *api) login(email, password string) {
	a.t.Helper()
	a.cookies = nil
	w, _ := a.do(http.MethodPost, "/api/auth/login", map[string]any{"email": email, "password": password})
	a.expect(w, http.StatusOK)
	a.cookies = w.Result().Cookies()
}

func (a *api) register(email, first, last string) map[string]any {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/api/users", map[string]any{
		"email": email, "password": "secret1", "password_confirmation": "secret1",
		"first_name": first, "last_name": last,
	})
	a.expect(w, http.StatusCreated)
	var u map[string]any
	_ = json.Unmarshal(env.Data, &u)
	return u
}

func TestRegistrationAndProfile(t *testing.T) {
	a := newAPI(t)

	w, env := a.do(http.MethodPost, "/api/users", map[string]any{"email": "bad"})
	a.expect(w, http.StatusUnprocessableEntity)
	if env.errors()["email"] != "is invalid" || env.errors()["first_name"] != "can't be blank" {
		t.Fatalf("errors = %v", env.errors())
	}

	u := a.register("avo@avohq.io", "Adrian", "Marin")
	if u["slug"] != "adrian-marin" || u["name"] != "Adrian Marin" || u["is_admin"] != false {
		t.Fatalf("created = %v", u)
	}
	if _, leaked := u["encrypted_password"]; leaked {
		t.Fatal("password hash serialized")
	}

	w, env = a.do(http.MethodPost, "/api/users", map[string]any{
		"email": "AVO@avohq.io", "password": "secret1", "first_name": "A", "last_name": "B",
	})
	a.expect(w, http.StatusUnprocessableEntity)
	if env.errors()["email"] != "has already been taken" {
		t.Fatalf("duplicate email errors = %v", env.errors())
	}

	w, _ = a.do(http.MethodGet, "/api/me", nil)
	a.expect(w, http.StatusUnauthorized)

	w, _ = a.do(http.MethodPost, "/api/auth/login", map[string]any{"email": "avo@avohq.io", "password": "wrong"})
	a.expect(w, http.StatusUnauthorized)

	a.login("avo@avohq.io", "secret1")
	w, env = a.do(http.MethodGet, "/api/me", nil)
	a.expect(w, http.StatusOK)

	w, _ = a.do(http.MethodGet, "/api/users/adrian-marin", nil)
	a.expect(w, http.StatusOK)
	w, _ = a.do(http.MethodGet, "/api/users/nobody", nil)
	a.expect(w, http.StatusNotFound)

	w, env = a.do(http.MethodPatch, "/api/users/1", map[string]any{"birthday": "1990-05-01", "last_name": "Popescu"})
	a.expect(w, http.StatusOK)
	var updated map[string]any
	_ = json.Unmarshal(env.Data, &updated)
	if updated["birthday"] != "1990-05-01" || updated["slug"] != "adrian-popescu" {
		t.Fatalf("updated = %v", updated)
	}

	w, env = a.do(http.MethodPatch, "/api/users/1", map[string]any{"birthday": "May 1st"})
	a.expect(w, http.StatusUnprocessableEntity)
	if env.errors()["birthday"] == "" {
		t.Fatalf("errors = %v", env.errors())
	}

	w, env = a.do(http.MethodPatch, "/api/users/1", map[string]any{"birthday": nil})
	a.expect(w, http.StatusOK)
	_ = json.Unmarshal(env.Data, &updated)
	if updated["birthday"] != nil {
		t.Fatalf("birthday not cleared: %v", updated["birthday"])
	}

	w, _ = a.do(http.MethodGet, "/api/users?scope=bogus", nil)
	a.expect(w, http.StatusBadRequest)
	w, env = a.do(http.MethodGet, "/api/users?scope=active", nil)
	a.expect(w, http.StatusOK)
	if env.Meta["count"] != float64(1) {
		t.Fatalf("meta = %v", env.Meta)
	}

	w, _ = a.do(http.MethodPost, "/api/users/1/notify", map[string]any{"text": "hi"})
	a.expect(w, http.StatusAccepted)

	w, _ = a.do(http.MethodGet, "/api/users/search?q=adr", nil)
	a.expect(w, http.StatusServiceUnavailable)
}

func TestOnlySelfOrAdminMayModify(t *testing.T) {
	a := newAPI(t)
	a.register("one@example.com", "One", "User")
	a.register("two@example.com", "Two", "User")

	a.login("one@example.com", "secret1")
	w, _ := a.do(http.MethodPatch, "/api/users/2", map[string]any{"first_name": "Hacked"})
	a.expect(w, http.StatusForbidden)
	w, _ = a.do(http.MethodDelete, "/api/users/2", nil)
	a.expect(w, http.StatusForbidden)
	w, _ = a.do(http.MethodGet, "/api/admin/users", nil)
	a.expect(w, http.StatusForbidden)

	if _, err := a.svc.Update(context.Background(), 1, application.UpdateUserInput{Roles: entity.Roles{"admin": true}}); err != nil {
		t.Fatalf("promote: %v", err)
	}
	a.login("one@example.com", "secret1")

	w, _ = a.do(http.MethodPatch, "/api/users/2", map[string]any{"first_name": "Renamed"})
	a.expect(w, http.StatusOK)

	w, env := a.do(http.MethodGet, "/api/admin/users?q[first_name_cont]=ren&s=id+desc", nil)
	a.expect(w, http.StatusOK)
	var users []map[string]any
	_ = json.Unmarshal(env.Data, &users)
	if len(users) != 1 || users[0]["first_name"] != "Renamed" {
		t.Fatalf("admin search = %v", users)
	}

	w, env = a.do(http.MethodGet, "/api/admin/users/ransackable_attributes", nil)
	a.expect(w, http.StatusOK)
	var attrs []string
	_ = json.Unmarshal(env.Data, &attrs)
	if len(attrs) != 16 {
		t.Fatalf("attributes = %v", attrs)
	}

	w, _ = a.do(http.MethodDelete, "/api/users/2", nil)
	a.expect(w, http.StatusOK)
	w, _ = a.do(http.MethodGet, "/api/users/2", nil)
	a.expect(w, http.StatusNotFound)
}

func TestRolesAreAdminOnly(t *testing.T) {
	a := newAPI(t)
	ctx := context.Background()

	w, env := a.do(http.MethodPost, "/api/users", map[string]any{
		"email": "evil@example.com", "password": "secret1", "first_name": "Eve", "last_name": "Il",
		"roles": map[string]any{"admin": true},
	})
	a.expect(w, http.StatusCreated)
	var created map[string]any
	_ = json.Unmarshal(env.Data, &created)
	if created["is_admin"] != false || created["roles"] != nil {
		t.Fatalf("registration accepted roles: %v", created)
	}
	a.register("two@example.com", "Two", "User")

	a.login("evil@example.com", "secret1")
	w, _ = a.do(http.MethodGet, "/api/admin/users", nil)
	a.expect(w, http.StatusForbidden)
	for _, roles := range []any{map[string]any{"admin": true}, nil} {
		w, _ = a.do(http.MethodPatch, "/api/users/1", map[string]any{"roles": roles})
		a.expect(w, http.StatusForbidden)
	}
	if admin, _ := a.svc.IsAdmin(ctx, 1); admin {
		t.Fatal("self-service roles change persisted")
	}

	if _, err := a.svc.Update(ctx, 1, application.UpdateUserInput{Roles: entity.Roles{"admin": true}}); err != nil {
		t.Fatalf("promote: %v", err)
	}
	a.login("evil@example.com", "secret1")
	w, _ = a.do(http.MethodGet, "/api/admin/users", nil)
	a.expect(w, http.StatusOK)
	w, _ = a.do(http.MethodPatch, "/api/users/2", map[string]any{"roles": map[string]any{"writer": true}})
	a.expect(w, http.StatusOK)

	if _, err := a.svc.Update(ctx, 1, application.UpdateUserInput{ClearRoles: true}); err != nil {
		t.Fatalf("demote: %v", err)
	}
	// the access token issued above still carries the admin claim
	w, _ = a.do(http.MethodGet, "/api/admin/users", nil)
	a.expect(w, http.StatusForbidden)
	w, _ = a.do(http.MethodPatch, "/api/users/2", map[string]any{"first_name": "Hijacked"})
	a.expect(w, http.StatusForbidden)
}

func TestSessionLifecycle(t *testing.T) {
	a := newAPI(t)
	a.register("s@example.com", "Ses", "Sion")

	w, _ := a.do(http.MethodPost, "/api/auth/refresh", nil)
	a.expect(w, http.StatusUnauthorized)

	a.login("s@example.com", "secret1")
	w, env := a.do(http.MethodPost, "/api/auth/refresh", nil)
	a.expect(w, http.StatusOK)
	if env.Meta["refresh_expires_at"] == nil {
		t.Fatalf("meta = %v", env.Meta)
	}

	w, _ = a.do(http.MethodPost, "/api/auth/logout", nil)
	a.expect(w, http.StatusOK)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge >= 0 {
			t.Fatalf("cookie %s not cleared", c.Name)
		}
	}

	w, _ = a.do(http.MethodPost, "/api/auth/password", map[string]any{"email": "missing@example.com"})
	a.expect(w, http.StatusOK)
	w, _ = a.do(http.MethodPost, "/api/auth/password", map[string]any{"email": "s@example.com"})
	a.expect(w, http.StatusOK)

	w, env = a.do(http.MethodPut, "/api/auth/password", map[string]any{
		"reset_password_token": "forged", "password": "newpass1", "password_confirmation": "newpass1",
	})
	a.expect(w, http.StatusUnprocessableEntity)
	if env.errors()["reset_password_token"] != "is invalid" {
		t.Fatalf("errors = %v", env.errors())
	}
}

func TestAssociationsAndCV(t *testing.T) {
	a := newAPI(t)
	a.register("cv@example.com", "Cee", "Vee")
	a.login("cv@example.com", "secret1")

	w, env := a.do(http.MethodGet, "/api/users/1/associations/accounts", nil)
	a.expect(w, http.StatusOK)
	var accounts []entity.Account
	_ = json.Unmarshal(env.Data, &accounts)
	if len(accounts) != 2 || accounts[0].Name != "Foo" {
		t.Fatalf("accounts = %v", accounts)
	}
	w, _ = a.do(http.MethodGet, "/api/users/1/associations/followers", nil)
	a.expect(w, http.StatusNotFound)
	w, _ = a.do(http.MethodPut, "/api/users/1/teams/99", map[string]any{"level": "wizard"})
	a.expect(w, http.StatusBadRequest)
	w, _ = a.do(http.MethodPut, "/api/users/1/teams/99", nil)
	a.expect(w, http.StatusNotFound)
	w, _ = a.do(http.MethodPut, "/api/users/1/projects/abc", nil)
	a.expect(w, http.StatusBadRequest)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "resume.pdf")
	_, _ = part.Write([]byte("%PDF-1.4"))
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPut, "/api/users/1/cv", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, env = a.send(req)
	a.expect(w, http.StatusCreated)
	var att entity.Attachment
	_ = json.Unmarshal(env.Data, &att)
	if att.Filename != "resume.pdf" || att.ByteSize != 8 {
		t.Fatalf("attachment = %+v", att)
	}

	w, _ = a.do(http.MethodGet, "/api/users/1/cv", nil)
	a.expect(w, http.StatusOK)
	w, _ = a.do(http.MethodDelete, "/api/users/1/cv", nil)
	a.expect(w, http.StatusOK)
	w, _ = a.do(http.MethodGet, "/api/users/1/cv", nil)
	a.expect(w, http.StatusNotFound)

	req = httptest.NewRequest(http.MethodPut, "/api/users/1/cv", nil)
	w, _ = a.send(req)
	a.expect(w, http.StatusBadRequest)
}

func TestDebugVars(t *testing.T) {
	a := newAPI(t)
	a.register("d@example.com", "De", "Bug")

	w, _ := a.do(http.MethodGet, "/api/debug/vars", nil)
	a.expect(w, http.StatusOK)
	var vars map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &vars); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := vars["users_created"]; !ok {
		t.Fatal("users_created counter missing")
	}
}
