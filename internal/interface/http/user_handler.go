package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-fixture-users/internal/application"
	"github.com/oksasatya/go-ddd-fixture-users/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-fixture-users/internal/domain/repository"
	"github.com/oksasatya/go-ddd-fixture-users/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/response"
	"github.com/oksasatya/go-ddd-fixture-users/pkg/validation"
)

const dateLayout = "2006-01-02"

// max CV upload size
const maxCVBytes = 10 << 20

type UserHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.Service, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

// userView is the public JSON shape of a user; credential columns never leave the service.
type userView struct {
	ID        int64        `json:"id"`
	Email     string       `json:"email"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Name      string       `json:"name"`
	Slug      string       `json:"slug"`
	Roles     entity.Roles `json:"roles"`
	IsAdmin   bool         `json:"is_admin"`
	Birthday  *string      `json:"birthday"`
	CustomCSS *string      `json:"custom_css"`
	TeamID    *int64       `json:"team_id"`
	Active    bool         `json:"active"`
	Avatar    string       `json:"avatar"`
	AvoTitle  string       `json:"avo_title"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func newUserView(u *entity.User) userView {
	v := userView{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Name:      u.Name(),
		Slug:      u.Slug,
		Roles:     u.Roles,
		IsAdmin:   u.IsAdmin(),
		CustomCSS: u.CustomCSS,
		TeamID:    u.TeamID,
		Active:    u.Active,
		Avatar:    u.Avatar(),
		AvoTitle:  u.AvoTitle(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.Birthday != nil {
		b := u.Birthday.Format(dateLayout)
		v.Birthday = &b
	}
	return v
}

func newUserViews(users []*entity.User) []userView {
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, newUserView(u))
	}
	return out
}

type createUserRequest struct {
	Email                string  `json:"email"`
	Password             string  `json:"password"`
	PasswordConfirmation string  `json:"password_confirmation"`
	FirstName            string  `json:"first_name"`
	LastName             string  `json:"last_name"`
	Birthday             string  `json:"birthday"`
	CustomCSS            *string `json:"custom_css"`
	TeamID               *int64  `json:"team_id"`
	Active               *bool   `json:"active"`
}

// updateUserRequest distinguishes absent fields from explicit nulls through json.RawMessage.
type updateUserRequest struct {
	Email                *string         `json:"email"`
	Password             *string         `json:"password"`
	PasswordConfirmation *string         `json:"password_confirmation"`
	FirstName            *string         `json:"first_name"`
	LastName             *string         `json:"last_name"`
	Roles                json.RawMessage `json:"roles"`
	Birthday             json.RawMessage `json:"birthday"`
	CustomCSS            json.RawMessage `json:"custom_css"`
	TeamID               json.RawMessage `json:"team_id"`
	Active               *bool           `json:"active"`
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func parseDate(field, v string) (*time.Time, error) {
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		e := &validation.Error{}
		e.Add(field, "date", "must be a date formatted as YYYY-MM-DD")
		return nil, e
	}
	return &t, nil
}

func (r updateUserRequest) input() (application.UpdateUserInput, error) {
	in := application.UpdateUserInput{
		Email:                r.Email,
		Password:             r.Password,
		PasswordConfirmation: r.PasswordConfirmation,
		FirstName:            r.FirstName,
		LastName:             r.LastName,
		Active:               r.Active,
	}
	if len(r.Roles) > 0 {
		if isNull(r.Roles) {
			in.ClearRoles = true
		} else if err := json.Unmarshal(r.Roles, &in.Roles); err != nil {
			return in, err
		}
	}
	if len(r.Birthday) > 0 {
		var s string
		if isNull(r.Birthday) {
			in.ClearBirthday = true
		} else if err := json.Unmarshal(r.Birthday, &s); err != nil {
			return in, err
		} else if s == "" {
			in.ClearBirthday = true
		} else {
			t, err := parseDate("birthday", s)
			if err != nil {
				return in, err
			}
			in.Birthday = t
		}
	}
	if len(r.CustomCSS) > 0 {
		if isNull(r.CustomCSS) {
			in.ClearCustomCSS = true
		} else if err := json.Unmarshal(r.CustomCSS, &in.CustomCSS); err != nil {
			return in, err
		}
	}
	if len(r.TeamID) > 0 {
		if isNull(r.TeamID) {
			in.ClearTeamID = true
		} else if err := json.Unmarshal(r.TeamID, &in.TeamID); err != nil {
			return in, err
		}
	}
	return in, nil
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error[any](c, http.StatusBadRequest, "invalid "+name, nil)
		return 0, false
	}
	return id, true
}

// callerIsAdmin checks the stored record of the authenticated user rather than
// the flag carried by the token.
func (h *UserHandler) callerIsAdmin(c *gin.Context) bool {
	admin, err := h.Svc.IsAdmin(c.Request.Context(), middleware.CurrentUserID(c))
	return err == nil && admin
}

// selfOrAdmin allows the user to act on their own record; admins may act on any.
func (h *UserHandler) selfOrAdmin(c *gin.Context, id int64) bool {
	if middleware.CurrentUserID(c) == id || h.callerIsAdmin(c) {
		return true
	}
	response.Error[any](c, http.StatusForbidden, "forbidden", nil)
	return false
}

// Create registers a user.
func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in := application.CreateUserInput{
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		CustomCSS:            req.CustomCSS,
		TeamID:               req.TeamID,
		Active:               req.Active,
	}
	if req.Birthday != "" {
		t, err := parseDate("birthday", req.Birthday)
		if err != nil {
			fail(c, h.Logger, err)
			return
		}
		in.Birthday = t
	}

	u, err := h.Svc.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, newUserView(u), "user created", nil)
}

// Show finds a user by id or slug.
func (h *UserHandler) Show(c *gin.Context) {
	u, err := h.Svc.Find(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, newUserView(u), "user", nil)
}

func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.Svc.Get(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, newUserView(u), "profile", nil)
}

func (h *UserHandler) List(c *gin.Context) {
	scope := repo.Scope(c.Query("scope"))
	if !scope.Valid() {
		response.Error[any](c, http.StatusBadRequest, "unknown scope", map[string]string{"scope": string(scope)})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	users, err := h.Svc.List(c.Request.Context(), scope, limit, offset)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, newUserViews(users), "users", map[string]any{"scope": scope, "count": len(users)})
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok || !h.selfOrAdmin(c, id) {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in, err := req.input()
	if err != nil {
		var ve *validation.Error
		if errors.As(err, &ve) {
			fail(c, h.Logger, err)
			return
		}
		badRequest(c, err)
		return
	}
	if (in.Roles != nil || in.ClearRoles) && !h.callerIsAdmin(c) {
		response.Error[any](c, http.StatusForbidden, "only admins may change roles", nil)
		return
	}
	u, err := h.Svc.Update(c.Request.Context(), id, in)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, newUserView(u), "user updated", nil)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok || !h.selfOrAdmin(c, id) {
		return
	}
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"deleted": true}, "user deleted", nil)
}

// Association returns one named association (post, posts, teams, accounts, ...).
func (h *UserHandler) Association(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	v, err := h.Svc.Association(c.Request.Context(), id, c.Param("name"))
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, v, c.Param("name"), nil)
}

func (h *UserHandler) AddProject(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok || !h.selfOrAdmin(c, id) {
		return
	}
	pid, ok := idParam(c, "project_id")
	if !ok {
		return
	}
	if err := h.Svc.AddProject(c.Request.Context(), id, pid); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"user_id": id, "project_id": pid}, "project added", nil)
}

func (h *UserHandler) RemoveProject(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok || !h.selfOrAdmin(c, id) {
		return
	}
	pid, ok := idParam(c, "project_id")
	if !ok {
		return
	}
	if err := h.Svc.RemoveProject(c.Request.Context(), id, pid); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"removed": true}, "project removed", nil)
}

type joinTeamRequest struct {
	Level string `json:"level" binding:"omitempty,oneof=beginner intermediate advanced admin"`
}

func (h *UserHandler) JoinTeam(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok || !h.selfOrAdmin(c, id) {
		return
	}
	tid, ok := idParam(c, "team_id")
	if !ok {
		return
	}
	var req joinTeamRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	m, err := h.Svc.JoinTeam(c.Request.Context(), id, tid, req.Level)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, m, "team joined", nil)
}

func (h *UserHandler) LeaveTeam(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok || !h.selfOrAdmin(c, id) {
		return
	}
	tid, ok := idParam(c, "team_id")
	if !ok {
		return
	}
	if err := h.Svc.LeaveTeam(c.Request.Context(), id, tid); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"left": true}, "team left", nil)
}

// AttachCV accepts a multipart "file" field.
func (h *UserHandler) AttachCV(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok || !h.selfOrAdmin(c, id) {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxCVBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "file is required", map[string]string{"file": "can't be blank"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	defer func() { _ = f.Close() }()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	a, err := h.Svc.AttachCV(c.Request.Context(), id, fh.Filename, contentType, f)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, a, "cv attached", nil)
}

func (h *UserHandler) CV(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	a, err := h.Svc.CV(c.Request.Context(), id)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, a, "cv", nil)
}

func (h *UserHandler) DetachCV(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok || !h.selfOrAdmin(c, id) {
		return
	}
	if err := h.Svc.DetachCV(c.Request.Context(), id); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"detached": true}, "cv detached", nil)
}

type notifyRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *UserHandler) Notify(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Svc.Notify(c.Request.Context(), id, req.Text); err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusAccepted, map[string]any{"notified": true}, "notified", nil)
}

// Search runs a free-text query against the search index.
func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "q is required", map[string]string{"q": "can't be blank"})
		return
	}
	size, _ := strconv.Atoi(c.Query("size"))
	hits, err := h.Svc.Search(c.Request.Context(), q, size)
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", map[string]any{"count": len(hits)})
}
