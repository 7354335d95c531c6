package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"backoffice-service/internal/dao"
	"backoffice-service/internal/middleware"
	"backoffice-service/internal/model"
	"backoffice-service/internal/store"
	"backoffice-service/pkg/logger"
	"backoffice-service/prometheus"
)

// UserHandler serves the user CRUD and paginated query endpoints.
type UserHandler struct {
	users *dao.UserDAO
}

func NewUserHandler(users *dao.UserDAO) *UserHandler {
	return &UserHandler{users: users}
}

// Get returns one user by id, subject to the principal's visibility.
func (h *UserHandler) Get(c echo.Context) error {
	prometheus.RecordUserOperation("find")

	user, err := h.users.Find(c.Request().Context(), c.Param("id"), middleware.Principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// List returns the users visible to the principal, optionally filtered
// by query parameters.
func (h *UserHandler) List(c echo.Context) error {
	prometheus.RecordUserOperation("find_all")

	filter := store.Filter{}
	if email := c.QueryParam("email"); email != "" {
		filter["email"] = email
	}
	if role := c.QueryParam("role"); role != "" {
		filter["role"] = role
	}

	users, err := h.users.FindAll(c.Request().Context(), filter, middleware.Principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// Create inserts a new user on behalf of the principal.
func (h *UserHandler) Create(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordUserOperation("create")

	var candidate model.User
	if err := c.Bind(&candidate); err != nil {
		log.Error("Failed to parse user payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	created, err := h.users.Create(c.Request().Context(), &candidate, middleware.Principal(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// Update applies a partial patch to a user.
func (h *UserHandler) Update(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordUserOperation("update")

	var patch store.Document
	if err := c.Bind(&patch); err != nil {
		log.Error("Failed to parse user patch", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	updated, err := h.users.Update(c.Request().Context(), c.Param("id"), middleware.Principal(c), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete always rejects: destructive removal is policy-forbidden for
// users.
func (h *UserHandler) Delete(c echo.Context) error {
	prometheus.RecordUserOperation("delete")

	if _, err := h.users.Delete(c.Request().Context(), c.Param("id"), middleware.Principal(c)); err != nil {
		return respondError(c, err)
	}
	return ok(c)
}

// queryRequest is the paginated query envelope.
type queryRequest struct {
	Search map[string]any `json:"search"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
	// Order is a single field name or a list of [field, direction]
	// pairs; direction is "asc" or "desc".
	Order any `json:"order"`
}

// Query runs a paginated search over the users visible to the
// principal.
func (h *UserHandler) Query(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordUserOperation("query")

	var req queryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse query request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	result, err := h.users.PaginatedQuery(
		c.Request().Context(),
		store.Filter(req.Search),
		middleware.Principal(c),
		req.Page,
		req.Limit,
		parseOrder(req.Order),
	)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// parseOrder accepts the two order shapes the query contract allows: a
// bare field name (ascending) or a list of [field, direction] pairs.
func parseOrder(raw any) []dao.OrderBy {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []dao.OrderBy{{Field: v}}
	case []any:
		var out []dao.OrderBy
		for _, item := range v {
			pair, ok := item.([]any)
			if !ok || len(pair) == 0 {
				continue
			}
			field, _ := pair[0].(string)
			if field == "" {
				continue
			}
			dir := ""
			if len(pair) > 1 {
				dir, _ = pair[1].(string)
			}
			out = append(out, dao.OrderBy{Field: field, Desc: dir == "desc"})
		}
		return out
	}
	return nil
}
