package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "notegrid.app/notegrid/internal/errors"
	middleware "notegrid.app/notegrid/internal/http/middlewares"
	"notegrid.app/notegrid/internal/http/validators"
	"notegrid.app/notegrid/internal/services"
	model "notegrid.app/notegrid/pkg/models"
)

type Handler struct {
	accounts *services.AccountService
	data     *services.DataService
}

func NewHandler(accounts *services.AccountService, data *services.DataService) *Handler {
	return &Handler{
		accounts: accounts,
		data:     data,
	}
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.accounts.Health())
}

func (h *Handler) Exists(c echo.Context) error {
	exists, err := h.accounts.Exists(c.Request().Context(), c.Param("uuid"))
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"exists": exists})
}

func (h *Handler) Register(c echo.Context) error {
	var req validators.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return apperrors.ErrInvalidUUID
	}

	data, err := h.accounts.Register(c.Request().Context(), req.UUID)
	if err != nil {
		return err
	}
	return ok(c, data)
}

func (h *Handler) DeleteAccount(c echo.Context) error {
	if err := h.accounts.DeleteAccount(c.Request().Context(), middleware.Identity(c)); err != nil {
		return err
	}
	return ok(c, nil)
}

func (h *Handler) GetData(c echo.Context) error {
	data, err := h.data.GetUserData(c.Request().Context(), middleware.Identity(c))
	if err != nil {
		return err
	}
	return ok(c, data)
}

func (h *Handler) PutData(c echo.Context) error {
	var req validators.UserDataRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	data, err := h.data.ReplaceUserData(c.Request().Context(), middleware.Identity(c), req.UserData())
	if err != nil {
		return err
	}
	return ok(c, data)
}

func (h *Handler) ListTasks(c echo.Context) error {
	tasks, err := h.data.ListTasks(c.Request().Context(), middleware.Identity(c))
	if err != nil {
		return err
	}
	return ok(c, tasks)
}

func (h *Handler) CreateTask(c echo.Context) error {
	var req validators.TaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.data.CreateTask(c.Request().Context(), middleware.Identity(c), req.Task())
	if err != nil {
		return err
	}
	return ok(c, task)
}

func (h *Handler) UpdateTask(c echo.Context) error {
	var upd model.TaskUpdate
	if err := bindAndValidate(c, &upd); err != nil {
		return err
	}

	task, err := h.data.UpdateTask(c.Request().Context(), middleware.Identity(c), c.Param("id"), upd)
	if err != nil {
		return err
	}
	return ok(c, task)
}

func (h *Handler) DeleteTask(c echo.Context) error {
	if err := h.data.DeleteTask(c.Request().Context(), middleware.Identity(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, nil)
}

func (h *Handler) ReorderTasks(c echo.Context) error {
	var req validators.ReorderTasksRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.data.ReorderTasks(c.Request().Context(), middleware.Identity(c), req.TaskIDs); err != nil {
		return err
	}
	return ok(c, nil)
}

func (h *Handler) ListLinks(c echo.Context) error {
	links, err := h.data.ListLinks(c.Request().Context(), middleware.Identity(c))
	if err != nil {
		return err
	}
	return ok(c, links)
}

func (h *Handler) CreateLink(c echo.Context) error {
	var req validators.LinkRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	link, err := h.data.CreateLink(c.Request().Context(), middleware.Identity(c), req.Link())
	if err != nil {
		return err
	}
	return ok(c, link)
}

func (h *Handler) DeleteLink(c echo.Context) error {
	if err := h.data.DeleteLink(c.Request().Context(), middleware.Identity(c), c.Param("id")); err != nil {
		return err
	}
	return ok(c, nil)
}

func (h *Handler) ReorderLinks(c echo.Context) error {
	var req validators.ReorderLinksRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.data.ReorderLinks(c.Request().Context(), middleware.Identity(c), req.LinkIDs); err != nil {
		return err
	}
	return ok(c, nil)
}

// bindJSON decodes the body as JSON whatever the declared content type.
func bindJSON(c echo.Context, v any) error {
	return c.Echo().JSONSerializer.Deserialize(c, v)
}

func bindAndValidate(c echo.Context, v any) error {
	if err := bindJSON(c, v); err != nil {
		return err
	}
	return c.Validate(v)
}
