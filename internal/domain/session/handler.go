package session

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mediscribe/mediscribe/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/sessions", h.CreateSession)
	api.GET("/sessions", h.ListSessions)
	api.GET("/sessions/:id", h.GetSession)
	api.PUT("/sessions/:id", h.UpdateSession)
	api.DELETE("/sessions/:id", h.DeleteSession)
	api.GET("/patients/:id/sessions", h.ListPatientSessions)
	api.GET("/doctors/:id/sessions", h.ListDoctorSessions)
}

func (h *Handler) CreateSession(c echo.Context) error {
	var sess Session
	if err := c.Bind(&sess); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateSession(c.Request().Context(), &sess); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *Handler) GetSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sess, err := h.svc.GetSession(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) ListSessions(c echo.Context) error {
	pg := pagination.FromContext(c)
	sessions, total, err := h.svc.ListSessions(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if sessions == nil {
		sessions = []*Session{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(sessions, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var sess Session
	if err := c.Bind(&sess); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess.ID = id
	if err := h.svc.UpdateSession(c.Request().Context(), &sess); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) DeleteSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteSession(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPatientSessions(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	sessions, total, err := h.svc.ListSessionsByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	// A patient with no sessions is an empty page, not an error.
	if sessions == nil {
		sessions = []*Session{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(sessions, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListDoctorSessions(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	sessions, total, err := h.svc.ListSessionsByDoctor(c.Request().Context(), doctorID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if sessions == nil {
		sessions = []*Session{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(sessions, total, pg.Limit, pg.Offset))
}
