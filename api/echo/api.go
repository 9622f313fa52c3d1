package echo

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/openlearnhub/liveclass/api"
	"github.com/openlearnhub/liveclass/domain"
	errs "github.com/openlearnhub/liveclass/errors"
	"github.com/openlearnhub/liveclass/services"
)

const dateLayout = "2006-01-02"

// userIDHeader carries the authenticated caller's id, placed by the API
// gateway in front of this service. Authentication itself is external.
const userIDHeader = "X-User-ID"

// SessionAPI holds the handler dependencies.
type SessionAPI struct {
	sessions      *services.SessionService
	participation *services.ParticipationService
	ping          func(ctx context.Context) error
}

// NewSessionAPI initializes the session API surface. ping backs the health
// endpoint; pass nil to report healthy unconditionally.
func NewSessionAPI(
	sessions *services.SessionService,
	participation *services.ParticipationService,
	ping func(ctx context.Context) error,
) *SessionAPI {
	return &SessionAPI{
		sessions:      sessions,
		participation: participation,
		ping:          ping,
	}
}

// RegisterRoutes registers the session routes.
func (sa *SessionAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/sessions", sa.CreateHandler)
	e.GET("/sessions", sa.ListHandler)
	e.GET("/sessions/:id", sa.GetHandler)
	e.PATCH("/sessions/:id", sa.UpdateHandler)
	e.DELETE("/sessions/:id", sa.DeleteHandler)
	e.POST("/sessions/:id/start", sa.StartHandler)
	e.POST("/sessions/:id/end", sa.EndHandler)
	e.POST("/sessions/:id/join", sa.JoinHandler)
	e.POST("/sessions/:id/leave", sa.LeaveHandler)
	e.POST("/sessions/:id/materials", sa.AddMaterialHandler)
	e.POST("/sessions/:id/feedback", sa.AddFeedbackHandler)
	e.GET("/sessions/:id/analytics", sa.AnalyticsHandler)

	e.GET("/healthz", sa.HealthHandler)
}

func callerID(c echo.Context) (string, error) {
	id := c.Request().Header.Get(userIDHeader)
	if id == "" {
		return "", errs.NewForbidden("missing caller identity")
	}
	return id, nil
}

// writeError maps domain error kinds onto HTTP statuses. Unexpected errors
// are logged and collapsed into an opaque 500 body.
func writeError(c echo.Context, err error) error {
	if domErr, ok := err.(*errs.Error); ok {
		status := http.StatusInternalServerError
		switch domErr.Kind {
		case errs.KindNotFound:
			status = http.StatusNotFound
		case errs.KindForbidden:
			status = http.StatusForbidden
		case errs.KindValidation:
			status = http.StatusBadRequest
		case errs.KindInvalidState, errs.KindCapacityExceeded:
			status = http.StatusConflict
		case errs.KindConflict:
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, domErr)
	}

	log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("Unhandled error")
	return c.JSON(http.StatusInternalServerError, echo.Map{
		"error":             "server_error",
		"error_description": "an internal error occurred",
	})
}

// CreateHandler handles session creation. A recurring session is expanded
// synchronously; expansion warnings ride on the 201 response rather than
// failing it.
func (sa *SessionAPI) CreateHandler(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return writeError(c, err)
	}

	var req api.CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, errs.NewValidation("", "malformed request body"))
	}

	scheduledDate, err := time.Parse(dateLayout, req.ScheduledDate)
	if err != nil {
		return writeError(c, errs.NewValidation("scheduledDate", "must be YYYY-MM-DD"))
	}

	in := services.CreateSessionInput{
		Title:            req.Title,
		Description:      req.Description,
		CourseID:         req.CourseID,
		InstructorID:     req.InstructorID,
		ScheduledDate:    scheduledDate,
		ScheduledTime:    req.ScheduledTime,
		Duration:         req.Duration,
		SessionType:      domain.SessionType(req.SessionType),
		MaxParticipants:  req.MaxParticipants,
		IsRecurring:      req.IsRecurring,
		RecurringPattern: domain.RecurringPattern(req.RecurringPattern),
		Settings:         req.Settings,
	}
	if req.RecurringEndDate != "" {
		endDate, err := time.Parse(dateLayout, req.RecurringEndDate)
		if err != nil {
			return writeError(c, errs.NewValidation("recurringEndDate", "must be YYYY-MM-DD"))
		}
		in.RecurringEndDate = &endDate
	}

	result, err := sa.sessions.Create(c.Request().Context(), in, caller)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, api.CreateSessionResponse{
		Session:  result.Session,
		Warnings: result.Warnings,
	})
}

func (sa *SessionAPI) GetHandler(c echo.Context) error {
	session, err := sa.sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// ListHandler returns a session page filtered by status, courseId,
// instructorId and scheduled date range.
func (sa *SessionAPI) ListHandler(c echo.Context) error {
	filter := domain.SessionFilter{
		Status:       domain.SessionStatus(c.QueryParam("status")),
		CourseID:     c.QueryParam("courseId"),
		InstructorID: c.QueryParam("instructorId"),
	}
	if from := c.QueryParam("from"); from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			return writeError(c, errs.NewValidation("from", "must be YYYY-MM-DD"))
		}
		filter.FromDate = t
	}
	if to := c.QueryParam("to"); to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			return writeError(c, errs.NewValidation("to", "must be YYYY-MM-DD"))
		}
		filter.ToDate = t
	}
	filter.Page, _ = strconv.Atoi(c.QueryParam("page"))
	filter.PageSize, _ = strconv.Atoi(c.QueryParam("pageSize"))
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	sessions, total, err := sa.sessions.List(c.Request().Context(), filter)
	if err != nil {
		return writeError(c, err)
	}
	if sessions == nil {
		sessions = []*domain.Session{}
	}

	return c.JSON(http.StatusOK, api.ListSessionsResponse{
		Sessions: sessions,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	})
}

func (sa *SessionAPI) UpdateHandler(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return writeError(c, err)
	}

	var req api.UpdateSessionRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, errs.NewValidation("", "malformed request body"))
	}

	in := services.UpdateSessionInput{
		Title:           req.Title,
		Description:     req.Description,
		ScheduledTime:   req.ScheduledTime,
		Duration:        req.Duration,
		MaxParticipants: req.MaxParticipants,
		Settings:        req.Settings,
	}
	if req.ScheduledDate != nil {
		t, err := time.Parse(dateLayout, *req.ScheduledDate)
		if err != nil {
			return writeError(c, errs.NewValidation("scheduledDate", "must be YYYY-MM-DD"))
		}
		in.ScheduledDate = &t
	}
	if req.SessionType != nil {
		st := domain.SessionType(*req.SessionType)
		in.SessionType = &st
	}

	session, err := sa.sessions.Update(c.Request().Context(), c.Param("id"), in, caller)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (sa *SessionAPI) DeleteHandler(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return writeError(c, err)
	}
	if err := sa.sessions.Delete(c.Request().Context(), c.Param("id"), caller); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (sa *SessionAPI) StartHandler(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return writeError(c, err)
	}
	session, err := sa.sessions.Start(c.Request().Context(), c.Param("id"), caller)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (sa *SessionAPI) EndHandler(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return writeError(c, err)
	}

	var req api.EndSessionRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return writeError(c, errs.NewValidation("", "malformed request body"))
		}
	}

	session, err := sa.sessions.End(c.Request().Context(), c.Param("id"), caller,
		services.EndSessionInput{RecordingURL: req.RecordingURL})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (sa *SessionAPI) JoinHandler(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return writeError(c, err)
	}
	result, err := sa.participation.Join(c.Request().Context(), c.Param("id"), caller)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, api.JoinSessionResponse{
		MeetingID:   result.MeetingID,
		MeetingLink: result.MeetingLink,
	})
}

func (sa *SessionAPI) LeaveHandler(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return writeError(c, err)
	}
	session, err := sa.participation.Leave(c.Request().Context(), c.Param("id"), caller)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (sa *SessionAPI) AddMaterialHandler(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return writeError(c, err)
	}

	var req api.AddMaterialRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, errs.NewValidation("", "malformed request body"))
	}

	session, err := sa.sessions.AddMaterial(c.Request().Context(), c.Param("id"),
		services.MaterialInput{Name: req.Name, Type: req.Type, URL: req.URL, Size: req.Size}, caller)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (sa *SessionAPI) AddFeedbackHandler(c echo.Context) error {
	caller, err := callerID(c)
	if err != nil {
		return writeError(c, err)
	}

	var req api.AddFeedbackRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, errs.NewValidation("", "malformed request body"))
	}

	session, err := sa.sessions.AddFeedback(c.Request().Context(), c.Param("id"),
		services.FeedbackInput{Rating: req.Rating, Comment: req.Comment}, caller)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (sa *SessionAPI) AnalyticsHandler(c echo.Context) error {
	analytics, err := sa.sessions.GetAnalytics(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, analytics)
}

func (sa *SessionAPI) HealthHandler(c echo.Context) error {
	if sa.ping != nil {
		if err := sa.ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
