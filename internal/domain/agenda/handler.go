package agenda

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vitalfarma/agenda/internal/platform/intent"
	"github.com/vitalfarma/agenda/pkg/pagination"
)

type Handler struct {
	svc    *Service
	parser intent.Parser
}

func NewHandler(svc *Service, parser intent.Parser) *Handler {
	return &Handler{svc: svc, parser: parser}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/services", h.ScheduleService)
	api.GET("/services", h.ListServices)
	api.GET("/services/:id", h.GetService)
	api.PATCH("/services/:id/status", h.UpdateStatus)
	api.POST("/services/cancel", h.CancelServices)
	api.DELETE("/services", h.DeleteServices)
	api.POST("/intent/cancel", h.ParseCancelIntent)
}

// errorBody is the wire shape of every rejection.
type errorBody struct {
	Error struct {
		Type      string      `json:"type"`
		Kind      string      `json:"kind,omitempty"`
		Reason    string      `json:"reason"`
		RecordIDs []uuid.UUID `json:"record_ids,omitempty"`
	} `json:"error"`
}

// writeDomainError maps the core's error taxonomy onto HTTP statuses. Every
// recoverable rejection becomes a structured body the agent can render.
func writeDomainError(c echo.Context, err error) error {
	var body errorBody

	var verr *ValidationError
	if errors.As(err, &verr) {
		body.Error.Type = "validation"
		body.Error.Kind = string(verr.Kind)
		body.Error.Reason = verr.Reason
		return c.JSON(http.StatusUnprocessableEntity, body)
	}
	var cerr *ConflictError
	if errors.As(err, &cerr) {
		body.Error.Type = "conflict"
		body.Error.Kind = string(cerr.Kind)
		body.Error.Reason = cerr.Reason
		body.Error.RecordIDs = cerr.RecordIDs
		return c.JSON(http.StatusConflict, body)
	}
	var terr *TransitionError
	if errors.As(err, &terr) {
		body.Error.Type = "state"
		body.Error.Kind = "illegal_status_transition"
		body.Error.Reason = terr.Error()
		return c.JSON(http.StatusConflict, body)
	}
	var berr *BadRequestError
	if errors.As(err, &berr) {
		body.Error.Type = "bad_request"
		body.Error.Reason = berr.Reason
		return c.JSON(http.StatusBadRequest, body)
	}
	var serr *SchemaError
	if errors.As(err, &serr) {
		body.Error.Type = "store"
		body.Error.Kind = "schema_violation"
		body.Error.Reason = serr.Error()
		return c.JSON(http.StatusInternalServerError, body)
	}
	if errors.Is(err, ErrRecordNotFound) {
		body.Error.Type = "store"
		body.Error.Kind = "record_not_found"
		body.Error.Reason = err.Error()
		return c.JSON(http.StatusNotFound, body)
	}
	if errors.Is(err, ErrStoreUnavailable) {
		body.Error.Type = "store"
		body.Error.Kind = "store_unavailable"
		body.Error.Reason = err.Error()
		return c.JSON(http.StatusServiceUnavailable, body)
	}

	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) ScheduleService(c echo.Context) error {
	var req ScheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result, err := h.svc.Schedule(c.Request().Context(), &req)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, result)
}

// filterFromQuery builds a Filter from the request's query parameters.
func filterFromQuery(c echo.Context) (Filter, error) {
	var f Filter
	if raw := c.QueryParam("id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return f, &BadRequestError{Reason: "invalid id filter"}
		}
		f.ID = &id
	}
	f.PatientID = c.QueryParam("patient_id")
	f.PatientName = c.QueryParam("patient_name")
	f.Medication = c.QueryParam("medication")
	f.Site = c.QueryParam("site")
	for _, p := range []struct {
		name string
		dst  *string
	}{
		{"date", &f.Date},
		{"date_from", &f.DateFrom},
		{"date_to", &f.DateTo},
	} {
		raw := c.QueryParam(p.name)
		if raw == "" {
			continue
		}
		if !ValidDate(raw) {
			return f, &BadRequestError{Reason: p.name + " must be YYYY-MM-DD"}
		}
		*p.dst = raw
	}
	if raw := c.QueryParam("status"); raw != "" {
		status, err := ParseStatus(raw)
		if err != nil {
			return f, &BadRequestError{Reason: "unknown status filter"}
		}
		f.Status = status
	}
	f.IncludeCancelled = c.QueryParam("include_cancelled") == "true"
	return f, nil
}

func (h *Handler) ListServices(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return writeDomainError(c, err)
	}
	seq, err := h.svc.Query(c.Request().Context(), f)
	if err != nil {
		return writeDomainError(c, err)
	}
	records := Collect(seq)
	p := pagination.FromContext(c)
	page := pagination.Page(records, p)
	return c.JSON(http.StatusOK, pagination.NewResponse(page, len(records), p.Limit, p.Offset))
}

func (h *Handler) GetService(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

type statusUpdateRequest struct {
	Status string `json:"status"`
	Force  bool   `json:"force"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req statusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		return writeDomainError(c, &BadRequestError{Reason: err.Error()})
	}
	rec, err := h.svc.UpdateStatus(c.Request().Context(), id, status, req.Force)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

type cancelRequest struct {
	PatientID   string `json:"patient_id,omitempty"`
	PatientName string `json:"patient_name,omitempty"`
	Site        string `json:"site,omitempty"`
	Date        string `json:"date,omitempty"`
	DateFrom    string `json:"date_from,omitempty"`
	DateTo      string `json:"date_to,omitempty"`
}

func (r *cancelRequest) filter() Filter {
	return Filter{
		PatientID:   r.PatientID,
		PatientName: r.PatientName,
		Site:        r.Site,
		Date:        r.Date,
		DateFrom:    r.DateFrom,
		DateTo:      r.DateTo,
	}
}

func (h *Handler) CancelServices(c echo.Context) error {
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	report, err := h.svc.CancelServices(c.Request().Context(), req.filter())
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) DeleteServices(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return writeDomainError(c, err)
	}
	deleted, err := h.svc.DeleteServices(c.Request().Context(), f)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted": deleted})
}

type intentRequest struct {
	Utterance string `json:"utterance"`
	// Selection is the user's reply to a previously returned candidate list
	// ("1", "1, 3", "todas"). Candidates carries back the ids of that list,
	// in the order it was shown.
	Selection  string      `json:"selection,omitempty"`
	Candidates []uuid.UUID `json:"candidates,omitempty"`
}

type intentResponse struct {
	CancelIntent bool            `json:"cancel_intent"`
	PatientName  string          `json:"patient_name,omitempty"`
	Candidates   []ServiceRecord `json:"candidates,omitempty"`
	Report       *CancelReport   `json:"report,omitempty"`
}

// ParseCancelIntent drives the two-turn cancel conversation. The first call
// runs the rule parser over a raw utterance and, when a patient name is
// recognized, returns the pending services that match it so the agent can ask
// the user which to cancel. The second call carries the user's selection plus
// the candidate ids and cancels the picked records.
func (h *Handler) ParseCancelIntent(c echo.Context) error {
	var req intentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Selection != "" {
		return h.cancelSelection(c, &req)
	}
	parsed, ok := h.parser.ParseCancel(req.Utterance)
	if !ok {
		return c.JSON(http.StatusOK, intentResponse{CancelIntent: false})
	}
	resp := intentResponse{CancelIntent: true, PatientName: parsed.PatientName}
	if parsed.PatientName != "" {
		seq, err := h.svc.Query(c.Request().Context(), Filter{
			PatientName: parsed.PatientName,
			Status:      StatusPending,
		})
		if err != nil {
			return writeDomainError(c, err)
		}
		resp.Candidates = Collect(seq)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) cancelSelection(c echo.Context, req *intentRequest) error {
	if len(req.Candidates) == 0 {
		return writeDomainError(c, &BadRequestError{Reason: "selection without candidates"})
	}
	picks := intent.ParseSelection(req.Selection, len(req.Candidates))
	if len(picks) == 0 {
		return writeDomainError(c, &BadRequestError{
			Reason: "selection matched no candidate: reply with numbers or \"todas\"",
		})
	}
	report := &CancelReport{}
	for _, n := range picks {
		id := req.Candidates[n-1]
		_, err := h.svc.UpdateStatus(c.Request().Context(), id, StatusCancelled, false)
		if err != nil {
			// A record already settled since the list was shown is not
			// the user's fault; skip it.
			var terr *TransitionError
			if errors.As(err, &terr) {
				continue
			}
			return writeDomainError(c, err)
		}
		report.Cancelled++
		report.RecordIDs = append(report.RecordIDs, id)
	}
	return c.JSON(http.StatusOK, intentResponse{CancelIntent: true, Report: report})
}
