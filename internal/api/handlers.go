package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/siddheshvrane/solar-dashboard/internal/archive"
	"github.com/siddheshvrane/solar-dashboard/internal/dashboard"
	"github.com/siddheshvrane/solar-dashboard/internal/export"
	"github.com/siddheshvrane/solar-dashboard/internal/models"
	"github.com/siddheshvrane/solar-dashboard/internal/poller"
	"github.com/siddheshvrane/solar-dashboard/internal/series"
)

// Handler handles API requests.
type Handler struct {
	poller  Poller
	history History
	layout  *dashboard.Layout
	logger  *zap.Logger
}

// NewHandler creates a new API handler. history may be nil when the
// archive is disabled.
func NewHandler(p Poller, history History, layout *dashboard.Layout, logger *zap.Logger) *Handler {
	return &Handler{
		poller:  p,
		history: history,
		layout:  layout,
		logger:  logger,
	}
}

// View builds the current dashboard view.
func (h *Handler) View() dashboard.View {
	return dashboard.Build(h.poller.Snapshot(), h.layout, h.poller.Interval())
}

// HandleDashboard returns the full view model.
func (h *Handler) HandleDashboard(c echo.Context) error {
	return c.JSON(http.StatusOK, h.View())
}

// HandleDashboardMsgpack returns the view model encoded as MessagePack.
func (h *Handler) HandleDashboardMsgpack(c echo.Context) error {
	data, err := msgpack.Marshal(h.View())
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleLayout returns the layout the view is built from.
func (h *Handler) HandleLayout(c echo.Context) error {
	return c.JSON(http.StatusOK, h.layout)
}

// HandleSeries returns the merged chart points.
func (h *Handler) HandleSeries(c echo.Context) error {
	snap := h.poller.Snapshot()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"loading": snap.Loading(),
		"points":  series.Merge(snap.Solar.Records, snap.Wind.Records),
	})
}

// HandleLatest returns the newest record of each source, or null.
func (h *Handler) HandleLatest(c echo.Context) error {
	snap := h.poller.Snapshot()
	resp := make(map[string]interface{}, len(models.Sources)+1)
	for _, src := range models.Sources {
		if r, ok := series.Latest(snap.State(src).Records); ok {
			resp[string(src)] = r
		} else {
			resp[string(src)] = nil
		}
	}
	resp["loading"] = snap.Loading()
	return c.JSON(http.StatusOK, resp)
}

// HandleRecords returns one source's records in fetch order with its state.
func (h *Handler) HandleRecords(c echo.Context) error {
	src, err := sourceParam(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.poller.Snapshot().State(src))
}

// HandleHistory pages through archived records of a source.
// Query: page, pageSize, start, end (epoch ms or RFC 3339).
func (h *Handler) HandleHistory(c echo.Context) error {
	src, err := sourceParam(c)
	if err != nil {
		return err
	}
	if h.history == nil {
		return NewServiceUnavailableError(archive.ErrDisabled.Error())
	}

	q := archive.HistoryQuery{Source: src}
	if q.Page, err = intParam(c, "page", 1); err != nil {
		return err
	}
	if q.PageSize, err = intParam(c, "pageSize", archive.DefaultPageSize); err != nil {
		return err
	}
	if q.PageSize > archive.MaxPageSize {
		return NewValidationError("pageSize")
	}
	if q.Start, err = timeParam(c, "start"); err != nil {
		return err
	}
	if q.End, err = timeParam(c, "end"); err != nil {
		return err
	}
	if q.Start != 0 && q.End != 0 && q.End < q.Start {
		return NewBadRequestError("end must not be before start", nil)
	}

	records, total, err := h.history.Query(c.Request().Context(), q)
	if err != nil {
		h.logger.Error("history query failed", zap.String("source", string(src)), zap.Error(err))
		return NewInternalError("history query failed", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"source":   src,
		"records":  records,
		"total":    total,
		"page":     q.Page,
		"pageSize": q.PageSize,
	})
}

// HandleExport downloads a source's record table as a spreadsheet.
func (h *Handler) HandleExport(c echo.Context) error {
	src, err := sourceParam(c)
	if err != nil {
		return err
	}

	spec, ok := h.tableSpec(src)
	if !ok {
		return NewNotFoundError("table", string(src))
	}
	data, err := export.GenerateTable(spec, h.poller.Snapshot().State(src).Records)
	if err != nil {
		return NewInternalError("failed to build spreadsheet", err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+export.Filename(src)+`"`)
	return c.Blob(http.StatusOK, export.ContentType, data)
}

// HandleRefresh starts an immediate fetch of one source (?source=) or both.
func (h *Handler) HandleRefresh(c echo.Context) error {
	var srcs []models.Source
	if s := c.QueryParam("source"); s != "" {
		src, err := models.ParseSource(s)
		if err != nil {
			return NewNotFoundError("source", s)
		}
		srcs = append(srcs, src)
	}

	id, err := h.poller.Refresh(srcs...)
	if err != nil {
		if errors.Is(err, poller.ErrNotRunning) {
			return NewServiceUnavailableError(err.Error())
		}
		return NewInternalError("refresh failed", err)
	}
	if len(srcs) == 0 {
		srcs = models.Sources
	}
	h.logger.Info("refresh requested", zap.String("refresh_id", id), zap.Any("sources", srcs))

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"refreshId": id,
		"sources":   srcs,
	})
}

func (h *Handler) tableSpec(src models.Source) (dashboard.TableSpec, bool) {
	for _, t := range h.layout.Tables {
		if t.Source == src {
			return t, true
		}
	}
	return dashboard.TableSpec{}, false
}

func sourceParam(c echo.Context) (models.Source, error) {
	s := c.Param("source")
	src, err := models.ParseSource(s)
	if err != nil {
		return "", NewNotFoundError("source", s)
	}
	return src, nil
}

func intParam(c echo.Context, name string, def int) (int, error) {
	s := c.QueryParam(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, NewValidationError(name)
	}
	return v, nil
}

// timeParam parses epoch milliseconds or an RFC 3339 time. Empty is zero.
func timeParam(c echo.Context, name string) (int64, error) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, NewValidationError(name)
	}
	return t.UnixMilli(), nil
}
