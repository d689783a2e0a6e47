package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/zeebo/xxh3"

	"co2dash/internal/engine"
	"co2dash/internal/export"
	"co2dash/internal/models"
)

type Handler struct {
	ds      *engine.Dataset
	topN    int
	footer  string
	metrics *Metrics
}

func NewHandler(ds *engine.Dataset, topN int, footer string, metrics *Metrics) *Handler {
	if topN <= 0 {
		topN = engine.DefaultTopN
	}
	return &Handler{ds: ds, topN: topN, footer: footer, metrics: metrics}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.GetHealth)

	api := e.Group("/api")
	api.GET("/meta", h.GetMeta)
	api.GET("/dashboard", h.GetDashboard)
	api.GET("/emissions/global", h.GetGlobalEmissions)
	api.GET("/emissions/top", h.GetTopEmitters)
	api.GET("/intensity/scatter", h.GetIntensityScatter)
	api.GET("/multipliers/choropleth", h.GetMultiplierChoropleth)
	api.GET("/correlation", h.GetCorrelation)
	api.GET("/tidy", h.GetTidy)
	api.GET("/tidy.arrow", h.GetTidyArrow)
}

// --- HELPERS ---

func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// snapshot returns the loaded data, or 503 while the background load runs.
func (h *Handler) snapshot(c echo.Context) (*engine.Snapshot, error) {
	if !h.ds.Ready() {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "data is still loading")
	}
	return h.ds.Snapshot(c.Request().Context())
}

// notModified sets the ETag for this snapshot and query and reports whether
// the client already holds it.
func notModified(c echo.Context, snap *engine.Snapshot) bool {
	tag := fmt.Sprintf(`"%016x-%016x"`, snap.Fingerprint, xxh3.HashString(c.Request().URL.RawQuery))
	c.Response().Header().Set("ETag", tag)
	return c.Request().Header.Get("If-None-Match") == tag
}

// selection reads year and country. year defaults to the latest year present.
func selection(c echo.Context, t *engine.TidyTable) (models.Selection, error) {
	_, hi, _ := t.YearBounds()
	sel := models.Selection{Year: hi, Country: c.QueryParam("country")}
	if s := c.QueryParam("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			return sel, echo.NewHTTPError(http.StatusBadRequest, "year must be an integer")
		}
		sel.Year = y
	}
	if sel.Country == "" {
		sel.Country = engine.AllCountries
	}
	return sel, nil
}

// filtered is the common prologue of the per-selection views. A nil table
// with a nil error means the client copy is current (304 already sent).
func (h *Handler) filtered(c echo.Context, view string) (*engine.TidyTable, models.Selection, error) {
	snap, err := h.snapshot(c)
	if err != nil {
		return nil, models.Selection{}, err
	}
	sel, err := selection(c, snap.Table)
	if err != nil {
		return nil, sel, err
	}
	h.metrics.viewRequested(view)
	if notModified(c, snap) {
		return nil, sel, c.NoContent(http.StatusNotModified)
	}

	f := engine.Filter(snap.Table, sel.Year, sel.Country)
	if err := engine.SelectionErr(f); err != nil {
		h.metrics.emptySelection()
		slog.Debug("empty selection", "view", view, "year", sel.Year, "country", sel.Country)
	}
	return f, sel, nil
}

// --- HANDLERS ---

func (h *Handler) GetHealth(c echo.Context) error {
	if !h.ds.Ready() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "loading"})
	}
	if _, err := h.ds.Snapshot(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"status": "error"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetMeta(c echo.Context) error {
	snap, err := h.snapshot(c)
	if err != nil {
		return err
	}
	h.metrics.viewRequested("meta")
	if notModified(c, snap) {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSON(http.StatusOK, engine.BuildMeta(snap.Table, h.footer))
}

// all five views for one selection
func (h *Handler) GetDashboard(c echo.Context) error {
	snap, err := h.snapshot(c)
	if err != nil {
		return err
	}
	sel, err := selection(c, snap.Table)
	if err != nil {
		return err
	}
	h.metrics.viewRequested("dashboard")
	if notModified(c, snap) {
		return c.NoContent(http.StatusNotModified)
	}

	data := engine.BuildDashboard(snap.Table, engine.Query{
		Year:    sel.Year,
		Country: sel.Country,
		TopN:    h.topN,
		Footer:  h.footer,
	})
	if data.EmptySelection {
		h.metrics.emptySelection()
	}
	return c.JSON(http.StatusOK, data)
}

// global series ignores year and country
func (h *Handler) GetGlobalEmissions(c echo.Context) error {
	snap, err := h.snapshot(c)
	if err != nil {
		return err
	}
	h.metrics.viewRequested("global")
	if notModified(c, snap) {
		return c.NoContent(http.StatusNotModified)
	}
	return c.JSON(http.StatusOK, models.Chart[models.YearTotal]{
		Title: "Global CO₂ Emissions Over Time",
		Data:  engine.YearTotalsModel(engine.GlobalTimeSeries(snap.Table)),
	})
}

func (h *Handler) GetTopEmitters(c echo.Context) error {
	f, sel, err := h.filtered(c, "top")
	if err != nil || f == nil {
		return err
	}
	limit, _ := getPaginationParams(c, h.topN)
	return c.JSON(http.StatusOK, models.View{
		Selection:      sel,
		EmptySelection: f.Len() == 0,
		Title:          fmt.Sprintf("Top %d CO₂ Emitting Countries in %d", limit, sel.Year),
		Data:           engine.CountryTotalsModel(engine.TopEmitters(f, limit)),
	})
}

func (h *Handler) GetIntensityScatter(c echo.Context) error {
	f, sel, err := h.filtered(c, "scatter")
	if err != nil || f == nil {
		return err
	}
	return c.JSON(http.StatusOK, models.View{
		Selection:      sel,
		EmptySelection: f.Len() == 0,
		Title:          fmt.Sprintf("CO₂ Emissions vs Intensities in %d", sel.Year),
		Data:           engine.ScatterModel(engine.IntensityScatter(f)),
	})
}

func (h *Handler) GetMultiplierChoropleth(c echo.Context) error {
	f, sel, err := h.filtered(c, "choropleth")
	if err != nil || f == nil {
		return err
	}
	return c.JSON(http.StatusOK, models.View{
		Selection:      sel,
		EmptySelection: f.Len() == 0,
		Title:          fmt.Sprintf("CO₂ Multipliers by Country in %d", sel.Year),
		Data:           engine.ChoroplethModel(engine.MultiplierChoropleth(f)),
	})
}

func (h *Handler) GetCorrelation(c echo.Context) error {
	f, sel, err := h.filtered(c, "correlation")
	if err != nil || f == nil {
		return err
	}
	corr := engine.CorrelationModel(engine.Correlate(f))
	return c.JSON(http.StatusOK, models.View{
		Selection:      sel,
		EmptySelection: f.Len() == 0,
		Title:          corr.Title,
		Data:           corr,
	})
}

// paginated tidy rows; year and country narrow the table only when given
func (h *Handler) GetTidy(c echo.Context) error {
	snap, err := h.snapshot(c)
	if err != nil {
		return err
	}
	h.metrics.viewRequested("tidy")
	if notModified(c, snap) {
		return c.NoContent(http.StatusNotModified)
	}

	table := snap.Table
	if c.QueryParam("year") != "" {
		sel, err := selection(c, table)
		if err != nil {
			return err
		}
		table = engine.Filter(table, sel.Year, sel.Country)
	} else {
		table = engine.FilterCountry(table, c.QueryParam("country"))
	}

	total := table.Len()
	limit, offset := getPaginationParams(c, 100)
	page := models.Page[models.TidyRow]{Data: []models.TidyRow{}, Total: total, Limit: limit, Offset: offset}
	if offset >= total {
		return c.JSON(http.StatusOK, page)
	}
	end := min(offset+limit, total)

	rows := make([]engine.TidyRecord, 0, end-offset)
	for i := offset; i < end; i++ {
		rows = append(rows, table.Row(i))
	}
	page.Data = engine.TidyRowsModel(rows)
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) GetTidyArrow(c echo.Context) error {
	snap, err := h.snapshot(c)
	if err != nil {
		return err
	}
	h.metrics.viewRequested("tidy_arrow")
	if notModified(c, snap) {
		return c.NoContent(http.StatusNotModified)
	}

	c.Response().Header().Set(echo.HeaderContentType, export.ArrowContentType)
	c.Response().WriteHeader(http.StatusOK)
	return export.WriteArrow(c.Response(), snap.Table)
}
