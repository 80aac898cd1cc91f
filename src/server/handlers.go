package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"market-relay/src/helpers"
	"market-relay/src/models"

	"github.com/gin-gonic/gin"
)

const (
	dateLayout          = "2006-01-02"
	defaultCalendarSpan = 7 * 24 * time.Hour
)

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *Server) getHealth(c *gin.Context) {
	resp := gin.H{
		"status":   "ok",
		"uptimeMs": time.Since(s.started).Milliseconds(),
	}
	if b := s.Services.Broadcaster; b != nil {
		resp["connections"] = b.Clients.Len()
		resp["channels"] = b.Status()
	}
	if s.Services.Providers != nil {
		resp["providers"] = s.Services.Providers()
	}
	c.JSON(http.StatusOK, resp)
}

// -----------------------------------------------------------------------------

// getChart accepts either ?range=1M or ?timespan=day&limit=30.
func (s *Server) getChart(c *gin.Context) {
	symbol := c.Param("symbol")

	if rng := c.Query("range"); rng != "" {
		data, err := s.Services.Charts.GetChartDataForRange(c.Request.Context(), symbol, rng)
		s.respond(c, data, err)
		return
	}

	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	req := models.MChartRequest{
		Symbol:   symbol,
		Timespan: models.Timespan(strings.ToLower(c.Query("timespan"))),
		Limit:    limit,
	}
	data, err := s.Services.Charts.GetChartData(c.Request.Context(), req)
	s.respond(c, data, err)
}

func (s *Server) getForex(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	data, err := s.Services.Charts.GetForexChart(c.Request.Context(), c.Param("pair"), c.Query("interval"), limit)
	s.respond(c, data, err)
}

func (s *Server) getQuote(c *gin.Context) {
	q, err := s.Services.Charts.GetQuote(c.Request.Context(), c.Param("symbol"))
	s.respond(c, q, err)
}

// -----------------------------------------------------------------------------

func (s *Server) getCalendar(c *gin.Context) {
	kind, ok := models.ParseCalendarKind(strings.ToLower(c.Param("kind")))
	if !ok {
		badRequest(c, "unknown calendar kind "+strconv.Quote(c.Param("kind")))
		return
	}

	from := time.Now().UTC().Truncate(24 * time.Hour)
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			badRequest(c, "from must be YYYY-MM-DD")
			return
		}
		from = t
	}
	to := from.Add(defaultCalendarSpan)
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			badRequest(c, "to must be YYYY-MM-DD")
			return
		}
		to = t
	}
	if to.Before(from) {
		badRequest(c, "to is before from")
		return
	}

	events := s.Services.Calendar.GetCalendar(c.Request.Context(), kind, from, to)
	c.JSON(http.StatusOK, gin.H{"kind": kind, "from": from.Format(dateLayout), "to": to.Format(dateLayout), "events": events})
}

func (s *Server) getSnapshot(c *gin.Context) {
	ch, ok := models.ParseChannel(strings.ToLower(c.Param("channel")))
	if !ok {
		badRequest(c, "unknown channel "+strconv.Quote(c.Param("channel")))
		return
	}

	quotes := []models.MQuote{}
	if s.Services.Store != nil {
		loaded, err := s.Services.Store.LoadLatest(c.Request.Context(), ch)
		if err != nil {
			s.Logger.Warning("Snapshot read for %s failed: %v", ch, err)
		} else {
			quotes = loaded
		}
	}
	c.JSON(http.StatusOK, gin.H{"channel": ch, "quotes": quotes})
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// respond maps validation errors to 400; anything else is a server fault.
func (s *Server) respond(c *gin.Context, data interface{}, err error) {
	if err == nil {
		c.JSON(http.StatusOK, data)
		return
	}
	if helpers.IsValidation(err) {
		badRequest(c, err.Error())
		return
	}
	s.Logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// queryInt reads an optional integer parameter; 0 when absent.
func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, key+" must be an integer")
		return 0, false
	}
	return n, true
}
