package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/railzwaylabs/salesanalytics/internal/writer"
)

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the configured backing stores answer.
func (s *Server) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	checks := map[string]string{}
	ready := true

	if s.db != nil {
		checks["database"] = "ok"
		sqlDB, err := s.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			checks["database"] = err.Error()
			ready = false
		}
	}
	if s.redis != nil {
		checks["redis"] = "ok"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			ready = false
		}
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

// Metrics serves the pipeline registry merged with the default one, which carries the
// gorm pool collectors.
func (s *Server) Metrics() gin.HandlerFunc {
	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer}
	if s.metrics != nil {
		gatherers = append(prometheus.Gatherers{s.metrics.Registry}, gatherers...)
	}
	return gin.WrapH(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))
}

func (s *Server) ListDates(c *gin.Context) {
	dates, err := s.svc.Discover(c.Request.Context(), s.cfg.InputDir)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, dates)
}

// GetSummary returns the summary artifact written for a date.
func (s *Server) GetSummary(c *gin.Context) {
	date, err := domain.ParseDateKey(c.Param("date"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data, err := os.ReadFile(writer.SummaryPath(s.cfg.OutputDir, date.Format(domain.DateLayout)))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	var summary domain.DailySummary
	if err := json.Unmarshal(data, &summary); err != nil {
		AbortWithError(c, fmt.Errorf("decode summary: %w", err))
		return
	}
	respondData(c, summary)
}

func (s *Server) GetLastRun(c *gin.Context) {
	date, err := domain.ParseDateKey(c.Param("date"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if s.ledger == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": errorBody{Code: "ledger_disabled", Message: "run ledger is not configured"}})
		return
	}

	run, err := s.ledger.Last(c.Request.Context(), date.Format(domain.DateLayout))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, run)
}

// TriggerRun runs one date synchronously. ?dry_run=true computes without writing.
func (s *Server) TriggerRun(c *gin.Context) {
	dryRun, err := queryBool(c, "dry_run")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.svc.RunForDate(c.Request.Context(), domain.RunRequest{
		Date:      c.Param("date"),
		InputDir:  s.cfg.InputDir,
		OutputDir: s.cfg.OutputDir,
		DryRun:    dryRun,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	respondData(c, result)
}

type backfillRequest struct {
	Start  string `json:"start" binding:"required"`
	End    string `json:"end" binding:"required"`
	DryRun bool   `json:"dry_run"`
}

type backfillOutcome struct {
	Date   string            `json:"date"`
	Result *domain.RunResult `json:"result,omitempty"`
	Error  *errorBody        `json:"error,omitempty"`
}

func (s *Server) TriggerBackfill(c *gin.Context) {
	var req backfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	outcomes, err := s.svc.RunRange(c.Request.Context(), domain.RangeRequest{
		Start:     req.Start,
		End:       req.End,
		InputDir:  s.cfg.InputDir,
		OutputDir: s.cfg.OutputDir,
		DryRun:    req.DryRun,
	})
	if err != nil && outcomes == nil {
		AbortWithError(c, err)
		return
	}

	resp := make([]backfillOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		item := backfillOutcome{Date: o.Date, Result: o.Result}
		if o.Err != nil {
			_, code := classify(o.Err)
			item.Error = &errorBody{Code: code, Message: o.Err.Error()}
		}
		resp = append(resp, item)
	}
	respondData(c, resp)
}

func queryBool(c *gin.Context, name string) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrInvalidRequest, name)
	}
	return v, nil
}
