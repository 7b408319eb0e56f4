package api

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"gocausal/domain/core"
	"gocausal/domain/run"
	"gocausal/internal"
	"gocausal/internal/errors"
	"gocausal/ports"

	"github.com/gin-gonic/gin"
)

const maxRunsLimit = 500

// RunsHandler exposes the run ledger read-only
type RunsHandler struct {
	ledger ports.RunLedger
	logger *internal.Logger
}

// RunResponse is a stored manifest plus its replay key
type RunResponse struct {
	run.Manifest
	ReplayKey string `json:"replay_key"`
}

// NewRunsHandler creates a handler over ledger
func NewRunsHandler(ledger ports.RunLedger, logger *internal.Logger) *RunsHandler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &RunsHandler{ledger: ledger, logger: logger.With("RunsHandler")}
}

// List returns recent runs, newest first. ?limit= caps the count (default 50).
func (h *RunsHandler) List(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunsLimit {
			writeError(c, h.logger, errors.InvalidInput("limit must be between 1 and "+strconv.Itoa(maxRunsLimit)))
			return
		}
		limit = n
	}

	manifests, err := h.ledger.List(c.Request.Context(), limit)
	if err != nil {
		writeError(c, h.logger, errors.DatabaseError("failed to list runs", err))
		return
	}
	out := make([]RunResponse, len(manifests))
	for i := range manifests {
		out[i] = newRunResponse(&manifests[i])
	}
	c.JSON(http.StatusOK, gin.H{"runs": out, "count": len(out)})
}

// Get returns one run by ID
func (h *RunsHandler) Get(c *gin.Context) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		writeError(c, h.logger, errors.InvalidInput(err.Error()))
		return
	}
	m, err := h.ledger.Get(c.Request.Context(), id)
	if err != nil {
		if stderrors.Is(err, run.ErrNotFound) {
			writeError(c, h.logger, errors.NotFound("run "+id.String()))
			return
		}
		writeError(c, h.logger, errors.DatabaseError("failed to load run", err))
		return
	}
	c.JSON(http.StatusOK, newRunResponse(m))
}

func newRunResponse(m *run.Manifest) RunResponse {
	return RunResponse{Manifest: *m, ReplayKey: m.ReplayKey().String()}
}
