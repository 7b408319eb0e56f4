package api

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"gocausal/adapters/excel"
	"gocausal/app"
	"gocausal/domain/causal"
	"gocausal/domain/dataset"
	"gocausal/internal"
	"gocausal/internal/errors"
	"gocausal/ports"

	"github.com/gin-gonic/gin"
)

// TableSource opens a reader over a database table; nil when no database is configured
type TableSource func(table string, columns []string) (ports.DatasetReader, error)

// DoSampleHandler serves stateless do-sampling requests
type DoSampleHandler struct {
	service *app.SamplingService
	tables  TableSource
	logger  *internal.Logger
}

// DoSampleRequest is the JSON body of POST /api/v1/do-sample. The data comes
// either inline in Columns or from Table.
type DoSampleRequest struct {
	Columns map[string][]interface{} `json:"columns"`
	Table   string                   `json:"table"`

	Types                     map[string]string  `json:"types"`
	Treatments                []string           `json:"treatments" binding:"required,min=1"`
	Outcomes                  []string           `json:"outcomes" binding:"required,min=1"`
	Confounders               []string           `json:"confounders"`
	Graph                     string             `json:"graph"`
	ProceedWhenUnidentifiable bool               `json:"proceed_when_unidentifiable"`
	Intervention              map[string]float64 `json:"intervention"`
	KeepOriginalTreatment     bool               `json:"keep_original_treatment"`
	SampleSize                int                `json:"sample_size" binding:"gte=0"`
	Seed                      *uint64            `json:"seed"`
	ExtremePolicy             string             `json:"extreme_policy"`
}

// DoSampleResponse carries the interventional sample column by column
type DoSampleResponse struct {
	RunID       string               `json:"run_id"`
	Rows        int                  `json:"rows"`
	Columns     map[string][]float64 `json:"columns"`
	Levels      map[string][]string  `json:"levels,omitempty"`
	Confounders []string             `json:"confounders"`
	Diagnostics DiagnosticsResponse  `json:"diagnostics"`
	ReplayKey   string               `json:"replay_key,omitempty"`
	RuntimeMs   int64                `json:"runtime_ms"`
}

// DiagnosticsResponse summarizes the propensity fit
type DiagnosticsResponse struct {
	Strategy      string   `json:"strategy"`
	Features      []string `json:"features"`
	Policy        string   `json:"policy"`
	Clipped       int      `json:"clipped"`
	Dropped       int      `json:"dropped"`
	MinScore      float64  `json:"min_score"`
	MaxScore      float64  `json:"max_score"`
	EffectiveSize float64  `json:"effective_sample_size"`
}

// NewDoSampleHandler creates a new do-sample handler. tables may be nil.
func NewDoSampleHandler(service *app.SamplingService, tables TableSource, logger *internal.Logger) *DoSampleHandler {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DoSampleHandler{service: service, tables: tables, logger: logger.With("DoSampleHandler")}
}

// DoSample draws one interventional sample
func (h *DoSampleHandler) DoSample(c *gin.Context) {
	var req DoSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, errors.InvalidInput(err.Error()))
		return
	}

	types := make(dataset.VariableTypes, len(req.Types))
	for name, raw := range req.Types {
		typ, err := dataset.ParseVariableType(raw)
		if err != nil {
			h.fail(c, errors.InvalidInput(err.Error()))
			return
		}
		types[name] = typ
	}

	data, err := h.loadData(c, &req, types)
	if err != nil {
		h.fail(c, err)
		return
	}

	var iv causal.Intervention
	if len(req.Intervention) > 0 {
		iv = causal.AssignEach(req.Intervention)
	}
	res, err := h.service.Sample(c.Request.Context(), app.SampleRequest{
		Data:                      data,
		Types:                     types,
		Treatments:                req.Treatments,
		Outcomes:                  req.Outcomes,
		Confounders:               req.Confounders,
		Graph:                     req.Graph,
		ProceedWhenUnidentifiable: req.ProceedWhenUnidentifiable,
		Intervention:              iv,
		KeepOriginalTreatment:     req.KeepOriginalTreatment,
		SampleSize:                req.SampleSize,
		Seed:                      req.Seed,
		ExtremePolicy:             req.ExtremePolicy,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, newDoSampleResponse(res))
}

func (h *DoSampleHandler) loadData(c *gin.Context, req *DoSampleRequest, types dataset.VariableTypes) (*dataset.Dataset, error) {
	switch {
	case req.Table != "" && len(req.Columns) > 0:
		return nil, errors.InvalidInput("give either columns or table, not both")
	case req.Table != "":
		if h.tables == nil {
			return nil, errors.InvalidInput("no database configured for table sources")
		}
		reader, err := h.tables(req.Table, nil)
		if err != nil {
			return nil, err
		}
		data, err := reader.ReadDataset(c.Request.Context(), types)
		if err != nil {
			return nil, errors.DatabaseError("failed to read table "+req.Table, err)
		}
		return data, nil
	case len(req.Columns) > 0:
		rows, err := columnsToRows(req.Columns)
		if err != nil {
			return nil, err
		}
		return excel.ParseRows(rows, types)
	}
	return nil, errors.InvalidInput("request has no data: set columns or table")
}

// columnsToRows lays the JSON columns out as a header row plus records
func columnsToRows(columns map[string][]interface{}) ([][]string, error) {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	n := len(columns[names[0]])
	rows := make([][]string, n+1)
	rows[0] = names
	for i := 1; i <= n; i++ {
		rows[i] = make([]string, len(names))
	}
	for j, name := range names {
		values := columns[name]
		if len(values) != n {
			return nil, errors.InvalidInput(fmt.Sprintf("column %q has %d values, %q has %d", name, len(values), names[0], n))
		}
		for i, v := range values {
			switch x := v.(type) {
			case float64:
				rows[i+1][j] = strconv.FormatFloat(x, 'g', -1, 64)
			case string:
				rows[i+1][j] = x
			case bool:
				rows[i+1][j] = strconv.FormatBool(x)
			default:
				return nil, errors.InvalidInput(fmt.Sprintf("column %q row %d: unsupported value %v", name, i+1, v))
			}
		}
	}
	return rows, nil
}

func newDoSampleResponse(res *app.SampleResult) DoSampleResponse {
	out := DoSampleResponse{
		RunID:       res.RunID.String(),
		Rows:        res.Sample.RowCount(),
		Columns:     make(map[string][]float64),
		Confounders: res.Confounders,
		RuntimeMs:   res.RuntimeMs,
		Diagnostics: DiagnosticsResponse{
			Strategy:      res.Diagnostics.Strategy,
			Features:      res.Diagnostics.Features,
			Policy:        res.Diagnostics.Policy,
			Clipped:       res.Diagnostics.Clipped,
			Dropped:       res.Diagnostics.Dropped,
			MinScore:      res.Diagnostics.MinScore,
			MaxScore:      res.Diagnostics.MaxScore,
			EffectiveSize: res.Diagnostics.EffectiveSize,
		},
	}
	if res.Manifest != nil {
		out.ReplayKey = res.Manifest.ReplayKey().String()
	}
	for _, name := range res.Sample.Names() {
		out.Columns[name], _ = res.Sample.Column(name)
		if levels := res.Sample.Levels(name); len(levels) > 0 {
			if out.Levels == nil {
				out.Levels = make(map[string][]string)
			}
			out.Levels[name] = levels
		}
	}
	return out
}

func (h *DoSampleHandler) fail(c *gin.Context, err error) {
	writeError(c, h.logger, err)
}

// writeError reports err as {"error", "code"} with the status of its code
func writeError(c *gin.Context, logger *internal.Logger, err error) {
	appErr := errors.FromDomain(err)
	status := errors.HTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError {
		logger.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		logger.Debug("%s %s rejected: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": appErr.Message, "code": appErr.Code})
}
