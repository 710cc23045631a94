package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/franz/mldb/internal/store"
	"github.com/franz/mldb/internal/util"
)

// recentCount is how many experiments a "recent" table keeps
const recentCount = 10

// refreshPeriodMs is how often the page reloads a running experiment
const refreshPeriodMs = 30_000

type tableKind struct {
	title    string
	statuses []string
}

var tableKinds = map[string]tableKind{
	"all":       {title: "Experiments Status"},
	"running":   {title: "Running Experiments", statuses: []string{store.StatusTraining}},
	"completed": {title: "Completed Experiments", statuses: []string{store.StatusComplete}},
	"failed":    {title: "Failed Experiments", statuses: []string{store.StatusError, store.StatusCancelled}},
	"failure":   {title: "Failed Experiments", statuses: []string{store.StatusError, store.StatusCancelled}},
}

// lowIsBetter marks metric kinds where smaller values are better
var lowIsBetter = []string{"error", "mse", "sse"}

type statusTable struct {
	Title       string   `json:"title"`
	Kind        string   `json:"kind"`
	Headings    []string `json:"headings"`
	Experiments []string `json:"experiments"`
	Statuses    []string `json:"statuses"`
}

type splitMetrics struct {
	Epoch    int                    `json:"epoch"`
	ExpID    string                 `json:"expid"`
	LowData  map[string]store.Float `json:"low_data"`
	HighData map[string]store.Float `json:"high_data"`
}

type refreshHint struct {
	Query  map[string]string `json:"query"`
	Period int               `json:"period"`
}

type experimentView struct {
	Title   string                   `json:"title"`
	Kind    string                   `json:"kind"`
	Details *store.ExperimentDetails `json:"details"`
	Params  map[string]string        `json:"params"`
	Metrics *splitMetrics            `json:"metrics"`
	Refresh *refreshHint             `json:"refresh,omitempty"`
}

// queryRequest is the body of POST /api/query
type queryRequest struct {
	Show   string `json:"show"`
	Kind   string `json:"kind"`
	ExpID  string `json:"expid"`
	Recent bool   `json:"recent"`
	Search string `json:"search"`
}

type badRequestError struct {
	why string
}

func (e *badRequestError) Error() string {
	return e.why
}

func badRequest(format string, args ...any) error {
	return &badRequestError{why: fmt.Sprintf(format, args...)}
}

// listExperiments handles GET /api/experiments
func (s *Server) listExperiments(c *gin.Context) {
	kind := c.DefaultQuery("kind", "all")
	recent, _ := strconv.ParseBool(c.Query("recent"))

	table, err := s.statusTable(c.Request.Context(), kind, recent, c.Query("search"), c.Query("group"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

// experimentDetails handles GET /api/experiments/:id
func (s *Server) experimentDetails(c *gin.Context) {
	view, err := s.experimentView(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// latestMetrics handles GET /api/experiments/:id/metrics/latest
func (s *Server) latestMetrics(c *gin.Context) {
	id := c.Param("id")

	var latest *store.LatestMetrics
	err := s.pool.Do(c.Request.Context(), func(st store.ExperimentStore) error {
		var err error
		latest, err = st.GetLatestMetrics(c.Request.Context(), id)
		return err
	})
	if err == nil && latest.Empty() {
		err = &store.NoDataError{Table: "metrics", Identity: fmt.Sprintf("experiment %q", id)}
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, latest)
}

// qualitativePlots handles GET /api/experiments/:id/qualitative
func (s *Server) qualitativePlots(c *gin.Context) {
	id := c.Param("id")

	var plots []string
	err := s.pool.Do(c.Request.Context(), func(st store.ExperimentStore) error {
		var err error
		plots, err = st.GetQualitativePlotIDs(c.Request.Context(), id)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expid": id, "plots": plots})
}

// qualitativeResult handles GET /api/experiments/:id/qualitative/:plot
func (s *Server) qualitativeResult(c *gin.Context) {
	id, plot := c.Param("id"), c.Param("plot")

	var result map[string]any
	err := s.pool.Do(c.Request.Context(), func(st store.ExperimentStore) error {
		var err error
		result, err = st.GetQualitativeResult(c.Request.Context(), id, plot)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// listGroups handles GET /api/groups
func (s *Server) listGroups(c *gin.Context) {
	var names []string
	err := s.pool.Do(c.Request.Context(), func(st store.ExperimentStore) error {
		var err error
		names, err = st.ListGroups(c.Request.Context())
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": names})
}

// groupMembers handles GET /api/groups/:group
func (s *Server) groupMembers(c *gin.Context) {
	group := c.Param("group")

	var members []string
	err := s.pool.Do(c.Request.Context(), func(st store.ExperimentStore) error {
		var err error
		members, err = st.GetGroup(c.Request.Context(), group)
		return err
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group": group, "experiments": members})
}

// query handles POST /api/query, the request shape the dashboard page sends
func (s *Server) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, badRequest("invalid query: %v", err))
		return
	}

	ctx := c.Request.Context()
	switch req.Show {
	case "details":
		if req.ExpID == "" {
			writeError(c, badRequest("details query needs an expid"))
			return
		}
		view, err := s.experimentView(ctx, req.ExpID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	case "status", "":
		kind := req.Kind
		if kind == "" {
			kind = "all"
		}
		table, err := s.statusTable(ctx, kind, req.Recent, req.Search, "")
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, table)
	default:
		writeError(c, badRequest("unrecognised query: show=%q", req.Show))
	}
}

func (s *Server) statusTable(ctx context.Context, kind string, recent bool, search, group string) (*statusTable, error) {
	tk, ok := tableKinds[kind]
	if !ok {
		return nil, badRequest("unhandled query, unknown kind: %q", kind)
	}

	filter := store.ListFilter{Statuses: tk.statuses, Group: group}
	if search != "" {
		filter.Search = "%" + search + "%"
	}
	if recent {
		filter.Limit = recentCount
	}

	var rows []store.ExperimentStatus
	err := s.pool.Do(ctx, func(st store.ExperimentStore) error {
		var err error
		rows, err = st.ListExperiments(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}

	table := &statusTable{
		Title:       tk.title,
		Kind:        "status_table",
		Headings:    []string{"EXPID", "STATUS"},
		Experiments: make([]string, 0, len(rows)),
		Statuses:    make([]string, 0, len(rows)),
	}
	if recent {
		table.Title = "Most Recent " + table.Title
	}
	for _, r := range rows {
		table.Experiments = append(table.Experiments, r.ExpID)
		table.Statuses = append(table.Statuses, r.Status)
	}
	return table, nil
}

func (s *Server) experimentView(ctx context.Context, id string) (*experimentView, error) {
	view := &experimentView{
		Title: fmt.Sprintf("Experiment Details (%s)", id),
		Kind:  "details",
	}

	var latest *store.LatestMetrics
	err := s.pool.Do(ctx, func(st store.ExperimentStore) error {
		var err error
		if view.Details, err = st.GetExperimentDetails(ctx, id); err != nil {
			return err
		}
		if view.Params, err = st.GetHyperparams(ctx, id); err != nil {
			return err
		}
		latest, err = st.GetLatestMetrics(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !latest.Empty() {
		view.Metrics = splitByDirection(latest)
	}
	if view.Details.Status == store.StatusTraining {
		view.Refresh = &refreshHint{
			Query:  map[string]string{"show": "details", "expid": id},
			Period: refreshPeriodMs,
		}
	}
	return view, nil
}

// splitByDirection separates metrics where low values are better from the
// rest, so the page can colour them.
func splitByDirection(latest *store.LatestMetrics) *splitMetrics {
	m := &splitMetrics{
		Epoch:    latest.Epoch,
		ExpID:    latest.ExpID,
		LowData:  make(map[string]store.Float),
		HighData: make(map[string]store.Float),
	}
	for kind, v := range latest.Data {
		if isLowBetter(kind) {
			m.LowData[kind] = v
		} else {
			m.HighData[kind] = v
		}
	}
	return m
}

func isLowBetter(kind string) bool {
	kind = strings.ToLower(kind)
	for _, marker := range lowIsBetter {
		if strings.Contains(kind, marker) {
			return true
		}
	}
	return false
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	var bad *badRequestError
	switch {
	case errors.As(err, &bad):
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "why": err.Error()})
	case errors.Is(err, util.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"error": true, "why": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": true, "why": err.Error()})
	}
}
