// Package store persists experiment records (status, losses, metrics,
// hyperparameters, checkpoints, qualitative results and groups) in one of
// several interchangeable SQL backends.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
)

// Experiment statuses written by training processes. The store does not
// enforce them; any string is accepted.
const (
	StatusTraining  = "TRAINING"
	StatusComplete  = "COMPLETE"
	StatusError     = "ERROR"
	StatusCancelled = "CANCELLED"
)

// ExperimentStore is the experiment record API shared by every backend.
// Implementations hold a single session and are not safe for concurrent
// use; open one store per goroutine.
type ExperimentStore interface {
	fmt.Stringer

	// Root is the absolute directory stored paths are relative to.
	Root() string
	Connect(ctx context.Context) error
	Close() error
	EnsureSchema(ctx context.Context) error

	SetStatus(ctx context.Context, id, status string) error
	GetStatus(ctx context.Context, id string) (string, error)
	ListExperiments(ctx context.Context, filter ListFilter) ([]ExperimentStatus, error)

	AddLoss(ctx context.Context, id, kind string, epoch int, value float64) error
	GetLosses(ctx context.Context, id string) (map[string]*LossSeries, error)
	AddMetric(ctx context.Context, id, kind string, epoch int, value float64) error
	GetMetrics(ctx context.Context, id string) (map[string]*MetricSeries, error)
	GetLatestMetrics(ctx context.Context, id string) (*LatestMetrics, error)
	GetLatestMetricsOfMany(ctx context.Context, ids []string) (map[string]*LatestMetrics, error)

	AddHyperparam(ctx context.Context, id, name, value string) error
	GetHyperparams(ctx context.Context, id string) (map[string]string, error)
	SetConfigFile(ctx context.Context, id, path string) error
	GetConfigFile(ctx context.Context, id string) (string, error)
	AddStateFile(ctx context.Context, id string, epoch int, path string, errorOnCollision bool) (InsertResult, error)
	GetStateFile(ctx context.Context, id string, epoch int) (string, error)
	GetStateFiles(ctx context.Context, id string) ([]StateFile, error)
	AddLearningRate(ctx context.Context, id string, epoch int, value float64) error
	GetLearningRates(ctx context.Context, id string) (*LRSeries, error)
	GetExperimentDetails(ctx context.Context, id string) (*ExperimentDetails, error)

	AddQualitativeMetadata(ctx context.Context, id, plotID, kind string, meta map[string]any) error
	AddQualitativeMetadataJSON(ctx context.Context, id, plotID, value string) error
	AddQualitativeResult(ctx context.Context, id string, epoch int, plotID string, output, target any, extra map[string]any) error
	AddQualitativeResultJSON(ctx context.Context, id string, epoch int, plotID, value string) error
	GetQualitativeResult(ctx context.Context, id, plotID string) (map[string]any, error)
	GetQualitativePlotIDs(ctx context.Context, id string) ([]string, error)

	AddToGroup(ctx context.Context, id, group string) error
	AddManyToGroup(ctx context.Context, members []Membership) error
	RemoveFromGroup(ctx context.Context, id, group string) error
	RemoveManyFromGroup(ctx context.Context, members []Membership) error
	GetGroup(ctx context.Context, group string) ([]string, error)
	GetGroupsOfExp(ctx context.Context, id string) ([]string, error)
	GetGroupsOfManyExps(ctx context.Context, ids []string) ([]string, error)
	ListGroups(ctx context.Context) ([]string, error)

	Query(ctx context.Context, query string, args ...any) (*QueryResult, error)
	DeleteExperiment(ctx context.Context, id string) error
}

// Float is a float64 that encodes NaN and infinities as JSON null.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// LossSeries holds one loss kind's samples in epoch order.
type LossSeries struct {
	Epoch []int   `json:"epoch"`
	Loss  []Float `json:"loss"`
}

// MetricSeries holds one metric kind's samples in epoch order.
type MetricSeries struct {
	Epoch []int   `json:"epoch"`
	Value []Float `json:"value"`
}

// LatestMetrics holds every metric recorded at an experiment's highest
// metric epoch.
type LatestMetrics struct {
	ExpID string           `json:"expid"`
	Epoch int              `json:"epoch"`
	Data  map[string]Float `json:"data"`
}

// Empty reports whether no metric has been recorded.
func (m *LatestMetrics) Empty() bool {
	return m == nil || len(m.Data) == 0
}

// LRSeries holds learning rate samples in epoch order.
type LRSeries struct {
	Epochs []int   `json:"epochs"`
	LRs    []Float `json:"lrs"`
}

// ExperimentDetails is the summary shown for a single experiment.
type ExperimentDetails struct {
	ExpID  string                 `json:"expid"`
	Status string                 `json:"status"`
	Losses map[string]*LossSeries `json:"losses"`
	LRs    *LRSeries              `json:"lrs"`
}

// StateFile is one recorded checkpoint. Path is absolute.
type StateFile struct {
	Epoch int    `json:"epoch"`
	Path  string `json:"path"`
}

// ExperimentStatus is one row of the status table.
type ExperimentStatus struct {
	ExpID  string `db:"expid" json:"expid"`
	Status string `db:"status" json:"status"`
}

// ListFilter narrows ListExperiments. Zero values match everything.
type ListFilter struct {
	Statuses []string
	// Search is a SQL LIKE pattern on the experiment id.
	Search string
	Group  string
	// Limit keeps only the last Limit experiments in id order.
	Limit int
}

// Membership pairs an experiment with a group.
type Membership struct {
	ExpID string `json:"expid"`
	Group string `json:"group"`
}

// QueryResult is the outcome of a passthrough query.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// InsertResult tells an idempotent insert apart from a fresh one.
type InsertResult int

const (
	Inserted InsertResult = iota
	AlreadyExists
)

func (r InsertResult) String() string {
	if r == AlreadyExists {
		return "already exists"
	}
	return "inserted"
}

// absRoot resolves root once so later changes of working directory do not
// move it.
func absRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root %q: %w", root, err)
	}
	return abs, nil
}
