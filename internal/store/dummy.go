package store

import "context"

// DummyStore accepts every write and keeps nothing. It lets training
// scripts run where no database is reachable. Reads behave like an empty
// store.
type DummyStore struct {
	root string
}

// NewDummyStore returns a store that discards everything.
func NewDummyStore(root string) (*DummyStore, error) {
	abs, err := absRoot(root)
	if err != nil {
		return nil, err
	}
	return &DummyStore{root: abs}, nil
}

func (d *DummyStore) String() string { return "DummyDB" }
func (d *DummyStore) Root() string { return d.root }
func (d *DummyStore) Connect(ctx context.Context) error { return nil }
func (d *DummyStore) Close() error { return nil }
func (d *DummyStore) EnsureSchema(ctx context.Context) error { return nil }

func (d *DummyStore) SetStatus(ctx context.Context, id, status string) error { return nil }

func (d *DummyStore) GetStatus(ctx context.Context, id string) (string, error) {
	return "", &NoDataError{Table: "status", Identity: experiment(id)}
}

func (d *DummyStore) ListExperiments(ctx context.Context, filter ListFilter) ([]ExperimentStatus, error) {
	return []ExperimentStatus{}, nil
}

func (d *DummyStore) AddLoss(ctx context.Context, id, kind string, epoch int, value float64) error {
	return nil
}

func (d *DummyStore) GetLosses(ctx context.Context, id string) (map[string]*LossSeries, error) {
	return nil, &NoDataError{Table: "loss", Identity: experiment(id)}
}

func (d *DummyStore) AddMetric(ctx context.Context, id, kind string, epoch int, value float64) error {
	return nil
}

func (d *DummyStore) GetMetrics(ctx context.Context, id string) (map[string]*MetricSeries, error) {
	return nil, &NoDataError{Table: "metrics", Identity: experiment(id)}
}

func (d *DummyStore) GetLatestMetrics(ctx context.Context, id string) (*LatestMetrics, error) {
	return &LatestMetrics{ExpID: id, Data: map[string]Float{}}, nil
}

func (d *DummyStore) GetLatestMetricsOfMany(ctx context.Context, ids []string) (map[string]*LatestMetrics, error) {
	return map[string]*LatestMetrics{}, nil
}

func (d *DummyStore) AddHyperparam(ctx context.Context, id, name, value string) error { return nil }

func (d *DummyStore) GetHyperparams(ctx context.Context, id string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (d *DummyStore) SetConfigFile(ctx context.Context, id, path string) error { return nil }

func (d *DummyStore) GetConfigFile(ctx context.Context, id string) (string, error) {
	return "", &NoDataError{Table: "config", Identity: experiment(id)}
}

func (d *DummyStore) AddStateFile(ctx context.Context, id string, epoch int, path string, errorOnCollision bool) (InsertResult, error) {
	return Inserted, nil
}

func (d *DummyStore) GetStateFile(ctx context.Context, id string, epoch int) (string, error) {
	return "", &NoDataError{Table: "state", Identity: experiment(id)}
}

func (d *DummyStore) GetStateFiles(ctx context.Context, id string) ([]StateFile, error) {
	return []StateFile{}, nil
}

func (d *DummyStore) AddLearningRate(ctx context.Context, id string, epoch int, value float64) error {
	return nil
}

func (d *DummyStore) GetLearningRates(ctx context.Context, id string) (*LRSeries, error) {
	return &LRSeries{Epochs: []int{}, LRs: []Float{}}, nil
}

func (d *DummyStore) GetExperimentDetails(ctx context.Context, id string) (*ExperimentDetails, error) {
	return nil, &NoDataError{Table: "status", Identity: experiment(id)}
}

// Qualitative writes are still encoded so that unsupported values fail the
// same way they would against a real backend.
func (d *DummyStore) AddQualitativeMetadata(ctx context.Context, id, plotID, kind string, meta map[string]any) error {
	_, err := encodeQualitativeMetadata(kind, meta)
	return err
}

func (d *DummyStore) AddQualitativeMetadataJSON(ctx context.Context, id, plotID, value string) error {
	return checkJSONObject(value)
}

func (d *DummyStore) AddQualitativeResult(ctx context.Context, id string, epoch int, plotID string, output, target any, extra map[string]any) error {
	_, err := encodeQualitativeResult(output, target, extra)
	return err
}

func (d *DummyStore) AddQualitativeResultJSON(ctx context.Context, id string, epoch int, plotID, value string) error {
	return checkJSONObject(value)
}

func (d *DummyStore) GetQualitativeResult(ctx context.Context, id, plotID string) (map[string]any, error) {
	return nil, &NoDataError{Table: "qualitativeresultsmeta", Identity: experiment(id)}
}

func (d *DummyStore) GetQualitativePlotIDs(ctx context.Context, id string) ([]string, error) {
	return []string{}, nil
}

func (d *DummyStore) AddToGroup(ctx context.Context, id, group string) error { return nil }

func (d *DummyStore) AddManyToGroup(ctx context.Context, members []Membership) error { return nil }

func (d *DummyStore) RemoveFromGroup(ctx context.Context, id, group string) error { return nil }

func (d *DummyStore) RemoveManyFromGroup(ctx context.Context, members []Membership) error { return nil }

func (d *DummyStore) GetGroup(ctx context.Context, group string) ([]string, error) {
	return []string{}, nil
}

func (d *DummyStore) GetGroupsOfExp(ctx context.Context, id string) ([]string, error) {
	return []string{}, nil
}

func (d *DummyStore) GetGroupsOfManyExps(ctx context.Context, ids []string) ([]string, error) {
	return []string{}, nil
}

func (d *DummyStore) ListGroups(ctx context.Context) ([]string, error) {
	return []string{}, nil
}

func (d *DummyStore) Query(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	return &QueryResult{Columns: []string{}, Rows: [][]any{}}, nil
}

func (d *DummyStore) DeleteExperiment(ctx context.Context, id string) error { return nil }
