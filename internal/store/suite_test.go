package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/franz/mldb/internal/util"
)

// storeCase is one behavioural check every backend must pass. prefix keeps
// experiment ids apart on shared servers.
type storeCase struct {
	name string
	run  func(t *testing.T, s ExperimentStore, prefix string)
}

var storeCases = []storeCase{
	{"StatusUpsert", testStatusUpsert},
	{"MissingStatus", testMissingStatus},
	{"MetricCollision", testMetricCollision},
	{"LatestMetrics", testLatestMetrics},
	{"LatestMetricsOfMany", testLatestMetricsOfMany},
	{"StateFileCollision", testStateFileCollision},
	{"MissingStateFile", testMissingStateFile},
	{"StateFiles", testStateFiles},
	{"EndToEnd", testEndToEnd},
	{"DetailsWithoutLosses", testDetailsWithoutLosses},
	{"Hyperparams", testHyperparams},
	{"ConfigFile", testConfigFile},
	{"LearningRates", testLearningRates},
	{"Qualitative", testQualitative},
	{"Groups", testGroups},
	{"GroupBatch", testGroupBatch},
	{"ListExperiments", testListExperiments},
	{"Query", testQuery},
	{"Deletion", testDeletion},
}

func runStoreSuite(t *testing.T, open func(t *testing.T) ExperimentStore, prefix string) {
	for _, tc := range storeCases {
		t.Run(tc.name, func(t *testing.T) {
			s := open(t)
			tc.run(t, s, prefix+tc.name+"_")
		})
	}
}

func testStatusUpsert(t *testing.T, s ExperimentStore, prefix string) {
	ctx := context.Background()
	id := prefix + "run"

	if err := s.SetStatus(ctx, id, StatusTraining); err != nil {
		t.Fatalf("failed to set status: %v", err)
	}
	if err := s.SetStatus(ctx, id, StatusComplete); err != nil {
		t.Fatalf("failed to overwrite status: %v", err)
	}

	status, err := s.GetStatus(ctx, id)
	if err != nil {
		t.Fatalf("failed to get status: %v", err)
	}
	if status != StatusComplete {
		t.Errorf("expected status %s, got %s", StatusComplete, status)
	}

	res, err := s.Query(ctx, "SELECT status FROM status WHERE expid = ?", id)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Errorf("expected exactly one status row, got %d", len(res.Rows))
	}
}

func testMissingStatus(t *testing.T, s ExperimentStore, prefix string) {
	_, err := s.GetStatus(context.Background(), prefix+"never")
	if !errors.Is(err, util.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	var noData *NoDataError
	if !errors.As(err, &noData) || noData.Table != "status" {
		t.Errorf("expected NoDataError for status table, got %#v", err)
	}
}

func testMetricCollision(t *testing.T, s ExperimentStore, prefix string) {
	ctx := context.Background()
	id := prefix + "run"

	if err := s.AddMetric(ctx, id, "RMSE", 1, 0.5); err != nil {
		t.Fatalf("failed to add metric: %v", err)
	}
	err := s.AddMetric(ctx, id, "RMSE", 1, 0.9)
	if !errors.Is(err, util.ErrCollision) {
		t.Fatalf("expected ErrCollision, got %v", err)
	}
	var collision *CollisionError
	if !errors.As(err, &collision) || collision.Table != "metrics" {
		t.Errorf("expected CollisionError on metrics, got %#v", err)
	}

	metrics, err := s.GetMetrics(ctx, id)
	if err != nil {
		t.Fatalf("failed to get metrics: %v", err)
	}
	rmse := metrics["RMSE"]
	if rmse == nil || len(rmse.Value) != 1 || rmse.Value[0] != 0.5 {
		t.Errorf("expected the first value to survive alone, got %+v", rmse)
	}

	// the session stays usable after a failed write
	if err := s.AddMetric(ctx, id, "RMSE", 2, 0.4); err != nil {
		t.Errorf("write after collision failed: %v", err)
	}
}

func testLatestMetrics(t *testing.T, s ExperimentStore, prefix string) {
	ctx := context.Background()
	id := prefix + "run"

	latest, err := s.GetLatestMetrics(ctx, id)
	if err != nil {
		t.Fatalf("expected no error before any write, got %v", err)
	}
	if !latest.Empty() || latest.Data == nil || latest.ExpID != id {
		t.Fatalf("expected an empty, non-nil result before any write, got %+v", latest)
	}

	for epoch, v := range map[int][2]float64{1: {0.9, 0.8}, 2: {0.6, 0.5}, 3: {0.3, 0.2}} {
		if err := s.AddMetric(ctx, id, "RMSE", epoch, v[0]); err != nil {
			t.Fatalf("failed to add RMSE: %v", err)
		}
		if err := s.AddMetric(ctx, id, "MAE", epoch, v[1]); err != nil {
			t.Fatalf("failed to add MAE: %v", err)
		}
	}
	// a kind logged only earlier is not part of the latest set
	if err := s.AddMetric(ctx, id, "R2", 1, 0.1); err != nil {
		t.Fatalf("failed to add R2: %v", err)
	}

	latest, err = s.GetLatestMetrics(ctx, id)
	if err != nil {
		t.Fatalf("failed to get latest metrics: %v", err)
	}
	if latest.ExpID != id || latest.Epoch != 3 {
		t.Errorf("expected %s at epoch 3, got %s at %d", id, latest.ExpID, latest.Epoch)
	}
	want := map[string]Float{"RMSE": 0.3, "MAE": 0.2}
	if !reflect.DeepEqual(latest.Data, want) {
		t.Errorf("expected %v, got %v", want, latest.Data)
	}
}

func testLatestMetricsOfMany(t *testing.T, s ExperimentStore, prefix string) {
	ctx := context.Background()
	a, b, c := prefix+"a", prefix+"b", prefix+"c"

	mustAddMetric(t, s, a, "acc", 1, 0.5)
	mustAddMetric(t, s, a, "acc", 2, 0.7)
	mustAddMetric(t, s, b, "acc", 5, 0.9)

	latest, err := s.GetLatestMetricsOfMany(ctx, []string{a, b, c})
	if err != nil {
		t.Fatalf("failed to get latest metrics: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected 2 experiments, got %d", len(latest))
	}
	if latest[a].Epoch != 2 || latest[a].Data["acc"] != 0.7 {
		t.Errorf("unexpected latest for a: %+v", latest[a])
	}
	if latest[b].Epoch != 5 || latest[b].Data["acc"] != 0.9 {
		t.Errorf("unexpected latest for b: %+v", latest[b])
	}

	empty, err := s.GetLatestMetricsOfMany(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty result for no ids, got %v, %v", empty, err)
	}
}

func testStateFileCollision(t *testing.T, s ExperimentStore, prefix string) {
	ctx := context.Background()
	id := prefix + "run"
	path := filepath.Join(s.Root(), "checkpoints", "epoch5.pt")

	res, err := s.AddStateFile(ctx, id, 5, path, false)
	if err != nil || res != Inserted {
		t.Fatalf("expected first insert, got %v, %v", res, err)
	}
	res, err = s.AddStateFile(ctx, id, 5, path, false)
	if err != nil || res != AlreadyExists {
		t.Fatalf("expected silent AlreadyExists, got %v, %v", res, err)
	}

	files, err := s.GetStateFiles(ctx, id)
	if err != nil {
		t.Fatalf("failed to list state files: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("expected exactly one state row, got %d", len(files))
	}

	_, err = s.AddStateFile(ctx, id, 5, path, true)
	if !errors.Is(err, util.ErrCollision) {
		t.Errorf("expected ErrCollision with errorOnCollision, got %v", err)
	}

	got, err := s.GetStateFile(ctx, id, 5)
	if err != nil {
		t.Fatalf("failed to get state file: %v", err)
	}
	if got != path {
		t.Errorf("expected %s, got %s", path, got)
	}
}

func testMissingStateFile(t *testing.T, s ExperimentStore, prefix string) {
	_, err := s.GetStateFile(context.Background(), prefix+"run", 99)
	if !errors.Is(err, util.ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func testStateFiles(t *testing.T, s ExperimentStore, prefix string) {
	ctx := context.Background()
	id := prefix + "run"
	root := s.Root()

	for _, epoch := range []int{3, 1, 2} {
		path := filepath.Join(root, "ckpt", "e"+string(rune('0'+epoch))+".pt")
		if _, err := s.AddStateFile(ctx, id, epoch, path, true); err != nil {
			t.Fatalf("failed to add state file: %v", err)
		}
	}
	// two different files for one epoch make the lookup ambiguous
	if _, err := s.AddStateFile(ctx, id, 2, filepath.Join(root, "ckpt", "other.pt"), true); err != nil {
		t.Fatalf("failed to add second state file: %v", err)
	}

	files, err := s.GetStateFiles(ctx, id)
	if err != nil {
		t.Fatalf("failed to list state files: %v", err)
	}
	var epochs []int
	for _, f := range files {
		epochs = append(epochs, f.Epoch)
	}
	if !reflect.DeepEqual(epochs, []int{1, 2, 2, 3}) {
		t.Errorf("expected epochs in order, got %v", epochs)
	}

	_, err = s.GetStateFile(ctx, id, 2)
	if !errors.Is(err, util.ErrIntegrity) {
		t.Errorf("expected ErrIntegrity for duplicate epoch, got %v", err)
	}
	var integrity *IntegrityError
	if errors.As(err, &integrity) && integrity.Got != 2 {
		t.Errorf("expected 2 rows reported, got %d", integrity.Got)
	}
}

func testEndToEnd(t *testing.T, s ExperimentStore, prefix string) {
	ctx := context.Background()
	id := prefix + "run_001"

	if err := s.SetStatus(ctx, id, StatusTraining); err != nil {
		t.Fatalf("failed to set status: %v", err)
	}
	// written out of order on purpose
	for _, epoch := range []int{3, 0, 4, 1, 2} {
		if err := s.AddLoss(ctx, id, "train", epoch, 1.0/float64(epoch+1)); err != nil {
			t.Fatalf("failed to add loss: %v", err)
		}
	}
	mustAddMetric(t, s, id, "RMSE", 4, 0.3)
	if err := s.SetStatus(ctx, id, StatusComplete); err != nil {
		t.Fatalf("failed to set status: %v", err)
	}

	details, err := s.GetExperimentDetails(ctx, id)
	if err != nil {
		t.Fatalf("failed to get details: %v", err)
	}
	if details.Status != StatusComplete {
		t.Errorf("expected status COMPLETE, got %s", details.Status)
	}
	train := details.Losses["train"]
	if train == nil {
		t.Fatalf("expected train losses, got %v", details.Losses)
	}
	if !reflect.DeepEqual(train.Epoch, []int{0, 1, 2, 3, 4}) {
		t.Errorf("expected ascending epochs, got %v", train.Epoch)
	}
	for i := 1; i < len(train.Loss); i++ {
		if train.Loss[i] >= train.Loss[i-1] {
			t.Errorf("expected decreasing losses, got %v", train.Loss)
			break
		}
	}

	latest, err := s.GetLatestMetrics(ctx, id)
	if err != nil {
		t.Fatalf("failed to get latest metrics: %v", err)
	}
	if latest.Epoch != 4 || !reflect.DeepEqual(latest.Data, map[string]Float{"RMSE": 0.3}) {
		t.Errorf("expected epoch 4 RMSE 0.3, got %+v", latest)
	}
}

func testDetailsWithoutLosses(t *testing.T, s ExperimentStore, prefix string) {
	ctx := context.Background()
	id := prefix + "run"

	if _, err := s.GetExperimentDetails(ctx, id); !errors.Is(err, util.ErrNoData) {
		t.Fatalf("expected ErrNoData without status, got %v", err)
	}

	if err := s.SetStatus(ctx, id, StatusTraining); err != nil {
		t.Fatalf("failed to set status: %v", err)
	}
	details, err := s.GetExperimentDetails(ctx, id)
	if err != nil {
		t.Fatalf("details without losses failed: %v", err)
	}
	if len(details.Losses) != 0 || len(details.LRs.Epochs) != 0 {
		t.Errorf("expected empty losses and learning rates, got %+v", details)
	}

	if _, err := s.GetLosses(ctx, id); !errors.Is(err, util.ErrNoData) {
		t.Errorf("expected ErrNoData from GetLosses, got %v", err)
	}
}

func testHyperparams(t *testing.T, s ExperimentStore, prefix string) {
	ctx := context.Background()
	id := prefix + "run"

	params, err := s.GetHyperparams(ctx, id)
	if err != nil || len(params) != 0 {
		t.Fatalf("expected no hyperparameters, got %v, %v", params, err)
	}

	if err := s.AddHyperparam(ctx, id, "lr", "0.001"); err != nil {
		t.Fatalf("failed to add hyperparameter: %v", err)
	}
	if err := s.AddHyperparam(ctx, id, "batch", "32"); err != nil {
		t.Fatalf("failed to add hyperparameter: %v", err)
	}
	if err := s.AddHyperparam(ctx, id, "lr", "0.1"); !errors.Is(err, util.ErrCollision) {
		t.Errorf("expected ErrCollision for rewritten hyperparameter, got %v", err)
	}

	params, err = s.GetHyperparams(ctx, id)
	if err != nil {
		t.Fatalf("failed to get hyperparameters: %v", err)
	}
	want := map[string]string{"lr": "0.001", "batch": "32"}
	if !reflect.DeepEqual(params, want) {
		t.Errorf("expected %v, got %v", want, params)
	}
}

func testConfigFile(t *testing.T, s ExperimentStore, prefix string) {
	ctx := context.Background()
	id := prefix + "run"
	path := filepath.Join(s.Root(), "configs", "run.yaml")

	if _, err := s.GetConfigFile(ctx, id); !errors.Is(err, util.ErrNoData) {
		t.Fatalf("expected ErrNoData before set, got %v", err)
	}
	if err := s.SetConfigFile(ctx, id, path); err != nil {
		t.Fatalf("failed to set config file: %v", err)
	}
	if err := s.SetConfigFile(ctx, id, path); !errors.Is(err, util.ErrCollision) {
		t.Errorf("expected ErrCollision for second config, got %v", err)
	}

	got, err := s.GetConfigFile(ctx, id)
	if err != nil {
		t.Fatalf("failed to get config file: %v", err)
	}
	if got != path {
		t.Errorf("expected %s, got %s", path, got)
	}

	// stored relative to the root
	res, err := s.Query(ctx, "SELECT config FROM config WHERE expid = ?", id)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0][0] != "configs/run.yaml" {
		t.Errorf("expected root-relative path, got %v", res.Rows)
	}
}

func testLearningRates(t *testing.T, s ExperimentStore, prefix string) {
	ctx := context.Background()
	id := prefix + "run"

	for _, e := range []int{2, 0, 1} {
		if err := s.AddLearningRate(ctx, id, e, 0.1/float64(e+1)); err != nil {
			t.Fatalf("failed to add learning rate: %v", err)
		}
	}
	if err := s.AddLearningRate(ctx, id, 1, 0.5); !errors.Is(err, util.ErrCollision) {
		t.Errorf("expected ErrCollision for repeated epoch, got %v", err)
	}

	lrs, err := s.GetLearningRates(ctx, id)
	if err != nil {
		t.Fatalf("failed to get learning rates: %v", err)
	}
	if !reflect.DeepEqual(lrs.Epochs, []int{0, 1, 2}) {
		t.Errorf("expected epochs 0..2, got %v", lrs.Epochs)
	}
	if lrs.LRs[0] != 0.1 {
		t.Errorf("expected first rate 0.1, got %v", lrs.LRs[0])
	}
}

func testQualitative(t *testing.T, s ExperimentStore, prefix string) {
	ctx := context.Background()
	id := prefix + "run"

	if _, err := s.GetQualitativeResult(ctx, id, "recon"); !errors.Is(err, util.ErrNoData) {
		t.Fatalf("expected ErrNoData without metadata, got %v", err)
	}

	meta := map[string]any{"xlabel": "t", "ylabel": "x", "yscale": "log"}
	if err := s.AddQualitativeMetadata(ctx, id, "recon", "line", meta); err != nil {
		t.Fatalf("failed to add metadata: %v", err)
	}
	if err := s.AddQualitativeMetadata(ctx, id, "recon", "line", meta); !errors.Is(err, util.ErrCollision) {
		t.Errorf("expected ErrCollision for second metadata, got %v", err)
	}

	output := []float32{1, 2, 3}
	if err := s.AddQualitativeResult(ctx, id, 1, "recon", output, []int8{1, 2, 4}, map[string]any{"note": "first"}); err != nil {
		t.Fatalf("failed to add result: %v", err)
	}
	if err := s.AddQualitativeResult(ctx, id, 1, "recon", []float64{math.NaN()}, nil, nil); err != nil {
		t.Fatalf("failed to add resampled result: %v", err)
	}

	err := s.AddQualitativeResult(ctx, id, 2, "recon", map[string]int{"a": 1}, nil, nil)
	if !errors.Is(err, util.ErrUnsupportedType) {
		t.Errorf("expected ErrUnsupportedType, got %v", err)
	}
	if err := s.AddQualitativeResult(ctx, id, 2, "recon", 1, nil, map[string]any{"epoch": 3}); err == nil {
		t.Error("expected reserved extra field to be rejected")
	}

	res, err := s.GetQualitativeResult(ctx, id, "recon")
	if err != nil {
		t.Fatalf("failed to get result: %v", err)
	}
	if res["kind"] != "line" || res["yscale"] != "log" {
		t.Errorf("expected metadata fields, got %v", res)
	}
	data, ok := res["data"].([]any)
	if !ok || len(data) != 2 {
		t.Fatalf("expected 2 samples, got %v", res["data"])
	}

	first := data[0].(map[string]any)
	if first["epoch"] != 1 || first["note"] != "first" {
		t.Errorf("unexpected first sample %v", first)
	}
	if !reflect.DeepEqual(first["output"], []any{1.0, 2.0, 3.0}) {
		t.Errorf("unexpected output %v", first["output"])
	}
	if !reflect.DeepEqual(first["target"], []any{1.0, 2.0, 4.0}) {
		t.Errorf("unexpected target %v", first["target"])
	}

	second := data[1].(map[string]any)
	if _, ok := second["target"]; ok {
		t.Errorf("nil target should be omitted, got %v", second)
	}
	if !reflect.DeepEqual(second["output"], []any{nil}) {
		t.Errorf("NaN should be stored as null, got %v", second["output"])
	}

	ids, err := s.GetQualitativePlotIDs(ctx, id)
	if err != nil || !reflect.DeepEqual(ids, []string{"recon"}) {
		t.Errorf("expected [recon], got %v, %v", ids, err)
	}
}

func testGroups(t *testing.T, s ExperimentStore, prefix string) {
	ctx := context.Background()
	a, b := prefix+"run_001", prefix+"run_002"
	group := prefix + "modelA"

	for _, id := range []string{a, b, a} {
		if err := s.AddToGroup(ctx, id, group); err != nil {
			t.Fatalf("failed to add to group: %v", err)
		}
	}
	if err := s.AddToGroup(ctx, a, prefix+"arch=resnet;lr=0.1"); err != nil {
		t.Fatalf("failed to add to faceted group: %v", err)
	}

	members, err := s.GetGroup(ctx, group)
	if err != nil {
		t.Fatalf("failed to get group: %v", err)
	}
	if !reflect.DeepEqual(members, []string{a, b}) {
		t.Errorf("expected both experiments once, got %v", members)
	}

	groupsOfA, err := s.GetGroupsOfExp(ctx, a)
	if err != nil {
		t.Fatalf("failed to get groups of exp: %v", err)
	}
	if !reflect.DeepEqual(groupsOfA, []string{group, prefix + "arch=resnet;lr=0.1"}) {
		t.Errorf("expected groups in recording order, got %v", groupsOfA)
	}

	many, err := s.GetGroupsOfManyExps(ctx, []string{a, b})
	if err != nil {
		t.Fatalf("failed to get groups of many: %v", err)
	}
	sort.Strings(many)
	if len(many) != 2 {
		t.Errorf("expected 2 distinct groups, got %v", many)
	}
	if none, err := s.GetGroupsOfManyExps(ctx, nil); err != nil || len(none) != 0 {
		t.Errorf("expected no groups for no ids, got %v, %v", none, err)
	}

	if err := s.RemoveFromGroup(ctx, a, group); err != nil {
		t.Fatalf("failed to remove from group: %v", err)
	}
	members, err = s.GetGroup(ctx, group)
	if err != nil {
		t.Fatalf("failed to get group: %v", err)
	}
	if !reflect.DeepEqual(members, []string{b}) {
		t.Errorf("expected only %s left, got %v", b, members)
	}
}

func testGroupBatch(t *testing.T, s ExperimentStore, prefix string) {
	ctx := context.Background()
	group := prefix + "sweep"
	// composed and decomposed forms name the same group
	composed, decomposed := prefix+"caf\u00e9", prefix+"cafe\u0301"

	members := []Membership{
		{ExpID: prefix + "a", Group: group},
		{ExpID: prefix + "b", Group: group},
		{ExpID: prefix + "c", Group: decomposed},
	}
	if err := s.AddManyToGroup(ctx, members); err != nil {
		t.Fatalf("failed to add many: %v", err)
	}

	got, err := s.GetGroup(ctx, composed)
	if err != nil || !reflect.DeepEqual(got, []string{prefix + "c"}) {
		t.Errorf("expected normalised group lookup, got %v, %v", got, err)
	}

	if err := s.RemoveManyFromGroup(ctx, members[:2]); err != nil {
		t.Fatalf("failed to remove many: %v", err)
	}
	got, err = s.GetGroup(ctx, group)
	if err != nil || len(got) != 0 {
		t.Errorf("expected empty group, got %v, %v", got, err)
	}

	all, err := s.ListGroups(ctx)
	if err != nil {
		t.Fatalf("failed to list groups: %v", err)
	}
	found := false
	for _, g := range all {
		if g == composed {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %q in %v", composed, all)
	}
}

func testListExperiments(t *testing.T, s ExperimentStore, prefix string) {
	ctx := context.Background()
	statuses := map[string]string{
		"a": StatusComplete,
		"b": StatusTraining,
		"c": StatusError,
		"d": StatusCancelled,
		"e": StatusComplete,
	}
	for suffix, status := range statuses {
		if err := s.SetStatus(ctx, prefix+suffix, status); err != nil {
			t.Fatalf("failed to set status: %v", err)
		}
	}
	if err := s.AddToGroup(ctx, prefix+"e", prefix+"best"); err != nil {
		t.Fatalf("failed to add to group: %v", err)
	}
	search := prefix + "%"

	ids := func(rows []ExperimentStatus) []string {
		out := make([]string, len(rows))
		for i, r := range rows {
			out[i] = r.ExpID
		}
		return out
	}

	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{"all", ListFilter{Search: search}, []string{prefix + "a", prefix + "b", prefix + "c", prefix + "d", prefix + "e"}},
		{"completed", ListFilter{Search: search, Statuses: []string{StatusComplete}}, []string{prefix + "a", prefix + "e"}},
		{"failed", ListFilter{Search: search, Statuses: []string{StatusError, StatusCancelled}}, []string{prefix + "c", prefix + "d"}},
		{"recent", ListFilter{Search: search, Limit: 2}, []string{prefix + "d", prefix + "e"}},
		{"group", ListFilter{Group: prefix + "best"}, []string{prefix + "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := s.ListExperiments(ctx, tt.filter)
			if err != nil {
				t.Fatalf("failed to list experiments: %v", err)
			}
			if got := ids(rows); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func testQuery(t *testing.T, s ExperimentStore, prefix string) {
	ctx := context.Background()
	id := prefix + "run"
	mustAddMetric(t, s, id, "acc", 1, 0.5)

	res, err := s.Query(ctx, "SELECT expid, kind FROM metrics WHERE expid = ?", id)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !reflect.DeepEqual(res.Columns, []string{"expid", "kind"}) {
		t.Errorf("unexpected columns %v", res.Columns)
	}
	if len(res.Rows) != 1 || res.Rows[0][0] != id || res.Rows[0][1] != "acc" {
		t.Errorf("unexpected rows %v", res.Rows)
	}
}

func testDeletion(t *testing.T, s ExperimentStore, prefix string) {
	ctx := context.Background()
	id, other := prefix+"run_001", prefix+"run_002"
	root := s.Root()

	for _, exp := range []string{id, other} {
		if err := s.SetStatus(ctx, exp, StatusComplete); err != nil {
			t.Fatalf("failed to set status: %v", err)
		}
		if err := s.AddLoss(ctx, exp, "train", 0, 1.0); err != nil {
			t.Fatalf("failed to add loss: %v", err)
		}
		mustAddMetric(t, s, exp, "RMSE", 0, 0.5)
	}
	if err := s.AddHyperparam(ctx, id, "lr", "0.1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetConfigFile(ctx, id, filepath.Join(root, "c.yaml")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddStateFile(ctx, id, 0, filepath.Join(root, "s.pt"), true); err != nil {
		t.Fatal(err)
	}
	if err := s.AddLearningRate(ctx, id, 0, 0.1); err != nil {
		t.Fatal(err)
	}
	if err := s.AddQualitativeMetadata(ctx, id, "p", "image", nil); err != nil {
		t.Fatal(err)
	}
	if err := s.AddQualitativeResult(ctx, id, 0, "p", []int{1}, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.AddToGroup(ctx, id, prefix+"g"); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteExperiment(ctx, id); err != nil {
		t.Fatalf("failed to delete experiment: %v", err)
	}

	if _, err := s.GetStatus(ctx, id); !errors.Is(err, util.ErrNoData) {
		t.Errorf("status: expected ErrNoData, got %v", err)
	}
	if _, err := s.GetLosses(ctx, id); !errors.Is(err, util.ErrNoData) {
		t.Errorf("losses: expected ErrNoData, got %v", err)
	}
	if latest, err := s.GetLatestMetrics(ctx, id); err != nil || !latest.Empty() {
		t.Errorf("metrics: expected none, got %v, %v", latest, err)
	}
	if _, err := s.GetConfigFile(ctx, id); !errors.Is(err, util.ErrNoData) {
		t.Errorf("config: expected ErrNoData, got %v", err)
	}
	if _, err := s.GetStateFile(ctx, id, 0); !errors.Is(err, util.ErrNoData) {
		t.Errorf("state: expected ErrNoData, got %v", err)
	}
	if _, err := s.GetQualitativeResult(ctx, id, "p"); !errors.Is(err, util.ErrNoData) {
		t.Errorf("qualitative: expected ErrNoData, got %v", err)
	}

	for _, table := range Tables() {
		res, err := s.Query(ctx, "SELECT COUNT(*) FROM "+table+" WHERE expid = ?", id)
		if err != nil {
			t.Fatalf("count on %s failed: %v", table, err)
		}
		if n := toInt(res.Rows[0][0]); n != 0 {
			t.Errorf("expected no rows in %s, got %d", table, n)
		}
	}

	if status, err := s.GetStatus(ctx, other); err != nil || status != StatusComplete {
		t.Errorf("other experiment affected: %q, %v", status, err)
	}
}

func mustAddMetric(t *testing.T, s ExperimentStore, id, kind string, epoch int, value float64) {
	t.Helper()
	if err := s.AddMetric(context.Background(), id, kind, epoch, value); err != nil {
		t.Fatalf("failed to add metric %s: %v", kind, err)
	}
}

func toInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case string:
		var out int64
		for _, c := range n {
			out = out*10 + int64(c-'0')
		}
		return out
	}
	return -1
}
