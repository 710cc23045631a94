package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/franz/mldb/internal/groups"
	"github.com/franz/mldb/internal/store"
)

// Row is one exported experiment: its latest metrics and the facets of its
// primary group.
type Row struct {
	ExpID   string                 `json:"expid"`
	Epoch   int                    `json:"epoch"`
	Facets  map[string]string      `json:"facets"`
	Metrics map[string]store.Float `json:"metrics"`
}

// CollectLatest gathers the latest metrics of each experiment together with
// the facets of its primary group. Experiments that never logged a metric
// are left out. Rows come back sorted by experiment id.
func CollectLatest(ctx context.Context, s store.ExperimentStore, ids []string) ([]Row, error) {
	latest, err := s.GetLatestMetricsOfMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(latest))
	for id, m := range latest {
		names, err := s.GetGroupsOfExp(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get groups of %s: %w", id, err)
		}
		rows = append(rows, Row{
			ExpID:   id,
			Epoch:   m.Epoch,
			Facets:  groups.PrimaryFacets(names),
			Metrics: m.Data,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ExpID < rows[j].ExpID
	})
	return rows, nil
}

// Columns returns the facet keys and metric kinds present in rows, each
// sorted. A facet key that is also a metric kind is reported as a metric.
func Columns(rows []Row) (facetKeys, metricKinds []string) {
	facets := make(map[string]bool)
	metrics := make(map[string]bool)
	for _, r := range rows {
		for k := range r.Facets {
			facets[k] = true
		}
		for k := range r.Metrics {
			metrics[k] = true
		}
	}
	for k := range facets {
		if !metrics[k] {
			facetKeys = append(facetKeys, k)
		}
	}
	for k := range metrics {
		metricKinds = append(metricKinds, k)
	}
	sort.Strings(facetKeys)
	sort.Strings(metricKinds)
	return facetKeys, metricKinds
}

// WriteCSV writes rows as a table with header
// expid,epoch,<facet keys>,<metric kinds>. Cells an experiment has no value
// for are left empty.
func WriteCSV(w io.Writer, rows []Row) error {
	facetKeys, metricKinds := Columns(rows)

	cw := csv.NewWriter(w)
	header := append([]string{"expid", "epoch"}, facetKeys...)
	header = append(header, metricKinds...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range rows {
		record := make([]string, 0, len(header))
		record = append(record, r.ExpID, strconv.Itoa(r.Epoch))
		for _, k := range facetKeys {
			record = append(record, r.Facets[k])
		}
		for _, k := range metricKinds {
			v, ok := r.Metrics[k]
			if !ok {
				record = append(record, "")
				continue
			}
			record = append(record, formatFloat(float64(v)))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", r.ExpID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSONL writes one JSON object per row.
func WriteJSONL(w io.Writer, rows []Row) error {
	encoder := json.NewEncoder(w)
	for _, r := range rows {
		if r.Facets == nil {
			r.Facets = map[string]string{}
		}
		if err := encoder.Encode(r); err != nil {
			return fmt.Errorf("failed to encode row for %s: %w", r.ExpID, err)
		}
	}
	return nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
