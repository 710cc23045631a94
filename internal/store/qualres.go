package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/franz/mldb/internal/sanitise"
)

// AddQualitativeMetadata records the descriptor of a qualitative plot as
// {"kind": kind, ...meta}. It must be set once before results make sense.
func (s *sqlStore) AddQualitativeMetadata(ctx context.Context, id, plotID, kind string, meta map[string]any) error {
	value, err := encodeQualitativeMetadata(kind, meta)
	if err != nil {
		return fmt.Errorf("plot %q of %s: %w", plotID, experiment(id), err)
	}
	return s.AddQualitativeMetadataJSON(ctx, id, plotID, value)
}

// AddQualitativeMetadataJSON records an already encoded descriptor, which
// must be a JSON object.
func (s *sqlStore) AddQualitativeMetadataJSON(ctx context.Context, id, plotID, value string) error {
	if err := checkJSONObject(value); err != nil {
		return fmt.Errorf("metadata of plot %q: %w", plotID, err)
	}
	err := s.conn.RunAndCommit(ctx, Stmt(
		"INSERT INTO qualitativeresultsmeta (expid, plotid, value) VALUES (?, ?, ?)", id, plotID, value))
	if err != nil {
		return fmt.Errorf("failed to add metadata of plot %q for %s: %w", plotID, experiment(id), err)
	}
	return nil
}

// AddQualitativeResult appends one sample to a qualitative plot. Output,
// target and extra fields are sanitised into JSON-safe values; a nil target
// is omitted. Samples accumulate, repeated epochs included.
func (s *sqlStore) AddQualitativeResult(ctx context.Context, id string, epoch int, plotID string, output, target any, extra map[string]any) error {
	value, err := encodeQualitativeResult(output, target, extra)
	if err != nil {
		return fmt.Errorf("plot %q of %s at epoch %d: %w", plotID, experiment(id), epoch, err)
	}
	return s.AddQualitativeResultJSON(ctx, id, epoch, plotID, value)
}

// AddQualitativeResultJSON appends an already encoded sample, which must be
// a JSON object.
func (s *sqlStore) AddQualitativeResultJSON(ctx context.Context, id string, epoch int, plotID, value string) error {
	if err := checkJSONObject(value); err != nil {
		return fmt.Errorf("result of plot %q: %w", plotID, err)
	}
	err := s.conn.RunAndCommit(ctx, Stmt(
		"INSERT INTO qualitativeresults (expid, epoch, plotid, value) VALUES (?, ?, ?, ?)",
		id, epoch, plotID, value))
	if err != nil {
		return fmt.Errorf("failed to add result of plot %q at epoch %d for %s: %w", plotID, epoch, experiment(id), err)
	}
	return nil
}

// GetQualitativeResult returns the plot descriptor with every sample under
// "data", each as {"epoch": epoch, ...payload}.
func (s *sqlStore) GetQualitativeResult(ctx context.Context, id, plotID string) (map[string]any, error) {
	identity := fmt.Sprintf("plot %q of %s", plotID, experiment(id))

	var metas []string
	err := s.conn.RunAndFetch(ctx, &metas,
		"SELECT value FROM qualitativeresultsmeta WHERE expid = ? AND plotid = ?", id, plotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata of %s: %w", identity, err)
	}
	switch len(metas) {
	case 0:
		return nil, &NoDataError{Table: "qualitativeresultsmeta", Identity: identity}
	case 1:
	default:
		return nil, &IntegrityError{Table: "qualitativeresultsmeta", Identity: identity, Expected: 1, Got: len(metas)}
	}

	var rows []struct {
		Epoch int    `db:"epoch"`
		Value string `db:"value"`
	}
	err = s.conn.RunAndFetch(ctx, &rows,
		"SELECT epoch, value FROM qualitativeresults WHERE expid = ? AND plotid = ? ORDER BY epoch", id, plotID)
	if err != nil {
		return nil, fmt.Errorf("failed to get results of %s: %w", identity, err)
	}

	return decodeQualitativeResult(metas[0], len(rows), func(i int) (int, string) {
		return rows[i].Epoch, rows[i].Value
	})
}

// GetQualitativePlotIDs lists the plots of an experiment that have a
// descriptor.
func (s *sqlStore) GetQualitativePlotIDs(ctx context.Context, id string) ([]string, error) {
	var ids []string
	err := s.conn.RunAndFetch(ctx, &ids,
		"SELECT plotid FROM qualitativeresultsmeta WHERE expid = ? ORDER BY plotid", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get plot ids of %s: %w", experiment(id), err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func encodeQualitativeMetadata(kind string, meta map[string]any) (string, error) {
	if _, ok := meta["kind"]; ok {
		return "", fmt.Errorf("metadata field %q is reserved", "kind")
	}
	clean, err := sanitise.Fields(meta)
	if err != nil {
		return "", err
	}
	clean["kind"] = kind

	enc, err := json.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(enc), nil
}

func encodeQualitativeResult(output, target any, extra map[string]any) (string, error) {
	for _, key := range []string{"epoch", "output", "target"} {
		if _, ok := extra[key]; ok {
			return "", fmt.Errorf("extra field %q is reserved", key)
		}
	}

	payload, err := sanitise.Fields(extra)
	if err != nil {
		return "", err
	}
	if payload["output"], err = sanitise.Value(output); err != nil {
		return "", fmt.Errorf("output: %w", err)
	}
	if target != nil {
		if payload["target"], err = sanitise.Value(target); err != nil {
			return "", fmt.Errorf("target: %w", err)
		}
	}

	enc, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(enc), nil
}

func decodeQualitativeResult(meta string, n int, row func(int) (int, string)) (map[string]any, error) {
	var result map[string]any
	if err := json.Unmarshal([]byte(meta), &result); err != nil {
		return nil, fmt.Errorf("corrupt plot metadata: %w", err)
	}
	if result == nil {
		result = map[string]any{}
	}

	data := make([]any, 0, n)
	for i := 0; i < n; i++ {
		epoch, value := row(i)
		var sample map[string]any
		if err := json.Unmarshal([]byte(value), &sample); err != nil {
			return nil, fmt.Errorf("corrupt result at epoch %d: %w", epoch, err)
		}
		if sample == nil {
			sample = map[string]any{}
		}
		sample["epoch"] = epoch
		data = append(data, sample)
	}
	result["data"] = data
	return result, nil
}

func checkJSONObject(value string) error {
	var obj map[string]any
	if err := json.Unmarshal([]byte(value), &obj); err != nil {
		return fmt.Errorf("value is not a JSON object: %w", err)
	}
	if obj == nil {
		return fmt.Errorf("value is not a JSON object: null")
	}
	return nil
}
