package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/franz/mldb/internal/store"
)

// WriteMarkdownSummary writes a single experiment's details, hyperparameters
// and latest metrics as Markdown. params and metrics may be nil.
func WriteMarkdownSummary(w io.Writer, details *store.ExperimentDetails, params map[string]string, metrics *store.LatestMetrics) error {
	if details == nil {
		return fmt.Errorf("no experiment details to summarise")
	}

	var md strings.Builder

	// Header
	md.WriteString(fmt.Sprintf("# Experiment %s\n\n", details.ExpID))
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", details.Status))

	md.WriteString("---\n\n")

	// Hyperparameters
	if len(params) > 0 {
		md.WriteString("## Hyperparameters\n\n")
		md.WriteString("| Name | Value |\n")
		md.WriteString("|------|-------|\n")
		for _, name := range sortedKeys(params) {
			md.WriteString(fmt.Sprintf("| %s | %s |\n", escapeCell(name), escapeCell(params[name])))
		}
		md.WriteString("\n")
	}

	// Losses
	if len(details.Losses) > 0 {
		md.WriteString("## Losses\n\n")
		md.WriteString("| Kind | Epochs | Last | Best |\n")
		md.WriteString("|------|--------|------|------|\n")
		for _, kind := range sortedKeys(details.Losses) {
			series := details.Losses[kind]
			last, best := lastAndMin(series.Loss)
			md.WriteString(fmt.Sprintf("| %s | %d | %s | %s |\n",
				escapeCell(kind), len(series.Epoch), formatValue(last), formatValue(best)))
		}
		md.WriteString("\n")
	}

	// Learning rate
	if details.LRs != nil && len(details.LRs.LRs) > 0 {
		n := len(details.LRs.LRs)
		md.WriteString("## Learning Rate\n\n")
		md.WriteString(fmt.Sprintf("- **Current:** %s (epoch %d)\n",
			formatValue(float64(details.LRs.LRs[n-1])), details.LRs.Epochs[n-1]))
		md.WriteString(fmt.Sprintf("- **Initial:** %s\n\n", formatValue(float64(details.LRs.LRs[0]))))
	}

	// Metrics
	if !metrics.Empty() {
		md.WriteString(fmt.Sprintf("## Latest Metrics (epoch %d)\n\n", metrics.Epoch))
		md.WriteString("| Metric | Value |\n")
		md.WriteString("|--------|-------|\n")
		for _, kind := range sortedKeys(metrics.Data) {
			md.WriteString(fmt.Sprintf("| %s | %s |\n", escapeCell(kind), formatValue(float64(metrics.Data[kind]))))
		}
		md.WriteString("\n")
	}

	if _, err := io.WriteString(w, md.String()); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// lastAndMin returns the last sample and the smallest non-NaN sample.
func lastAndMin(values []store.Float) (last, best float64) {
	last, best = math.NaN(), math.NaN()
	for _, v := range values {
		f := float64(v)
		last = f
		if math.IsNaN(f) {
			continue
		}
		if math.IsNaN(best) || f < best {
			best = f
		}
	}
	return last, best
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.6g", v)
}

// escapeCell keeps a value from breaking the table layout
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
