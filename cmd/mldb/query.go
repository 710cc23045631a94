package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/franz/mldb/internal/store"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query <sql> [arg...]",
	Short: "Run a SQL statement against the database",
	Long: `Run SQL as is and print the result. Use ? for parameters; they are
rewritten for the configured backend and passed separately.

Nothing is checked: this is for operators who know the schema.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)

	queryCmd.Flags().Bool("json", false, "print JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	params := make([]any, 0, len(args)-1)
	for _, a := range args[1:] {
		params = append(params, a)
	}

	return withStore(cmd.Context(), func(s store.ExperimentStore) error {
		result, err := s.Query(cmd.Context(), args[0], params...)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		if len(result.Columns) == 0 {
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.ToUpper(strings.Join(result.Columns, "\t")))
		for _, row := range result.Rows {
			cells := make([]string, len(row))
			for i, v := range row {
				if v == nil {
					cells[i] = "NULL"
					continue
				}
				cells[i] = fmt.Sprint(v)
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		return tw.Flush()
	})
}
