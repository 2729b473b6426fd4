package cmd

import (
	"fmt"
	"io"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/baihaki00/sentra-sub000/api/schemas"
	"github.com/baihaki00/sentra-sub000/internal/kernel"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	formatText = "text"
	formatYAML = "yaml"
	formatJSON = "json"
)

func newStatsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory and learning statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()
			return writeStats(cmd.OutOrStdout(), s.kernel.Stats(), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, yaml or json")
	return cmd
}

func writeStats(w io.Writer, st kernel.Stats, format string) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(st); err != nil {
			return fmt.Errorf("failed to encode stats: %w", err)
		}
		return enc.Close()
	case formatJSON:
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode stats: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case formatText, "":
		return writeStatsText(w, st)
	default:
		return fmt.Errorf("unknown format '%s'", format)
	}
}

func writeStatsText(w io.Writer, st kernel.Stats) error {
	fmt.Fprintf(w, "nodes:        %d (%d active)\n", st.Graph.Nodes, st.Graph.ActiveNodes)
	fmt.Fprintf(w, "edges:        %d (mean weight %.2f)\n", st.Graph.Edges, st.Graph.MeanWeight)
	fmt.Fprintf(w, "beliefs:      %d\n", st.Graph.Beliefs)
	fmt.Fprintf(w, "examples:     %d\n", st.Examples)
	fmt.Fprintf(w, "families:     %d\n", st.Families)
	fmt.Fprintf(w, "interactions: %d (%d rewarded, %d penalized)\n",
		st.Reflection.Interactions, st.Reflection.Successes, st.Reflection.Failures)
	fmt.Fprintf(w, "reflections:  %d\n", st.Reflection.Reflections)
	fmt.Fprintf(w, "adequacy:     %.2f over %d responses\n", st.Expectation.MeanAdequacy, st.Expectation.Total)

	kinds := make([]string, 0, len(st.Graph.NodesByKind))
	for kind := range st.Graph.NodesByKind {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(w, "  %-10s %d\n", kind, st.Graph.NodesByKind[schemas.NodeKind(kind)])
	}
	_, err := fmt.Fprintf(w, "unsaved:      %t\n", st.Dirty)
	return err
}
