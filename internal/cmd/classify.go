package cmd

import (
	"encoding/json"
	"io"

	"github.com/atikulmunna/lognorm/internal/model"
	"github.com/atikulmunna/lognorm/internal/source"
	"github.com/spf13/cobra"
)

var classifyWithFormat bool

var classifyCmd = &cobra.Command{
	Use:   "classify [lines...]",
	Short: "Classify lines given as arguments or on stdin",
	Long: `Classify prints one JSON record per input line, {} when the line
matches no known format. Without arguments lines are read from stdin.

Examples:
  lognorm classify 'E0714 23:11:19.386396       1 main.go:70] disk full'
  kubectl logs deploy/operator | lognorm classify --with-format`,
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().BoolVar(&classifyWithFormat, "with-format", false, "wrap each record as {\"format\":...,\"record\":...}")
}

func runClassify(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = rt.log.Sync() }()

	enc := json.NewEncoder(cmd.OutOrStdout())
	sink := rt.log.Sugar()
	emit := func(line string) error {
		rec, format := rt.registry.ClassifyFormat(line, sink)
		if classifyWithFormat {
			return enc.Encode(struct {
				Format model.Format `json:"format"`
				Record model.Record `json:"record"`
			}{format, rec})
		}
		return enc.Encode(rec)
	}

	if len(args) > 0 {
		for _, line := range args {
			if err := emit(line); err != nil {
				return err
			}
		}
		return nil
	}
	return classifyReader(cmd, cmd.InOrStdin(), emit)
}

func classifyReader(cmd *cobra.Command, r io.Reader, emit func(string) error) error {
	return source.Scan(cmd.Context(), r, "stdin", func(raw model.RawLine) error {
		return emit(raw.Text)
	})
}
