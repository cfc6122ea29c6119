package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var formatsOutput string

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List the recognizer chain in evaluation order",
	Long: `Formats lists the recognizers in the order they are tried: the
built-in klog, logr and logrus shapes followed by any custom formats from
the config file. Lines matching none of them fall back to JSON.`,
	Args: cobra.NoArgs,
	RunE: runFormats,
}

func init() {
	rootCmd.AddCommand(formatsCmd)
	formatsCmd.Flags().StringVarP(&formatsOutput, "output", "o", "text", "output format: text, json")
}

var styleFormatName = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))

func runFormats(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}

	type row struct {
		Name    string `json:"name"`
		Format  string `json:"format"`
		Pattern string `json:"pattern"`
	}
	var rows []row
	for _, r := range rt.registry.Recognizers() {
		rows = append(rows, row{Name: r.Name(), Format: r.Format().String(), Pattern: r.Pattern()})
	}
	rows = append(rows, row{Name: "json", Format: "json", Pattern: "(any JSON object)"})

	out := cmd.OutOrStdout()
	if formatsOutput == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	for i, r := range rows {
		if _, err := fmt.Fprintf(out, "%d. %s\n   %s\n", i+1, styleFormatName.Render(r.Name), r.Pattern); err != nil {
			return err
		}
	}
	return nil
}
