package dgcore

import (
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/HPNChanel/data-guardian/internal/detect"
)

var detectorsCmd = &cobra.Command{
	Use:   "detectors",
	Short: "List the builtin detectors",
	RunE: func(_ *cobra.Command, _ []string) error {
		names := detect.NewRegistry().Names()
		if flagJSON {
			return printJSON(names)
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Detector", "Category"})
		for _, name := range names {
			category, _, _ := strings.Cut(name, ".")
			table.Append([]string{name, category})
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectorsCmd)
}
