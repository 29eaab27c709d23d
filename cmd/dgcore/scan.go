package dgcore

import (
	"errors"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/HPNChanel/data-guardian/pkg/client"
)

var (
	scanText       string
	scanPath       string
	scanMaxResults int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan text or a file for sensitive data",
	RunE: func(_ *cobra.Command, _ []string) error {
		if (scanText == "") == (scanPath == "") {
			return errors.New("exactly one of --text or --path is required")
		}
		c, err := dialDaemon()
		if err != nil {
			return err
		}
		defer c.Close()

		var res client.ScanResult
		if scanPath != "" {
			res, err = c.ScanPath(scanPath, scanMaxResults)
		} else {
			res, err = c.ScanText(scanText, scanMaxResults)
		}
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(res)
		}

		if len(res.Detections) == 0 {
			fmt.Println("no sensitive data found")
		} else {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Label", "Span", "Score", "Snippet"})
			for _, d := range res.Detections {
				table.Append([]string{
					d.Label,
					fmt.Sprintf("%d-%d", d.Start, d.End),
					fmt.Sprintf("%.2f", d.Score),
					d.Snippet,
				})
			}
			table.Render()
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(os.Stderr, "warning: detector %s failed: %s\n", w.Detector, w.Message)
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanText, "text", "", "text to scan")
	scanCmd.Flags().StringVar(&scanPath, "path", "", "file to scan")
	scanCmd.Flags().IntVar(&scanMaxResults, "max-results", 0, "truncate the detection list")
	rootCmd.AddCommand(scanCmd)
}
