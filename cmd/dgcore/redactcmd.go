package dgcore

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	redactText   string
	redactPath   string
	redactOutput string
)

var redactCmd = &cobra.Command{
	Use:   "redact",
	Short: "Redact text or a file under the active policy",
	RunE: func(_ *cobra.Command, _ []string) error {
		if (redactText == "") == (redactPath == "") {
			return errors.New("exactly one of --text or --path is required")
		}
		c, err := dialDaemon()
		if err != nil {
			return err
		}
		defer c.Close()

		if redactPath != "" {
			res, err := c.RedactFile(redactPath, redactOutput)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(res)
			}
			fmt.Printf("redacted %d detections into %s\n", len(res.Detections), res.OutputPath)
			return nil
		}

		res, err := c.RedactText(redactText)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(res)
		}
		fmt.Println(res.Output)
		return nil
	},
}

func init() {
	redactCmd.Flags().StringVar(&redactText, "text", "", "text to redact")
	redactCmd.Flags().StringVar(&redactPath, "path", "", "file to redact")
	redactCmd.Flags().StringVar(&redactOutput, "output", "", "where to write the redacted file")
	rootCmd.AddCommand(redactCmd)
}
