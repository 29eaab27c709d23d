package dgcore

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon counters",
	RunE: func(_ *cobra.Command, _ []string) error {
		c, err := dialDaemon()
		if err != nil {
			return err
		}
		defer c.Close()

		res, err := c.Status()
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(res)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Field", "Value"})
		table.Append([]string{"ok", fmt.Sprint(res.OK)})
		table.Append([]string{"uptime", (time.Duration(res.Uptime * float64(time.Second))).Round(time.Second).String()})
		table.Append([]string{"requests", fmt.Sprint(res.Requests)})
		table.Append([]string{"connections", fmt.Sprint(res.Connections)})
		table.Append([]string{"log subscribers", fmt.Sprint(res.LogSubscribers)})
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
