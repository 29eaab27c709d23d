package dgcore

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HPNChanel/data-guardian/internal/types"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Stream the daemon's log events",
	RunE: func(_ *cobra.Command, _ []string) error {
		c, err := dialDaemon()
		if err != nil {
			return err
		}
		defer c.Close()

		return c.TailLogs(func(e types.LogEvent) bool {
			if flagJSON {
				raw, err := json.Marshal(e)
				if err != nil {
					return true
				}
				fmt.Println(string(raw))
				return true
			}
			fmt.Printf("%s %-5s [%s] %s", e.TS.Format("15:04:05.000"), e.Level, e.Component, e.Msg)
			for k, v := range e.Extra {
				fmt.Printf(" %s=%v", k, v)
			}
			fmt.Println()
			return true
		})
	},
}

func init() {
	rootCmd.AddCommand(tailCmd)
}
