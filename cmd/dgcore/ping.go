package dgcore

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the daemon is running",
	RunE: func(_ *cobra.Command, _ []string) error {
		c, err := dialDaemon()
		if err != nil {
			return err
		}
		defer c.Close()

		res, err := c.Ping()
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(res)
		}
		fmt.Printf("daemon up, version %s\n", res.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
