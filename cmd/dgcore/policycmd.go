package dgcore

import (
	"fmt"

	"github.com/spf13/cobra"
)

var policyTestText string

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Load or preview redaction policies",
}

var policyLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Install a policy file as the daemon's active policy",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := dialDaemon()
		if err != nil {
			return err
		}
		defer c.Close()

		res, err := c.LoadPolicyFile(args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(res)
		}
		fmt.Printf("policy %q active (%d rules)\n", res.Name, res.Rules)
		return nil
	},
}

var policyTestCmd = &cobra.Command{
	Use:   "test <file>",
	Short: "Preview a policy against sample text without installing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		c, err := dialDaemon()
		if err != nil {
			return err
		}
		defer c.Close()

		res, err := c.TestPolicyFile(args[0], policyTestText)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(res)
		}
		fmt.Printf("policy %q\n", res.Name)
		for _, d := range res.Decisions {
			fmt.Printf("  %-24s %-6s %s\n", d.Detector, d.Action, d.Reason)
		}
		fmt.Println(res.Output)
		return nil
	},
}

func init() {
	policyTestCmd.Flags().StringVar(&policyTestText, "text", "", "sample text to evaluate")
	policyCmd.AddCommand(policyLoadCmd, policyTestCmd)
	rootCmd.AddCommand(policyCmd)
}
