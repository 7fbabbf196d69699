package cmd

import (
	"fmt"

	"github.com/phux/apiverify/app"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list the scenarios of a suite, honoring --run and --skip",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		suite, err := loadSuite(cfg)
		if err != nil {
			return err
		}
		if err := suite.Validate(app.NewPathExpander()); err != nil {
			return err
		}

		for _, scenario := range suite.Scenarios {
			if !filters.AsFilter(scenario.Name) {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d steps)\n", scenario.Name, len(scenario.Steps))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
