package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/phux/apiverify/cluster"
	"github.com/phux/apiverify/logging"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

var (
	kubectl            cluster.Kubectl
	replicationControl string
	podSelector        string
	minPods            int
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "check that the service under test is deployed before running a suite",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replicationControl == "" && podSelector == "" {
			return errors.New(`at least one of "rc" or "selector" must be set`)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger := logging.New(cfg.Logging, nil)
		defer func() { _ = logger.Sync() }()
		logger.Debug("checking cluster", zap.Stringer("kubectl", kubectl))

		checker := cluster.NewChecker(kubectl, logger)

		if replicationControl != "" {
			if err := checker.ReplicationControllerExists(cmd.Context(), replicationControl); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replicationcontroller %s exists\n", replicationControl)
		}

		if podSelector != "" {
			pods, err := checker.RunningPods(cmd.Context(), podSelector, minPods)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d running pods for %s: %s\n",
				len(pods), podSelector, strings.Join(pods, ", "))
		}

		return nil
	},
}

func init() {
	clusterCmd.Flags().StringVar(&kubectl.Kubeconfig, "kubeconfig", "", "[optional] path to the kubeconfig file")
	clusterCmd.Flags().StringVar(&kubectl.Context, "context", "", "[optional] kubernetes context name")
	clusterCmd.Flags().StringVarP(&kubectl.Namespace, "namespace", "n", "", "[optional] namespace of the service")
	clusterCmd.Flags().StringVar(&replicationControl, "rc", "", "replication controller that must exist")
	clusterCmd.Flags().StringVarP(&podSelector, "selector", "l", "", "label selector of the pods that must be running")
	clusterCmd.Flags().IntVar(&minPods, "minPods", 1, "minimum number of running pods")
	rootCmd.AddCommand(clusterCmd)
}
