package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/config"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/util"
)

func newClusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster membership",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newClusterListCmd())

	return cmd
}

func newClusterListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Table of this host's cached view of the cluster's members",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := config.NewFileProvider(baseDir)

			cfg, err := provider.GetClusterConfig()
			if err != nil {
				return err
			}

			var hosts types.ClusterHosts
			for _, h := range cfg.Hosts {
				hosts = append(hosts, h)
			}
			hosts.SortByCommit()

			return util.PrintTableOfHosts(os.Stdout, hosts)
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(newClusterCmd())
}
