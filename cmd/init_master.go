package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/cluster"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/config"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// newInitMasterCmd bootstraps a bare host into a brand new cluster's
// master: it generates the cluster-wide SSH keypair every exec.Executor
// call authenticates with, and writes out this host's own mode/host/
// cluster config files so a subsequent `serve` finds a master already
// configured.
func newInitMasterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init-master",
		Short: "Bootstrap this host as a new cluster's master",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := config.NewFileProvider(baseDir)

			if _, err := provider.GetMode(); err == nil {
				return fmt.Errorf("this host is already configured; remove %s to start over", baseDir)
			}

			name := MustGetString(cmd.Flags(), "name")
			ip := MustGetString(cmd.Flags(), "ip")
			nic := MustGetString(cmd.Flags(), "nic")

			privatePEM, publicKey, err := cluster.GenerateKeyPair(2048)
			if err != nil {
				return fmt.Errorf("generating cluster keypair: %w", err)
			}

			host := types.ClusterHostConfig{
				Name:         name,
				IP:           ip,
				TestbedNIC:   nic,
				IsMasterHost: true,
			}

			clusterCfg := &types.TestbedClusterConfig{
				Hosts:         map[string]types.ClusterHostConfig{name: host},
				SSHPublicKey:  publicKey,
				SSHPrivateKey: privatePEM,
			}

			if err := provider.SetHostConfig(&host); err != nil {
				return fmt.Errorf("saving host config: %w", err)
			}
			if err := provider.SetClusterConfig(clusterCfg); err != nil {
				return fmt.Errorf("saving cluster config: %w", err)
			}
			if err := provider.SetMode(config.ModeMaster); err != nil {
				return fmt.Errorf("saving mode: %w", err)
			}

			fmt.Printf("%s initialized as cluster master\n", name)
			return nil
		},
	}

	cmd.Flags().String("name", "", "this host's name within the cluster")
	cmd.Flags().String("ip", "", "this host's IP address, reachable from every other member")
	cmd.Flags().String("nic", "", "this host's testbed-facing NIC")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("ip")

	return cmd
}

func init() {
	rootCmd.AddCommand(newInitMasterCmd())
}
