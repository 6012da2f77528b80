package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/store"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/util"
)

func newDeploymentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deployment",
		Short:   "Deployment management",
		Aliases: []string{"deployments"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newDeploymentListCmd())

	return cmd
}

func newDeploymentListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Table of known deployments",
		RunE: func(cmd *cobra.Command, args []string) error {
			storePath := MustGetString(cmd.Flags(), "store")
			if storePath == "" {
				storePath = filepath.Join(baseDir, "deployments.bdb")
			}

			db := store.NewBoltDB()
			if err := db.Init(store.Path(storePath)); err != nil {
				return err
			}
			defer db.Close()

			deployments, err := db.ListDeployments()
			if err != nil {
				return err
			}

			return util.PrintTableOfDeployments(os.Stdout, deployments)
		},
	}

	cmd.Flags().String("store", "", "path to the deployment store file (defaults under --base-dir)")

	return cmd
}

func init() {
	rootCmd.AddCommand(newDeploymentCmd())
}
