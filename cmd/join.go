package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/config"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// hostJoiner implements cluster.Joiner: it POSTs this host's own config to
// a master's /api/cluster and caches the response, the master's current
// full membership table, so a later rejoin or serve invocation can find the
// master's address again without the operator re-supplying it.
type hostJoiner struct {
	Host     types.ClusterHostConfig
	Provider config.Provider
}

func (j *hostJoiner) PostJoin(ctx context.Context, masterIP string) error {
	body, err := json.Marshal(j.Host)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s:3000/api/cluster", masterIP)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("posting join request to %s: %w", masterIP, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := ioutil.ReadAll(resp.Body)
		return fmt.Errorf("master rejected join: %s: %s", resp.Status, respBody)
	}

	var cfg types.TestbedClusterConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return fmt.Errorf("decoding master's cluster config: %w", err)
	}

	return j.Provider.SetClusterConfig(&cfg)
}

func newJoinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join <master-ip>",
		Short: "Register this host with a running cluster master",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			masterIP := args[0]

			provider := config.NewFileProvider(baseDir)

			host := types.ClusterHostConfig{
				Name:       MustGetString(cmd.Flags(), "name"),
				Username:   MustGetString(cmd.Flags(), "user"),
				IP:         MustGetString(cmd.Flags(), "ip"),
				TestbedNIC: MustGetString(cmd.Flags(), "nic"),
			}

			joiner := &hostJoiner{Host: host, Provider: provider}
			if err := joiner.PostJoin(cmd.Context(), masterIP); err != nil {
				return err
			}

			if err := provider.SetHostConfig(&host); err != nil {
				return fmt.Errorf("saving host config: %w", err)
			}
			if err := provider.SetMode(config.ModeClient); err != nil {
				return fmt.Errorf("saving mode: %w", err)
			}

			fmt.Printf("%s joined cluster at %s\n", host.Name, masterIP)
			return nil
		},
	}

	cmd.Flags().String("name", "", "this host's name within the cluster")
	cmd.Flags().String("user", "", "SSH username the master uses to reach this host")
	cmd.Flags().String("ip", "", "this host's IP address, reachable from the master")
	cmd.Flags().String("nic", "", "this host's testbed-facing NIC")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("ip")

	return cmd
}

func init() {
	rootCmd.AddCommand(newJoinCmd())
}
