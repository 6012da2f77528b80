package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/activeshadow/libminimega/minilog"
	"github.com/spf13/cobra"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/cluster"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/config"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/exec"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/web"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/store"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run this host's API server, as master or client per its saved mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			storePath := MustGetString(cmd.Flags(), "store")
			if storePath == "" {
				storePath = filepath.Join(baseDir, "deployments.bdb")
			}
			mainInterface := MustGetString(cmd.Flags(), "main-interface")
			return serve(cmd.Context(), storePath, mainInterface)
		},
	}

	cmd.Flags().String("store", "", "path to the deployment store file (master only; defaults under --base-dir)")
	cmd.Flags().String("main-interface", "eth0", "this host's externally-routable NIC")

	return cmd
}

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func serve(ctx context.Context, storePath, mainInterface string) error {
	// internal/web registers its own endpoint/CORS flags on the stdlib flag
	// package; parse them here since cobra never touches flag.CommandLine.
	flag.Parse()

	provider := config.NewFileProvider(baseDir)

	mode, err := provider.GetMode()
	if err != nil {
		return fmt.Errorf("host not configured yet; run 'testbedos init-master' or 'testbedos join' first: %w", err)
	}

	host, err := provider.GetHostConfig()
	if err != nil {
		return fmt.Errorf("reading this host's own config: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &web.Server{
		Config:        provider,
		MainInterface: mainInterface,
	}

	switch mode {
	case config.ModeMaster:
		return serveMaster(sigCtx, provider, host, storePath, mainInterface, srv)
	case config.ModeClient:
		return serveClient(sigCtx, provider, host, mainInterface, srv)
	default:
		return fmt.Errorf("unknown mode %q in mode.json", mode)
	}
}

func serveMaster(ctx context.Context, provider config.Provider, host *types.ClusterHostConfig, storePath, mainInterface string, srv *web.Server) error {
	clusterCfg, err := provider.GetClusterConfig()
	if err != nil {
		return fmt.Errorf("reading cluster config: %w", err)
	}

	keyPath := filepath.Join(baseDir, "cluster_id_rsa")
	if err := os.WriteFile(keyPath, []byte(clusterCfg.SSHPrivateKey), 0600); err != nil {
		return fmt.Errorf("writing cluster private key: %w", err)
	}

	manager := cluster.NewManager(clusterCfg)
	manager.Persist = provider.SetClusterConfig

	db := store.NewBoltDB()
	if err := db.Init(store.Path(storePath)); err != nil {
		return fmt.Errorf("opening deployment store: %w", err)
	}
	defer db.Close()

	srv.Store = db
	srv.Cluster = manager
	srv.NewExecutor = func(master string, hosts map[string]types.TestbedHost) *exec.Executor {
		if hosts != nil {
			return exec.New(master, hosts)
		}
		return manager.Executor(master, keyPath)
	}

	ex := manager.Executor(host.Name, keyPath)
	if err := cluster.ConfigureHost(ctx, ex, *host, mainInterface); err != nil {
		log.Warn("configuring master host: %v", err)
	}

	monitor := &cluster.MasterMonitor{Manager: manager}
	monitor.Start(ctx)
	defer monitor.Stop()

	log.Info("testbedos: running as cluster master (%s)", host.Name)
	return web.Start(srv.Router())
}

func serveClient(ctx context.Context, provider config.Provider, host *types.ClusterHostConfig, mainInterface string, srv *web.Server) error {
	clusterCfg, err := provider.GetClusterConfig()
	if err != nil {
		return fmt.Errorf("reading cached cluster config (has this host joined yet?): %w", err)
	}

	master, ok := masterOf(*clusterCfg)
	if !ok {
		return fmt.Errorf("cached cluster config names no master")
	}

	ex := exec.New(host.Name, map[string]types.TestbedHost{
		host.Name: {
			Username:     host.Username,
			IP:           host.IP,
			TestbedNIC:   host.TestbedNIC,
			IsMasterHost: false,
		},
	})
	if err := cluster.ConfigureHost(ctx, ex, *host, mainInterface); err != nil {
		log.Warn("configuring client host: %v", err)
	}

	rejoin := &cluster.ClientRejoin{
		MasterIP: master.IP,
		Self:     &hostJoiner{Host: *host, Provider: provider},
	}
	rejoin.Start(ctx, host.Name)
	defer rejoin.Stop()

	log.Info("testbedos: running as cluster client (%s, master %s)", host.Name, master.IP)
	return web.Start(srv.ClientOnly())
}

// masterOf finds the master's own entry within a cluster config, the same
// lookup internal/web's JoinCluster handler does server-side.
func masterOf(cfg types.TestbedClusterConfig) (types.ClusterHostConfig, bool) {
	for _, h := range cfg.Hosts {
		if h.IsMasterHost {
			return h, true
		}
	}
	return types.ClusterHostConfig{}, false
}
