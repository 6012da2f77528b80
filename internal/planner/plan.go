package planner

import (
	"fmt"
	"time"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// Plan runs the full planner pipeline over a validated Config: clone
// expansion, guest parsing, load balancing, network derivation, and
// specialisation, producing the State a deployment persists and the
// stage driver then brings up.
func Plan(cfg types.Config, cluster types.TestbedClusterConfig, project, workingDir string) (*types.State, error) {
	if err := types.ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if err := ExpandClones(&cfg); err != nil {
		return nil, fmt.Errorf("expanding clones: %w", err)
	}

	guests, err := BuildGuests(&cfg)
	if err != nil {
		return nil, fmt.Errorf("building guests: %w", err)
	}

	var hosts types.ClusterHosts
	for _, h := range cluster.Hosts {
		hosts = append(hosts, h)
	}
	if err := AssignHosts(guests, hosts); err != nil {
		return nil, fmt.Errorf("assigning hosts: %w", err)
	}

	guestHosts := make(map[string]string, len(guests))
	isGolden := make(map[string]bool, len(guests))
	for _, g := range guests {
		guestHosts[g.Name] = g.TestbedHost
		isGolden[g.Name] = g.IsGoldenImage
	}

	network, err := DeriveNetwork(cfg.Network, cfg.Machines, guestHosts, isGolden, project)
	if err != nil {
		return nil, fmt.Errorf("deriving network: %w", err)
	}

	testbedHosts := make(map[string]types.TestbedHost, len(cluster.Hosts))
	for name, h := range cluster.Hosts {
		testbedHosts[name] = types.TestbedHost{
			Username:              h.Username,
			IP:                    h.IP,
			TestbedNIC:            h.TestbedNIC,
			IsMasterHost:          h.IsMasterHost,
			SSHPrivateKeyLocation: cluster.SSHPrivateKey,
		}
	}

	if err := Specialise(guests, testbedHosts, project, workingDir); err != nil {
		return nil, fmt.Errorf("specialising guests: %w", err)
	}

	return &types.State{
		ProjectName:       project,
		CreationDate:      timeNow(),
		ProjectWorkingDir: workingDir,
		TestbedHosts:      testbedHosts,
		TestbedGuests:     guests,
		Network:           *network,
	}, nil
}

// timeNow is a seam so tests can pin the deployment's creation timestamp;
// the daemon itself only ever calls Plan once per `up`.
var timeNow = time.Now
