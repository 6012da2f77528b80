package cluster

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	log "github.com/activeshadow/libminimega/minilog"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/exec"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// ConfigureHostOVN brings one host's local OVS/OVN services up, creates its
// declared external bridges, and (master only) wires in the NAT/forward
// rules those bridges need to reach the uplink interface.
func ConfigureHostOVN(ctx context.Context, ex *exec.Executor, host string, ovn types.OvnHostConfig, mainInterface string, isMaster bool) error {
	log.Info("cluster: bringing up OVS on %s as chassis %s", host, ovn.ChassisName)
	systemID := fmt.Sprintf("--system-id=%s", ovn.ChassisName)
	if _, err := ex.Run(ctx, host, []string{"sudo", "/usr/local/share/openvswitch/scripts/ovs-ctl", "start", systemID}, exec.AllowFail()); err != nil {
		return err
	}

	if _, err := ex.Run(ctx, host, []string{"sudo", "/usr/local/share/ovn/scripts/ovn-ctl", "start_controller"}, exec.AllowFail()); err != nil {
		return err
	}

	if isMaster {
		if _, err := ex.Run(ctx, host, []string{"sudo", "/usr/local/share/ovn/scripts/ovn-ctl", "start_northd"}, exec.AllowFail()); err != nil {
			return err
		}
	}

	for _, bm := range ovn.BridgeMappings {
		if err := ensureExternalBridge(ctx, ex, host, bm, mainInterface, isMaster); err != nil {
			return err
		}
	}

	return setOVSExternalIDs(ctx, ex, host, ovn)
}

func ensureExternalBridge(ctx context.Context, ex *exec.Executor, host string, bm types.BridgeMapping, mainInterface string, isMaster bool) error {
	log.Info("cluster: ensuring external bridge %s exists on %s", bm.Bridge, host)
	if _, err := ex.Run(ctx, host, []string{"sudo", "ovs-vsctl", "--may-exist", "add-br", bm.Bridge}); err != nil {
		return err
	}

	subnet := InferSubnet(bm.IP)
	if _, err := ex.Run(ctx, host, []string{"sudo", "ip", "addr", "add", subnet, "dev", bm.Bridge}, exec.AllowFail()); err != nil {
		return err
	}
	if _, err := ex.Run(ctx, host, []string{"sudo", "ip", "link", "set", bm.Bridge, "up"}, exec.AllowFail()); err != nil {
		return err
	}

	if !isMaster {
		return nil
	}

	return ensureMasquerade(ctx, ex, host, bm, mainInterface, subnet)
}

// ensureMasquerade installs the NAT/forward rules a bridge needs to reach
// the uplink, skipping the add when the MASQUERADE rule is already there
// (iptables -C's stderr distinguishes "missing" from "already present").
func ensureMasquerade(ctx context.Context, ex *exec.Executor, host string, bm types.BridgeMapping, mainInterface, subnet string) error {
	_, err := ex.Run(ctx, host, []string{
		"sudo", "iptables", "-t", "nat", "-C", "POSTROUTING",
		"-o", mainInterface, "-s", subnet, "-j", "MASQUERADE",
	})
	if err == nil {
		log.Info("cluster: NAT rule for %s already exists on %s, skipping", bm.Bridge, host)
		return nil
	}

	cf, ok := err.(*exec.CommandFailed)
	if !ok {
		return err
	}
	if !strings.Contains(cf.Stderr, "No chain/target/match by that name") &&
		!strings.Contains(cf.Stderr, "does a matching rule exist in that chain") {
		return err
	}

	log.Info("cluster: adding NAT/forward rules for %s (%s) on %s", bm.Bridge, subnet, host)

	if _, err := ex.Run(ctx, host, []string{
		"sudo", "iptables", "-t", "nat", "-A", "POSTROUTING",
		"-o", mainInterface, "-s", subnet, "-j", "MASQUERADE",
	}); err != nil {
		return err
	}
	if _, err := ex.Run(ctx, host, []string{
		"sudo", "iptables", "-A", "FORWARD", "-i", mainInterface, "-o", bm.Bridge,
		"-m", "state", "--state", "RELATED,ESTABLISHED", "-j", "ACCEPT",
	}); err != nil {
		return err
	}
	_, err = ex.Run(ctx, host, []string{
		"sudo", "iptables", "-A", "FORWARD", "-i", bm.Bridge, "-o", mainInterface, "-j", "ACCEPT",
	})
	return err
}

func setOVSExternalIDs(ctx context.Context, ex *exec.Executor, host string, ovn types.OvnHostConfig) error {
	set := func(key, value string) error {
		arg := fmt.Sprintf("external-ids:%s=%s", key, value)
		_, err := ex.Run(ctx, host, []string{"sudo", "ovs-vsctl", "set", "open", ".", arg}, exec.AllowFail())
		return err
	}

	if err := set("ovn-encap-type", ovn.EncapType); err != nil {
		return err
	}
	if err := set("ovn-encap-ip", ovn.EncapIP); err != nil {
		return err
	}
	if err := set("ovn-remote", ovn.MasterOvnRemote); err != nil {
		return err
	}
	if err := set("ovn-bridge", ovn.Bridge); err != nil {
		return err
	}

	mappings := make([]string, len(ovn.BridgeMappings))
	for i, bm := range ovn.BridgeMappings {
		mappings[i] = fmt.Sprintf("%s:%s", bm.Network, bm.Bridge)
	}
	return set("ovn-bridge-mappings", strings.Join(mappings, ","))
}

// listChassis returns every chassis name currently registered in the OVN
// southbound database, parsed from ovn-sbctl's CSV output.
func listChassis(ctx context.Context, ex *exec.Executor, master string) (map[string]bool, error) {
	out, err := ex.Run(ctx, master, []string{"sudo", "ovn-sbctl", "-f", "csv", "list", "chassis"})
	if err != nil {
		return nil, err
	}
	return parseChassisCSV(out)
}

// parseChassisCSV is the execution-free half of listChassis, split out so
// it can be tested against fixed ovn-sbctl output without a subprocess.
func parseChassisCSV(raw string) (map[string]bool, error) {
	r := csv.NewReader(strings.NewReader(raw))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing chassis CSV: %w", err)
	}

	chassis := make(map[string]bool)
	if len(records) < 2 {
		return chassis, nil
	}

	nameCol := -1
	for i, h := range records[0] {
		if h == "name" {
			nameCol = i
			break
		}
	}
	if nameCol == -1 {
		return nil, fmt.Errorf("chassis CSV has no name column")
	}

	for _, row := range records[1:] {
		chassis[strings.Trim(row[nameCol], `"`)] = true
	}

	return chassis, nil
}

// InferSubnet returns ip with its mask, defaulting to /24 when ip carries
// none.
func InferSubnet(ip string) string {
	if strings.Contains(ip, "/") {
		return ip
	}
	return ip + "/24"
}
