package ovn

import (
	"net"
	"testing"
)

func TestSwitchAndPorts(t *testing.T) {
	n := NewNetwork()

	if err := n.AddSwitch("sw0", SubnetIP(net.ParseIP("10.0.0.0"), 24)); err != nil {
		t.Fatalf("add_switch: %v", err)
	}

	if err := n.AddSwitch("sw0", SubnetIP(net.ParseIP("20.10.10.0"), 24)); !Is(err, KindAlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}

	if err := n.AddLspInternal("sw0-port0", "sw0", FixedIP(net.ParseIP("10.0.0.2")), "ovn", mac(t, "00:00:00:00:00:01"), "public"); err != nil {
		t.Fatalf("add_lsp_internal: %v", err)
	}

	if err := n.AddLspInternal("sw0-port0", "sw0", FixedIP(net.ParseIP("10.0.0.2")), "ovn", mac(t, "00:00:00:00:00:02"), "public"); !Is(err, KindAlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}

	if err := n.AddLspInternal("sw1-port0", "sw1", FixedIP(net.ParseIP("10.0.0.2")), "ovn", mac(t, "00:00:00:00:00:02"), "public"); !Is(err, KindParentDoesNotExist) {
		t.Fatalf("expected ParentDoesNotExist, got %v", err)
	}

	if err := n.AddLspRouter("sw0-port1", "sw0", mac(t, "00:00:00:00:00:02"), "lr0-port0"); err != nil {
		t.Fatalf("add_lsp_router: %v", err)
	}

	if err := n.AddLspRouter("sw0-port1", "sw0", mac(t, "00:00:00:00:00:02"), "lr0-port0"); !Is(err, KindAlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}

	if err := n.AddLspLocalnet("sw0-port2", "sw0", "public"); err != nil {
		t.Fatalf("add_lsp_localnet: %v", err)
	}

	if err := n.AddLspLocalnet("sw0-port2", "sw0", "public"); !Is(err, KindAlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}

	if err := n.DelSwitch("sw0"); !Is(err, KindHasChildren) {
		t.Fatalf("expected HasChildren, got %v", err)
	}

	if err := n.DelLsp("sw0-port2"); err != nil {
		t.Fatalf("del_lsp: %v", err)
	}
	if err := n.DelLsp("sw0-port1"); err != nil {
		t.Fatalf("del_lsp: %v", err)
	}
	if err := n.DelLsp("sw0-port0"); err != nil {
		t.Fatalf("del_lsp: %v", err)
	}

	if err := n.DelLsp("sw0-port0"); !Is(err, KindDoesNotExist) {
		t.Fatalf("expected DoesNotExist, got %v", err)
	}

	if err := n.DelSwitch("sw0"); err != nil {
		t.Fatalf("del_switch: %v", err)
	}

	if err := n.DelSwitch("sw0"); !Is(err, KindDoesNotExist) {
		t.Fatalf("expected DoesNotExist, got %v", err)
	}
}

func TestRouterAndPorts(t *testing.T) {
	n := NewNetwork()

	if err := n.AddRouter("lr0"); err != nil {
		t.Fatalf("add_router: %v", err)
	}
	if err := n.AddRouter("lr0"); !Is(err, KindAlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}

	if err := n.AddLrp("lr0-port0", "lr0", mac(t, "00:00:00:00:00:01"), net.ParseIP("10.0.0.1"), 24, "ovn"); err != nil {
		t.Fatalf("add_lrp: %v", err)
	}
	if err := n.AddLrp("lr0-port0", "lr0", mac(t, "00:00:00:00:00:02"), net.ParseIP("10.0.0.1"), 24, "ovn"); !Is(err, KindAlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
	if err := n.AddLrp("lr0-port0", "lr1", mac(t, "00:00:00:00:00:03"), net.ParseIP("10.0.0.1"), 24, "ovn"); !Is(err, KindParentDoesNotExist) {
		t.Fatalf("expected ParentDoesNotExist, got %v", err)
	}

	if err := n.DelRouter("lr0"); !Is(err, KindHasChildren) {
		t.Fatalf("expected HasChildren, got %v", err)
	}

	if err := n.DelLrp("lr0-port0"); err != nil {
		t.Fatalf("del_lrp: %v", err)
	}
	if err := n.DelLrp("lr0-port0"); !Is(err, KindDoesNotExist) {
		t.Fatalf("expected DoesNotExist, got %v", err)
	}

	if err := n.DelRouter("lr0"); err != nil {
		t.Fatalf("del_router: %v", err)
	}
	if err := n.DelRouter("lr0"); !Is(err, KindDoesNotExist) {
		t.Fatalf("expected DoesNotExist, got %v", err)
	}
}

func TestOvsPort(t *testing.T) {
	n := NewNetwork()

	if err := n.OvsAddPort("ovs-sw0-port0", "br-int", "sw0-port0", "ovn"); err != nil {
		t.Fatalf("ovs_add_port: %v", err)
	}
	if err := n.OvsAddPort("ovs-sw0-port0", "br-int", "sw0-port0", "ovn"); !Is(err, KindAlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
	if err := n.OvsDelPort("ovs-sw0-port0"); err != nil {
		t.Fatalf("ovs_del_port: %v", err)
	}
	if err := n.OvsDelPort("ovs-sw0-port0"); !Is(err, KindDoesNotExist) {
		t.Fatalf("expected DoesNotExist, got %v", err)
	}
}

// TestDhcpHashStability ports the original's "create the DHCP option twice,
// independently, and make sure the hash matches" regression test: this
// caught a bug where server_id carried a subnet mask.
func TestDhcpHashStability(t *testing.T) {
	n := NewNetwork()

	if err := n.AddSwitch("sw0", SubnetIP(net.ParseIP("10.0.0.0"), 24)); err != nil {
		t.Fatalf("add_switch: %v", err)
	}
	if err := n.AddLspInternal("sw0-port0", "sw0", DynamicIP(), "ovn", mac(t, "00:00:00:00:00:01"), "public"); err != nil {
		t.Fatalf("add_lsp_internal: %v", err)
	}
	if err := n.AddLspInternal("sw0-port1", "sw0", FixedIP(net.ParseIP("10.0.0.10")), "ovn", mac(t, "00:00:00:00:00:02"), "public"); err != nil {
		t.Fatalf("add_lsp_internal: %v", err)
	}
	if err := n.AddLspInternal("sw0-port2", "sw0", DynamicIP(), "ovn", mac(t, "00:00:00:00:00:03"), "public"); err != nil {
		t.Fatalf("add_lsp_internal: %v", err)
	}
	if err := n.AddRouter("lr0"); err != nil {
		t.Fatalf("add_router: %v", err)
	}
	if err := n.AddLrp("lr0-port0", "lr0", mac(t, "00:00:00:00:00:04"), net.ParseIP("10.0.0.1"), 24, "ovn"); err != nil {
		t.Fatalf("add_lrp: %v", err)
	}
	if err := n.AddLspRouter("sw0-port3", "sw0", mac(t, "00:00:00:00:ff:ff"), "lr0-port0"); err != nil {
		t.Fatalf("add_lsp_router: %v", err)
	}

	if err := n.AddDhcpOption("lr0", "sw0", "10.0.0.1..10.0.0.10"); err != nil {
		t.Fatalf("add_dhcp_option: %v", err)
	}

	p1 := n.SwitchPorts["sw0-port0"]
	p2 := n.SwitchPorts["sw0-port1"]
	p3 := n.SwitchPorts["sw0-port2"]

	if p1.DhcpOptionsHash == nil || p3.DhcpOptionsHash == nil {
		t.Fatalf("expected dynamic ports to carry a dhcp hash")
	}
	if p2.DhcpOptionsHash != nil {
		t.Fatalf("fixed-ip port should not carry a dhcp hash")
	}
	if *p1.DhcpOptionsHash != *p3.DhcpOptionsHash {
		t.Fatalf("dynamic ports on the same switch must share the same dhcp hash")
	}

	// Independently construct the same entry and confirm the hash agrees.
	manual := DhcpDatabaseEntry{
		Cidr:      "10.0.0.0/24",
		LeaseTime: "3600",
		Router:    "10.0.0.1",
		ServerID:  "10.0.0.1",
		ServerMac: mac(t, "00:00:00:00:00:04"),
	}
	if manual.Hash() != *p1.DhcpOptionsHash {
		t.Fatalf("independently-built dhcp entry hash mismatch")
	}
}

func TestAclAlreadyExists(t *testing.T) {
	n := NewNetwork()
	name := "ovn-sw0-to-lport-drop-10"

	if err := n.AddSwitchAcl(name, "sw0", ACLOnSwitch, "to-lport", 10, "", "allow-related"); err != nil {
		t.Fatalf("add_switch_acl: %v", err)
	}
	if err := n.AddSwitchAcl(name, "sw0", ACLOnSwitch, "to-lport", 10, "", "allow-related"); !Is(err, KindAlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}
