package ovn

import (
	"net"
	"strings"
	"testing"
)

func mac(t *testing.T, s string) MacAddress {
	t.Helper()
	m, err := NewMacAddress(s)
	if err != nil {
		t.Fatalf("NewMacAddress(%q): %v", s, err)
	}
	return m
}

func TestLogicalSwitchPortInternalCommand(t *testing.T) {
	lsp := &LogicalSwitchPort{
		Name:         "sw0-port0",
		ParentSwitch: "sw0",
		PortType:     PortInternal,
		IP:           FixedIP(net.ParseIP("10.0.0.2")),
		ChassisName:  "ovn",
		MacAddress:   mac(t, "00:00:00:00:00:01"),
	}

	got := strings.Join(lsp.CreateCommand(), " ")
	want := `ovn-nbctl --may-exist lsp-add sw0 sw0-port0 -- set Logical_Switch_Port sw0-port0 addresses="00:00:00:00:00:01 10.0.0.2" options:chassis=ovn`
	if got != want {
		t.Errorf("create command mismatch:\n got: %s\nwant: %s", got, want)
	}

	gotDel := strings.Join(lsp.DestroyCommand(), " ")
	wantDel := "ovn-nbctl lsp-del sw0-port0"
	if gotDel != wantDel {
		t.Errorf("destroy command mismatch:\n got: %s\nwant: %s", gotDel, wantDel)
	}
}

func TestLogicalSwitchPortInternalWithProviderCommand(t *testing.T) {
	lsp := &LogicalSwitchPort{
		Name:                "sw0-port0",
		ParentSwitch:        "sw0",
		PortType:            PortInternal,
		IP:                  FixedIP(net.ParseIP("10.0.0.2")),
		ChassisName:         "ovn",
		MacAddress:          mac(t, "00:00:00:00:00:01"),
		ProviderNetworkName: "public",
	}

	got := strings.Join(lsp.CreateCommand(), " ")
	want := `ovn-nbctl --may-exist lsp-add sw0 sw0-port0 -- set Logical_Switch_Port sw0-port0 addresses="00:00:00:00:00:01 10.0.0.2" options:network_name=public,chassis=ovn`
	if got != want {
		t.Errorf("create command mismatch:\n got: %s\nwant: %s", got, want)
	}
}

func TestLogicalSwitchPortRouterCommand(t *testing.T) {
	lsp := &LogicalSwitchPort{
		Name:           "sw0-port0",
		ParentSwitch:   "sw0",
		PortType:       PortRouter,
		MacAddress:     mac(t, "00:00:00:00:ff:01"),
		RouterPortName: "lr0-port0",
	}

	got := strings.Join(lsp.CreateCommand(), " ")
	want := `ovn-nbctl --may-exist lsp-add sw0 sw0-port0 -- set Logical_Switch_Port sw0-port0 type=router options:router-port=lr0-port0 addresses="00:00:00:00:ff:01"`
	if got != want {
		t.Errorf("create command mismatch:\n got: %s\nwant: %s", got, want)
	}

	gotDel := strings.Join(lsp.DestroyCommand(), " ")
	wantDel := "ovn-nbctl lsp-del sw0-port0"
	if gotDel != wantDel {
		t.Errorf("destroy command mismatch:\n got: %s\nwant: %s", gotDel, wantDel)
	}
}

func TestLogicalSwitchPortLocalnetCommand(t *testing.T) {
	lsp := &LogicalSwitchPort{
		Name:                "sw0-port0",
		ParentSwitch:        "sw0",
		PortType:            PortLocalNet,
		ProviderNetworkName: "public",
	}

	got := strings.Join(lsp.CreateCommand(), " ")
	want := `ovn-nbctl --may-exist lsp-add sw0 sw0-port0 -- set Logical_Switch_Port sw0-port0 type=localnet options:network_name=public addresses="unknown"`
	if got != want {
		t.Errorf("create command mismatch:\n got: %s\nwant: %s", got, want)
	}
}
