package config

import (
	"os"
	"testing"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

func tempProvider(t *testing.T) *FileProvider {
	t.Helper()

	dir, err := os.MkdirTemp("/tmp", "testbedos-config")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	return NewFileProvider(dir)
}

func TestModeRoundTrip(t *testing.T) {
	p := tempProvider(t)

	if _, err := p.GetMode(); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured before first write, got %v", err)
	}

	if err := p.SetMode(ModeMaster); err != nil {
		t.Fatal(err)
	}

	got, err := p.GetMode()
	if err != nil {
		t.Fatal(err)
	}

	if got != ModeMaster {
		t.Fatalf("mode mismatch: got %s, want %s", got, ModeMaster)
	}
}

func TestHostConfigRoundTrip(t *testing.T) {
	p := tempProvider(t)

	host := &types.ClusterHostConfig{
		Name:         "host01",
		Username:     "ubuntu",
		IP:           "10.0.0.5",
		IsMasterHost: true,
	}

	if err := p.SetHostConfig(host); err != nil {
		t.Fatal(err)
	}

	got, err := p.GetHostConfig()
	if err != nil {
		t.Fatal(err)
	}

	if got.Name != host.Name || got.IP != host.IP || !got.IsMasterHost {
		t.Fatalf("host config mismatch: got %+v, want %+v", got, host)
	}
}

func TestClusterConfigRoundTrip(t *testing.T) {
	p := tempProvider(t)

	cfg := &types.TestbedClusterConfig{
		Hosts: map[string]types.ClusterHostConfig{
			"host01": {Name: "host01", IsMasterHost: true},
			"host02": {Name: "host02"},
		},
		SSHPublicKey: "ssh-rsa AAAA...",
	}

	if err := p.SetClusterConfig(cfg); err != nil {
		t.Fatal(err)
	}

	got, err := p.GetClusterConfig()
	if err != nil {
		t.Fatal(err)
	}

	if len(got.Hosts) != 2 || got.SSHPublicKey != cfg.SSHPublicKey {
		t.Fatalf("cluster config mismatch: got %+v, want %+v", got, cfg)
	}
}

func TestWriteJSONSurvivesReread(t *testing.T) {
	p := tempProvider(t)

	if err := p.SetHostConfig(&types.ClusterHostConfig{Name: "first"}); err != nil {
		t.Fatal(err)
	}
	if err := p.SetHostConfig(&types.ClusterHostConfig{Name: "second"}); err != nil {
		t.Fatal(err)
	}

	got, err := p.GetHostConfig()
	if err != nil {
		t.Fatal(err)
	}

	if got.Name != "second" {
		t.Fatalf("expected second write to win, got %s", got.Name)
	}
}
