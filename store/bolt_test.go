package store

import (
	"os"
	"testing"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

func tempStore(t *testing.T) Store {
	t.Helper()

	f, err := os.CreateTemp("/tmp", "testbedos-store")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })

	b := NewBoltDB()
	if err := b.Init(Path(f.Name())); err != nil {
		t.Fatal(err)
	}

	return b
}

func TestDeploymentPutAndGet(t *testing.T) {
	b := tempStore(t)

	d := &types.Deployment{Name: "foobar", ProjectLocation: "/tmp/foobar", State: types.StateDown}
	if err := b.PutDeployment(d); err != nil {
		t.Fatal(err)
	}

	got, err := b.GetDeployment("foobar")
	if err != nil {
		t.Fatal(err)
	}

	if got.ProjectLocation != d.ProjectLocation {
		t.Fatalf("project location mismatch: got %s, want %s", got.ProjectLocation, d.ProjectLocation)
	}
}

func TestDeploymentList(t *testing.T) {
	b := tempStore(t)

	b.PutDeployment(&types.Deployment{Name: "zebra", State: types.StateUp})
	b.PutDeployment(&types.Deployment{Name: "alpha", State: types.StateDown})

	deployments, err := b.ListDeployments()
	if err != nil {
		t.Fatal(err)
	}

	if len(deployments) != 2 {
		t.Fatalf("expected 2 deployments, got %d", len(deployments))
	}

	if deployments[0].Name != "alpha" || deployments[1].Name != "zebra" {
		t.Fatalf("expected alphabetical order, got %s, %s", deployments[0].Name, deployments[1].Name)
	}
}

func TestDeploymentDeleteRemovesState(t *testing.T) {
	b := tempStore(t)

	b.PutDeployment(&types.Deployment{Name: "foobar", State: types.StateUp})
	b.PutState("foobar", &types.State{ProjectName: "foobar"})

	if err := b.DeleteDeployment("foobar"); err != nil {
		t.Fatal(err)
	}

	if _, err := b.GetDeployment("foobar"); err == nil {
		t.Fatal("expected deployment to be gone")
	}

	if _, err := b.GetState("foobar"); err == nil {
		t.Fatal("expected state to be gone alongside the deployment")
	}
}

func TestStatePutAndGet(t *testing.T) {
	b := tempStore(t)

	s := &types.State{ProjectName: "foobar", TestbedHosts: map[string]types.TestbedHost{
		"master": {IsMasterHost: true, IP: "10.0.0.1"},
	}}

	if err := b.PutState("foobar", s); err != nil {
		t.Fatal(err)
	}

	got, err := b.GetState("foobar")
	if err != nil {
		t.Fatal(err)
	}

	if got.TestbedHosts["master"].IP != "10.0.0.1" {
		t.Fatalf("unexpected state round-trip: %+v", got.TestbedHosts)
	}
}
