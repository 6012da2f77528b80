package executor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	log "github.com/activeshadow/libminimega/minilog"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/exec"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/ovn"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/proto"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/tmpl"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// apiPort is every cluster member's own HTTP API port, the same default the
// web server listens on (web.endpoint's ":3000" default).
const apiPort = 3000

// tempNetworkBridge is the linux bridge the isolated install network binds
// to while a golden image's shared setup script runs.
const tempNetworkBridge = "virbr-testbedos"

// testbedHostCheck GETs /api/config/status on every non-master host,
// concurrently, and reports per-host results in a List response.
func (x *Executor) testbedHostCheck(ctx context.Context) proto.OrchestrationProtocolResponse {
	var results []proto.Result

	client := &http.Client{Timeout: 5 * time.Second}

	for name, h := range x.State.TestbedHosts {
		if h.IsMasterHost {
			continue
		}

		url := fmt.Sprintf("http://%s:%d/api/config/status", h.IP, apiPort)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			results = append(results, proto.Result{IsSuccess: false, Message: fmt.Sprintf("%s: %v", name, err)})
			continue
		}

		resp, err := client.Do(req)
		if err != nil {
			results = append(results, proto.Result{IsSuccess: false, Message: fmt.Sprintf("%s: %v", name, err)})
			continue
		}
		resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			results = append(results, proto.Result{IsSuccess: false, Message: fmt.Sprintf("%s: status %d", name, resp.StatusCode)})
			continue
		}

		results = append(results, proto.Result{IsSuccess: true, Message: name})
	}

	return proto.NewListResponse(results)
}

// setup creates the remote artefacts folder on every non-master host this
// deployment's guests are assigned to, mirroring what RemoteProjectDir
// expects to already exist.
func (x *Executor) setup(ctx context.Context) proto.OrchestrationProtocolResponse {
	seen := map[string]bool{}

	for _, g := range x.State.NonGoldenGuests() {
		host, ok := guestDisplayHost(x.State, &g)
		if !ok || host.IsMasterHost || seen[g.TestbedHost] {
			continue
		}
		seen[g.TestbedHost] = true

		dir := fmt.Sprintf("/home/%s/testbed-projects/%s/artefacts", host.Username, x.State.ProjectName)
		if _, err := x.Exec.Run(ctx, g.TestbedHost, []string{"mkdir", "-p", dir}); err != nil {
			return proto.NewGenericResponse(false, err.Error())
		}
	}

	return proto.NewGenericResponse(true, "")
}

func tempNetworkName(project string) string {
	return fmt.Sprintf("%s-testbedos", project)
}

// createTempNetwork renders the isolated libvirt network a golden image's
// shared setup script boots inside and starts it as a transient network
// with virsh net-create.
func (x *Executor) createTempNetwork(ctx context.Context) proto.OrchestrationProtocolResponse {
	name := tempNetworkName(x.State.ProjectName)
	xmlPath := filepath.Join(x.GuestEnv.WorkingDir, "artefacts", name+".xml")

	data := struct{ Name, Bridge string }{Name: name, Bridge: tempNetworkBridge}
	if err := tmpl.CreateFileFromTemplate("network.xml.tmpl", data, xmlPath); err != nil {
		return proto.NewGenericResponse(false, err.Error())
	}

	if _, err := x.Exec.Run(ctx, x.MasterHost, []string{"virsh", "net-create", xmlPath}); err != nil {
		return proto.NewGenericResponse(false, err.Error())
	}

	return proto.NewGenericResponse(true, "")
}

func (x *Executor) destroyTempNetwork(ctx context.Context) proto.OrchestrationProtocolResponse {
	name := tempNetworkName(x.State.ProjectName)

	if _, err := x.Exec.Run(ctx, x.MasterHost, []string{"virsh", "net-destroy", name}, exec.AllowFail()); err != nil {
		return proto.NewGenericResponse(false, err.Error())
	}

	return proto.NewGenericResponse(true, "")
}

// clearArtefacts deletes this project's folder on every non-master host of
// the deployment over remote exec, then wipes everything GenerateArtefacts
// wrote in the master's own working directory. It does not destroy guests
// or remove the OVN network.
func (x *Executor) clearArtefacts(ctx context.Context) proto.OrchestrationProtocolResponse {
	for name, h := range x.State.TestbedHosts {
		if h.IsMasterHost || x.State.ProjectName == "" {
			continue
		}
		remote := fmt.Sprintf("/home/%s/testbed-projects/%s", h.Username, x.State.ProjectName)
		if _, err := x.Exec.Run(ctx, name, []string{"rm", "-rf", remote}, exec.AllowFail()); err != nil {
			return proto.NewGenericResponse(false, err.Error())
		}
	}

	dir := filepath.Join(x.GuestEnv.WorkingDir, "artefacts")
	if err := os.RemoveAll(dir); err != nil {
		return proto.NewGenericResponse(false, err.Error())
	}
	return proto.NewGenericResponse(true, "")
}

// generateArtefacts ensures the artefacts folder exists and is owned by the
// requesting user, then renders every guest's backend-specific artefacts:
// libvirt gets a domain XML and (for cloud-image guests) a cloud-init ISO,
// android gets an AVD, docker needs nothing beyond what planning already
// validated.
func (x *Executor) generateArtefacts(ctx context.Context, p proto.GenerateArtefactsPayload) proto.OrchestrationProtocolResponse {
	projectPath := p.ProjectPath
	if projectPath == "" {
		projectPath = x.GuestEnv.WorkingDir
	}
	dir := filepath.Join(projectPath, "artefacts")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return proto.NewGenericResponse(false, err.Error())
	}
	if p.UID != 0 || p.GID != 0 {
		if err := os.Chown(dir, p.UID, p.GID); err != nil {
			log.Warn("chown %s to %d:%d failed: %v", dir, p.UID, p.GID, err)
		}
	}

	for i := range x.State.TestbedGuests {
		g := &x.State.TestbedGuests[i]

		var err error
		switch {
		case g.MachineDef.Libvirt != nil:
			err = x.libvirtArtefacts(ctx, g, dir)
		case g.MachineDef.Android != nil:
			err = x.androidArtefacts(ctx, g)
		case g.MachineDef.Docker != nil:
			// nothing to generate; planning already validated the image ref.
		}

		if err != nil {
			return proto.NewGenericResponse(false, fmt.Sprintf("guest %s: %v", g.Name, err))
		}
	}

	return proto.NewGenericResponse(true, "")
}

type domainTemplateInterface struct {
	Tap string
	Mac string
}

func (x *Executor) libvirtArtefacts(ctx context.Context, g *types.StateTestbedGuest, artefactsDir string) error {
	lv := g.MachineDef.Libvirt
	clientName := fmt.Sprintf("%s-%s", x.State.ProjectName, g.Name)

	var diskPath, diskDriver string
	var expandGB int
	switch {
	case lv.CloudImage != nil:
		diskPath = lv.DiskPath
		diskDriver = "qcow2"
		if lv.CloudImage.ExpandGigabytes != nil {
			expandGB = *lv.CloudImage.ExpandGigabytes
		}
	case lv.ExistingDisk != nil:
		diskPath = lv.DiskPath
		diskDriver = lv.ExistingDisk.DriverType
	case lv.IsoGuest != nil:
		diskPath = lv.DiskPath
		diskDriver = "raw"
		if lv.IsoGuest.ExpandGigabytes != nil {
			expandGB = *lv.IsoGuest.ExpandGigabytes
		}
	}

	if lv.IsCloneOf == "" && g.ReferenceImage != "" {
		if _, err := os.Stat(diskPath); os.IsNotExist(err) {
			if _, err := x.Exec.Run(ctx, x.MasterHost, []string{"cp", g.ReferenceImage, diskPath}); err != nil {
				return err
			}
			if expandGB > 0 {
				if _, err := x.Exec.Run(ctx, x.MasterHost, []string{"qemu-img", "resize", diskPath, fmt.Sprintf("+%dG", expandGB)}); err != nil {
					return err
				}
			}
		} else {
			log.Warn("disk image %s already exists, skipping create", diskPath)
		}
	}

	var interfaces []domainTemplateInterface
	for idx, sw := range g.Interfaces {
		lsp, ok := x.State.Network.SwitchPorts[types.LogicalSwitchPortName(x.State.ProjectName, sw, g.Name, idx)]
		if !ok {
			continue
		}
		tap, err := types.InterfaceName(x.State.ProjectName, g.GuestID, idx)
		if err != nil {
			return err
		}
		interfaces = append(interfaces, domainTemplateInterface{Tap: tap, Mac: lsp.MacAddress.String()})
	}

	domainData := struct {
		GuestName               string
		Memory                  int
		VCPU                    int
		DiskDriver              string
		DiskPath                string
		CloudInitISO            string
		BackingImageNetwork     string
		Interfaces              []domainTemplateInterface
		ExtendedGraphicsSupport bool
	}{
		GuestName:               clientName,
		Memory:                  lv.MemoryMB,
		VCPU:                    lv.CPUs,
		DiskDriver:              diskDriver,
		DiskPath:                diskPath,
		CloudInitISO:            lv.CloudInitISO,
		Interfaces:              interfaces,
		ExtendedGraphicsSupport: lv.ExistingDisk != nil || lv.IsoGuest != nil,
	}
	if g.IsGoldenImage {
		domainData.BackingImageNetwork = tempNetworkName(x.State.ProjectName)
	}

	if err := tmpl.CreateFileFromTemplate("domain.xml.tmpl", domainData, lv.DomainXMLPath); err != nil {
		return err
	}

	if lv.CloudImage != nil {
		return x.cloudInitArtefacts(ctx, g, artefactsDir)
	}

	return nil
}

func (x *Executor) cloudInitArtefacts(ctx context.Context, g *types.StateTestbedGuest, artefactsDir string) error {
	lv := g.MachineDef.Libvirt

	metaPath := filepath.Join(artefactsDir, g.Name+"-meta-data")
	userPath := filepath.Join(artefactsDir, g.Name+"-user-data")
	netPath := filepath.Join(artefactsDir, g.Name+"-network-config")

	if err := tmpl.CreateFileFromTemplate("meta-data.tmpl", struct{ InstanceID, Hostname string }{
		InstanceID: g.Name, Hostname: lv.Hostname,
	}, metaPath); err != nil {
		return err
	}

	username := lv.Username
	if username == "" {
		username = x.State.GuestSharedConfig.DefaultUsername
	}
	if err := tmpl.CreateFileFromTemplate("user-data.tmpl", struct {
		Hostname, Username, SSHAuthorizedKey string
		RunCmds                              []string
	}{
		Hostname:         lv.Hostname,
		Username:         username,
		SSHAuthorizedKey: x.State.GuestSharedConfig.SSHPublicKey,
	}, userPath); err != nil {
		return err
	}

	var mac, gateway string
	dhcp := true
	if len(g.Interfaces) > 0 {
		if lsp, ok := x.State.Network.SwitchPorts[types.LogicalSwitchPortName(x.State.ProjectName, g.Interfaces[0], g.Name, 0)]; ok {
			mac = lsp.MacAddress.String()
			dhcp = lsp.IP.Kind == ovn.IPKindDynamic
		}
		if len(g.Gateways) > 0 {
			gateway = g.Gateways[0]
		}
	}
	if err := tmpl.CreateFileFromTemplate("network-config.tmpl", struct {
		MacAddress string
		DHCP       bool
		IPAddress  string
		Gateway    string
		Nameservers []string
	}{MacAddress: mac, DHCP: dhcp, Gateway: gateway}, netPath); err != nil {
		return err
	}

	iso := lv.CloudInitISO
	if _, err := x.Exec.Run(ctx, x.MasterHost, []string{
		"genisoimage", "-output", iso, "-volid", "cidata", "-joliet", "-rock",
		metaPath, userPath, netPath,
	}); err != nil {
		return err
	}

	for _, f := range []string{metaPath, userPath, netPath} {
		os.Remove(f)
	}

	return nil
}

// androidSystemImage maps an AVD's declared API level/playstore flag to the
// sdkmanager package string avdmanager expects.
func androidSystemImage(opts types.AVDOptions) string {
	variant := "google_apis"
	if opts.PlaystoreEnabled {
		variant = "google_apis_playstore"
	}
	return fmt.Sprintf("system-images;android-%d;%s;x86_64", opts.AndroidAPIVersion, variant)
}

func (x *Executor) androidArtefacts(ctx context.Context, g *types.StateTestbedGuest) error {
	av := g.MachineDef.Android
	if g.IsGoldenImage {
		return nil // unexpanded scaling template; clones got their own entries
	}

	avdName := fmt.Sprintf("%s-%s", x.State.ProjectName, g.Name)
	avdPath := filepath.Join(x.GuestEnv.WorkingDir, "artefacts", avdName)
	image := androidSystemImage(av.AvdType)

	if _, err := os.Stat(avdPath); !os.IsNotExist(err) {
		log.Warn("AVD guest %s already created, skipping create", avdName)
		return nil
	}

	_, err := x.Exec.Run(ctx, x.MasterHost, []string{
		"/opt/android-sdk/cmdline-tools/latest/bin/avdmanager", "create", "avd",
		"-n", avdName, "-k", image, "--force", "--path", avdPath,
	})
	return err
}
