// Package driver implements the client-side stage driver: it turns one
// high-level command (Up, Down, GenerateArtefacts, ...) into the fixed
// instruction sequence the orchestration WebSocket expects, sending each
// instruction in turn and aborting on the first failed response.
package driver

import (
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/proto"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

func guestResources(guests []types.StateTestbedGuest) []proto.Resource {
	out := make([]proto.Resource, 0, len(guests))
	for _, g := range guests {
		out = append(out, proto.NewGuestResource(g.Name))
	}
	return out
}

// stageDeployDestroyGuests is the resource set for both Deploy and Destroy:
// every guest that is not itself an unexpanded golden image, regardless of
// backend.
func stageDeployDestroyGuests(state *types.State) []proto.Resource {
	return guestResources(state.NonGoldenGuests())
}

// stageSetupBackingImages is the resource set for SetupImage(golden
// images). Only libvirt golden images have a backing-image build step;
// docker and android golden images are not yet supported here, matching
// the original's unimplemented branches for those two kinds.
func stageSetupBackingImages(state *types.State) []proto.Resource {
	var out []proto.Resource
	for _, g := range state.GoldenImageGuests() {
		if g.MachineDef.Libvirt != nil {
			out = append(out, proto.NewGuestResource(g.Name))
		}
	}
	return out
}

// stageSetupLinkedClones is the resource set for SetupImage(clones): every
// libvirt guest that is a clone of a golden image. Docker and android have
// no linked-clone concept.
func stageSetupLinkedClones(state *types.State) []proto.Resource {
	var out []proto.Resource
	for _, g := range state.NonGoldenGuests() {
		if g.IsClone() {
			out = append(out, proto.NewGuestResource(g.Name))
		}
	}
	return out
}

// stagePushGuestImages is the resource set for PushArtefacts: libvirt and
// docker guests push their artefacts to their assigned host; android
// guests currently only run on the master host so there is nothing to
// push.
func stagePushGuestImages(state *types.State) []proto.Resource {
	var out []proto.Resource
	for _, g := range state.NonGoldenGuests() {
		if g.MachineDef.Android == nil {
			out = append(out, proto.NewGuestResource(g.Name))
		}
	}
	return out
}

// stagePushBackingGuestImages is the resource set for PushBackingImages:
// libvirt clones assigned to a non-master host, which need their own copy
// of the backing image before they can be rebased.
func stagePushBackingGuestImages(state *types.State) []proto.Resource {
	return libvirtClonesOffMaster(state)
}

// stageRebaseCloneImages is the resource set for RebaseRemoteBackingImages:
// the same population as stagePushBackingGuestImages, since a clone needs
// its backing image pushed before it can be rebased against it.
func stageRebaseCloneImages(state *types.State) []proto.Resource {
	return libvirtClonesOffMaster(state)
}

func libvirtClonesOffMaster(state *types.State) []proto.Resource {
	var out []proto.Resource
	for _, g := range state.CloneGuestsOnRemote() {
		if g.MachineDef.Libvirt != nil {
			out = append(out, proto.NewGuestResource(g.Name))
		}
	}
	return out
}

// stageRunGuestSetupScripts is the resource set for RunSetupScripts: every
// libvirt guest, golden or clone; docker and android setup happens inline
// during Deploy instead.
func stageRunGuestSetupScripts(state *types.State) []proto.Resource {
	var out []proto.Resource
	for _, g := range state.TestbedGuests {
		if g.MachineDef.Libvirt != nil {
			out = append(out, proto.NewGuestResource(g.Name))
		}
	}
	return out
}

// anyGoldenImageHasSharedSetup reports whether at least one golden image
// guest declares a shared setup script, the condition that gates standing
// up the temporary install network before backing-image setup runs.
func anyGoldenImageHasSharedSetup(state *types.State) bool {
	for _, g := range state.GoldenImageGuests() {
		if lv := g.MachineDef.Libvirt; lv != nil && lv.CloudImage != nil && lv.CloudImage.SetupScript != "" {
			return true
		}
	}
	return false
}
