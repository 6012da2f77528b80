package executor

import (
	"context"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/guest"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/proto"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// guestBatch runs kind's per-guest Backend method against every named
// resource, concurrently, and folds the per-guest errors into a List
// response in request order.
func (x *Executor) guestBatch(ctx context.Context, kind proto.Kind, resources []proto.Resource) proto.OrchestrationProtocolResponse {
	results := make([]proto.Result, len(resources))

	g, gctx := errgroup.WithContext(ctx)
	for i, res := range resources {
		i, res := i, res
		g.Go(func() error {
			results[i] = x.runGuestResource(gctx, kind, res.Name)
			return nil
		})
	}
	_ = g.Wait()

	return proto.NewListResponse(results)
}

func (x *Executor) runGuestResource(ctx context.Context, kind proto.Kind, name string) proto.Result {
	gst, err := x.State.GuestByName(name)
	if err != nil {
		return proto.Result{IsSuccess: false, Message: err.Error()}
	}

	backend, err := guest.For(gst)
	if err != nil {
		return proto.Result{IsSuccess: false, Message: err.Error()}
	}

	switch kind {
	case proto.KindDeploy:
		err = backend.Create(ctx, x.GuestEnv, gst)
	case proto.KindDestroy:
		err = backend.Destroy(ctx, x.GuestEnv, gst)
	case proto.KindSetupImage:
		err = backend.SetupImage(ctx, x.GuestEnv, gst)
	case proto.KindPushArtefacts:
		err = backend.PushImage(ctx, x.GuestEnv, gst)
	case proto.KindRebaseRemoteBackingImages:
		err = backend.RebaseImage(ctx, x.GuestEnv, gst)
	case proto.KindRunSetupScripts:
		err = backend.SetupAction(ctx, x.GuestEnv, gst)
	default:
		return proto.Result{IsSuccess: false, Message: "unhandled guest instruction kind: " + string(kind)}
	}

	if err != nil {
		if downgradeAlreadyExists(kind, err) {
			return proto.Result{IsSuccess: true}
		}
		return proto.Result{IsSuccess: false, Message: err.Error()}
	}
	return proto.Result{IsSuccess: true}
}

// pushBackingImages is handled outside the guest.Backend dispatch used by
// every other batch kind: it pushes the *golden image's* own disk, not the
// clone's, to the clone's assigned host, so a clone's own PushImage never
// needs to special-case anything. Docker and Android guests carry no
// backing image and are skipped rather than erroring.
func (x *Executor) pushBackingImages(ctx context.Context, resources []proto.Resource) proto.OrchestrationProtocolResponse {
	results := make([]proto.Result, len(resources))

	g, gctx := errgroup.WithContext(ctx)
	for i, res := range resources {
		i, res := i, res
		g.Go(func() error {
			results[i] = x.pushOneBackingImage(gctx, res.Name)
			return nil
		})
	}
	_ = g.Wait()

	return proto.NewListResponse(results)
}

func (x *Executor) pushOneBackingImage(ctx context.Context, name string) proto.Result {
	clone, err := x.State.GuestByName(name)
	if err != nil {
		return proto.Result{IsSuccess: false, Message: err.Error()}
	}

	lv := clone.MachineDef.Libvirt
	if lv == nil || lv.IsCloneOf == "" {
		return proto.Result{IsSuccess: true} // docker/android/non-clone: nothing to push
	}

	remoteDir := guest.RemoteProjectDir(x.GuestEnv, clone.TestbedHost)
	dst := filepath.Join(remoteDir, filepath.Base(lv.BackingDiskPath))

	if err := x.Exec.Push(ctx, clone.TestbedHost, lv.BackingDiskPath, dst, false); err != nil {
		return proto.Result{IsSuccess: false, Message: err.Error()}
	}
	return proto.Result{IsSuccess: true}
}

// guestDisplayHost is a small helper used by lifecycle handlers that need a
// guest's assigned host record rather than just its name.
func guestDisplayHost(state *types.State, g *types.StateTestbedGuest) (types.TestbedHost, bool) {
	h, ok := state.TestbedHosts[g.TestbedHost]
	return h, ok
}
