package executor

import (
	"strings"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/exec"
	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/internal/proto"
)

// alreadyExistsSubstrings lists the stderr fragments the tools this package
// shells out to use for "this already exists, nothing to do" — ovn-nbctl's
// --may-exist/--if-exists flags cover the common case, but a few commands
// (notably dhcp-options-create with no --may-exist equivalent for the
// options:set step, and libvirt's domain/network redefinition) still fail
// loudly on a repeat Up.
var alreadyExistsSubstrings = []string{
	"already exists",
	"Resource busy",
	"already defined with uuid",
}

// addKinds is every instruction whose failure downgradeAlreadyExists should
// consider for the already-exists rule; remove instructions hitting a
// missing resource are a genuine problem, not idempotent no-ops.
var addKinds = map[proto.Kind]bool{
	proto.KindAddSwitch: true, proto.KindAddSwitchPort: true, proto.KindAddRouter: true,
	proto.KindAddRouterPort: true, proto.KindAddOvsPort: true, proto.KindAddRoute: true,
	proto.KindAddExternalGateway: true, proto.KindAddNat: true, proto.KindAddDhcp: true,
	proto.KindAddAcl: true,
	proto.KindDeploy: true, proto.KindSetupImage: true,
}

// downgradeAlreadyExists reports whether err is a command failure whose
// stderr names a resource that already exists — a re-run of a completed Up
// hits this constantly for any command lacking its own --may-exist guard,
// and it should be treated the same as success rather than aborting the
// batch.
func downgradeAlreadyExists(kind proto.Kind, err error) bool {
	if !addKinds[kind] {
		return false
	}

	cf, ok := err.(*exec.CommandFailed)
	if !ok {
		return false
	}

	for _, s := range alreadyExistsSubstrings {
		if strings.Contains(cf.Stderr, s) {
			return true
		}
	}
	return false
}
