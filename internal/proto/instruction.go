// Package proto defines the wire protocol carried over the orchestration
// WebSocket: the instructions a driver sends, the resources those
// instructions batch over, and the responses and log frames a server
// sends back.
package proto

import "encoding/json"

// Kind names one instruction in the orchestration protocol. The first
// frame on every connection must be KindInit; the server closes the
// socket on any other first frame.
type Kind string

const (
	KindInit Kind = "init"
	KindCancel Kind = "cancel"

	KindTestbedHostCheck Kind = "testbed_host_check"
	KindSetup            Kind = "setup"

	KindCreateTempNetwork  Kind = "create_temp_network"
	KindDestroyTempNetwork Kind = "destroy_temp_network"

	KindGenerateArtefacts Kind = "generate_artefacts"
	KindClearArtefacts    Kind = "clear_artefacts"

	// Batch instructions: one Resource per item, executed in parallel
	// server-side, ordering between them is the driver's job.
	KindDeploy                    Kind = "deploy"
	KindDestroy                   Kind = "destroy"
	KindSetupImage                Kind = "setup_image"
	KindPushArtefacts             Kind = "push_artefacts"
	KindPushBackingImages         Kind = "push_backing_images"
	KindRebaseRemoteBackingImages Kind = "rebase_remote_backing_images"
	KindRunSetupScripts           Kind = "run_setup_scripts"

	// OVN resource instructions, driver-ordered per the network's
	// dependency graph (switches before ports before routers before
	// routes/NAT/external-gateways, DHCP after, ACLs last).
	KindAddSwitch          Kind = "add_switch"
	KindAddSwitchPort      Kind = "add_switch_port"
	KindAddRouter          Kind = "add_router"
	KindAddRouterPort      Kind = "add_router_port"
	KindAddOvsPort         Kind = "add_ovs_port"
	KindAddRoute           Kind = "add_route"
	KindAddExternalGateway Kind = "add_external_gateway"
	KindAddNat             Kind = "add_nat"
	KindAddDhcp            Kind = "add_dhcp"
	KindAddAcl             Kind = "add_acl"

	KindRemoveSwitch          Kind = "remove_switch"
	KindRemoveSwitchPort      Kind = "remove_switch_port"
	KindRemoveRouter          Kind = "remove_router"
	KindRemoveRouterPort      Kind = "remove_router_port"
	KindRemoveOvsPort         Kind = "remove_ovs_port"
	KindRemoveRoute           Kind = "remove_route"
	KindRemoveExternalGateway Kind = "remove_external_gateway"
	KindRemoveNat             Kind = "remove_nat"
	KindRemoveDhcp            Kind = "remove_dhcp"
	KindRemoveAcl             Kind = "remove_acl"

	KindSnapshot         Kind = "snapshot"
	KindTestbedSnapshot  Kind = "testbed_snapshot"
	KindExec             Kind = "exec"
	KindAnalysisTool     Kind = "analysis_tool"
	KindListCloudImages  Kind = "list_cloud_images"
)

// Command is the high-level action Init carries; the stage driver picks
// the instruction sequence it emits based on which one this is.
type Command string

const (
	CommandUp               Command = "up"
	CommandDown             Command = "down"
	CommandGenerateArtefacts Command = "generate_artefacts"
	CommandClearArtefacts   Command = "clear_artefacts"
	CommandSnapshot          Command = "snapshot"
	CommandTestbedSnapshot   Command = "testbed_snapshot"
	CommandAnalysisTool      Command = "analysis_tool"
	CommandExec              Command = "exec"
	CommandListCloudImages   Command = "list_cloud_images"
)

// Instruction is the single frame type a driver sends. Payload holds the
// kind-specific body, deferred as raw JSON the same way web/broker's
// Client.read decodes Request.Payload only after checking Resource.Type.
type Instruction struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// InitPayload is KindInit's payload: the deployment this connection
// drives and the high-level command that picks the rest of the sequence.
type InitPayload struct {
	DeploymentID string  `json:"deployment_id"`
	Command      Command `json:"command"`
}

// GenerateArtefactsPayload is KindGenerateArtefacts's payload: the project
// path and the uid/gid the artefacts directory itself is chowned to (the
// chown is skipped when both are 0; files inside it are not chowned).
type GenerateArtefactsPayload struct {
	ProjectPath string `json:"project_path"`
	UID         int    `json:"uid"`
	GID         int    `json:"gid"`
}

// BatchPayload is the payload for every batch instruction kind
// (KindDeploy, KindDestroy, KindSetupImage, ...): one Resource per item,
// executed in parallel and joined into a List response.
type BatchPayload struct {
	Resources []Resource `json:"resources"`
}

// NewInit builds the mandatory first frame of a connection.
func NewInit(deploymentID string, cmd Command) (Instruction, error) {
	return marshalInstruction(KindInit, InitPayload{DeploymentID: deploymentID, Command: cmd})
}

// NewCancel builds the out-of-band abort frame; it carries no payload.
func NewCancel() Instruction {
	return Instruction{Kind: KindCancel}
}

// NewBatch builds a batch instruction over the given resources.
func NewBatch(kind Kind, resources []Resource) (Instruction, error) {
	return marshalInstruction(kind, BatchPayload{Resources: resources})
}

// NewGenerateArtefacts builds the GenerateArtefacts instruction.
func NewGenerateArtefacts(projectPath string, uid, gid int) (Instruction, error) {
	return marshalInstruction(KindGenerateArtefacts, GenerateArtefactsPayload{
		ProjectPath: projectPath, UID: uid, GID: gid,
	})
}

// Decode unmarshals an Instruction's Payload into v, the server-side
// counterpart of the New* constructors above.
func (i Instruction) Decode(v interface{}) error {
	if len(i.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(i.Payload, v)
}

func marshalInstruction(kind Kind, payload interface{}) (Instruction, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{Kind: kind, Payload: b}, nil
}
