package proto

// OrchestrationProtocol wraps one instruction in an outer envelope, a type
// distinct from Instruction. The orchestration WebSocket does not carry
// it: frames on that socket are bare Instructions, and nothing else in this
// module builds or reads the envelope.
type OrchestrationProtocol struct {
	Instruction Instruction `json:"instruction"`
}

// NewOrchestrationProtocol wraps an instruction for sending.
func NewOrchestrationProtocol(i Instruction) OrchestrationProtocol {
	return OrchestrationProtocol{Instruction: i}
}
