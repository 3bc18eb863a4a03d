package dto

// AuditEvent is a mutation record emitted by the core to the audit collaborator.
type AuditEvent struct {
	Table     string
	RecordID  string
	Action    string
	OldValues map[string]interface{}
	NewValues map[string]interface{}
	Metadata  map[string]interface{}
	ActorID   string
}
