package dto

// GateState is the derived lock status of a module for a student.
type GateState string

// Possible gate states.
const (
	GateUnlocked GateState = "Unlocked"
	GateLocked   GateState = "Locked"
)

// ModuleGate describes a module's lock state and, when locked, why.
type ModuleGate struct {
	ModuleID   string    `json:"moduleId"`
	OrderIndex int       `json:"orderIndex"`
	State      GateState `json:"state"`
	Reason     string    `json:"reason,omitempty"`
}

// Unlocked reports whether the gate is open.
func (g ModuleGate) Unlocked() bool {
	return g.State == GateUnlocked
}
