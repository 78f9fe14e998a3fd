package types

// Enum values for Contract Status
type ContractStatus string

const (
	StatusActive  ContractStatus = "ACTIVE"
	StatusSettled ContractStatus = "SETTLED"
	StatusBurned  ContractStatus = "BURNED"
)

func (s ContractStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the contract can no longer be mutated.
func (s ContractStatus) IsTerminal() bool {
	return s == StatusSettled || s == StatusBurned
}

// QualifiedStatesForSettlement returns the qualified current states for a
// settlement transition. Settlement is the only transition and it is valid
// from ACTIVE only.
func QualifiedStatesForSettlement() []ContractStatus {
	return []ContractStatus{StatusActive}
}
