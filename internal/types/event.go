package types

type EventType string

func (e EventType) String() string {
	return string(e)
}

const (
	EventContractOpened  EventType = "fundlock.settlement.v1.EventContractOpened"
	EventContractSettled EventType = "fundlock.settlement.v1.EventContractSettled"
	EventContractBurned  EventType = "fundlock.settlement.v1.EventContractBurned"
	EventEffortRecorded  EventType = "fundlock.effort.v1.EventEffortRecorded"
	EventEffortBurned    EventType = "fundlock.effort.v1.EventEffortBurned"
	EventFeeCollected    EventType = "fundlock.fee.v1.EventFeeCollected"
	EventLossReported    EventType = "fundlock.ledger.v1.EventLossReported"
)
