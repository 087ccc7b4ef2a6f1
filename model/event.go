package model

// TriggerEvent is the unit the trigger matcher consumes: a manual
// invocation, a schedule tick, or a runtime-record-created notification.
type TriggerEvent struct {
	Tenant            string         `json:"tenant"`
	Type              TriggerType    `json:"trigger_type"`
	EntityLogicalName string         `json:"entity_logical_name,omitempty"`
	Payload           map[string]any `json:"payload"`
}

// RecordCreatedEvent is delivered at least once after a record store
// commit; EventId is the dedupe handle for duplicate deliveries.
type RecordCreatedEvent struct {
	EventId           string         `json:"event_id"`
	Tenant            string         `json:"tenant"`
	EntityLogicalName string         `json:"entity_logical_name"`
	RecordId          string         `json:"record_id"`
	Data              map[string]any `json:"data"`
}
