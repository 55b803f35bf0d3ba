package event

// Log message constants
const (
	// LogMsgSubscriberErrorFormat reports subscriber failures from one firing
	LogMsgSubscriberErrorFormat = "encountered %d errors while firing hook %s: %v"

	// LogMsgActionVetoed is logged when a subscriber disallows an action
	LogMsgActionVetoed = "Action vetoed by extension-point subscriber"
)
