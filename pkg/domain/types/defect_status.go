package types

import "strings"

// EventType classifies a defect status change for backlog accounting
type EventType string

const (
	EventCreated EventType = "created"
	EventClosed  EventType = "closed"
	EventMoved   EventType = "moved"
	EventOther   EventType = "other"
)

// String returns the string representation of the event type
func (e EventType) String() string {
	return string(e)
}

// IsValid checks if the event type is one of the known values
func (e EventType) IsValid() bool {
	switch e {
	case EventCreated, EventClosed, EventMoved, EventOther:
		return true
	default:
		return false
	}
}

// ParseEventType normalizes an event type ignoring case and surrounding whitespace.
// Anything unrecognized is EventOther.
func ParseEventType(s string) EventType {
	s = strings.TrimSpace(s)
	for _, v := range []EventType{EventCreated, EventClosed, EventMoved} {
		if strings.EqualFold(s, string(v)) {
			return v
		}
	}
	return EventOther
}

// KPIStatus is the compliance status of a record's aging against the KPI threshold
type KPIStatus string

const (
	KPIMet      KPIStatus = "Met"
	KPIBreached KPIStatus = "Breached"
)

// String returns the string representation of the KPI status
func (s KPIStatus) String() string {
	return string(s)
}

// IsValid checks if the status is valid
func (s KPIStatus) IsValid() bool {
	return s == KPIMet || s == KPIBreached
}

// ParseKPIStatus maps a case-insensitive label to a KPIStatus. Unknown labels are returned
// as given so that validation can report them.
func ParseKPIStatus(s string) KPIStatus {
	s = strings.TrimSpace(s)
	for _, v := range []KPIStatus{KPIMet, KPIBreached} {
		if strings.EqualFold(s, string(v)) {
			return v
		}
	}
	return KPIStatus(s)
}

// Verdict is the overall governance recommendation for a report
type Verdict string

const (
	VerdictGo     Verdict = "GO"
	VerdictHold   Verdict = "HOLD"
	VerdictNoData Verdict = "NO_DATA"
)

// String returns the string representation of the verdict
func (v Verdict) String() string {
	return string(v)
}

// EventSource selects how backlog events are derived from defect records
type EventSource string

const (
	// EventSourceStatus tags each record once, in its discovery period, with its status label
	EventSourceStatus EventSource = "status"
	// EventSourceLifecycle emits a created event at discovery and an outflow event at closure
	EventSourceLifecycle EventSource = "lifecycle"
)

// IsValid checks if the event source is valid
func (s EventSource) IsValid() bool {
	return s == EventSourceStatus || s == EventSourceLifecycle
}

// Dimension is a defect attribute used to break a report down
type Dimension string

const (
	DimensionAppArea   Dimension = "app_area"
	DimensionRootCause Dimension = "root_cause"
	DimensionSeverity  Dimension = "severity"
	DimensionStatus    Dimension = "status"
)

// AllDimensions lists every supported breakdown dimension
var AllDimensions = []Dimension{DimensionAppArea, DimensionRootCause, DimensionSeverity, DimensionStatus}

// IsValid checks if the dimension is supported
func (d Dimension) IsValid() bool {
	for _, v := range AllDimensions {
		if v == d {
			return true
		}
	}
	return false
}
