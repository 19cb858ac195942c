package model

import "github.com/secmon-lab/vantage/pkg/domain/types"

// BacklogEvent is one record tagged with a period key and a status-change classification
type BacklogEvent struct {
	Period string          `json:"period"`
	Type   types.EventType `json:"type"`
}

// BacklogPoint is the backlog state at the end of one period
type BacklogPoint struct {
	Period     string `json:"period"`
	Inflow     int    `json:"inflow"`
	Closed     int    `json:"closed"`
	Moved      int    `json:"moved"`
	Outflow    int    `json:"outflow"` // closed, plus moved when moved counts as outflow
	NetBacklog int    `json:"netBacklog"`
}

// EventLabels maps free-form status labels to backlog event types
type EventLabels struct {
	Created []string `yaml:"created" json:"created"`
	Closed  []string `yaml:"closed" json:"closed"`
	Moved   []string `yaml:"moved" json:"moved"`
}

// DefaultEventLabels returns the labels used by the source spreadsheets
func DefaultEventLabels() EventLabels {
	return EventLabels{
		Created: []string{"Created", "New", "Open"},
		Closed:  []string{"Closed", "Resolved"},
		Moved:   []string{"Moved"},
	}
}
