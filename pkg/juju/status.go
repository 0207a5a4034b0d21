package juju

import (
	"strings"
	"time"
)

// Life values reported for services and units.
const (
	LifeDying = "dying"
	LifeDead  = "dead"
)

// Agent states. agent-status.current is reported by juju 1.24 and later;
// agent-state is the legacy field from earlier releases. The two are
// easily confused.
const (
	CurrentIdle  = "idle"
	StateStarted = "started"
	StateError   = "error"
)

// Status is the result of one `juju status` query.
type Status struct {
	Services map[string]ServiceStatus `json:"services"`
}

type ServiceStatus struct {
	Life  string                `json:"life,omitempty"`
	Units map[string]UnitStatus `json:"units,omitempty"`
}

// UnitStatus describes one unit. A non-nil AgentStatus marks a modern
// (juju 1.24+) agent; when it is absent the legacy agent-state fields
// apply instead.
type UnitStatus struct {
	AgentStatus    *AgentStatus          `json:"agent-status,omitempty"`
	AgentState     string                `json:"agent-state,omitempty"`
	AgentStateInfo string                `json:"agent-state-info,omitempty"`
	AgentVersion   string                `json:"agent-version,omitempty"`
	Life           string                `json:"life,omitempty"`
	Subordinates   map[string]UnitStatus `json:"subordinates,omitempty"`
}

type AgentStatus struct {
	Current string `json:"current"`
	Since   string `json:"since,omitempty"`
	Version string `json:"version,omitempty"`
}

func (s ServiceStatus) Dying() bool {
	return s.Life == LifeDying || s.Life == LifeDead
}

func (u UnitStatus) Dying() bool {
	return u.Life == LifeDying || u.Life == LifeDead
}

// ServiceName returns the service a unit belongs to, i.e. the prefix of
// "service/number".
func ServiceName(unit string) string {
	return strings.SplitN(unit, "/", 2)[0]
}

const timestampLayout = "02 Jan 2006 15:04:05"

// ParseTimestamp parses the timestamps juju reports, e.g.
// "19 Aug 2015 05:11:12Z". They are UTC; the status query forces TZ=UTC.
func ParseTimestamp(ts string) (time.Time, error) {
	return time.ParseInLocation(timestampLayout, strings.TrimSuffix(ts, "Z"), time.UTC)
}
