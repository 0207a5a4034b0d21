package wait

import (
	"sort"
	"strings"

	"github.com/cppforlife/go-semi-semantic/version"
	"github.com/pkg/errors"

	"github.com/jujutools/juju-wait/pkg/juju"
)

// minLeaderVersion is the agent version from which unit agents run leader
// elections themselves, making a live is-leader query unnecessary.
var minLeaderVersion = version.MustNewVersionFromString("1.23")

// evaluate computes the readiness verdict for one status snapshot, along
// with the sorted names of every unit observed (subordinates included).
// The returned error is always fatal: either the legacy error-state
// condition or a failed juju invocation.
func (w *Waiter) evaluate(status *juju.Status) (ready bool, allUnits []string, err error) {
	ready = true

	serviceNames := make([]string, 0, len(status.Services))
	for sname := range status.Services {
		serviceNames = append(serviceNames, sname)
	}
	sort.Strings(serviceNames)

	for _, sname := range serviceNames {
		if status.Services[sname].Dying() {
			w.Log.V(1).Info("service is dying", "service", sname)
			ready = false
		}
	}

	// Flatten units and subordinates. Units reporting agent-status are
	// modern (juju 1.24+); the rest take the legacy path and may need
	// their logs sniffed.
	var unitNames, modernNames, legacyNames []string
	modern := map[string]juju.AgentStatus{}
	legacy := map[string]juju.UnitStatus{}
	versions := map[string]string{}

	collect := func(name string, unit juju.UnitStatus) {
		unitNames = append(unitNames, name)
		versions[name] = unit.AgentVersion
		if unit.AgentStatus != nil {
			modern[name] = *unit.AgentStatus
			modernNames = append(modernNames, name)
		} else {
			legacy[name] = unit
			legacyNames = append(legacyNames, name)
		}
	}
	for _, service := range status.Services {
		for uname, unit := range service.Units {
			collect(uname, unit)
			for subname, sub := range unit.Subordinates {
				collect(subname, sub)
			}
		}
	}
	sort.Strings(unitNames)
	sort.Strings(modernNames)
	sort.Strings(legacyNames)

	for _, uname := range modernNames {
		agent := modern[uname]
		var since interface{} = agent.Since
		if ts, parseErr := juju.ParseTimestamp(agent.Since); parseErr == nil {
			since = ts
		}
		w.Log.V(1).Info("unit agent status", "unit", uname, "current", agent.Current, "since", since)
		if agent.Current != juju.CurrentIdle {
			ready = false
		}
	}

	// This cycle's sniffed tails become the next cycle's baseline; units
	// not sniffed this cycle drop out.
	logs := map[string]string{}
	for _, uname := range legacyNames {
		unit := legacy[uname]
		switch {
		case unit.Dying():
			w.Log.V(1).Info("unit is dying", "unit", uname)
			ready = false
		case unit.AgentState == juju.StateError:
			// Legacy error state never self-heals; abort the whole wait.
			failure := errors.Errorf("%s failed: %s", uname, unit.AgentStateInfo)
			w.Log.Error(failure, "unit agent is in an error state", "unit", uname)
			return false, nil, &juju.FatalError{Code: juju.ExitAgentError, Err: failure}
		case unit.AgentState != juju.StateStarted:
			w.Log.V(1).Info("unit agent is not started", "unit", uname, "state", unit.AgentState)
			ready = false
		case ready:
			idle, tail, sniffErr := w.sniffLog(uname)
			if sniffErr != nil {
				return false, nil, sniffErr
			}
			logs[uname] = tail
			if !idle {
				ready = false
			}
		}
	}

	// Every service must have a leader. Where one is missing it will be
	// appointed shortly and leadership hooks will fire, so this only runs
	// when everything else already looks quiescent.
	if ready {
		var snames []string
		leaders := map[string]bool{}
		seen := map[string]bool{}
		for _, uname := range unitNames {
			sname := juju.ServiceName(uname)
			if !seen[sname] {
				seen[sname] = true
				snames = append(snames, sname)
			}
			if leaders[sname] || versions[uname] == "" {
				continue
			}
			led, leadErr := w.hasLeadership(uname, versions[uname])
			if leadErr != nil {
				return false, nil, leadErr
			}
			if led {
				leaders[sname] = true
				w.Log.V(1).Info("service has a leader", "service", sname, "unit", uname)
			}
		}
		for _, sname := range snames {
			if !leaders[sname] {
				w.Log.Info("service does not have a leader", "service", sname)
				ready = false
			}
		}
	}

	w.prevLogs = logs
	return ready, unitNames, nil
}

// sniffLog infers idleness of a started legacy unit by comparing the tail
// of its agent log against the previous cycle's. A changed tail, or a
// unit with no baseline yet, counts as active.
func (w *Waiter) sniffLog(unit string) (idle bool, tail string, err error) {
	if !w.loggingReset {
		// One idempotent reset per process lifetime: noisy juju logging
		// would make every tail comparison come up different.
		if err := w.API.ResetLoggingConfig(); err != nil {
			return false, "", err
		}
		w.loggingReset = true
	}

	tail, err = w.API.LogTail(unit)
	if err != nil {
		return false, "", err
	}

	if prev, sniffed := w.prevLogs[unit]; sniffed && prev == tail {
		w.Log.V(1).Info("unit is idle, no hook activity", "unit", unit)
		return true, tail, nil
	}
	w.Log.V(1).Info("unit is active", "unit", unit, "log", strings.TrimSpace(tail))
	return false, tail, nil
}

// hasLeadership reports whether unit establishes leadership for its
// service, preferring the version shortcut over a remote query.
func (w *Waiter) hasLeadership(unit, agentVersion string) (bool, error) {
	if ver, err := version.NewVersionFromString(agentVersion); err == nil && !ver.IsLt(minLeaderVersion) {
		return true, nil
	}
	return w.API.IsLeader(unit)
}
