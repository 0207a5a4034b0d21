// Package wait implements steady-state detection for a juju environment:
// it samples `juju status` on a fixed interval and returns once no unit is
// executing or queueing hooks, no service or unit is dying, and every
// service has a leader, sustained for a confirmation window.
package wait

import (
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/go-logr/logr"

	"github.com/jujutools/juju-wait/pkg/juju"
)

const (
	// PollInterval is the pause between status samples.
	PollInterval = 4 * time.Second

	// IdleConfirmation is how long the environment must stay ready before
	// the wait returns. Running juju-wait immediately after an operation
	// such as upgrade-charm would otherwise report success before the
	// scheduled operation has had a chance to fire its hooks.
	IdleConfirmation = 15 * time.Second
)

type Waiter struct {
	API   juju.API
	Clock clock.Clock
	Log   logr.Logger

	// State carried from one poll cycle to the next.
	prevLogs     map[string]string
	readySince   time.Time
	loggingReset bool
}

func New(api juju.API, log logr.Logger) *Waiter {
	return &Waiter{
		API:   api,
		Clock: clock.NewClock(),
		Log:   log,
	}
}

// Wait polls forever until the environment has been continuously ready
// for IdleConfirmation, returning nil, or until a fatal error aborts the
// wait. Transient non-ready conditions are never errors; an external
// caller imposes an overall timeout if one is wanted.
func (w *Waiter) Wait() error {
	for {
		status, err := w.API.Status()
		if err != nil {
			return err
		}

		ready, allUnits, err := w.evaluate(status)
		if err != nil {
			return err
		}

		switch {
		case !ready:
			w.readySince = time.Time{}
		case w.readySince.IsZero():
			w.readySince = w.Clock.Now()
		case w.Clock.Now().Sub(w.readySince) >= IdleConfirmation:
			w.Log.Info("all units idle", "since", w.readySince.UTC(), "units", allUnits)
			return nil
		}

		w.Clock.Sleep(PollInterval)
	}
}
