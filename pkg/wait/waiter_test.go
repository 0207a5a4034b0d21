package wait

import (
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/pkg/errors"

	"github.com/jujutools/juju-wait/pkg/juju"
	"github.com/jujutools/juju-wait/pkg/waitlog"
)

var _ = Describe("Waiter.Wait", func() {
	var (
		fake      *fakeJuju
		fakeClock *fakeclock.FakeClock
		w         *Waiter
		errCh     chan error
	)
	BeforeEach(func() {
		fake = &fakeJuju{}
		fakeClock = fakeclock.NewFakeClock(time.Date(2015, 8, 19, 0, 0, 0, 0, time.UTC))
		w = &Waiter{API: fake, Clock: fakeClock, Log: waitlog.ForTest(gbytes.NewBuffer())}
		errCh = make(chan error)
	})

	readyStatus := func() *juju.Status {
		return oneService("mysql", "", map[string]juju.UnitStatus{
			"mysql/0": modernUnit(juju.CurrentIdle, "2.0"),
		})
	}
	notReadyStatus := func() *juju.Status {
		return oneService("mysql", juju.LifeDying, map[string]juju.UnitStatus{
			"mysql/0": modernUnit(juju.CurrentIdle, "2.0"),
		})
	}

	It("succeeds only after the environment stays ready for the confirmation window", func() {
		fake.statuses = []*juju.Status{readyStatus()}
		go func() {
			errCh <- w.Wait()
		}()

		// Ready at t=0, t=4, t=8, t=12: the window has not elapsed yet.
		for i := 0; i < 3; i++ {
			fakeClock.WaitForWatcherAndIncrement(PollInterval)
		}
		Consistently(errCh).ShouldNot(Receive())

		// t=16 is past the 15 second confirmation window.
		fakeClock.WaitForWatcherAndIncrement(PollInterval)
		Eventually(errCh).Should(Receive(BeNil()))
	})

	It("restarts the confirmation window when readiness is interrupted", func() {
		fake.statuses = []*juju.Status{
			readyStatus(), readyStatus(), readyStatus(),
			notReadyStatus(),
			readyStatus(),
		}
		go func() {
			errCh <- w.Wait()
		}()

		// Three ready cycles, one not-ready cycle at t=12, then ready
		// again from t=16: a fresh window must elapse from there.
		for i := 0; i < 7; i++ {
			fakeClock.WaitForWatcherAndIncrement(PollInterval)
		}
		Consistently(errCh).ShouldNot(Receive())

		fakeClock.WaitForWatcherAndIncrement(PollInterval)
		Eventually(errCh).Should(Receive(BeNil()))
	})

	It("fails immediately when a legacy agent is in error state", func() {
		failed := legacyUnit(juju.StateError, "1.22.0")
		failed.AgentStateInfo = "hook failed"
		fake.statuses = []*juju.Status{
			oneService("wordpress", "", map[string]juju.UnitStatus{"wordpress/0": failed}),
		}
		go func() {
			errCh <- w.Wait()
		}()

		var err error
		Eventually(errCh).Should(Receive(&err))
		Expect(juju.ExitCode(err)).To(Equal(1))
		Expect(fake.statusCalls).To(Equal(1), "no debounce wait before a fatal error")
	})

	It("propagates status query failures", func() {
		fake.statusErr = &juju.FatalError{Code: juju.ExitCommandFailed, Err: errors.New("juju status failed")}
		go func() {
			errCh <- w.Wait()
		}()

		var err error
		Eventually(errCh).Should(Receive(&err))
		Expect(juju.ExitCode(err)).To(Equal(juju.ExitCommandFailed))
	})
})
