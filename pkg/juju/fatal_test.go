package juju_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/jujutools/juju-wait/pkg/juju"
)

var _ = Describe("ExitCode", func() {
	It("is 0 for nil", func() {
		Expect(juju.ExitCode(nil)).To(Equal(0))
	})
	It("is the carried code for a FatalError", func() {
		err := &juju.FatalError{Code: juju.ExitCommandFailed, Err: errors.New("boom")}
		Expect(juju.ExitCode(err)).To(Equal(43))
	})
	It("sees through wrapping", func() {
		err := errors.Wrap(&juju.FatalError{Code: juju.ExitAgentError, Err: errors.New("hook failed")}, "waiting")
		Expect(juju.ExitCode(err)).To(Equal(1))
	})
	It("is 1 for anything else", func() {
		Expect(juju.ExitCode(errors.New("unclassified"))).To(Equal(1))
	})
})
