package juju_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/jujutools/juju-wait/pkg/juju"
)

var _ = Describe("Status", func() {
	It("decodes modern, legacy and subordinate units", func() {
		doc := `{
			"services": {
				"mysql": {
					"units": {
						"mysql/0": {
							"agent-status": {"current": "idle", "since": "19 Aug 2015 05:11:12Z", "version": "1.24.4"},
							"agent-version": "1.24.4"
						}
					}
				},
				"wordpress": {
					"life": "dying",
					"units": {
						"wordpress/0": {
							"agent-state": "started",
							"agent-version": "1.22.0",
							"subordinates": {
								"nrpe/0": {
									"agent-state": "pending",
									"agent-version": "1.22.0"
								}
							}
						}
					}
				}
			}
		}`
		status := &juju.Status{}
		Expect(json.Unmarshal([]byte(doc), status)).To(Succeed())

		mysql := status.Services["mysql"].Units["mysql/0"]
		Expect(mysql.AgentStatus).NotTo(BeNil(), "mysql/0 reports modern agent-status")
		Expect(mysql.AgentStatus.Current).To(Equal(juju.CurrentIdle))

		Expect(status.Services["wordpress"].Dying()).To(BeTrue())
		wordpress := status.Services["wordpress"].Units["wordpress/0"]
		Expect(wordpress.AgentStatus).To(BeNil(), "wordpress/0 is a legacy agent")
		Expect(wordpress.AgentState).To(Equal(juju.StateStarted))

		nrpe := wordpress.Subordinates["nrpe/0"]
		Expect(nrpe.AgentStatus).To(BeNil())
		Expect(nrpe.AgentState).To(Equal("pending"))
	})
})

var _ = Describe("ServiceName", func() {
	It("strips the unit number", func() {
		Expect(juju.ServiceName("mysql/0")).To(Equal("mysql"))
		Expect(juju.ServiceName("rabbitmq-server/12")).To(Equal("rabbitmq-server"))
	})
})

var _ = Describe("ParseTimestamp", func() {
	It("parses juju's UTC timestamps", func() {
		ts, err := juju.ParseTimestamp("19 Aug 2015 05:11:12Z")
		Expect(err).NotTo(HaveOccurred())
		Expect(ts).To(Equal(time.Date(2015, 8, 19, 5, 11, 12, 0, time.UTC)))
	})
	It("rejects garbage", func() {
		_, err := juju.ParseTimestamp("last tuesday")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Dying", func() {
	It("covers dying and dead but not alive", func() {
		Expect(juju.UnitStatus{Life: "dying"}.Dying()).To(BeTrue())
		Expect(juju.UnitStatus{Life: "dead"}.Dying()).To(BeTrue())
		Expect(juju.UnitStatus{Life: "alive"}.Dying()).To(BeFalse())
		Expect(juju.UnitStatus{}.Dying()).To(BeFalse())
	})
})
