package types

import "ledswarm-go/bus"

// Topics shared between services. Bus topics are read-only once built.
var (
	TopicNetEvent    = bus.T("net", "event")
	TopicRadioRx     = bus.T("radio", "rx")
	TopicRadioTx     = bus.T("radio", "tx")
	TopicIngress     = bus.T("ingress", "message")
	TopicSensorJolt  = bus.T("sensor", "jolt")
	TopicSensorState = bus.T("sensor", "state")
	TopicMeshState   = bus.T("mesh", "state")
)

// ConfigTopic is the retained topic of one configuration section.
func ConfigTopic(section string) bus.Topic { return bus.T("config", section) }
