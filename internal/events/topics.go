package events

const (
	TopicLinkStatus  = "link.status"
	TopicResponse    = "rx.response"
	TopicEnvelope    = "rx.envelope"
	TopicRaw         = "rx.raw"
	TopicCommandSent = "tx.command"
)
