package events

const (
	TopicLease   = "netbridge:events:lease"
	TopicBinding = "netbridge:events:binding"
)
