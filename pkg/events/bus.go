package events

type Handler func(Event)

type Subscription interface {
	Unsubscribe()
}

type TopicStats struct {
	Topic       string `json:"topic"`
	Subscribers int    `json:"subscribers"`
}

type Stats struct {
	Topics       []TopicStats `json:"topics"`
	PublishChLen int          `json:"publish-channel-length"`
	PublishChCap int          `json:"publish-channel-capacity"`
	Published    uint64       `json:"published"`
	Dropped      uint64       `json:"dropped"`
}

// Bus delivers events asynchronously. Publish never blocks; events are
// dropped when the queue is full.
type Bus interface {
	Publish(topic string, event Event)
	Subscribe(topic string, handler Handler) Subscription
	SubscribeAll(handler Handler) Subscription
	Stats() Stats
	Close() error
}

// Nop discards everything. Used where no bus is wired.
type Nop struct{}

func (Nop) Publish(string, Event)                   {}
func (Nop) Subscribe(string, Handler) Subscription  { return nopSub{} }
func (Nop) SubscribeAll(Handler) Subscription       { return nopSub{} }
func (Nop) Stats() Stats                            { return Stats{} }
func (Nop) Close() error                            { return nil }

type nopSub struct{}

func (nopSub) Unsubscribe() {}
