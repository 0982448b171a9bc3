package mqtt

// DiscardPublisher drops every event. Used when no broker is configured.
type DiscardPublisher struct{}

func (DiscardPublisher) Publish(EdgeEvent) error         { return nil }
func (DiscardPublisher) PublishSystem(SystemEvent) error { return nil }
func (DiscardPublisher) Close() error                    { return nil }
func (DiscardPublisher) IsConnected() bool               { return false }
