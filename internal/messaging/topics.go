package messaging

const (
	TopicOrderCreated   = "order.created"
	TopicOrderCancelled = "order.cancelled"
)
