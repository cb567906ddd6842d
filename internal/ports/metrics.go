package ports

// Metrics records operational counters
type Metrics interface {
	WebhookReceived(topic string, outcome string)
	OrderDelivery(outcome string)
	SweepFinished(outcome string, seconds float64)
	GatewayRequest(method string, status int)
}
