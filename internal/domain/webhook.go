package domain

import (
	"strings"
	"time"
)

// WebhookTopic identifies the kind of event delivered by the platform
type WebhookTopic string

const (
	TopicOrdersCreate             WebhookTopic = "orders/create"
	TopicOrdersUpdated            WebhookTopic = "orders/updated"
	TopicOrdersPaid               WebhookTopic = "orders/paid"
	TopicOrdersCancelled          WebhookTopic = "orders/cancelled"
	TopicOrdersFulfilled          WebhookTopic = "orders/fulfilled"
	TopicOrdersPartiallyFulfilled WebhookTopic = "orders/partially_fulfilled"
	TopicRefundsCreate            WebhookTopic = "refunds/create"

	TopicCustomersCreate      WebhookTopic = "customers/create"
	TopicCustomersUpdate      WebhookTopic = "customers/update"
	TopicCustomersDelete      WebhookTopic = "customers/delete"
	TopicCustomersRedact      WebhookTopic = "customers/redact"
	TopicCustomersDataRequest WebhookTopic = "customers/data_request"

	TopicProductsCreate    WebhookTopic = "products/create"
	TopicProductsUpdate    WebhookTopic = "products/update"
	TopicProductsDelete    WebhookTopic = "products/delete"
	TopicCollectionsCreate WebhookTopic = "collections/create"
	TopicCollectionsUpdate WebhookTopic = "collections/update"
	TopicCollectionsDelete WebhookTopic = "collections/delete"

	TopicInventoryLevelsUpdate   WebhookTopic = "inventory_levels/update"
	TopicInventoryItemsUpdate    WebhookTopic = "inventory_items/update"
	TopicFulfillmentsCreate      WebhookTopic = "fulfillments/create"
	TopicFulfillmentsUpdate      WebhookTopic = "fulfillments/update"
	TopicShippingAddressesUpdate WebhookTopic = "shipping_addresses/update"
	TopicCheckoutsCreate         WebhookTopic = "checkouts/create"
	TopicCheckoutsUpdate         WebhookTopic = "checkouts/update"
	TopicCheckoutsDelete         WebhookTopic = "checkouts/delete"
	TopicPaymentTermsUpdate      WebhookTopic = "payment_terms/update"

	TopicShopUpdate WebhookTopic = "shop/update"
	TopicShopRedact WebhookTopic = "shop/redact"

	TopicAppUninstalled          WebhookTopic = "app/uninstalled"
	TopicAppSubscriptionsUpdate  WebhookTopic = "app_subscriptions/update"
	TopicBillingAttemptFailed    WebhookTopic = "billing/attempts/failed"
	TopicBillingAttemptSucceeded WebhookTopic = "billing/attempts/succeeded"
)

// DefaultSubscriptionTopics are registered for every store after install.
// Compliance topics (customers/redact, customers/data_request, shop/redact)
// are configured on the app itself and cannot be subscribed per shop.
var DefaultSubscriptionTopics = []WebhookTopic{
	TopicOrdersCreate,
	TopicOrdersUpdated,
	TopicOrdersPaid,
	TopicOrdersCancelled,
	TopicOrdersFulfilled,
	TopicOrdersPartiallyFulfilled,
	TopicRefundsCreate,
	TopicCustomersCreate,
	TopicCustomersUpdate,
	TopicCustomersDelete,
	TopicShopUpdate,
	TopicAppUninstalled,
}

// IsOrderTopic reports whether deliveries on the topic are persisted as orders
func (t WebhookTopic) IsOrderTopic() bool {
	return strings.HasPrefix(string(t), "orders/") || t == TopicRefundsCreate
}

// IsCustomerTopic reports whether the topic belongs to the customer family
func (t WebhookTopic) IsCustomerTopic() bool {
	return strings.HasPrefix(string(t), "customers/")
}

// IsCatalogTopic reports whether the topic belongs to the product,
// collection or inventory families
func (t WebhookTopic) IsCatalogTopic() bool {
	s := string(t)
	return strings.HasPrefix(s, "products/") ||
		strings.HasPrefix(s, "collections/") ||
		strings.HasPrefix(s, "inventory_")
}

// IsBillingTopic reports whether the topic is a billing or subscription event
func (t WebhookTopic) IsBillingTopic() bool {
	return t == TopicAppSubscriptionsUpdate || strings.HasPrefix(string(t), "billing/")
}

// WebhookEvent is a verified inbound webhook delivery
type WebhookEvent struct {
	Topic      WebhookTopic
	Shop       string
	WebhookID  string
	HMAC       string
	Payload    []byte
	Verified   bool
	ReceivedAt time.Time
}
