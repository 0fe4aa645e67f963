package event

// Topic names are the stable per-kind routing identity on the wire. Changing
// one is a breaking change for every consumer of that kind.
const (
	TopicUserCreated    = "user.created"
	TopicUserUpdated    = "user.updated"
	TopicUserDeleted    = "user.deleted"
	TopicProductCreated = "product.created"
	TopicProductUpdated = "product.updated"
	TopicProductDeleted = "product.deleted"
	TopicOrderCreated   = "order.created"
	TopicOrderDeleted   = "order.deleted"
)

// TopicFor maps an event value to its topic. Unknown types return "".
func TopicFor(evt any) string {
	switch evt.(type) {
	case UserCreated:
		return TopicUserCreated
	case UserUpdated:
		return TopicUserUpdated
	case UserDeleted:
		return TopicUserDeleted
	case ProductCreated:
		return TopicProductCreated
	case ProductUpdated:
		return TopicProductUpdated
	case ProductDeleted:
		return TopicProductDeleted
	case OrderCreated:
		return TopicOrderCreated
	case OrderDeleted:
		return TopicOrderDeleted
	default:
		return ""
	}
}
