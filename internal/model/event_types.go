package model

// Event types announced by the business surfaces. The emitter accepts any
// string; these are the ones the service itself produces.
const (
	EventPaymentSuccess   = "payment_success"
	EventPaymentFailure   = "payment_failure"
	EventContentCreated   = "content_created"
	EventContentUpdated   = "content_updated"
	EventContentPublished = "content_published"
	EventAccessCreated    = "content.access.created"
	EventReviewCreated    = "review.created"
	EventReviewApproved   = "review.approved"
	EventReviewDeleted    = "review.deleted"
	EventContactCreated   = "contact.message.created"
)

// KnownEventTypes lists every type the service emits, for admin validation.
var KnownEventTypes = []string{
	EventPaymentSuccess,
	EventPaymentFailure,
	EventContentCreated,
	EventContentUpdated,
	EventContentPublished,
	EventAccessCreated,
	EventReviewCreated,
	EventReviewApproved,
	EventReviewDeleted,
	EventContactCreated,
}
