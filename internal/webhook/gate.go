package webhook

import "github.com/jmehdipour/paywall/internal/model"

// bypass lists event types delivered even when the admin has not enabled them.
var bypass = map[string]struct{}{
	model.EventPaymentSuccess: {},
	model.EventPaymentFailure: {},
	model.EventContactCreated: {},
	model.EventReviewCreated:  {},
	model.EventReviewApproved: {},
	model.EventReviewDeleted:  {},
}

func IsBypass(eventType string) bool {
	_, ok := bypass[eventType]
	return ok
}

// Eligible reports whether eventType should be persisted and delivered.
func Eligible(eventType string, enabled map[string]struct{}) bool {
	if IsBypass(eventType) {
		return true
	}
	_, ok := enabled[eventType]
	return ok
}
