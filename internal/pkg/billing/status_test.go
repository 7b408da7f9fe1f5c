package billing

import (
	"testing"

	"github.com/stripe/stripe-go/v82"

	"github.com/kontiq/kontiq/app/models"
)

func TestMapSubscriptionStatus(t *testing.T) {
	tests := []struct {
		in   stripe.SubscriptionStatus
		want string
	}{
		{in: stripe.SubscriptionStatusTrialing, want: models.SubscriptionStatusTrialing},
		{in: stripe.SubscriptionStatusActive, want: models.SubscriptionStatusActive},
		{in: stripe.SubscriptionStatusPastDue, want: models.SubscriptionStatusPastDue},
		{in: stripe.SubscriptionStatusCanceled, want: models.SubscriptionStatusCanceled},
		{in: stripe.SubscriptionStatusUnpaid, want: models.SubscriptionStatusUnpaid},
		{in: stripe.SubscriptionStatusIncomplete, want: models.SubscriptionStatusIncomplete},
		{in: stripe.SubscriptionStatusIncompleteExpired, want: models.SubscriptionStatusIncompleteExpired},
		{in: stripe.SubscriptionStatusPaused, want: models.SubscriptionStatusPaused},
		{in: stripe.SubscriptionStatus("brand_new_status"), want: models.SubscriptionStatusUnknown},
		{in: stripe.SubscriptionStatus(""), want: models.SubscriptionStatusUnknown},
	}

	for _, tt := range tests {
		if got := MapSubscriptionStatus(tt.in); got != tt.want {
			t.Fatalf("MapSubscriptionStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSubscriptionIsEntitling(t *testing.T) {
	for _, status := range []string{models.SubscriptionStatusActive, models.SubscriptionStatusTrialing} {
		sub := models.Subscription{Status: status}
		if !sub.IsEntitling() {
			t.Fatalf("expected status %q to be entitling", status)
		}
	}
	for _, status := range []string{
		models.SubscriptionStatusPastDue,
		models.SubscriptionStatusCanceled,
		models.SubscriptionStatusUnpaid,
		models.SubscriptionStatusPaused,
		models.SubscriptionStatusUnknown,
	} {
		sub := models.Subscription{Status: status}
		if sub.IsEntitling() {
			t.Fatalf("expected status %q to be non-entitling", status)
		}
	}
}
