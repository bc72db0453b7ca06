package payments

import "context"

// Gateway is the hold/capture/cancel surface the ride coordinator
// needs. Fares are held when a ride is confirmed, captured when the
// driver completes it, and released on cancellation.
type Gateway interface {
	Hold(ctx context.Context, amount int64, currency, customerID string) (string, error)
	Capture(ctx context.Context, paymentIntentID string) error
	Cancel(ctx context.Context, paymentIntentID string) error
}

// NopGateway is used when no payment credentials are configured; all
// operations succeed without side effects.
type NopGateway struct{}

func (NopGateway) Hold(ctx context.Context, amount int64, currency, customerID string) (string, error) {
	return "", nil
}
func (NopGateway) Capture(ctx context.Context, paymentIntentID string) error { return nil }
func (NopGateway) Cancel(ctx context.Context, paymentIntentID string) error  { return nil }
