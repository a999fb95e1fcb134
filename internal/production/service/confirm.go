package service

import (
	"context"

	"github.com/bartarleather/erp-backend/internal/production/unit"
)

// ConfirmRequest carries everything the operator needs to judge a
// cross-unit quantity reinterpretation.
type ConfirmRequest struct {
	ProductID    string
	ProductName  string
	SourceUnit   unit.Unit
	TargetUnit   unit.Unit
	SourceQty    float64
	ConvertedQty float64
}

// Confirmer is the human-in-the-loop confirmation capability. It may block
// until the operator decides, so implementations must honor ctx
// cancellation. A false result is a cancellation, not a fault.
type Confirmer interface {
	Confirm(ctx context.Context, req ConfirmRequest) (bool, error)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, req ConfirmRequest) (bool, error)

func (f ConfirmerFunc) Confirm(ctx context.Context, req ConfirmRequest) (bool, error) {
	return f(ctx, req)
}

// AutoAccept accepts every conversion. Used when confirmation is disabled.
type AutoAccept struct{}

func (AutoAccept) Confirm(context.Context, ConfirmRequest) (bool, error) {
	return true, nil
}

type approvalKey struct{}

// WithConversionApproval marks the request context with the caller's
// decision on cross-unit conversions.
func WithConversionApproval(ctx context.Context, accepted bool) context.Context {
	return context.WithValue(ctx, approvalKey{}, accepted)
}

// ConversionApproval reads the caller's conversion decision, if any.
func ConversionApproval(ctx context.Context) (accepted, ok bool) {
	accepted, ok = ctx.Value(approvalKey{}).(bool)
	return
}

// RequestConfirmer resolves confirmations from the request context, so a
// caller can pre-approve conversions for one operation. Without an explicit
// decision the configured default applies.
type RequestConfirmer struct {
	Default bool
}

func (c RequestConfirmer) Confirm(ctx context.Context, _ ConfirmRequest) (bool, error) {
	if accepted, ok := ConversionApproval(ctx); ok {
		return accepted, nil
	}
	return c.Default, nil
}

// RejectAll rejects every conversion. Test double.
type RejectAll struct{}

func (RejectAll) Confirm(context.Context, ConfirmRequest) (bool, error) {
	return false, nil
}

// RejectNth accepts every conversion except the nth one asked (1-based).
// Test double; not safe for concurrent use.
type RejectNth struct {
	N     int
	calls int
}

func (r *RejectNth) Confirm(context.Context, ConfirmRequest) (bool, error) {
	r.calls++
	return r.calls != r.N, nil
}

// Calls reports how many times the double was asked.
func (r *RejectNth) Calls() int {
	return r.calls
}
