// Package notify declares the outbound hooks the scheduling engines fire after
// a mutation commits. Delivery (email, payments, push) lives elsewhere.
package notify

import (
	"context"
	"sync"
	"time"
)

type SessionCanceled struct {
	SessionID      string    `json:"session_id"`
	Title          string    `json:"title"`
	Date           time.Time `json:"date"`
	CanceledBy     string    `json:"canceled_by"`
	ParticipantIDs []string  `json:"participant_ids"`
}

// RefundRequested is emitted for every CONFIRMED player of a canceled paid session.
type RefundRequested struct {
	SessionID string  `json:"session_id"`
	UserID    string  `json:"user_id"`
	Amount    float64 `json:"amount"`
}

type JoinRequestSubmitted struct {
	RequestID  string `json:"request_id"`
	CampaignID string `json:"campaign_id"`
	UserID     string `json:"user_id"`
	OwnerID    string `json:"owner_id"`
	Message    string `json:"message"`
}

type Notifier interface {
	SessionCanceled(ctx context.Context, event SessionCanceled) error
	RefundRequested(ctx context.Context, event RefundRequested) error
	JoinRequestSubmitted(ctx context.Context, event JoinRequestSubmitted) error
}

type noopNotifier struct{}

func (noopNotifier) SessionCanceled(context.Context, SessionCanceled) error { return nil }

func (noopNotifier) RefundRequested(context.Context, RefundRequested) error { return nil }

func (noopNotifier) JoinRequestSubmitted(context.Context, JoinRequestSubmitted) error { return nil }

// Noop returns a Notifier that drops every event.
func Noop() Notifier {
	return noopNotifier{}
}

// Recorder keeps events in memory. Tests use it to assert hooks fired.
type Recorder struct {
	mu           sync.Mutex
	Canceled     []SessionCanceled
	Refunds      []RefundRequested
	JoinRequests []JoinRequestSubmitted
}

func (r *Recorder) SessionCanceled(_ context.Context, event SessionCanceled) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Canceled = append(r.Canceled, event)
	return nil
}

func (r *Recorder) RefundRequested(_ context.Context, event RefundRequested) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Refunds = append(r.Refunds, event)
	return nil
}

func (r *Recorder) JoinRequestSubmitted(_ context.Context, event JoinRequestSubmitted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.JoinRequests = append(r.JoinRequests, event)
	return nil
}
