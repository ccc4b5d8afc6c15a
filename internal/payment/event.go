package payment

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
)

// EventTypeCheckoutCompleted は支払い確定として扱うイベント種別。
const EventTypeCheckoutCompleted = string(stripe.EventTypeCheckoutSessionCompleted)

// Event は支払いプロバイダーのWebhookイベントのうち、処理に必要な部分。
type Event struct {
	ID   string
	Type string

	session *stripe.CheckoutSession
}

// ParseEvent はWebhookペイロードをstripe.Eventとして読み、
// 支払い確定イベントであればCheckoutSessionも取り出す。
func ParseEvent(payload []byte) (*Event, error) {
	var raw stripe.Event
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse payment event: %w", err)
	}

	ev := &Event{ID: raw.ID, Type: string(raw.Type)}
	if raw.Type != stripe.EventTypeCheckoutSessionCompleted || raw.Data == nil || len(raw.Data.Raw) == 0 {
		return ev, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("failed to parse checkout session: %w", err)
	}
	ev.session = &session
	return ev, nil
}

// IsCheckoutCompleted は支払い確定イベントかどうかを返す。
func (e *Event) IsCheckoutCompleted() bool {
	return e.Type == EventTypeCheckoutCompleted
}

// ApplicantID はイベントに紐づく応募者IDを返す。
// metadata.applicantId を優先し、なければ client_reference_id を使う。
func (e *Event) ApplicantID() string {
	if e.session == nil {
		return ""
	}
	if id := strings.TrimSpace(e.session.Metadata["applicantId"]); id != "" {
		return id
	}
	return strings.TrimSpace(e.session.ClientReferenceID)
}
