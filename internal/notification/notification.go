package notification

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// Topic classifies what kind of resource a processor notification points at.
type Topic string

const (
	TopicPayment       Topic = "payment"
	TopicMerchantOrder Topic = "merchant_order"
	TopicUnknown       Topic = "unknown"
)

// Notification is the canonical form of an inbound processor
// notification, however it was delivered. ResourceID may be empty when
// the payload carried no usable id.
type Notification struct {
	Topic      Topic
	ResourceID string
}

// body covers both notification schemas the processor emits:
// {"type":"payment","data":{"id":"123"}} and
// {"resource":".../merchant_orders/123","topic":"merchant_order"}.
type body struct {
	Type     string `json:"type"`
	Topic    string `json:"topic"`
	Resource string `json:"resource"`
	Data     struct {
		ID flexibleID `json:"id"`
	} `json:"data"`
}

// flexibleID tolerates both string and numeric ids; the processor has
// shipped both encodings over time.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		*f = flexibleID(n.String())
		return nil
	}
	// unexpected shape, leave empty rather than failing the whole body
	return nil
}

// Parse normalizes a raw webhook request into a Notification.
//
// Resource id resolution order: query "id", body data.id, trailing path
// segment of body "resource". Topic resolution order: query "topic",
// body "topic", body "type". A malformed body is treated as an empty
// object; Parse never fails.
func Parse(r *http.Request) Notification {
	var b body
	if r.Body != nil {
		raw, err := io.ReadAll(r.Body)
		if err == nil && len(raw) > 0 {
			// decode errors leave b zero-valued on purpose
			_ = json.Unmarshal(raw, &b)
		}
	}

	query := r.URL.Query()

	resourceID := query.Get("id")
	if resourceID == "" {
		resourceID = string(b.Data.ID)
	}
	if resourceID == "" && b.Resource != "" {
		parts := strings.Split(strings.TrimRight(b.Resource, "/"), "/")
		resourceID = parts[len(parts)-1]
	}

	rawTopic := query.Get("topic")
	if rawTopic == "" {
		rawTopic = b.Topic
	}
	if rawTopic == "" {
		rawTopic = b.Type
	}

	return Notification{
		Topic:      mapTopic(rawTopic),
		ResourceID: resourceID,
	}
}

// mapTopic is case sensitive: the processor emits lowercase topic names
// and anything else is not ours to guess at.
func mapTopic(raw string) Topic {
	switch raw {
	case "payment":
		return TopicPayment
	case "merchant_order":
		return TopicMerchantOrder
	default:
		return TopicUnknown
	}
}
