// Package reference encodes and decodes the external reference string
// echoed back by the payment processor on every notification. Two forms
// coexist in the wild: a plain token, and a composite token carrying
// base64-encoded JSON metadata after a "##" separator.
package reference

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const separator = "##"

// Reference is the decoded form of a payment's external reference.
type Reference struct {
	LeadRef  string
	Metadata map[string]any
}

// Decode never fails: an undecodable metadata blob yields nil Metadata
// with the lead ref intact, and a reference without the separator is
// the lead ref itself.
func Decode(raw string) Reference {
	idx := strings.Index(raw, separator)
	if idx < 0 {
		return Reference{LeadRef: raw}
	}

	ref := Reference{LeadRef: raw[:idx]}

	blob, err := base64.StdEncoding.DecodeString(raw[idx+len(separator):])
	if err != nil {
		return ref
	}

	var meta map[string]any
	if err := json.Unmarshal(blob, &meta); err != nil {
		return ref
	}

	ref.Metadata = meta
	return ref
}

// Encode produces the composite form when metadata is present, the
// plain form otherwise.
func Encode(leadRef string, metadata map[string]any) string {
	if len(metadata) == 0 {
		return leadRef
	}

	blob, err := json.Marshal(metadata)
	if err != nil {
		return leadRef
	}

	return leadRef + separator + base64.StdEncoding.EncodeToString(blob)
}

// NewLeadRef generates a reference for checkouts where the lead store
// did not hand one back.
func NewLeadRef() string {
	return fmt.Sprintf("ref-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// NewUpsellLeadRef marks upsell checkouts so they never collide with
// the originating lead's reference.
func NewUpsellLeadRef() string {
	return fmt.Sprintf("ref-upsell-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
