// Package bundle defines the credential-bundle wire format shared between
// credfresh and the external authentication agents that produce bundles.
//
// A bundle is the stored set of authentication items (cookies, tokens) for
// one service/account. Agents emit it as JSON; the store reads and writes
// the same envelope regardless of backend.
package bundle

import (
	"encoding/json"
	"fmt"
	"time"
)

// Item is one named authentication value with an optional absolute expiry.
// Items without an expiry instant are session-scoped and only age out with
// the bundle itself. Domain, Path and Metadata are opaque to credfresh and
// carried through for the agents that consume the bundle.
type Item struct {
	Name      string            `json:"name"`
	Value     string            `json:"value"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
	Domain    string            `json:"domain,omitempty"`
	Path      string            `json:"path,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Expired reports whether the item's expiry instant is in the past.
// Items without an expiry instant never report expired on their own.
func (i Item) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && i.ExpiresAt.Before(now)
}

// Bundle is the stored artifact for one (service, account) pair.
type Bundle struct {
	SavedAt time.Time `json:"saved_at"`
	Items   []Item    `json:"items"`

	// Origin and ModifiedAt are set by the store when a bundle is loaded;
	// they are not part of the wire format.
	Origin     string    `json:"-"`
	ModifiedAt time.Time `json:"-"`
}

// Parse decodes a bundle from its JSON wire format.
func Parse(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}

	seen := make(map[string]struct{}, len(b.Items))
	for _, item := range b.Items {
		if item.Name == "" {
			return nil, fmt.Errorf("bundle item with empty name")
		}
		if _, dup := seen[item.Name]; dup {
			return nil, fmt.Errorf("duplicate bundle item %q", item.Name)
		}
		seen[item.Name] = struct{}{}
	}

	return &b, nil
}

// Marshal encodes the bundle to its JSON wire format.
func (b *Bundle) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return data, nil
}

// Validate performs the structural check a freshly fetched bundle must pass
// before it may replace the live one. An empty bundle cannot authenticate,
// so it is rejected here rather than written and classified later.
func (b *Bundle) Validate() error {
	if len(b.Items) == 0 {
		return fmt.Errorf("bundle contains no items")
	}
	for _, item := range b.Items {
		if item.Name == "" {
			return fmt.Errorf("bundle item with empty name")
		}
	}
	return nil
}

// ExpiredCount returns the number of items whose expiry instant is past.
func (b *Bundle) ExpiredCount(now time.Time) int {
	count := 0
	for _, item := range b.Items {
		if item.Expired(now) {
			count++
		}
	}
	return count
}

// SoonestExpiry returns the earliest expiry instant among non-expired items
// that carry one, or nil when no live item constrains expiry.
func (b *Bundle) SoonestExpiry(now time.Time) *time.Time {
	var soonest *time.Time
	for _, item := range b.Items {
		if item.ExpiresAt == nil || item.Expired(now) {
			continue
		}
		if soonest == nil || item.ExpiresAt.Before(*soonest) {
			t := *item.ExpiresAt
			soonest = &t
		}
	}
	return soonest
}

// AgeDays returns the whole days elapsed since the bundle was last written.
// Truncated, never rounded up: a bundle written 23 hours ago is 0 days old.
func (b *Bundle) AgeDays(now time.Time) int {
	ref := b.ModifiedAt
	if ref.IsZero() {
		ref = b.SavedAt
	}
	age := now.Sub(ref)
	if age < 0 {
		return 0
	}
	return int(age.Hours() / 24)
}

// Values returns all item values, for redaction of log output.
func (b *Bundle) Values() []string {
	vals := make([]string, 0, len(b.Items))
	for _, item := range b.Items {
		vals = append(vals, item.Value)
	}
	return vals
}
