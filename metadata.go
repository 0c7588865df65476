package envmeta

import (
	"fmt"
	"time"

	"github.com/hengadev/errsx"
)

// KeyWrapping is one recipient's encrypted copy of the document data key.
// Both fields are opaque to this package: the recipient identifier and the
// ciphertext blob are produced and consumed by the backend providers.
// A KeyWrapping is immutable once appended to a Metadata entity.
type KeyWrapping struct {
	Recipient  string
	WrappedKey string
}

// Metadata is the envelope record of one encrypted document: per-backend
// key-wrapping lists, the integrity code over the encrypted payload, the last
// modification timestamp, the envelope version, and the four encryption-scope
// rules. Exactly one Metadata accompanies each document.
//
// Metadata is not safe for concurrent mutation; callers processing documents
// in parallel must give each document its own instance.
type Metadata struct {
	groups map[Backend][]KeyWrapping

	mac          string
	lastModified string
	version      string

	rules scopeRules
}

// New constructs a fresh envelope with defaults: empty key-wrapping lists,
// version DefaultVersion, and the standard "_unencrypted" suffix rule.
// Options may override any of the scope rules, including clearing the suffix
// default entirely.
func New(opts ...Option) (*Metadata, error) {
	m := &Metadata{
		groups:  emptyGroups(),
		version: DefaultVersion,
	}
	m.rules.unencryptedSuffix = DefaultUnencryptedSuffix
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func emptyGroups() map[Backend][]KeyWrapping {
	groups := make(map[Backend][]KeyWrapping, len(backends))
	for _, b := range backends {
		groups[b] = []KeyWrapping{}
	}
	return groups
}

// FromRecord constructs a Metadata from a decoded envelope record, typically
// the value found under EnvelopeKey in a decoded document.
//
// The second return reports whether an envelope was present at all: any input
// that is not a string-keyed record yields (nil, false, nil) rather than an
// error, so callers can optimistically probe a document for an envelope and
// distinguish "none present" from "present but malformed".
//
// Missing backend lists become empty lists and a missing version becomes
// DefaultVersion. A record carrying no scope-rule field at all receives the
// same "_unencrypted" suffix default as fresh construction; a record with any
// explicit rule is taken as-is. Unknown keys are dropped. Malformed known
// fields, including scope patterns that do not compile, return an error.
func FromRecord(v any) (*Metadata, bool, error) {
	record, ok := v.(map[string]any)
	if !ok {
		return nil, false, nil
	}

	m := &Metadata{
		groups:  emptyGroups(),
		version: DefaultVersion,
	}
	m.rules.unencryptedSuffix = DefaultUnencryptedSuffix

	var errs errsx.Map
	for _, b := range backends {
		raw, found := record[string(b)]
		if !found || raw == nil {
			continue
		}
		group, err := parseGroup(raw)
		if err != nil {
			errs.Set(fmt.Sprintf("backend list '%s'", b), err)
			continue
		}
		m.groups[b] = group
	}

	scalars := map[string]*string{
		fieldMAC:          &m.mac,
		fieldLastModified: &m.lastModified,
		fieldVersion:      &m.version,
	}
	for name, dst := range scalars {
		if raw, found := record[name]; found {
			s, err := asString(raw)
			if err != nil {
				errs.Set(fmt.Sprintf("field '%s'", name), err)
				continue
			}
			*dst = s
		}
	}
	if m.version == "" {
		m.version = DefaultVersion
	}

	if err := m.rules.load(record); err != nil {
		errs.Set("encryption-scope rules", err)
	}

	if !errs.IsEmpty() {
		return nil, true, fmt.Errorf("%w: %w", ErrMalformedEnvelope, errs.AsError())
	}
	return m, true, nil
}

func parseGroup(raw any) ([]KeyWrapping, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", raw)
	}
	group := make([]KeyWrapping, 0, len(items))
	for i, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("entry %d: expected a record, got %T", i, item)
		}
		recipient, err := asString(entry[fieldRecipient])
		if err != nil {
			return nil, fmt.Errorf("entry %d: recipient: %w", i, err)
		}
		wrappedKey, err := asString(entry[fieldWrappedKey])
		if err != nil {
			return nil, fmt.Errorf("entry %d: enc: %w", i, err)
		}
		group = append(group, KeyWrapping{Recipient: recipient, WrappedKey: wrappedKey})
	}
	return group, nil
}

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected a string, got %T", v)
	}
	return s, nil
}

// ToRecord exports the envelope as a plain record ready to be re-inserted
// under EnvelopeKey and encoded. The projection is pure: calling it twice
// without an intervening mutation yields structurally identical output.
//
// Every backend list is always present, even when empty. Scalar fields are
// emitted only when set, except version, which always carries at least the
// compatibility default.
func (m *Metadata) ToRecord() map[string]any {
	record := make(map[string]any, len(backends)+7)
	for _, b := range backends {
		group := m.groups[b]
		entries := make([]any, 0, len(group))
		for _, kw := range group {
			entries = append(entries, map[string]any{
				fieldRecipient:  kw.Recipient,
				fieldWrappedKey: kw.WrappedKey,
			})
		}
		record[string(b)] = entries
	}

	if m.lastModified != "" {
		record[fieldLastModified] = m.lastModified
	}
	if m.mac != "" {
		record[fieldMAC] = m.mac
	}
	version := m.version
	if version == "" {
		version = DefaultVersion
	}
	record[fieldVersion] = version

	m.rules.store(record)
	return record
}

// AddKeyWrapping appends one recipient's wrapped data key to the named
// backend's list. Entries are never deduplicated: wrapping twice for the same
// recipient yields two entries, and avoiding that is the caller's job.
// On any validation failure the entity is left unchanged.
func (m *Metadata) AddKeyWrapping(backend Backend, recipient, wrappedKey string) error {
	if _, err := ParseBackend(string(backend)); err != nil {
		return err
	}
	if recipient == "" {
		return NewMissingArgumentError("recipient")
	}
	if wrappedKey == "" {
		return NewMissingArgumentError("wrappedKey")
	}
	m.groups[backend] = append(m.groups[backend], KeyWrapping{
		Recipient:  recipient,
		WrappedKey: wrappedKey,
	})
	return nil
}

// KeyWrappings returns a snapshot of the named backend's list in insertion
// order. Mutating the returned slice does not affect the entity.
func (m *Metadata) KeyWrappings(backend Backend) []KeyWrapping {
	group := m.groups[backend]
	out := make([]KeyWrapping, len(group))
	copy(out, group)
	return out
}

// RefreshTimestamp stamps the envelope with the current instant, UTC,
// truncated to whole seconds. It returns the entity for chaining.
func (m *Metadata) RefreshTimestamp() *Metadata {
	m.lastModified = time.Now().UTC().Format(timestampLayout)
	return m
}

// SetMAC records the integrity code computed over the encrypted document
// body. The value is opaque to this package.
func (m *Metadata) SetMAC(mac string) { m.mac = mac }

func (m *Metadata) MAC() string          { return m.mac }
func (m *Metadata) LastModified() string { return m.lastModified }
func (m *Metadata) Version() string      { return m.version }
