package envmeta

import (
	"regexp"
	"strings"
)

// scopeRules holds the four encryption-scope rule sources. An empty string
// means the rule is unset; an empty-string value read from a record or passed
// through an option is normalized to unset rather than treated as a suffix
// that trails every name. Regex rules keep their compiled form so ShouldEncrypt
// stays a pure boolean function with no failure mode.
type scopeRules struct {
	unencryptedSuffix string
	encryptedSuffix   string
	unencryptedRegex  string
	encryptedRegex    string

	unencryptedPattern *regexp.Regexp
	encryptedPattern   *regexp.Regexp
}

// ShouldEncrypt decides whether the named field is encrypted. The rules form
// an ordered chain and the first applicable one wins:
//
//  1. unencrypted suffix matches the name: plaintext.
//  2. encrypted suffix is configured: encrypt exactly the names that carry
//     it. The rule is authoritative once set; names without the suffix stay
//     plaintext regardless of any regex rule below.
//  3. unencrypted regex matches the name: plaintext.
//  4. encrypted regex is configured: encrypt exactly the names it matches,
//     with the same authoritative short-circuit as rule 2.
//  5. Otherwise encrypt.
//
// Suffix rules outrank regex rules, and within each tier the exclusion rule
// outranks the inclusion rule, so an explicit "leave this in plaintext"
// always beats a broad "encrypt everything like this". Matching is
// case-sensitive; regexes are unanchored searches.
func (m *Metadata) ShouldEncrypt(fieldName string) bool {
	r := &m.rules
	if r.unencryptedSuffix != "" && strings.HasSuffix(fieldName, r.unencryptedSuffix) {
		return false
	}
	if r.encryptedSuffix != "" {
		return strings.HasSuffix(fieldName, r.encryptedSuffix)
	}
	if r.unencryptedPattern != nil && r.unencryptedPattern.MatchString(fieldName) {
		return false
	}
	if r.encryptedPattern != nil {
		return r.encryptedPattern.MatchString(fieldName)
	}
	return true
}

// setUnencryptedRegex compiles and installs the unencrypted-pattern rule.
// Compilation failures surface here, at the point the rule is set, never
// later during evaluation.
func (r *scopeRules) setUnencryptedRegex(pattern string) error {
	if pattern == "" {
		r.unencryptedRegex = ""
		r.unencryptedPattern = nil
		return nil
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return NewInvalidRuleError(fieldUnencryptedRegex, pattern, err)
	}
	r.unencryptedRegex = pattern
	r.unencryptedPattern = compiled
	return nil
}

func (r *scopeRules) setEncryptedRegex(pattern string) error {
	if pattern == "" {
		r.encryptedRegex = ""
		r.encryptedPattern = nil
		return nil
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return NewInvalidRuleError(fieldEncryptedRegex, pattern, err)
	}
	r.encryptedRegex = pattern
	r.encryptedPattern = compiled
	return nil
}

// load reads the four rule fields from a decoded record. The construction
// default installed by the caller survives only when the record carries no
// rule field at all; any explicit rule means the author of the record decided
// the scope configuration, and re-applying the suffix default would change
// what the document's own envelope says (and break the export round trip).
func (r *scopeRules) load(record map[string]any) error {
	_, hasUnencryptedSuffix := record[fieldUnencryptedSuffix]
	_, hasEncryptedSuffix := record[fieldEncryptedSuffix]
	_, hasUnencryptedRegex := record[fieldUnencryptedRegex]
	_, hasEncryptedRegex := record[fieldEncryptedRegex]
	if hasUnencryptedSuffix || hasEncryptedSuffix || hasUnencryptedRegex || hasEncryptedRegex {
		r.unencryptedSuffix = ""
	}

	if raw, found := record[fieldUnencryptedSuffix]; found {
		s, err := asString(raw)
		if err != nil {
			return err
		}
		r.unencryptedSuffix = s
	}
	if raw, found := record[fieldEncryptedSuffix]; found {
		s, err := asString(raw)
		if err != nil {
			return err
		}
		r.encryptedSuffix = s
	}
	if raw, found := record[fieldUnencryptedRegex]; found {
		s, err := asString(raw)
		if err != nil {
			return err
		}
		if err := r.setUnencryptedRegex(s); err != nil {
			return err
		}
	}
	if raw, found := record[fieldEncryptedRegex]; found {
		s, err := asString(raw)
		if err != nil {
			return err
		}
		if err := r.setEncryptedRegex(s); err != nil {
			return err
		}
	}
	return nil
}

// store writes the configured rules into an export record, omitting unset ones.
func (r *scopeRules) store(record map[string]any) {
	if r.unencryptedSuffix != "" {
		record[fieldUnencryptedSuffix] = r.unencryptedSuffix
	}
	if r.encryptedSuffix != "" {
		record[fieldEncryptedSuffix] = r.encryptedSuffix
	}
	if r.unencryptedRegex != "" {
		record[fieldUnencryptedRegex] = r.unencryptedRegex
	}
	if r.encryptedRegex != "" {
		record[fieldEncryptedRegex] = r.encryptedRegex
	}
}
