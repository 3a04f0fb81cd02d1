package engine

import "github.com/nosecrets/nosecrets/pkg/rules"

// Validate rejects a Candidate's capture unless every configured
// constraint on the compiled rule holds. It is pure and stateless: a
// rejected candidate leaves no trace and is never reconsidered by a
// later pipeline stage.
func Validate(cr *rules.CompiledRule, capture []byte) bool {
	if len(cr.ValidatePrefix) > 0 && !hasAnyPrefix(capture, cr.ValidatePrefix) {
		return false
	}

	if cr.ValidateCharset != nil && !cr.ValidateCharset.Match(capture) {
		return false
	}

	n := len(capture)
	if cr.ValidateLength != nil && n != *cr.ValidateLength {
		return false
	}
	if cr.ValidateMinLength != nil && n < *cr.ValidateMinLength {
		return false
	}
	if cr.ValidateMaxLength != nil && n > *cr.ValidateMaxLength {
		return false
	}

	return true
}

func hasAnyPrefix(capture []byte, prefixes []string) bool {
	for _, p := range prefixes {
		if len(capture) >= len(p) && string(capture[:len(p)]) == p {
			return true
		}
	}
	return false
}
