// Package label derives successor identifiers for transmittals and document
// revisions.
//
// All functions are pure. Unparsable input never produces an error: each
// helper has a defined fallback that returns something usable.
package label

import (
	"math/big"
	"regexp"
	"strings"
)

const (
	// FirstTransmittalNumber is used when a source has no prior transmittal.
	FirstTransmittalNumber = "TR-001"

	// FirstRevision is the label given to a document with no revision yet.
	FirstRevision = "0"

	// noDigitsSuffix is appended to a transmittal number without any digits.
	noDigitsSuffix = "-001"
)

var (
	// The lazy prefix lets the digit group bind to the last run of digits.
	transmittalNumberRe = regexp.MustCompile(`^(.*?)(\d+)(\D*)$`)

	revisionLabelRe = regexp.MustCompile(`^([0-9]+|[A-Za-z]+)`)
)

// IncrementNumeric adds one to a base-10 string and left-pads the result with
// zeros to the original width ("009" -> "010", "9" -> "10"). Input that is not
// an unsigned decimal integer is returned unchanged.
func IncrementNumeric(s string) string {
	if !isDigits(s) {
		return s
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return s
	}
	next := n.Add(n, big.NewInt(1)).String()
	if pad := len(s) - len(next); pad > 0 {
		next = strings.Repeat("0", pad) + next
	}
	return next
}

// IncrementAlpha advances every character by one code point, except 'Z' and
// 'z' which stay as they are. Positions are independent: there is no carry
// and no rollover ("az" -> "bz", "Z" -> "Z").
func IncrementAlpha(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == 'Z' || r == 'z' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune(r + 1)
	}
	return b.String()
}

// ParseTransmittalNumber splits a transmittal number around its last run of
// decimal digits. ok is false when the number contains no digits.
func ParseTransmittalNumber(number string) (prefix, digits, suffix string, ok bool) {
	m := transmittalNumberRe.FindStringSubmatch(number)
	if m == nil {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}

// ParseRevisionLabel returns the leading run of digits of a revision label or,
// failing that, its leading run of letters. numeric reports which one matched.
func ParseRevisionLabel(rev string) (token string, numeric bool, ok bool) {
	m := revisionLabelRe.FindStringSubmatch(rev)
	if m == nil {
		return "", false, false
	}
	return m[1], isDigits(m[1]), true
}

// NextTransmittalNumber returns the number that follows previous within the
// same source. An empty previous means the source has no usable history.
func NextTransmittalNumber(previous string) string {
	if previous == "" {
		return FirstTransmittalNumber
	}
	prefix, digits, suffix, ok := ParseTransmittalNumber(previous)
	if !ok {
		return previous + noDigitsSuffix
	}
	return prefix + IncrementNumeric(digits) + suffix
}

// NextRevision returns the label that follows current. Only the leading token
// of current survives; anything after it is dropped. A label with neither a
// leading digit nor a leading letter is returned unchanged.
func NextRevision(current string) string {
	if current == "" {
		return FirstRevision
	}
	token, numeric, ok := ParseRevisionLabel(current)
	if !ok {
		return current
	}
	if numeric {
		return IncrementNumeric(token)
	}
	return IncrementAlpha(token)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
