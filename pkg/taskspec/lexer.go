package taskspec

import (
	"iter"
	"strings"
	"unicode"
)

// Delimiters recognised by the referee grammar. Angle brackets and
// parentheses both open a nesting level.
const (
	openAngle  = '<'
	closeAngle = '>'
	openParen  = '('
	closeParen = ')'
)

func isOpener(c byte) bool { return c == openAngle || c == openParen }
func isCloser(c byte) bool { return c == closeAngle || c == closeParen }

func closerFor(c byte) byte {
	if c == openAngle {
		return closeAngle
	}
	return closeParen
}

// TrimTrailingSpace drops the trailing newline some transports append.
// Whitespace anywhere else is left in place and fails the token checks.
func TrimTrailingSpace(text string) string {
	return strings.TrimRightFunc(text, unicode.IsSpace)
}

// hasSpace reports whether s contains any whitespace rune.
func hasSpace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}

// StripEnvelope checks that text starts with prefix followed by a body
// wrapped in '<' and '>', and returns the body without the delimiters.
func StripEnvelope(text, prefix string) (string, error) {
	if !strings.HasPrefix(text, prefix) {
		return "", parseErr(PrefixMismatch, prefix, head(text, len(prefix)), "task type tag")
	}
	rest := text[len(prefix):]
	if len(rest) < 2 || rest[0] != openAngle || rest[len(rest)-1] != closeAngle {
		return "", parseErr(EnvelopeMismatch, "body enclosed in <...>", excerpt(rest), "envelope")
	}
	return rest[1 : len(rest)-1], nil
}

// SplitTopLevel splits text on sep, ignoring separators nested inside
// '<...>' or '(...)'. Like strings.Split, it always returns at least one
// element.
func SplitTopLevel(text string, sep byte) []string {
	var fields []string
	depth, start := 0, 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case isOpener(c):
			depth++
		case isCloser(c):
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			fields = append(fields, text[start:i])
			start = i + 1
		}
	}
	return append(fields, text[start:])
}

// FindBracketed yields, left to right, the contents of every top-level span
// opened by openCh and closed by closeCh. Spans of the other bracket type are
// skipped along with everything nested in them.
func FindBracketed(text string, openCh, closeCh byte) iter.Seq[string] {
	return func(yield func(string) bool) {
		depth, start := 0, -1
		for i := 0; i < len(text); i++ {
			c := text[i]
			switch {
			case isOpener(c):
				if depth == 0 && c == openCh {
					start = i
				}
				depth++
			case isCloser(c):
				if depth == 0 {
					continue
				}
				depth--
				if depth > 0 {
					continue
				}
				if start >= 0 && c == closeCh {
					if !yield(text[start+1 : i]) {
						return
					}
				}
				start = -1
			}
		}
	}
}

// Balanced reports whether every '<' and '(' in text is closed by its own
// delimiter type in the right order.
func Balanced(text string) bool {
	return unbalancedAt(text) < 0
}

// unbalancedAt returns the byte offset of the first delimiter that breaks
// pairing, len(text) for unclosed openers, or -1 when text is balanced.
func unbalancedAt(text string) int {
	var stack []byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case isOpener(c):
			stack = append(stack, closerFor(c))
		case isCloser(c):
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return i
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return len(text)
	}
	return -1
}

// checkBalanced wraps unbalancedAt into a ParseError.
func checkBalanced(text, position string) error {
	at := unbalancedAt(text)
	if at < 0 {
		return nil
	}
	received := text
	if at < len(text) {
		received = text[at:]
	}
	return parseErr(UnbalancedDelimiters, "matching <...> and (...) pairs", excerpt(received), position)
}

// matchingClose returns the index of the delimiter closing the opener at i,
// or -1.
func matchingClose(text string, i int) int {
	if i >= len(text) || !isOpener(text[i]) {
		return -1
	}
	depth := 0
	for j := i; j < len(text); j++ {
		switch {
		case isOpener(text[j]):
			depth++
		case isCloser(text[j]):
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

const excerptLen = 32

func excerpt(s string) string {
	if len(s) <= excerptLen {
		return s
	}
	return s[:excerptLen] + "..."
}
