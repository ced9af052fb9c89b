// Package manualref turns user-supplied manual pointers into a single
// canonical URI form and classifies them for readers.
package manualref

import (
	"path/filepath"
	"strings"
)

const (
	fileScheme = "file://"
	localhost  = "localhost"
)

// Normalizer rewrites manual references into canonical URIs. Abs resolves bare
// relative paths; when nil, filepath.Abs is used.
type Normalizer struct {
	Abs func(string) (string, error)
}

var defaultNormalizer = Normalizer{}

// Normalize rewrites raw using filepath.Abs for relative paths.
func Normalize(raw string) string {
	return defaultNormalizer.Normalize(raw)
}

// Normalize returns the canonical URI for raw, or "" when raw is blank.
//
// Local files always come out as "file://" followed by an absolute slash path
// ("file:///var/manuals/pump.txt", "file:///C:/manuals/pump.txt"). http and
// https references are returned as-is. No filesystem access is performed
// except for resolving relative paths against the working directory.
func (n Normalizer) Normalize(raw string) string {
	s := Clean(raw)
	if s == "" {
		return ""
	}

	switch {
	case hasPrefixFold(s, "http://"), hasPrefixFold(s, "https://"):
		return s
	case hasPrefixFold(s, "file:"):
		return n.normalizeFileURI(s[len("file:"):])
	case hasOtherScheme(s):
		return s
	default:
		return n.pathToURI(s)
	}
}

func (n Normalizer) normalizeFileURI(rest string) string {
	switch {
	case strings.HasPrefix(rest, "///"):
		p := rest[2:]
		if isDrivePath(p[1:]) {
			return driveToURI(p[1:])
		}
		return fileScheme + p
	case strings.HasPrefix(rest, "//"):
		authority := rest[2:]
		if isDrivePath(authority) {
			return driveToURI(authority)
		}
		host, p := authority, ""
		if i := strings.IndexByte(authority, '/'); i >= 0 {
			host, p = authority[:i], authority[i:]
		}
		if strings.EqualFold(host, localhost) {
			if p == "" {
				p = "/"
			}
			return n.normalizeFileURI("//" + p)
		}
		return fileScheme + authority
	case strings.HasPrefix(rest, "/"):
		return n.normalizeFileURI("//" + rest)
	default:
		return n.pathToURI(rest)
	}
}

func (n Normalizer) pathToURI(p string) string {
	switch {
	case strings.HasPrefix(p, "/"):
		return fileScheme + p
	case isDrivePath(p):
		return driveToURI(p)
	case strings.HasPrefix(p, `\\`):
		return fileScheme + strings.ReplaceAll(p[2:], `\`, "/")
	}

	abs := n.Abs
	if abs == nil {
		abs = filepath.Abs
	}
	resolved, err := abs(p)
	switch {
	case err != nil || resolved == "":
		return fileScheme + "/" + p
	case strings.HasPrefix(resolved, "/"):
		return fileScheme + resolved
	case isDrivePath(resolved):
		return driveToURI(resolved)
	default:
		return fileScheme + "/" + resolved
	}
}

// hasOtherScheme reports whether s starts with an RFC 3986 "scheme:".
// Single-letter schemes are drive letters and don't count.
func hasOtherScheme(s string) bool {
	i := strings.IndexByte(s, ':')
	if i < 2 {
		return false
	}
	for j := 0; j < i; j++ {
		c := s[j]
		switch {
		case isASCIILetter(c):
		case j > 0 && (('0' <= c && c <= '9') || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

func driveToURI(p string) string {
	return fileScheme + "/" + strings.ReplaceAll(p, `\`, "/")
}

// isDrivePath reports whether p looks like "X:\..." or "X:/..." (or a bare "X:").
func isDrivePath(p string) bool {
	if len(p) < 2 || p[1] != ':' || !isASCIILetter(p[0]) {
		return false
	}
	return len(p) == 2 || p[2] == '\\' || p[2] == '/'
}

func isASCIILetter(b byte) bool {
	return ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Clean removes zero-width and byte-order-mark characters, folds Unicode
// dash variants to '-' and trims surrounding whitespace.
func Clean(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case isInvisible(r):
			continue
		case isDash(r):
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func isInvisible(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\u2060', '\uFEFF':
		return true
	}
	return false
}

func isDash(r rune) bool {
	return (r >= '\u2010' && r <= '\u2015') || r == '\u2212' || r == '\uFE63' || r == '\uFF0D'
}
