package manualref

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"assetd/pkg/apierr"
)

// Reference is a parsed manual pointer: LocalFile, Remote or Unsupported.
type Reference interface {
	reference()
}

// LocalFile points at a file on the local filesystem.
type LocalFile struct {
	Path string
}

// Remote points at an http or https resource. It is never fetched.
type Remote struct {
	URL string
}

// Unsupported carries the scheme of a reference no reader understands.
type Unsupported struct {
	Scheme string
}

func (LocalFile) reference()   {}
func (Remote) reference()      {}
func (Unsupported) reference() {}

// Parse classifies a normalized reference. URI syntax errors, file URIs naming
// a remote host and file URIs without a path fail with KindInvalidReference.
func Parse(ref string) (Reference, error) {
	const op = "manualref.Parse"

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apierr.New(apierr.KindInvalidReference, op, "empty reference")
	}

	if hasPrefixFold(ref, "file:") {
		return parseFile(ref, ref[len("file:"):])
	}

	u, err := url.Parse(ref)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInvalidReference, op, err)
	}

	switch scheme := strings.ToLower(u.Scheme); scheme {
	case "http", "https":
		if u.Host == "" {
			return nil, apierr.New(apierr.KindInvalidReference, op, "%s reference %q has no host", scheme, ref)
		}
		return Remote{URL: ref}, nil
	default:
		return Unsupported{Scheme: scheme}, nil
	}
}

// parseFile takes the path of a file reference verbatim. It is never
// percent-decoded: "a%41.txt" and "aA.txt" are different files.
func parseFile(ref, rest string) (Reference, error) {
	const op = "manualref.Parse"

	var p string
	switch {
	case strings.HasPrefix(rest, "//"):
		authority := rest[2:]
		host := authority
		if i := strings.IndexByte(authority, '/'); i >= 0 {
			host, p = authority[:i], authority[i:]
		}
		if host != "" && !strings.EqualFold(host, localhost) {
			return nil, apierr.New(apierr.KindInvalidReference, op, "file reference %q names remote host %q", ref, host)
		}
	case strings.HasPrefix(rest, "/"):
		p = rest
	}
	if p == "" || p == "/" {
		return nil, apierr.New(apierr.KindInvalidReference, op, "file reference %q has no path", ref)
	}
	for _, r := range p {
		if r < 0x20 || r == 0x7f {
			return nil, apierr.New(apierr.KindInvalidReference, op, "file reference %q contains control character %U", ref, r)
		}
	}
	return LocalFile{Path: toOSPath(p)}, nil
}

// toOSPath turns a URI path into a filesystem path, dropping the leading
// slash in front of drive letters.
func toOSPath(p string) string {
	if len(p) > 2 && p[0] == '/' && isDrivePath(p[1:]) {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

func (l LocalFile) String() string   { return fmt.Sprintf("file %s", l.Path) }
func (r Remote) String() string      { return fmt.Sprintf("remote %s", r.URL) }
func (u Unsupported) String() string { return fmt.Sprintf("unsupported scheme %q", u.Scheme) }
