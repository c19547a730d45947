package argument

import (
	"fmt"
	"net/url"

	"golang.org/x/net/idna"
)

// ParsedURLCodec carries a parsed URL as the ASCII bytes of its absolute
// form. A host containing non-ASCII characters is converted to its
// ASCII-compatible internationalized-domain (IDNA) form before encoding,
// so the wire bytes are always pure US-ASCII.
//
// The transform is one-directional: decode surfaces the ASCII-compatible
// host and makes no attempt to recover the original Unicode spelling.
// Callers comparing URLs across a round trip must compare the
// reconstituted absolute-URL strings.
type ParsedURLCodec struct{}

func (ParsedURLCodec) Encode(v any) ([]byte, error) {
	u, ok := v.(*url.URL)
	if !ok {
		return nil, fmt.Errorf("%w: not a URL: %v (%T)", ErrTypeMismatch, v, v)
	}

	out := *u
	if host := u.Hostname(); !isASCII(host) {
		ascii, err := idna.ToASCII(host)
		if err != nil {
			return nil, fmt.Errorf("%w: host %q has no IDNA form: %v", ErrTypeMismatch, host, err)
		}
		if port := u.Port(); port != "" {
			out.Host = ascii + ":" + port
		} else {
			out.Host = ascii
		}
	}

	s := out.String()
	if !isASCII(s) {
		// Path and query are percent-escaped by URL.String; reaching here
		// means the URL held raw non-ASCII outside the host.
		return nil, fmt.Errorf("%w: URL %q is not representable in ASCII", ErrTypeMismatch, s)
	}
	return []byte(s), nil
}

func (ParsedURLCodec) Decode(data []byte) (any, error) {
	u, err := url.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %v", ErrMalformedWire, err)
	}
	return u, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
