package runner

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncoding is used to decode captured output when none is configured.
// Invalid UTF-8 sequences are replaced with U+FFFD.
const DefaultEncoding = "utf-8"

// LookupEncoding resolves a WHATWG encoding label such as "utf-8",
// "latin1" or "shift_jis".
func LookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

func decode(enc encoding.Encoding, data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return string(data), err
	}
	return string(out), nil
}
