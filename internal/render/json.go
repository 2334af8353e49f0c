package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"fwcatalog/internal/catalog"
)

// JSON encodes classified releases as the machine-readable releases.json
// document: a two-space indented array with every non-ASCII rune escaped, no
// HTML escaping, and no trailing newline.
func JSON(releases []*catalog.Release) ([]byte, error) {
	if releases == nil {
		releases = []*catalog.Release{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(releases); err != nil {
		return nil, fmt.Errorf("encoding releases: %w", err)
	}

	out := bytes.TrimRight(buf.Bytes(), "\n")
	return escapeNonASCII(out), nil
}

// escapeNonASCII rewrites runes outside the ASCII range as lowercase \uXXXX
// escapes, using surrogate pairs beyond the basic plane. Non-ASCII bytes only
// occur inside JSON string literals, so the whole document can be scanned.
func escapeNonASCII(src []byte) []byte {
	ascii := true
	for _, b := range src {
		if b >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return src
	}

	var buf bytes.Buffer
	buf.Grow(len(src) + 64)
	for i := 0; i < len(src); {
		if src[i] < utf8.RuneSelf {
			buf.WriteByte(src[i])
			i++
			continue
		}
		r, size := utf8.DecodeRune(src[i:])
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError || r2 != utf8.RuneError {
			fmt.Fprintf(&buf, `\u%04x\u%04x`, r1, r2)
		} else {
			fmt.Fprintf(&buf, `\u%04x`, r)
		}
		i += size
	}
	return buf.Bytes()
}
