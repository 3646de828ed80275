// scraper/encoding.go
package scraper

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// textDecoder turns raw export bytes into UTF-8. ok is false when the bytes are not clean in that encoding.
type textDecoder struct {
	name   string
	decode func(raw []byte) (text string, ok bool)
}

func decodeUTF8(raw []byte) (string, bool) {
	if !utf8.Valid(raw) {
		return "", false
	}
	return string(raw), true
}

// decodeCharmap decodes a single-byte charset. Windows-1252 leaves five bytes unassigned; x/text maps them to
// C1 controls, which never appear in real notices, so their presence means the guess was wrong.
func decodeCharmap(cm *charmap.Charmap, rejectC1 bool) func([]byte) (string, bool) {
	return func(raw []byte) (string, bool) {
		out, err := cm.NewDecoder().Bytes(raw)
		if err != nil {
			return "", false
		}
		text := string(out)
		if strings.ContainsRune(text, utf8.RuneError) {
			return "", false
		}
		if rejectC1 {
			for _, r := range text {
				if r >= 0x80 && r <= 0x9F {
					return "", false
				}
			}
		}
		return text, true
	}
}

// lookupEncoding maps configured names (the spellings Python and browsers use) to decoders.
func lookupEncoding(name string) (textDecoder, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "utf-8", "utf8", "utf-8-sig":
		return textDecoder{name: "utf-8", decode: decodeUTF8}, nil
	case "windows-1252", "cp1252":
		return textDecoder{name: "windows-1252", decode: decodeCharmap(charmap.Windows1252, true)}, nil
	case "iso-8859-1", "latin-1", "latin1":
		return textDecoder{name: "iso-8859-1", decode: decodeCharmap(charmap.ISO8859_1, false)}, nil
	case "iso-8859-15", "latin-9":
		return textDecoder{name: "iso-8859-15", decode: decodeCharmap(charmap.ISO8859_15, false)}, nil
	}
	return textDecoder{}, fmt.Errorf("unsupported encoding %q", name)
}

func lookupEncodings(names []string) ([]textDecoder, error) {
	if len(names) == 0 {
		names = []string{"utf-8", "windows-1252", "iso-8859-1"}
	}
	decoders := make([]textDecoder, 0, len(names))
	seen := make(map[string]bool)
	for _, n := range names {
		d, err := lookupEncoding(n)
		if err != nil {
			return nil, err
		}
		if seen[d.name] {
			continue
		}
		seen[d.name] = true
		decoders = append(decoders, d)
	}
	return decoders, nil
}
