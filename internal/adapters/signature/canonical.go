package signature

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Canonicalize re-serializes a JSON document the way the calling platform
// signs it: no insignificant whitespace, object keys in received order,
// non-ASCII characters written raw, and only quote, backslash and control
// characters escaped.
//
// Number literals are copied as received, not re-formatted. The platform
// serializes bodies with JSON.stringify, so numbers already arrive in their
// shortest form; a body with other spellings (2.50, -3e2) is signed as sent.
//
// encoding/json cannot be used for this: it reorders map keys and escapes
// <, >, & and U+2028/U+2029.
func Canonicalize(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var buf bytes.Buffer
	buf.Grow(len(raw))

	if err := writeValue(dec, &buf); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("canonicalize: trailing data after JSON value")
	}

	return buf.Bytes(), nil
}

func writeValue(dec *json.Decoder, buf *bytes.Buffer) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return writeObject(dec, buf)
		case '[':
			return writeArray(dec, buf)
		default:
			return fmt.Errorf("unexpected delimiter %q", rune(v))
		}
	case string:
		writeString(buf, v)
	case json.Number:
		buf.WriteString(v.String())
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case nil:
		buf.WriteString("null")
	default:
		return fmt.Errorf("unexpected token %T", tok)
	}

	return nil
}

func writeObject(dec *json.Decoder, buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for first := true; dec.More(); first = false {
		if !first {
			buf.WriteByte(',')
		}

		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("object key is %T, want string", tok)
		}
		writeString(buf, key)
		buf.WriteByte(':')

		if err := writeValue(dec, buf); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	buf.WriteByte('}')
	return nil
}

func writeArray(dec *json.Decoder, buf *bytes.Buffer) error {
	buf.WriteByte('[')
	for first := true; dec.More(); first = false {
		if !first {
			buf.WriteByte(',')
		}
		if err := writeValue(dec, buf); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	buf.WriteByte(']')
	return nil
}

const hexDigits = "0123456789abcdef"

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[r>>4])
				buf.WriteByte(hexDigits[r&0xf])
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}
