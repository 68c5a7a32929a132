package mail

import (
	"bytes"
	"fmt"
	"mime"
	"mime/quotedprintable"
	netmail "net/mail"
)

// buildMessage renders a plain-text RFC 5322 message.
func buildMessage(to string, subject string, body string) ([]byte, error) {
	if err := ensureSingleLine("recipient", to); err != nil {
		return nil, err
	}
	if err := ensureSingleLine("subject", subject); err != nil {
		return nil, err
	}

	addr, err := netmail.ParseAddress(to)
	if err != nil {
		return nil, fmt.Errorf("parse recipient %q: %w", to, err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "To: %s\r\n", addr.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	if _, err := qp.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	return buf.Bytes(), nil
}
