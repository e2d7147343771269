// Package mail defines the outbound message model and its wire serialization.
package mail

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"strings"
	"time"
)

// Message represents a single outbound email. It is constructed per send
// call and discarded after transmission; nothing is persisted.
type Message struct {
	To      string
	Subject string
	Body    string
	ReplyTo string
}

// Compose serializes the message into a complete RFC 5322 payload for the
// SMTP DATA phase: headers, blank line, and the body normalized to CRLF
// line endings. The Subject is MIME encoded-word ("B" encoding) when it
// contains non-ASCII characters. Dot-stuffing is applied by the transport,
// not here.
func (m *Message) Compose(from string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "From: %s\r\n", from)
	if m.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", m.ReplyTo)
	}
	fmt.Fprintf(&b, "To: %s\r\n", m.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", EncodeSubject(m.Subject))
	fmt.Fprintf(&b, "Message-ID: %s\r\n", MessageID(from))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(normalizeCRLF(m.Body))

	return b.String()
}

// EncodeSubject encodes a header value as a MIME encoded-word using base64
// "B" encoding. ASCII-only values pass through unchanged.
func EncodeSubject(s string) string {
	return mime.BEncoding.Encode("UTF-8", s)
}

// MessageID generates a unique Message-ID header value. The domain part is
// taken from the sender address, falling back to "localhost".
func MessageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = from[at+1:]
	}

	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// Timestamp-only fallback if the random source fails.
		return fmt.Sprintf("<%d@%s>", time.Now().UnixNano(), domain)
	}

	return fmt.Sprintf("<%s.%d@%s>", hex.EncodeToString(buf), time.Now().UnixNano(), domain)
}

// normalizeCRLF rewrites any line-ending style to CRLF.
func normalizeCRLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
