// Package mail parses raw RFC 5322 messages into the model the archive
// stores and serves: decoded headers, a plain-text body, threading
// references, and classifier metadata locating any embedded patch.
package mail

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	netmail "net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrNoMessageID marks a message that cannot be archived because it lacks
// the one header used as its stable identity.
var ErrNoMessageID = errors.New("mail: message has no Message-ID")

// Message is one parsed mail message.
type Message struct {
	MessageID  string   // without the angle brackets
	InReplyTo  string   // first parent reference, without brackets
	References []string // full reference chain, oldest first
	Subject    string
	FromName   string
	FromEmail  string
	Date       time.Time
	Body       string // decoded text body, LF line endings
}

// ParseMessage parses a raw message. Messages without a Message-ID are
// rejected; everything else degrades gracefully (missing date, undecodable
// parts) rather than failing the whole message.
func ParseMessage(raw []byte) (*Message, error) {
	parsed, err := netmail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}
	header := parsed.Header

	id := CanonicalID(header.Get("Message-ID"))
	if id == "" {
		return nil, ErrNoMessageID
	}

	msg := &Message{
		MessageID:  id,
		Subject:    decodeHeader(header.Get("Subject")),
		References: parseReferences(header.Get("References")),
	}

	if parent := CanonicalID(header.Get("In-Reply-To")); parent != "" {
		msg.InReplyTo = parent
	} else if len(msg.References) > 0 {
		// References lists ancestors oldest-first; the direct parent is last.
		msg.InReplyTo = msg.References[len(msg.References)-1]
	}

	if addrs, err := header.AddressList("From"); err == nil && len(addrs) > 0 {
		msg.FromName = decodeHeader(addrs[0].Name)
		msg.FromEmail = addrs[0].Address
	} else {
		msg.FromEmail = strings.TrimSpace(header.Get("From"))
	}

	if date, err := header.Date(); err == nil {
		msg.Date = date.UTC()
	}

	body, err := readBody(header, parsed.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body of %s: %w", id, err)
	}
	msg.Body = normalizeNewlines(body)

	return msg, nil
}

// CanonicalID strips the angle brackets and surrounding space from a
// Message-ID style header value.
func CanonicalID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	return strings.TrimSpace(id)
}

// parseReferences splits a References header into canonical IDs.
func parseReferences(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var refs []string
	for _, field := range strings.Fields(value) {
		if id := CanonicalID(field); id != "" {
			refs = append(refs, id)
		}
	}
	return refs
}

// wordDecoder handles RFC 2047 encoded words in Subject and display names.
var wordDecoder = mime.WordDecoder{CharsetReader: charsetReader}

func decodeHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// charsetReader covers the charsets that actually show up on patch lists
// beyond UTF-8. Unknown charsets pass through undecoded rather than failing
// the header.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "us-ascii", "ascii", "utf-8", "utf8":
		return input, nil
	case "iso-8859-1", "latin1", "windows-1252", "cp1252":
		return latin1Reader(input)
	}
	return input, nil
}

// latin1Reader widens ISO 8859-1 bytes to runes. Windows-1252 control range
// punctuation is close enough to be read this way.
func latin1Reader(input io.Reader) (io.Reader, error) {
	raw, err := io.ReadAll(input)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(raw))
	for _, b := range raw {
		buf.WriteRune(rune(b))
	}
	return &buf, nil
}

// readBody walks the MIME structure under header and returns the best text
// rendition of the message: the first text/plain part, falling back to
// text/html converted to text, falling back to the decoded raw body.
func readBody(header netmail.Header, body io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	contentType := header.Get("Content-Type")
	transferEncoding := header.Get("Content-Transfer-Encoding")
	text, ok := bodyFromPart(contentType, transferEncoding, raw, 0)
	if !ok {
		_, params, _ := mime.ParseMediaType(contentType)
		return decodeText(params["charset"], decodeTransfer(transferEncoding, raw)), nil
	}
	return text, nil
}

// maxBodyBytes caps how much of one message body is retained.
const maxBodyBytes = 8 << 20

// maxMIMEDepth stops runaway nesting in hostile input.
const maxMIMEDepth = 8

// bodyFromPart extracts text from one MIME part, recursing into multiparts.
func bodyFromPart(contentType, transferEncoding string, raw []byte, depth int) (string, bool) {
	if depth > maxMIMEDepth {
		return "", false
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	switch {
	case strings.HasPrefix(mediaType, "multipart/"):
		boundary := params["boundary"]
		if boundary == "" {
			return "", false
		}
		var htmlFallback string
		var haveHTML bool
		reader := multipart.NewReader(bytes.NewReader(decodeTransfer(transferEncoding, raw)), boundary)
		for {
			part, err := reader.NextPart()
			if err != nil {
				break
			}
			partRaw, err := io.ReadAll(io.LimitReader(part, maxBodyBytes))
			if err != nil {
				continue
			}
			partType := part.Header.Get("Content-Type")
			text, ok := bodyFromPart(partType, part.Header.Get("Content-Transfer-Encoding"), partRaw, depth+1)
			if !ok {
				continue
			}
			if media, _, err := mime.ParseMediaType(partType); err == nil && media == "text/html" {
				if !haveHTML {
					htmlFallback, haveHTML = text, true
				}
				continue
			}
			return text, true
		}
		if haveHTML {
			return htmlFallback, true
		}
		return "", false

	case mediaType == "text/html":
		decoded := decodeText(params["charset"], decodeTransfer(transferEncoding, raw))
		text, err := HTMLToText(decoded)
		if err != nil {
			return "", false
		}
		return text, true

	case strings.HasPrefix(mediaType, "text/"):
		return decodeText(params["charset"], decodeTransfer(transferEncoding, raw)), true
	}

	return "", false
}

// decodeTransfer undoes quoted-printable and base64 content transfer
// encodings; anything else passes through.
func decodeTransfer(encoding string, raw []byte) []byte {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		decoded, err := io.ReadAll(quotedprintable.NewReader(bytes.NewReader(raw)))
		if err == nil {
			return decoded
		}
	case "base64":
		cleaned := bytes.Map(func(r rune) rune {
			if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
				return -1
			}
			return r
		}, raw)
		decoded := make([]byte, base64.StdEncoding.DecodedLen(len(cleaned)))
		n, err := base64.StdEncoding.Decode(decoded, cleaned)
		if err == nil {
			return decoded[:n]
		}
	}
	return raw
}

// decodeText converts raw bytes to a string honoring a charset parameter.
func decodeText(charset string, raw []byte) string {
	switch strings.ToLower(charset) {
	case "iso-8859-1", "latin1", "windows-1252", "cp1252":
		var buf strings.Builder
		buf.Grow(len(raw))
		for _, b := range raw {
			buf.WriteRune(rune(b))
		}
		return buf.String()
	}
	return toValidUTF8(raw)
}

// toValidUTF8 replaces invalid sequences so template rendering and FTS
// indexing never see broken encoding.
func toValidUTF8(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	return strings.ToValidUTF8(string(raw), "�")
}

// normalizeNewlines rewrites CRLF and lone CR to LF so line indexing is
// stable across senders.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
