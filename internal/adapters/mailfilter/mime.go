package mailfilter

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/mikey/email-guardian/internal/utils"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// maxParts bounds how many MIME parts of one message are read
const maxParts = 100

func init() {
	// Labels seen in the wild that are not IANA names
	charset.RegisterEncoding("utf8", unicode.UTF8)
	charset.RegisterEncoding("latin-1", charmap.ISO8859_1)
}

// ExtractText returns the decoded subject followed by the text of the
// message body. Transfer encodings and charsets are decoded. Every
// text/plain part is used; text/html parts are used, stripped of markup,
// only when the message has no plain text. Attachments are skipped.
func ExtractText(r io.Reader) (string, error) {
	mr, err := gomail.CreateReader(r)
	if err != nil && !isUnknownContent(err) {
		return "", fmt.Errorf("failed to parse message: %w", err)
	}

	var sb strings.Builder
	subject, err := mr.Header.Subject()
	if err != nil {
		subject = mr.Header.Get("Subject")
	}
	if subject = strings.TrimSpace(subject); subject != "" {
		sb.WriteString(subject)
		sb.WriteString("\n\n")
	}

	var plain, htmlText strings.Builder
	for i := 0; i < maxParts; i++ {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !isUnknownContent(err) {
			// Keep whatever text was read before the malformed part.
			break
		}
		if part == nil {
			continue
		}

		h, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		mediaType, _, err := h.ContentType()
		if err != nil || mediaType == "" {
			mediaType = "text/plain"
		}

		switch strings.ToLower(mediaType) {
		case "text/plain":
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			plain.Write(bytes.TrimRight(body, "\r\n"))
			plain.WriteString("\n")
		case "text/html":
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			htmlText.WriteString(utils.CollapseWhitespace(utils.StripHTML(string(body))))
			htmlText.WriteString("\n")
		}
	}

	if plain.Len() > 0 {
		sb.WriteString(plain.String())
	} else {
		sb.WriteString(htmlText.String())
	}
	return sb.String(), nil
}

func isUnknownContent(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}

// stampHeaders rewrites the header block of a raw message: every header
// named in strip is removed, wherever the sender put it, and the given
// headers are added. The body is copied unchanged.
func stampHeaders(raw []byte, strip []string, headers [][2]string) ([]byte, error) {
	br := bufio.NewReader(bytes.NewReader(raw))
	h, err := textproto.ReadHeader(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read message header: %w", err)
	}

	for _, name := range strip {
		if name != "" {
			h.Del(name)
		}
	}
	for _, kv := range headers {
		if kv[0] != "" {
			h.Set(kv[0], sanitizeHeaderValue(kv[1]))
		}
	}

	var out bytes.Buffer
	if err := textproto.WriteHeader(&out, h); err != nil {
		return nil, fmt.Errorf("failed to write message header: %w", err)
	}
	if _, err := io.Copy(&out, br); err != nil {
		return nil, fmt.Errorf("failed to copy message body: %w", err)
	}
	return out.Bytes(), nil
}

func sanitizeHeaderValue(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
