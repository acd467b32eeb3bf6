package relay

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
)

const (
	contentTypePlain = "text/plain; charset=utf-8"
	contentTypeHTML  = "text/html; charset=utf-8"
	contentTypeJSON  = "application/json"
)

// TemplateRenderer renders a named template. *html/template.Template
// satisfies it.
type TemplateRenderer interface {
	ExecuteTemplate(w io.Writer, name string, data any) error
}

// Sender writes complete responses. Every method sets the content type and
// a Content-Length computed from the encoded body, writes the status line,
// then the body. A response can only be sent once; later calls return
// ErrAlreadySent without touching the connection.
type Sender struct {
	w         ResponseWriter
	templates TemplateRenderer
}

// Sent reports whether a response has already been started.
func (s *Sender) Sent() bool {
	return s.w.Written()
}

// Plain sends body as UTF-8 plain text.
func (s *Sender) Plain(status int, body string) error {
	return s.Bytes(status, contentTypePlain, []byte(body))
}

// JSON encodes v and sends it as application/json.
func (s *Sender) JSON(status int, v any) error {
	if s.Sent() {
		return ErrAlreadySent
	}
	body, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "relay: encoding JSON response")
	}
	return s.Bytes(status, contentTypeJSON, body)
}

// HTML renders the named template with data and sends the result. The
// template is rendered in full before anything is written, so a rendering
// error leaves the response unsent.
func (s *Sender) HTML(status int, name string, data any) error {
	if s.Sent() {
		return ErrAlreadySent
	}
	if s.templates == nil {
		return ErrNoTemplates
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return errors.Wrapf(err, "relay: rendering template %q", name)
	}
	return s.Bytes(status, contentTypeHTML, buf.Bytes())
}

// HTMLString sends an already rendered HTML document.
func (s *Sender) HTMLString(status int, html string) error {
	return s.Bytes(status, contentTypeHTML, []byte(html))
}

// String sends body with the given content type.
func (s *Sender) String(status int, contentType, body string) error {
	return s.Bytes(status, contentType, []byte(body))
}

// Bytes sends body with the given content type. An empty content type
// omits the header.
func (s *Sender) Bytes(status int, contentType string, body []byte) error {
	if s.Sent() {
		return ErrAlreadySent
	}
	h := s.w.Header()
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	h.Set("Content-Length", strconv.Itoa(len(body)))
	s.w.WriteHeader(status)
	if len(body) == 0 {
		return nil
	}
	_, err := s.w.Write(body)
	return errors.Wrap(err, "relay: writing response body")
}

// Empty sends a response with no body.
func (s *Sender) Empty(status int) error {
	return s.Bytes(status, "", nil)
}

// Redirect points the client at location. message is sent as a plain text
// body for clients that do not follow redirects and may be empty.
func (s *Sender) Redirect(status int, location, message string) error {
	if s.Sent() {
		return ErrAlreadySent
	}
	s.w.Header().Set("Location", location)
	return s.Bytes(status, contentTypePlain, []byte(message))
}

// statusText is the body used when a bare status must be sent.
func statusText(status int) string {
	return strconv.Itoa(status) + " " + http.StatusText(status)
}
