package middleware

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/jpl-au/relay"
)

// DefaultMaxBodyBytes is the body limit used when none is given.
const DefaultMaxBodyBytes int64 = 2 << 20

const (
	mediaTypeJSON = "application/json"
	mediaTypeForm = "application/x-www-form-urlencoded"
)

// ParseJSON returns an action that decodes a JSON request body into
// ctx.Env.Body and then continues the chain. Requests with another content
// type get 406, bodies over maxBytes get 413 and undecodable bodies get 400;
// in each case the chain stops. A maxBytes of zero or less means
// DefaultMaxBodyBytes.
func ParseJSON(maxBytes int64) relay.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(ctx *relay.Context, next relay.Next) error {
		if !hasMediaType(ctx.Request, mediaTypeJSON) {
			return ctx.Send.Plain(http.StatusNotAcceptable, "Invalid content-type (expected application/json).")
		}
		body, ok, err := readBody(ctx, maxBytes)
		if err != nil || !ok {
			return err
		}
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return ctx.Send.Plain(http.StatusBadRequest, "JSON syntax error")
		}
		ctx.Env.Body = v
		return next()
	}
}

// ParseForm returns an action that decodes a URL-encoded request body into
// ctx.Env.Body as a map[string]string holding the first value of each key,
// then continues the chain. Errors are answered like ParseJSON does.
func ParseForm(maxBytes int64) relay.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(ctx *relay.Context, next relay.Next) error {
		if !hasMediaType(ctx.Request, mediaTypeForm) {
			return ctx.Send.Plain(http.StatusNotAcceptable, "Invalid content-type (expected application/x-www-form-urlencoded).")
		}
		body, ok, err := readBody(ctx, maxBytes)
		if err != nil || !ok {
			return err
		}
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return ctx.Send.Plain(http.StatusBadRequest, "Malformed form data")
		}
		form := make(map[string]string, len(values))
		for k := range values {
			form[k] = values.Get(k)
		}
		ctx.Env.Body = form
		return next()
	}
}

func hasMediaType(r *http.Request, want string) bool {
	header := r.Header.Get("Content-Type")
	if header == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(header)
	return err == nil && mediaType == want
}

// readBody reads at most maxBytes of the request body. When the body is
// larger it answers 413 and reports ok == false. A nil body reads as empty.
func readBody(ctx *relay.Context, maxBytes int64) (body []byte, ok bool, err error) {
	if ctx.Request.Body == nil {
		return []byte{}, true, nil
	}
	body, err = io.ReadAll(io.LimitReader(ctx.Request.Body, maxBytes+1))
	if err != nil {
		return nil, false, errors.Wrap(err, "reading request body")
	}
	if int64(len(body)) > maxBytes {
		return nil, false, ctx.Send.Plain(http.StatusRequestEntityTooLarge, "Request payload too large")
	}
	return body, true, nil
}
