package relay

import (
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
)

// Anonymous is the username every request starts with.
const Anonymous = "anonymous"

// Context carries the state of a single request through the action chain.
// It is created by the router for each request and must not be retained
// once the request has been handled.
type Context struct {
	Request  *http.Request
	Response ResponseWriter
	// URL is the parsed request URL.
	URL *url.URL
	// Params holds the values captured by the pathspecs of matching actions.
	// Later matches overwrite earlier ones with the same name.
	Params map[string]string
	// Route is the pathspec of the most recently matched action.
	Route string
	Env   *Env
	Send  *Sender
	Log   *logrus.Entry
}

func newContext(rt *Router, w http.ResponseWriter, r *http.Request) *Context {
	rw := wrapResponseWriter(w)
	return &Context{
		Request:  r,
		Response: rw,
		URL:      r.URL,
		Params:   make(map[string]string),
		Env:      newEnv(r),
		Send:     &Sender{w: rw, templates: rt.templates},
		Log: logrus.NewEntry(rt.logger).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"remote": r.RemoteAddr,
		}),
	}
}

// Param returns the named route parameter, or "" if it was not captured.
func (c *Context) Param(name string) string {
	return c.Params[name]
}

// Query returns the parsed query string. A request without one yields an
// empty, non-nil map.
func (c *Context) Query() url.Values {
	if c.URL == nil {
		return url.Values{}
	}
	return c.URL.Query()
}

func (c *Context) setParam(name, value string) {
	c.Params[name] = value
	c.Request.SetPathValue(name, value)
}

// Env is the per-request environment: well-known fields that middleware
// may fill in, plus a free-form side channel for anything else.
type Env struct {
	LoggedIn bool
	// Username is never empty; it is Anonymous until something sets it.
	Username string
	Cookies  map[string]string
	// Body holds the parsed request body once a body-parsing action has run.
	Body any

	values map[string]any
}

func newEnv(r *http.Request) *Env {
	cookies := make(map[string]string)
	for _, c := range r.Cookies() {
		if _, ok := cookies[c.Name]; !ok {
			cookies[c.Name] = c.Value
		}
	}
	return &Env{
		Username: Anonymous,
		Cookies:  cookies,
	}
}

// Set stores a middleware-defined value under key.
func (e *Env) Set(key string, value any) {
	if e.values == nil {
		e.values = make(map[string]any)
	}
	e.values[key] = value
}

// Get returns the value stored under key, or nil.
func (e *Env) Get(key string) any {
	return e.values[key]
}

// Lookup is like Get but also reports whether the key was set.
func (e *Env) Lookup(key string) (any, bool) {
	v, ok := e.values[key]
	return v, ok
}
