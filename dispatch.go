package relay

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/jpl-au/relay/pathspec"
)

// action is one entry in the registry. Method/path actions carry a matcher,
// conditional actions a test; an action with neither always runs.
type action struct {
	methods map[string]struct{}
	matcher *pathspec.Matcher
	test    func(*Context) bool
	handler Handler
	desc    string
}

func (a *action) String() string {
	return a.desc
}

// match decides whether the action runs for ctx. A successful path match
// records its captures on ctx.
func (a *action) match(ctx *Context) bool {
	if a.test != nil {
		return a.test(ctx)
	}
	if a.matcher == nil {
		return true
	}
	if !a.acceptsMethod(ctx.Request.Method) {
		return false
	}
	params, ok := a.matcher.Match(ctx.URL.Path)
	if !ok {
		return false
	}
	for name, value := range params {
		ctx.setParam(name, value)
	}
	ctx.Route = a.matcher.String()
	return true
}

func (a *action) acceptsMethod(method string) bool {
	if _, ok := a.methods[AnyMethod]; ok {
		return true
	}
	_, ok := a.methods[strings.ToUpper(method)]
	return ok
}

// Handle runs the action chain for one request. It returns whatever error
// escapes the chain; errors and panics raised by handlers are not recovered
// here. Register middleware.Recover first to turn them into responses.
func (rt *Router) Handle(w http.ResponseWriter, r *http.Request) error {
	return rt.step(newContext(rt, w, r), 0)
}

// ServeHTTP implements http.Handler. Errors escaping the chain are logged, and
// answered with a bare 500 if nothing has been sent yet.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rw := wrapResponseWriter(w)
	err := rt.Handle(rw, r)
	if err == nil {
		return
	}
	rt.logger.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"url":    r.URL.RequestURI(),
		"remote": r.RemoteAddr,
	}).Error("Unhandled error escaped the action chain")
	if !rw.Written() {
		http.Error(rw, statusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// step runs the action at index i, or the fallback once the registry is
// exhausted.
func (rt *Router) step(ctx *Context, i int) error {
	actions := rt.reg.actions
	if i >= len(actions) {
		return rt.fallback(ctx)
	}
	a := actions[i]
	next := rt.next(ctx, i+1)
	if !a.match(ctx) {
		if rt.verbose {
			ctx.Log.WithField("action", a.desc).Debug("No match, moving on")
		}
		return next()
	}
	if rt.verbose {
		ctx.Log.WithField("action", a.desc).Debug("Match found, executing action")
	}
	return a.handler(ctx, next)
}

func (rt *Router) next(ctx *Context, i int) Next {
	called := atomic.NewBool(false)
	return func() error {
		if called.Swap(true) {
			return ErrNextCalled
		}
		return rt.step(ctx, i)
	}
}

func (rt *Router) fallback(ctx *Context) error {
	if rt.verbose {
		ctx.Log.Debug("End of chain, running fallback action")
	}
	if rt.notFound != nil {
		called := atomic.NewBool(false)
		return rt.notFound(ctx, func() error {
			if called.Swap(true) {
				return ErrNextCalled
			}
			return rt.notFoundResponse(ctx)
		})
	}
	return rt.notFoundResponse(ctx)
}

func (rt *Router) notFoundResponse(ctx *Context) error {
	msg := fmt.Sprintf("No route was found for '%s'.", ctx.Request.URL.RequestURI())
	if rt.verbose {
		msg += "\n\nRegistered Actions:\n" + rt.String()
	}
	return ctx.Send.Plain(http.StatusNotFound, msg)
}
