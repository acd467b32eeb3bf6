package relay

import (
	"net/http"

	"go.uber.org/atomic"
)

// Wrap turns a standard handler into a terminal action. Route parameters
// are available to it through http.Request.PathValue.
func Wrap(h http.Handler) Handler {
	if h == nil {
		panic("relay: nil handler passed to Wrap")
	}
	return func(ctx *Context, _ Next) error {
		h.ServeHTTP(ctx.Response, ctx.Request)
		return nil
	}
}

const (
	innerIdle int32 = iota
	innerStarted
	innerClosed
)

// Adapt turns standard net/http middleware into an action. The rest of the
// chain runs when the middleware calls its inner handler, with whatever
// request and writer it passes along. Only the first call runs the chain.
//
// Middleware that runs the inner handler on another goroutine, such as
// http.TimeoutHandler, is supported: the action waits for that handler to
// return before handing the Context back. An inner handler first called after
// the middleware has returned does nothing.
func Adapt(mw func(http.Handler) http.Handler) Handler {
	if mw == nil {
		panic("relay: nil middleware passed to Adapt")
	}
	return func(ctx *Context, next Next) error {
		var (
			state = atomic.NewInt32(innerIdle)
			done  = make(chan struct{})
			err   error
		)
		req, u, outer := ctx.Request, ctx.URL, ctx.Response

		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !state.CompareAndSwap(innerIdle, innerStarted) {
				return
			}
			defer close(done)
			ctx.Request = r
			ctx.URL = r.URL
			ctx.Response = wrapResponseWriter(w)
			ctx.Send.w = ctx.Response
			err = next()
		})
		mw(inner).ServeHTTP(outer, req)

		if state.CompareAndSwap(innerIdle, innerClosed) {
			return nil
		}
		<-done
		ctx.Request, ctx.URL = req, u
		ctx.Response = outer
		ctx.Send.w = outer
		return err
	}
}
