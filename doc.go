// Package relay is a small HTTP router built around an ordered chain of
// actions.
//
// A [Router] keeps a single list of actions in registration order. Each
// request walks that list from the top: actions that do not match are skipped,
// and the first one that matches runs. An action either sends a response and
// returns, or calls its continuation to hand the request on to the actions
// registered after it. When the list runs out, the router sends a 404.
//
// # Basic Usage
//
//	rt := relay.New()
//	rt.OnAll(middleware.Recover())
//	rt.Get("/hello/:name", func(ctx *relay.Context, next relay.Next) error {
//		return ctx.Send.Plain(http.StatusOK, "Hello, "+ctx.Param("name")+"!")
//	})
//	http.ListenAndServe(":8080", rt)
//
// # Path Specifications
//
// Routes are described with the syntax of package pathspec:
//
//	/widget/:id        ":id" captures one path segment
//	/files/::rest      "::rest" captures the remainder, separators included
//	*                  matches every path
//
// Matching is case-insensitive. Captured values are stored in
// [Context.Params] and mirrored into [http.Request.PathValue].
//
// # Continuations
//
// Errors returned by an action travel back up through every action that
// called next, so an action registered early can observe everything after it:
//
//	rt.OnAll(func(ctx *relay.Context, next relay.Next) error {
//		start := time.Now()
//		err := next()
//		ctx.Log.WithField("duration", time.Since(start)).Info("done")
//		return err
//	})
//
// A continuation may only be called once.
//
// # Route Prefixes
//
// [Router.Route] registers a group of actions under a path prefix. Groups
// share their parent's list, so registration order still decides priority:
//
//	rt.Route("/api", func(api *relay.Router) {
//		api.OnAll(requireLogin)          // only runs for paths under /api
//		api.Get("/users/:id", getUser)   // matches "/api/users/:id"
//	})
//
// # Response Wrapper
//
// Every response is wrapped in a [ResponseWriter] that tracks the status code
// and size, and the [Sender] on each [Context] refuses to send twice. The
// wrapper also implements [http.Flusher], [http.Hijacker], and [http.Pusher].
//
// # Standard Handlers
//
// [Wrap] turns an [http.Handler] into a terminal action, and [Adapt] or
// [Router.Use] turns func(http.Handler) http.Handler middleware into an
// action that continues the chain through its inner handler.
package relay
