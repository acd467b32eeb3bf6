package middleware

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jpl-au/relay"
)

// GenericErrorMessage is the body sent for faults in production mode.
const GenericErrorMessage = "An error occurred and the server could not complete your request. " +
	"If this keeps happening, contact the system administrator with the time of the request.\n"

// RecoverConfig configures the Recover middleware.
type RecoverConfig struct {
	// Production hides fault details from clients (default: true).
	Production bool

	// Hub receives every fault when set.
	Hub *sentry.Hub
}

// RecoverOption configures the Recover middleware.
type RecoverOption func(*RecoverConfig)

// WithProduction sets whether fault details are hidden from clients.
func WithProduction(production bool) RecoverOption {
	return func(c *RecoverConfig) {
		c.Production = production
	}
}

// WithSentry reports faults to hub.
func WithSentry(hub *sentry.Hub) RecoverOption {
	return func(c *RecoverConfig) {
		c.Hub = hub
	}
}

// Recover returns an action that turns errors and panics from the rest of the
// chain into a 503 response. The fault is logged with its stack trace; the
// client sees either a generic message or, outside production mode, the
// error text. If a response was already started, the fault is only logged.
// A panic with http.ErrAbortHandler is passed on so the server can abort the
// connection.
func Recover(opts ...RecoverOption) relay.Handler {
	config := RecoverConfig{Production: true}
	for _, opt := range opts {
		opt(&config)
	}

	return func(ctx *relay.Context, next relay.Next) (err error) {
		defer func() {
			if r := recover(); r != nil {
				if r == http.ErrAbortHandler {
					panic(r)
				}
				err = config.handle(ctx, panicError(r))
			}
		}()
		if err := next(); err != nil {
			return config.handle(ctx, err)
		}
		return nil
	}
}

func (c RecoverConfig) handle(ctx *relay.Context, fault error) error {
	log := ctx.Log.WithError(fault).WithFields(logrus.Fields{
		"status": http.StatusServiceUnavailable,
		"url":    ctx.Request.URL.RequestURI(),
		"stack":  fmt.Sprintf("%+v", fault),
	})
	log.Error("Request failed")

	if c.Hub != nil {
		hub := c.Hub.Clone()
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetRequest(ctx.Request)
			scope.SetTag("route", ctx.Route)
			hub.CaptureException(fault)
		})
	}

	if ctx.Send.Sent() {
		log.Warn("Response already started, cannot send error page")
		return nil
	}
	msg := GenericErrorMessage
	if !c.Production {
		msg = "*** Server Error ***\n" + fault.Error() + "\n"
	}
	if err := ctx.Send.Plain(http.StatusServiceUnavailable, msg); err != nil {
		ctx.Log.WithError(err).Error("Failed to send error response")
	}
	return nil
}

// panicError converts a recovered value into an error carrying the stack of
// the panic site.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return errors.WithStack(err)
	}
	return errors.Errorf("panic: %v", r)
}
