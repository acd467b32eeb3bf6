package middleware

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jpl-au/relay"
)

// LogRequests returns an action that logs each request once the rest of the
// chain has finished, with its status and how long it took.
func LogRequests() relay.Handler {
	return func(ctx *relay.Context, next relay.Next) error {
		start := time.Now()
		err := next()
		ctx.Log.WithFields(logrus.Fields{
			"status":   ctx.Response.Status(),
			"duration": time.Since(start).String(),
			"url":      ctx.Request.URL.RequestURI(),
		}).Info("Handled request")
		return err
	}
}
