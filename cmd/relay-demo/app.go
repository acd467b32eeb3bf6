package main

import (
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/jpl-au/relay"
	"github.com/jpl-au/relay/internal/config"
	"github.com/jpl-au/relay/middleware"
)

const sentryFlushTimeout = 2 * time.Second

// app holds everything a command needs after configuration is resolved.
type app struct {
	conf     config.Config
	logger   *logrus.Logger
	registry *prometheus.Registry
	hub      *sentry.Hub
}

func newApp(opts *rootOptions) (*app, error) {
	conf, err := config.Read(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.listen != "" {
		conf.Listen = opts.listen
	}
	if opts.verbose {
		conf.Verbose = true
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(conf.Level())
	if conf.Verbose && logger.Level < logrus.DebugLevel {
		logger.SetLevel(logrus.DebugLevel)
	}

	a := &app{
		conf:     conf,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	if conf.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{Dsn: conf.SentryDSN})
		if err != nil {
			return nil, errors.Wrap(err, "initializing Sentry client")
		}
		a.hub = sentry.CurrentHub()
	}
	return a, nil
}

// router builds the demo application. Actions run in the order they are
// registered here.
func (a *app) router() *relay.Router {
	rt := relay.New().
		WithLogger(a.logger).
		WithVerbose(a.conf.Verbose)

	recoverOpts := []middleware.RecoverOption{middleware.WithProduction(a.conf.IsProduction())}
	if a.hub != nil {
		recoverOpts = append(recoverOpts, middleware.WithSentry(a.hub))
	}

	rt.OnAll(middleware.LogRequests())
	rt.OnAll(middleware.Recover(recoverOpts...))
	rt.OnAll(middleware.Metrics(middleware.WithRegistry(a.registry)))
	rt.OnAll(middleware.Tracing(middleware.WithTracerName(a.conf.TracerName)))

	rt.Get(a.conf.MetricsPath, relay.Wrap(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	rt.Get("/", index)
	rt.Get("/hello/:name", hello)
	rt.Post("/echo", middleware.ParseJSON(a.conf.MaxBodyBytes))
	rt.Post("/echo", echo)
	rt.Post("/form", middleware.ParseForm(a.conf.MaxBodyBytes))
	rt.Post("/form", echo)
	rt.Get("/files/::path", file)
	rt.Get("/crash", crash)

	rt.Route("/admin", func(admin *relay.Router) {
		admin.OnAll(requireAdmin)
		admin.Get("/routes", func(ctx *relay.Context, _ relay.Next) error {
			return ctx.Send.Plain(http.StatusOK, rt.String())
		})
	})
	return rt
}

func (a *app) flush() {
	if a.hub != nil {
		a.hub.Flush(sentryFlushTimeout)
	}
}

func index(ctx *relay.Context, _ relay.Next) error {
	return ctx.Send.HTMLString(http.StatusOK, "<!DOCTYPE html><title>relay</title><p>It works.</p>\n")
}

func hello(ctx *relay.Context, _ relay.Next) error {
	return ctx.Send.Plain(http.StatusOK, "Hello, "+ctx.Param("name")+"!")
}

func echo(ctx *relay.Context, _ relay.Next) error {
	return ctx.Send.JSON(http.StatusOK, ctx.Env.Body)
}

func file(ctx *relay.Context, _ relay.Next) error {
	return ctx.Send.JSON(http.StatusOK, map[string]string{"path": ctx.Param("path")})
}

func crash(*relay.Context, relay.Next) error {
	return errors.New("crash requested")
}

// requireAdmin only lets requests through that carry the admin header.
func requireAdmin(ctx *relay.Context, next relay.Next) error {
	if ctx.Request.Header.Get("X-Relay-Admin") == "" {
		return ctx.Send.Plain(http.StatusForbidden, "Forbidden")
	}
	return next()
}
