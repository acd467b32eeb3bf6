package middleware_test

import (
	"net/http"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpl-au/relay"
	"github.com/jpl-au/relay/middleware"
)

func TestLogRequests(t *testing.T) {
	rt, hook := newRouter(t)
	rt.OnAll(middleware.LogRequests())
	rt.Get("/items/:id", func(ctx *relay.Context, next relay.Next) error {
		assert.Empty(t, hook.AllEntries(), "logged only after the chain finishes")
		return ctx.Send.Plain(http.StatusAccepted, "ok")
	})

	get(rt, "/items/3?verbose=1")

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, http.StatusAccepted, entry.Data["status"])
	assert.Equal(t, http.MethodGet, entry.Data["method"])
	assert.Equal(t, "/items/3?verbose=1", entry.Data["url"])
	assert.NotEmpty(t, entry.Data["duration"])
	assert.NotEmpty(t, entry.Data["remote"])
}

func TestLogRequests_LogsFallback(t *testing.T) {
	rt, hook := newRouter(t)
	rt.OnAll(middleware.LogRequests())

	get(rt, "/nothing")

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, http.StatusNotFound, hook.LastEntry().Data["status"])
}
