// Package middleware provides ready-made relay actions for common concerns.
//
// Each function returns a relay.Handler meant to be registered with
// Router.OnAll (or a method/path registration). Order matters: an action only
// sees failures and responses from actions registered after it.
//
//	rt := relay.New()
//	rt.OnAll(middleware.Recover())       // first, so it guards everything below
//	rt.OnAll(middleware.LogRequests())
//	rt.OnAll(middleware.Metrics())
//	rt.Post("/items", middleware.ParseJSON(0))
//	rt.Post("/items", createItem)
package middleware
