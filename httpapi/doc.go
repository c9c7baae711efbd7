// Package httpapi exposes a chainAuth Engine as a JSON API on gin.
//
// Handlers only decode requests, attach the caller's IP address and user
// agent to the context, and translate engine results. Error statuses and
// envelopes come from the middleware package so the gin routes and plain
// net/http consumers answer identically.
package httpapi
