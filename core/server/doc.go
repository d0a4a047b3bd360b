// Package server holds the HTTP server configuration.
//
// The start command builds the Fiber application from Config.Fiber and listens on
// Config.Addr. The API key is consumed by the auth middleware.
package server
