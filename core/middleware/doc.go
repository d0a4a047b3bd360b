// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - auth: API key validation for every route registered after it.
//   - rayid: a unique request id (RayID) per request, stored in the Fiber locals and
//     echoed in the X-Ray-ID response header for tracing.
package middleware
