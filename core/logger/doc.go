// Package logger builds the zap logger used across the service.
//
// Level "debug" starts from zap's development config, every other level from the
// production config. Format selects json (default) or colored console output, which
// the CLI uses for error reporting.
//
// Requests are correlated by ray id: the rayid middleware stores it in Fiber locals
// under RayIDKey and WithRayID copies it onto a child logger.
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	l := logger.WithRayID(log, c)
//	l.Warn("Recompute failed", zap.String("order_number", n), zap.Error(err))
package logger
