// Package loader provides the plugin-like feature loading system.
//
// Each feature implements the Feature interface and registers its own routes when
// loaded:
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// The Manager keeps the registry in registration order. LoadAll skips disabled
// features and stops at the first load error.
package loader
