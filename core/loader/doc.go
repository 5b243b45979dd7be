// Package loader mounts the operator features on the fiber app.
//
// A feature reports its name, whether the configuration enables it, and
// registers its routes in Load:
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// cmd/start registers the ugc run feature and the integrity checks, then
// calls LoadAll. Disabled features are skipped and the first Load error
// stops the server from starting.
package loader
