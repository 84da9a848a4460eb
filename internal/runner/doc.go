// Package runner assembles the netid components from configuration.
//
// A RunContext carries the loaded configuration and shared resources so the
// CLI commands build the provider, resolver, store, metrics and monitor the
// same way:
//
//	rc := runner.NewRunContext(ctx).
//	    WithConfig(cfg).
//	    WithLogger(logger)
//
//	st, err := rc.OpenStore()
//	mon, err := rc.Monitor(st, collector)
package runner
