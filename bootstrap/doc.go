// Package bootstrap runs the application lifecycle: typed config, the
// component registry, startup and shutdown hooks, the startup summary and
// graceful shutdown on SIGINT or SIGTERM.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil { ... }
//	app.RegisterComponent(storageComponent)
//	app.RegisterComponent(serverComponent)
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*AppConfig]) error {
//	    // wire handlers once infrastructure is up
//	    return nil
//	})
//	if err := app.Run(ctx); err != nil { ... }
//
// Components start in registration order and stop in reverse.
package bootstrap
