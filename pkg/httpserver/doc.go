// Package httpserver runs the operational HTTP endpoints of meterd.
//
// Server wraps http.Server with context-driven graceful shutdown. Router
// mounts liveness, readiness and metrics handlers on a chi router:
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	h := httpserver.Router(httpserver.RouterOptions{
//		Logger:  log,
//		Checks:  []httpserver.Check{{Name: "redis", Fn: store.Healthcheck}},
//		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
//	})
//	err := srv.Run(ctx, h)
//
// Run returns when ctx is cancelled and the server has drained, or when the
// listener fails. Signal handling is left to the caller.
package httpserver
