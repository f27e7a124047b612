// Package server provides the telemetry HTTP server for long-running
// ajala processes such as batch runs.
//
// It listens on telemetry.metrics.listen while a batch runs:
//
//	srv := server.NewServer(server.Config{ListenAddress: ":9090"}, collector, checker)
//	go srv.Start(ctx)
//
// Start returns after ctx is cancelled and in-flight scrapes finish, or
// after ShutdownTimeout.
package server
