// Package server runs the gemrelay HTTP listeners.
//
// The proxy listener serves the forwarder behind the middleware chain. Every
// path except "/" is relayed upstream, so operational endpoints live on a
// separate admin listener:
//
//	/health   liveness
//	/ready    credentials configured and rotation store reachable
//	/version  build information
//	/metrics  Prometheus exposition (when metrics are enabled)
//
// # Basic Usage
//
//	srv, err := server.NewServer(cfg, server.Options{
//	    Handler: forwarder,
//	    Checker: checker,
//	    Metrics: collector,
//	    Logger:  logger,
//	})
//	if err != nil {
//	    return err
//	}
//
//	ctx, cancel := cli.SetupSignalHandler()
//	defer cancel()
//	return srv.Start(ctx)
//
// Start blocks until ctx is done and then shuts down gracefully, waiting up
// to proxy.shutdown_timeout for in-flight requests and open streams. Signal
// handling is left to the caller.
package server
