// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

/*
Package supervisor runs Lookout's long-lived services under a suture v4
supervisor tree.

Every background component implements suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

and is placed in one of three layers (see SupervisorTree). A service that
returns or panics is restarted with backoff; when failures exceed
FailureThreshold within the decay window the layer backs off for
FailureBackoff before trying again.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    ShutdownTimeout: 10 * time.Second,
	})
	if err != nil {
	    return err
	}
	tree.AddTrackingService(tracker.Publisher)
	tree.AddTrackingService(tracker.Sweeper)
	tree.AddMessagingService(ingest)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	_ = tree.Serve(ctx)

# Shutdown

Canceling the context stops every service. Services that exceed
ShutdownTimeout are reported by UnstoppedServiceReport and abandoned.

Supervisor events (restarts, backoff, timeouts) are logged through
sutureslog to the shared slog logger.
*/
package supervisor
