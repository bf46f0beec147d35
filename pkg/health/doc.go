// Package health runs provider health checks and serves them as HTTP probes.
//
// Providers that can verify vendor reachability (SES account lookup, Pub/Sub
// topic existence) expose a check through maildispatch.Service.HealthChecks.
// Run executes checks in parallel under a shared timeout; the handlers expose
// the same result as liveness and readiness endpoints:
//
//	r.Get("/health/live", health.LivenessHandler())
//	r.Get("/health/ready", health.ReadinessHandler(svc.HealthChecks(),
//		health.WithTimeout(3*time.Second),
//		health.WithLogger(log),
//	))
//
// Handlers answer with plain text ("OK" / "Service Unavailable") unless the
// client asks for JSON with an Accept: application/json header or ?format=json:
//
//	{
//	  "status": "unhealthy",
//	  "checks": {
//	    "aws": {"status": "unhealthy", "error": "...", "duration": "120ms"}
//	  }
//	}
//
// The CLI check command uses Run directly and Response.Err for its exit code.
package health
