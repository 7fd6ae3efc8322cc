/*
Package observability turns session lifecycle events into logs and metrics.

Metrics feeds Prometheus collectors from domain.LifecycleHooks, and LogHooks
writes the same events to a slog.Logger. Combine joins several hook sets so a
session can carry both.
*/
package observability
