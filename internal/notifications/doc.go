// Package notifications delivers job lifecycle events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set. The
// completed and failed toggles suppress individual event families without
// disabling the transport.
//
// Extend this package if you need alternative transports; pipeline code
// depends only on the small Service interface.
package notifications
