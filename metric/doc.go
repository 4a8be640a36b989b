// Package metric wraps a Prometheus registry for the chat relay.
//
// Components receive an optional *MetricsRegistry; a nil registry disables
// metrics for that component without changing its behavior. Each component
// registers its own collectors under a component name so duplicate
// registrations are caught early.
package metric
