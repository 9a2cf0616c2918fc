// Package notifications delivers run lifecycle events to an ntfy topic.
//
// The service is optional: without a configured topic every notification is
// a silent no-op, and individual event kinds can be toggled off in the
// configuration. Delivery failures are reported to the caller but never
// block or fail a dataset run.
package notifications
