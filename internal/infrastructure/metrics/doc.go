// Package metrics records CreditFlow editing and test activity as
// Prometheus counters and gauges.
//
// A Recorder registers its collectors on the registerer it is given, so
// tests can use a private prometheus.NewRegistry(). All Recorder methods
// are safe to call on a nil *Recorder, which records nothing.
package metrics
