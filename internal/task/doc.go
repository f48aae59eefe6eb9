// Package task runs cooperative, resumable units of work on a small pool of
// workers and keeps correlation spans attached to them across suspension.
//
// A Task is resumed repeatedly until it reports Done. Between resumptions it
// may be parked on a channel and later resumed on a different worker, so a
// span must never stay entered across a suspension point. Instrument enters
// its span only for the duration of each Resume call and closes it exactly
// once, on completion or cancellation.
package task
