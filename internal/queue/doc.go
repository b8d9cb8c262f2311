// Package queue holds the in-memory conversion queue and drives each item's
// state machine.
//
// Items are kept in insertion order and addressed only by their UUID. Each
// item's State is a tagged variant (Idle, Converting, Completed, Failed) that
// carries exactly the fields valid for it, so a completed item always owns
// one live output handle and nothing else does.
//
// The Manager never holds its lock across a conversion. Results are applied
// only if the item still exists and is still on the conversion run that
// produced them; otherwise the result is dropped and its handle released.
// ConvertAll is a strictly sequential loop with a pacing pause around every
// item, trading throughput for bounded memory use.
//
// Nothing is persisted: a queue lives for one session.
package queue
