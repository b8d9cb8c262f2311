// Package sandbox runs the memory-unsafe HEIC decoder in a disposable child
// process and talks to it over JSON-RPC.
//
// The Host owns at most one worker instance at a time. Each instance carries
// a generation number that the worker echoes in every reply; a reply from the
// wrong generation is treated as a protocol failure. Instances are recycled
// after a fixed number of decodes, and any transport failure (crash, timeout,
// closed pipe) discards the instance so the next call starts a fresh one.
// Calls are strictly serialized. The Host never retries.
//
// The worker side lives in Serve and RunWorker; the decoding itself is
// supplied by a Backend.
package sandbox
