// Package services defines the error markers and context tags shared by the
// conversion pipeline.
//
// Key responsibilities:
//   - Sentinel markers (decode, encode, assembly, sandbox, ...) plus the Wrap
//     helper so a failure keeps its classification as it travels from the
//     sandbox or raster code up to the queue.
//   - Context helpers that stamp queue item IDs, pipeline stages and
//     correlation identifiers for logging.
//
// The queue records the final error string of a failed item verbatim, so the
// messages built here are what users end up reading.
package services
