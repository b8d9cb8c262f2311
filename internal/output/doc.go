// Package output manages the revocable handles that expose converted bytes.
//
// A Registry owns a private staging directory for one session. Each converted
// result is written there as a single file and wrapped in a Handle; releasing
// the handle deletes the file, after which every read fails with ErrReleased.
// Closing the registry releases whatever is still live.
package output
