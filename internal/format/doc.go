// Package format names the output formats a queue item can target and the
// input files the converter accepts.
//
// Format values travel through every layer (queue items, converter requests,
// output handles, CLI flags), so parsing and the derived encodings, MIME types
// and download names live here rather than being re-derived at each call site.
package format
