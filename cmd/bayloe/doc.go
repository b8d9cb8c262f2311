// Command bayloe converts HEIC, PNG, JPEG and WebP images to PNG, JPEG,
// WebP or single-page PDF.
//
// "bayloe convert" runs a one-shot batch, "bayloe session" keeps an
// interactive queue open, and the hidden "decoder-worker" subcommand is the
// isolated HEIC decoder that the other commands launch as a child process.
package main
