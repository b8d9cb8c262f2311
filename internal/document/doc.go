// Package document wraps a single raster image in a one-page PDF.
//
// Pages are 210 mm wide (A4 width) and as tall as the image's aspect ratio
// requires, with the image filling the page from the top-left corner. Every
// produced document is re-read with pdfcpu before it is handed back, so a
// corrupt PDF never surfaces as a successful conversion.
package document
