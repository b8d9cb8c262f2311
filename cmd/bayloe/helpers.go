package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bayloe/internal/config"
	"bayloe/internal/format"
	"bayloe/internal/queue"
)

// readInput loads one candidate file, rejecting anything outside the
// "image/*, .heic, .heif" filter.
func readInput(path string) (queue.File, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return queue.File{}, err
	}
	name := filepath.Base(expanded)
	mimeType := format.DetectMIME(name)
	if !format.Accepts(name, mimeType) {
		return queue.File{}, fmt.Errorf("%s: not an image file", path)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return queue.File{}, fmt.Errorf("read %s: %w", path, err)
	}
	return queue.File{Name: name, MIME: mimeType, Data: data}, nil
}

// outputName builds "<stem>-converted.<ext>" for a completed item.
func outputName(source string, f format.Format) string {
	stem := strings.TrimSuffix(source, filepath.Ext(source))
	if stem == "" {
		stem = "image"
	}
	return stem + "-converted." + f.Extension()
}

func parseFormat(value string) (format.Format, error) {
	f, ok := format.Parse(value)
	if !ok {
		names := make([]string, 0, len(format.All()))
		for _, candidate := range format.All() {
			names = append(names, candidate.String())
		}
		return "", fmt.Errorf("unsupported format %q (choose %s)", value, strings.Join(names, ", "))
	}
	return f, nil
}

func shortID(id string) string {
	if idx := strings.IndexByte(id, '-'); idx > 0 {
		return id[:idx]
	}
	return id
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func itoa(n int) string { return strconv.Itoa(n) }
