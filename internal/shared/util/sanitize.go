package util

import "strings"

const fallbackFileName = "file"

var fileNameReplacer = strings.NewReplacer("/", "_", "\\", "_", "..", "_")

// SanitizeFileName flattens an uploaded name into a single safe key segment.
// Separators and ".." runs become "_"; a blank name becomes "file".
func SanitizeFileName(name string) string {
	s := fileNameReplacer.Replace(strings.TrimSpace(name))
	if s == "" {
		return fallbackFileName
	}
	return s
}
