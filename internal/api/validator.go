package api

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/corpuskit/novel-analyzer/internal/extract"
)

const maxHintLength = 255

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

// ValidateUpload checks the uploaded file's name, size, and the optional
// filename hint. The effective name is the uploaded filename falling back to
// the hint; its extension decides the extraction format.
func ValidateUpload(name, hint string, size int64) error {
	errs := make(map[string]string)

	if size <= 0 {
		errs["file"] = "file is required and must not be empty"
	} else if extract.Detect(name) == extract.FormatUnknown {
		errs["file"] = fmt.Sprintf("unsupported document format %q", strings.ToLower(filepath.Ext(name)))
	}
	if len(hint) > maxHintLength {
		errs["filename_hint"] = fmt.Sprintf("filename hint must be at most %d characters", maxHintLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
