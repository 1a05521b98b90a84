package forms

import (
	"fmt"
	"path"
	"strings"

	"github.com/brightpath-foundation/backend/internal/models"
)

// ValidateFile checks a FILE field's reported metadata against the field's
// declared constraints. It runs at client intake for fast feedback and MUST
// run again at the submission boundary; client-reported metadata is never
// trusted on its own.
func ValidateFile(f models.FieldDefinition, file models.FileValue) error {
	if f.MaxFileSize > 0 && file.Size > f.MaxFileSize {
		return &FileError{
			Code:    CodeFileTooLarge,
			FieldID: f.ID.String(),
			Message: fmt.Sprintf("%s exceeds the maximum size of %d bytes", f.Label, f.MaxFileSize),
		}
	}
	accepted := AcceptedList(f.AcceptedTypes)
	if len(accepted) == 0 {
		return nil
	}
	for _, entry := range accepted {
		if matchesType(entry, file) {
			return nil
		}
	}
	return &FileError{
		Code:    CodeUnsupportedFileType,
		FieldID: f.ID.String(),
		Message: fmt.Sprintf("%s does not accept this file type", f.Label),
	}
}

// AcceptedList splits a comma-separated accepted-types declaration into
// trimmed, lowercased entries. An empty declaration accepts anything.
func AcceptedList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, e := range strings.Split(s, ",") {
		if t := strings.ToLower(strings.TrimSpace(e)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// matchesType matches one accepted-types entry against the file.
// Entries can be extensions (".pdf" or "pdf"), exact MIME types
// ("application/pdf") or MIME wildcards ("image/*").
func matchesType(entry string, file models.FileValue) bool {
	ext := strings.ToLower(path.Ext(file.Name))
	ct := strings.ToLower(file.ContentType)

	if strings.Contains(entry, "/") {
		if strings.HasSuffix(entry, "/*") {
			return strings.HasPrefix(ct, strings.TrimSuffix(entry, "*"))
		}
		return ct == entry
	}
	if !strings.HasPrefix(entry, ".") {
		entry = "." + entry
	}
	return ext == entry
}
