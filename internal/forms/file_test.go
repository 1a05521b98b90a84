package forms

import (
	"errors"
	"testing"

	"github.com/brightpath-foundation/backend/internal/models"
)

func TestValidateFile(t *testing.T) {
	def := field(models.FieldFile, "Attachment", false, 1)
	def.MaxFileSize = 2048
	def.AcceptedTypes = "image/*, .pdf, application/zip, png"

	tests := []struct {
		name     string
		file     models.FileValue
		wantCode Code
	}{
		{"image wildcard", models.FileValue{Name: "photo.jpg", Size: 100, ContentType: "image/jpeg"}, ""},
		{"extension with dot", models.FileValue{Name: "cv.PDF", Size: 100}, ""},
		{"exact mime", models.FileValue{Name: "bundle.bin", Size: 100, ContentType: "application/zip"}, ""},
		{"bare extension token", models.FileValue{Name: "logo.png", Size: 100}, ""},
		{"too large", models.FileValue{Name: "photo.jpg", Size: 4096, ContentType: "image/jpeg"}, CodeFileTooLarge},
		{"wrong type", models.FileValue{Name: "movie.mp4", Size: 100, ContentType: "video/mp4"}, CodeUnsupportedFileType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFile(def, tt.file)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var fe *FileError
			if !errors.As(err, &fe) {
				t.Fatalf("error = %v, want FileError", err)
			}
			if fe.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", fe.Code, tt.wantCode)
			}
		})
	}
}

func TestValidateFile_NoConstraints(t *testing.T) {
	def := field(models.FieldFile, "Anything", false, 1)
	if err := ValidateFile(def, models.FileValue{Name: "huge.iso", Size: 1 << 40}); err != nil {
		t.Fatalf("unconstrained field rejected a file: %v", err)
	}
}
