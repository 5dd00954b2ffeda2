package validation

import (
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"
)

func openUpload(t *testing.T, data []byte) multipart.File {
	t.Helper()

	path := filepath.Join(t.TempDir(), "upload")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open fixture: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    FileType
		wantErr error
	}{
		{"docx zip container", []byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00}, FileTypeDocx, nil},
		{"pdf document", []byte("%PDF-1.7 rest of file"), FileTypePDF, nil},
		{"plain text", []byte("A plain manuscript paragraph."), FileTypeText, nil},
		{"utf8 text", []byte("Başlık ve içerik"), FileTypeText, nil},
		{"binary with nul", []byte{0x4D, 0x5A, 0x00, 0x01}, "", ErrInvalidFileType},
		{"invalid utf8", []byte{0xFF, 0xFE, 0xFD}, "", ErrInvalidFileType},
		{"empty file", nil, "", ErrInvalidFileType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFileType(openUpload(t, tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectFileType failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDetectFileType_RewindsFile(t *testing.T) {
	f := openUpload(t, []byte("%PDF-1.7 payload"))

	if _, err := DetectFileType(f); err != nil {
		t.Fatalf("DetectFileType failed: %v", err)
	}

	buf := make([]byte, 4)
	n, err := f.Read(buf)
	if err != nil {
		t.Fatalf("Read after detection failed: %v", err)
	}
	if string(buf[:n]) != "%PDF" {
		t.Errorf("Expected file rewound to start, read %q", buf[:n])
	}
}
