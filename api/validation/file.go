package validation

import (
	"bytes"
	"io"
	"mime/multipart"
	"unicode/utf8"
)

type FileType string

const (
	FileTypeDocx FileType = "docx"
	FileTypePDF  FileType = "pdf"
	FileTypeText FileType = "text"
)

// DOCX files are ZIP containers, so the ZIP local-file signature covers them.
var magicBytes = map[FileType][]byte{
	FileTypeDocx: {0x50, 0x4B, 0x03, 0x04},
	FileTypePDF:  {0x25, 0x50, 0x44, 0x46},
}

// DetectFileType sniffs the leading bytes of an upload. Manuscripts arrive as
// DOCX, PDF or plain text; anything else is rejected.
func DetectFileType(file multipart.File) (FileType, error) {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	if _, err := file.Seek(0, 0); err != nil {
		return "", err
	}

	for fileType, signature := range magicBytes {
		if bytes.HasPrefix(buffer[:n], signature) {
			return fileType, nil
		}
	}

	if isPlainText(buffer[:n]) {
		return FileTypeText, nil
	}

	return "", ErrInvalidFileType
}

func isPlainText(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	if bytes.IndexByte(data, 0x00) >= 0 {
		return false
	}
	return utf8.Valid(data)
}
