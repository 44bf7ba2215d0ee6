package attachments

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opsportal/portal/src/oops"
)

const (
	MaxFileSize              = 25 * 1024 * 1024
	MaxAttachmentsPerMessage = 5

	DownloadGrantTTL = 60 * time.Second
	PreviewGrantTTL  = 300 * time.Second
)

// Extension -> MIME type. The keys are also the allowed extensions.
var mimeTypesByExtension = map[string]string{
	"pdf":  "application/pdf",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"xls":  "application/vnd.ms-excel",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"zip":  "application/zip",
	"txt":  "text/plain",
}

const genericMimeType = "application/octet-stream"

func AllowedExtensions() []string {
	return []string{"pdf", "xlsx", "xls", "docx", "pptx", "png", "jpg", "jpeg", "zip", "txt"}
}

func IsAllowedExtension(ext string) bool {
	_, ok := mimeTypesByExtension[ext]
	return ok
}

// Extension returns the lowercased text after the last dot, or "" if there
// is no dot.
func Extension(fileName string) string {
	idx := strings.LastIndexByte(fileName, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(fileName[idx+1:])
}

func ResolveMimeType(declared string, fileName string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != genericMimeType {
		return declared
	}
	if t, ok := mimeTypesByExtension[Extension(fileName)]; ok {
		return t
	}
	return genericMimeType
}

/*
ValidateUploads checks a batch of files about to be attached to a message that
already has existingCount attachments. It must run before anything is written
to the object store or the database.
*/
func ValidateUploads(existingCount int, files []Upload) error {
	if existingCount+len(files) > MaxAttachmentsPerMessage {
		return oops.InvalidInput("A message can have at most %d attachments.", MaxAttachmentsPerMessage)
	}

	for _, f := range files {
		if f.Size <= 0 {
			return oops.InvalidInput("The file '%s' is empty.", f.FileName)
		}
		if f.Size > MaxFileSize {
			return oops.InvalidInput("The file '%s' is larger than the %d MB limit.", f.FileName, MaxFileSize/1024/1024)
		}
		if !IsAllowedExtension(Extension(f.FileName)) {
			return oops.InvalidInput("The file '%s' can't be attached. Allowed types: %s.",
				f.FileName, strings.Join(AllowedExtensions(), ", "))
		}
	}

	return nil
}

var REIllegalFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func SanitizeFilename(filename string) string {
	if filename == "" {
		return "unnamed"
	}
	return REIllegalFilenameChars.ReplaceAllString(filename, "_")
}

// ObjectPath is where an attachment's bytes live in the object store. The
// attachment id prefix keeps paths unique even for identical file names.
func ObjectPath(channelID, threadID, messageID, attachmentID uuid.UUID, fileName string) string {
	return fmt.Sprintf("chat/%s/%s/%s/%s_%s", channelID, threadID, messageID, attachmentID, SanitizeFilename(fileName))
}
