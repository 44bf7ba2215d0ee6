package attachments

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/opsportal/portal/src/oops"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func upload(name string, size int64) Upload {
	return Upload{FileName: name, Size: size, Body: bytes.NewReader(nil)}
}

func TestValidateUploads(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		assert.Nil(t, ValidateUploads(0, []Upload{upload("Report.PDF", 1024), upload("chart.png", MaxFileSize)}))
		assert.Nil(t, ValidateUploads(3, []Upload{upload("a.txt", 1), upload("b.txt", 1)}))
		assert.Nil(t, ValidateUploads(5, nil))
	})
	t.Run("too big", func(t *testing.T) {
		err := ValidateUploads(0, []Upload{upload("huge.pdf", 26*1024*1024)})
		assert.Equal(t, oops.KindInvalidInput, oops.KindOf(err))
		assert.Contains(t, oops.PublicMessage(err), "huge.pdf")
	})
	t.Run("empty", func(t *testing.T) {
		err := ValidateUploads(0, []Upload{upload("empty.txt", 0)})
		assert.Equal(t, oops.KindInvalidInput, oops.KindOf(err))
	})
	t.Run("extension", func(t *testing.T) {
		for _, name := range []string{"setup.exe", "noextension", "archive.tar.gz", "pdf"} {
			err := ValidateUploads(0, []Upload{upload(name, 10)})
			assert.Equal(t, oops.KindInvalidInput, oops.KindOf(err), name)
		}
	})
	t.Run("too many", func(t *testing.T) {
		err := ValidateUploads(4, []Upload{upload("a.txt", 1), upload("b.txt", 1)})
		assert.Equal(t, oops.KindInvalidInput, oops.KindOf(err))

		files := make([]Upload, 6)
		for i := range files {
			files[i] = upload("x.zip", 1)
		}
		assert.NotNil(t, ValidateUploads(0, files))
	})
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "pdf", Extension("Q3.Report.PDF"))
	assert.Equal(t, "", Extension("Makefile"))
	assert.Equal(t, "", Extension("trailing."))
}

func TestResolveMimeType(t *testing.T) {
	assert.Equal(t, "image/png", ResolveMimeType("image/png", "x.jpg"))
	assert.Equal(t, "image/jpeg", ResolveMimeType("", "x.JPG"))
	assert.Equal(t, "application/pdf", ResolveMimeType("application/octet-stream", "x.pdf"))
	assert.Equal(t, "application/octet-stream", ResolveMimeType("", "x.bin"))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "unnamed", SanitizeFilename(""))
	assert.Equal(t, "Q3_report_final_.pdf", SanitizeFilename("Q3 report(final).pdf"))
	assert.Equal(t, "___.xlsx", SanitizeFilename("見積書.xlsx"))
	assert.Equal(t, ".._.._etc_passwd", SanitizeFilename("../../etc/passwd"))
}

var reSafePath = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

func TestSanitizeFilenameProperties(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping property test in short mode")
	}

	rapid.Check(t, func(rt *rapid.T) {
		name := rapid.String().Draw(rt, "name")
		sanitized := SanitizeFilename(name)

		if !reSafePath.MatchString(sanitized) {
			rt.Fatalf("sanitized name %q contains unsafe characters", sanitized)
		}
		if SanitizeFilename(sanitized) != sanitized {
			rt.Fatalf("sanitizing is not idempotent for %q", name)
		}
	})
}

func TestObjectPath(t *testing.T) {
	channelID := uuid.MustParse("6f1c0d52-8a3a-4c6f-9a59-0d3c1b0e0a11")
	threadID := uuid.MustParse("0b8f7e3c-2d57-4f0e-8c44-7d1b6a5e9c22")
	messageID := uuid.MustParse("a2e4c6d8-1b3f-4a5c-9e7d-0f2b4d6e8a33")
	attachmentID := uuid.MustParse("c0ffee00-0000-4000-8000-000000000044")

	path := ObjectPath(channelID, threadID, messageID, attachmentID, "Budget 2026.xlsx")
	assert.Equal(t,
		"chat/6f1c0d52-8a3a-4c6f-9a59-0d3c1b0e0a11/0b8f7e3c-2d57-4f0e-8c44-7d1b6a5e9c22/a2e4c6d8-1b3f-4a5c-9e7d-0f2b4d6e8a33/c0ffee00-0000-4000-8000-000000000044_Budget_2026.xlsx",
		path,
	)
	assert.Equal(t, 5, len(strings.Split(path, "/")))
}
