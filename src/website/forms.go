package website

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/opsportal/portal/src/attachments"
	"github.com/opsportal/portal/src/oops"
)

const (
	// Enough for a full set of maximum-size attachments plus the text fields.
	maxUploadRequestSize = attachments.MaxAttachmentsPerMessage*attachments.MaxFileSize + 1024*1024
	maxMultipartMemory   = 32 * 1024 * 1024
)

// pathUUID parses a path parameter. A malformed id can't name anything, so it
// is reported as notFound.
func pathUUID(c *RequestContext, name string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(c.PathParams[name])
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}

func optionalUUID(value, field string) (*uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, oops.InvalidInput("%s is not a valid id.", field)
	}
	return &id, nil
}

func requiredUUID(value, field string) (uuid.UUID, error) {
	id, err := optionalUUID(value, field)
	if err != nil {
		return uuid.Nil, err
	}
	if id == nil {
		return uuid.Nil, oops.InvalidInput("%s is required.", field)
	}
	return *id, nil
}

func uuidList(values []string, field string) ([]uuid.UUID, error) {
	var result []uuid.UUID
	for _, v := range values {
		id, err := optionalUUID(v, field)
		if err != nil {
			return nil, err
		}
		if id != nil {
			result = append(result, *id)
		}
	}
	return result, nil
}

func optionalInt(value, field string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, oops.InvalidInput("%s must be a non-negative number.", field)
	}
	return n, nil
}

// parseForm accepts both urlencoded and multipart bodies.
func parseForm(c *RequestContext) error {
	err := c.Req.ParseMultipartForm(maxMultipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = c.Req.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return oops.InvalidInput("The request is too large.")
		}
		return oops.InvalidInput("The form could not be read.")
	}
	return nil
}

/*
parseUploads reads the "file" parts of a multipart form into uploads. The
returned cleanup closes every opened file and removes any temp files the
multipart reader spooled to disk; call it once the uploads are stored.
*/
func parseUploads(c *RequestContext) ([]attachments.Upload, func(), error) {
	c.Req.Body = http.MaxBytesReader(c.Res, c.Req.Body, maxUploadRequestSize)
	if err := parseForm(c); err != nil {
		return nil, func() {}, err
	}
	if c.Req.MultipartForm == nil {
		return nil, func() {}, nil
	}

	var opened []multipart.File
	cleanup := func() {
		for _, f := range opened {
			f.Close()
		}
		c.Req.MultipartForm.RemoveAll()
	}

	var uploads []attachments.Upload
	for _, header := range c.Req.MultipartForm.File["file"] {
		f, err := header.Open()
		if err != nil {
			cleanup()
			return nil, func() {}, oops.New(err, "failed to open uploaded file")
		}
		opened = append(opened, f)
		uploads = append(uploads, attachments.Upload{
			FileName:     header.Filename,
			DeclaredType: header.Header.Get("Content-Type"),
			Size:         header.Size,
			Body:         f,
		})
	}
	return uploads, cleanup, nil
}
