package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
)

// parseMultipart bounds the request body and parses the multipart form.
// Parsed form files spill to temp storage; the returned cleanup removes them.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) (func(), bool) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBytes)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		if isBodyTooLargeError(err) {
			payloadTooLarge(w, "File exceeds maximum upload size")
		} else {
			badRequest(w, "Invalid multipart upload")
		}
		return func() {}, false
	}

	cleanup := func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}
	return cleanup, true
}

// requireFormFile fetches a named file field, writing a 400 when absent.
func requireFormFile(w http.ResponseWriter, r *http.Request, field string) (multipart.File, *multipart.FileHeader, bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		badRequest(w, "File field '"+field+"' is required")
		return nil, nil, false
	}
	if header == nil || strings.TrimSpace(header.Filename) == "" {
		file.Close()
		badRequest(w, "File name is required")
		return nil, nil, false
	}
	return file, header, true
}

func isBodyTooLargeError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}
