package http

// Request parsing helpers shared by the handlers. Every failure is returned
// as an *APIError so handlers can pass it straight to respondError.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"finance/internal/core"
	"finance/internal/importer"
)

// multipartMemory is how much of an uploaded file is kept in memory before
// spilling to a temp file.
const multipartMemory = 4 << 20

type nameRequest struct {
	Name string `json:"name"`
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

type idResponse struct {
	ID string `json:"id"`
}

func idList(ids []string) []idResponse {
	out := make([]idResponse, len(ids))
	for i, id := range ids {
		out[i] = idResponse{ID: id}
	}
	return out
}

// decodeJSON reads exactly one JSON value from the body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return invalidBody(errors.New("request body is empty"))
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return invalidBody(fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit))
		case errors.Is(err, io.EOF):
			return invalidBody(errors.New("request body is empty"))
		default:
			return invalidBody(fmt.Errorf("malformed JSON: %w", err))
		}
	}
	if dec.More() {
		return invalidBody(errors.New("request body must contain a single JSON value"))
	}
	return nil
}

// pathID returns the {id} route parameter.
func pathID(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		return "", missingID()
	}
	return id, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, key string) (*core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return nil, invalidBody(fmt.Errorf("query parameter %q: %w", key, err))
	}
	return &d, nil
}

// queryRange reads the from and to parameters.
func queryRange(r *http.Request) (from, to *core.Date, err error) {
	if from, err = queryDate(r, "from"); err != nil {
		return nil, nil, err
	}
	if to, err = queryDate(r, "to"); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// uploadFormat picks the parser for an uploaded file: the explicit format
// field wins, then the file extension, then CSV.
func uploadFormat(explicit, filename string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(explicit)); f {
	case "csv", "ofx":
		return f, nil
	case "":
	default:
		return "", invalidBody(fmt.Errorf("unsupported format %q, expected csv or ofx", explicit))
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ofx", ".qfx":
		return "ofx", nil
	}
	return "csv", nil
}

// readUpload parses a multipart upload in the "file" field into a grid.
func readUpload(r *http.Request) (importer.RawGrid, string, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, "", invalidBody(fmt.Errorf("parse upload: %w", err))
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", invalidBody(fmt.Errorf("missing file field: %w", err))
	}
	defer file.Close()

	format, err := uploadFormat(r.FormValue("format"), header.Filename)
	if err != nil {
		return nil, "", err
	}
	var grid importer.RawGrid
	if format == "ofx" {
		grid, err = importer.ReadOFX(file)
	} else {
		grid, err = importer.ReadCSV(file)
	}
	if err != nil {
		return nil, format, importFailed(err)
	}
	return grid, format, nil
}
