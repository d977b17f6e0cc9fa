package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fleetlink/pkg/config"
	apperrors "fleetlink/pkg/errors"
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Skip() int64 {
	return int64((p.Page - 1) * p.Limit)
}

func ExtractPage(r *http.Request) (Page, error) {
	query := r.URL.Query()

	page := 1
	if s := query.Get("page"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return Page{}, apperrors.InvalidInput("invalid page parameter: " + s)
		}
		page = v
	}

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return Page{}, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	return Page{
		Page:  config.NormalizePage(page),
		Limit: config.NormalizePaginationLimit(limit),
	}, nil
}

// ParseTime accepts RFC 3339 timestamps and bare YYYY-MM-DD dates (UTC midnight).
func ParseTime(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, apperrors.InvalidInput(fmt.Sprintf("%s is required", field))
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, apperrors.InvalidInput(fmt.Sprintf("invalid %s format, must be RFC3339", field))
}

// DecodeJSON decodes the request body, mapping decode failures to 400.
func DecodeJSON(r *http.Request, target any) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.New("PAYLOAD_TOO_LARGE", "Request body too large", http.StatusRequestEntityTooLarge)
		}
		if errors.Is(err, io.EOF) {
			return apperrors.InvalidInput("Request body is required")
		}
		return apperrors.InvalidInput("Invalid request body")
	}
	return nil
}
