package service

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/KaiavN/Transac/internal/domain"
)

// ErrInvalidCredentials is returned for any failed password login. It is an auth error.
var ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", domain.ErrUnauthenticated)

// boundary lets the caller-facing kinds through and remaps everything else to
// domain.ErrInternal after logging it.
func boundary(log *slog.Logger, msg string, err error, fields ...any) error {
	if err == nil {
		return nil
	}

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return err
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrForbidden),
		domain.IsAuthError(err),
		errors.Is(err, domain.ErrUpstream),
		errors.Is(err, domain.ErrInternal):
		return fmt.Errorf("%s: %w", msg, err)
	}

	log.Error(msg, append(fields, "err", err)...)
	return fmt.Errorf("%s: %w", msg, domain.ErrInternal)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// Keeps Offset within a Postgres int4 and away from overflow.
	maxPageNumber = math.MaxInt32 / maxPageSize
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	if p.Number > maxPageNumber {
		p.Number = maxPageNumber
	}
	return p
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// PageResult wraps one page of a listing.
type PageResult[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}
