package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// Error classes. Backends wrap driver errors with one of these so callers
// can branch with errors.Is without importing a driver.
var (
	ErrForeignKey = errors.New("foreign key violation")
	ErrConstraint = errors.New("constraint violation")
	ErrConnection = errors.New("connection failure")
)

// Classified wraps err so that it matches both class and err.
func Classified(class, err error) error {
	if class == nil || err == nil {
		return err
	}
	if errors.Is(err, class) {
		return err
	}
	return fmt.Errorf("%w: %w", class, err)
}

// IsConnectionLoss reports whether err looks like a dropped or refused
// connection rather than a statement failure. Cancellation is not a
// connection loss.
func IsConnectionLoss(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
