// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package retry

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/jackc/pgx/v5"
)

// IsSourceConnErr classifies transient PostgreSQL connection failures:
// network errors, closed connections, and context deadlines hit while
// talking to the source. It intentionally excludes pgx.ErrNoRows and
// other query-shape errors, which are not connection problems.
func IsSourceConnErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return errors.Is(err, pgx.ErrTxClosed) || errors.Is(err, pgx.ErrTxCommitRollback)
}

// IsSinkConnErr classifies transient sink (search index) connection
// failures: network errors and the sentinel ErrSinkUnavailable returned
// by the bulk client wrapper when the HTTP round-trip itself fails
// (as opposed to a bulk response carrying per-document errors).
func IsSinkConnErr(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, ErrSinkUnavailable) || errors.Is(err, context.DeadlineExceeded)
}

// ErrSinkUnavailable marks a sink error as a connection-level failure,
// distinct from a bulk response that surfaced a per-document error.
var ErrSinkUnavailable = errors.New("retry: sink connection unavailable")
