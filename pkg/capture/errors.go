// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import "errors"

var (
	// ErrTruncated indicates a capture stream ending inside a record.
	ErrTruncated = errors.New("capture truncated")

	// ErrOutOfOrder indicates a record with a tick earlier than its predecessor.
	ErrOutOfOrder = errors.New("capture records out of order")
)
