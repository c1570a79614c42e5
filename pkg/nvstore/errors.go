// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package nvstore

import "errors"

// Sentinel errors for store operations.
var (
	// ErrNoRecord indicates the store holds no valid bind record.
	ErrNoRecord = errors.New("no bind record")

	// ErrCorrupt indicates the stored image has the wrong size.
	ErrCorrupt = errors.New("corrupt bind record")

	// ErrInvalidRecord indicates an attempt to save a record that would not load back.
	ErrInvalidRecord = errors.New("invalid bind record")
)
