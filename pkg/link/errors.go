// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import "errors"

// ErrInvalidConfig indicates inconsistent engine parameters
var ErrInvalidConfig = errors.New("invalid link config")
