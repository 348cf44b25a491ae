// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package message

import "errors"

// ErrBusClosed is returned by Publish after the bus has been closed.
var ErrBusClosed = errors.New("message bus closed")

// ErrChannelUnavailable wraps transient transport failures in
// cross-process Messenger implementations. Callers surface it as "try
// again later".
var ErrChannelUnavailable = errors.New("message channel unavailable")
