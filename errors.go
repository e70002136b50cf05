package ntfsrevive

import (
	"errors"

	"github.com/archivekit/ntfsrevive/internal/mft"
	"github.com/archivekit/ntfsrevive/internal/recovery"
	"github.com/archivekit/ntfsrevive/internal/volume"
)

// Error taxonomy (§7). Kinds, not types: callers distinguish them with
// errors.Is against these sentinels, consistent with how kmahyyg's
// go-rawcopy exposes its own ErrReturnedNil/ErrInvalidInput/
// ErrDeviceInaccessible sentinels for the same class of raw-volume tool.
var (
	ErrInvalidArgument = errors.New("ntfsrevive: invalid argument")

	// ErrVolumeUnavailable is the public name for volume.ErrUnavailable.
	ErrVolumeUnavailable = volume.ErrUnavailable

	// ErrNotAFileRecord is the public name for mft.ErrNotAFileRecord.
	ErrNotAFileRecord = mft.ErrNotAFileRecord

	// ErrNoDataAttribute is the public name for recovery.ErrNoDataAttribute.
	ErrNoDataAttribute = recovery.ErrNoDataAttribute

	// ErrUnexpectedVolumeEnd is the public name for recovery.ErrUnexpectedVolumeEnd.
	ErrUnexpectedVolumeEnd = recovery.ErrUnexpectedVolumeEnd

	// ErrSourceMissing is the public name for recovery.ErrSourceMissing.
	ErrSourceMissing = recovery.ErrSourceMissing

	// ErrUnsupportedAttribute is the public name for recovery.ErrUnsupportedAttribute.
	ErrUnsupportedAttribute = recovery.ErrUnsupportedAttribute

	// ErrWriteFailed is the public name for recovery.ErrWriteFailed.
	ErrWriteFailed = recovery.ErrWriteFailed
)

// IoctlError is the public name for volume.IoctlError, §7's
// IoctlFailed(code, osError).
type IoctlError = volume.IoctlError
