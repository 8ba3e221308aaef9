package syncer

import "errors"

// Sync errors
var (
	// ErrMappingFailed marks a source record that could not be mapped. The
	// record is skipped and the batch continues.
	ErrMappingFailed = errors.New("syncer: mapping failed")
	// ErrRunInProgress is returned when a run of the same kind and direction
	// already holds the run lock.
	ErrRunInProgress = errors.New("syncer: run already in progress")
	// ErrMediaNotFound is returned by a MediaStore for unknown file names
	ErrMediaNotFound = errors.New("syncer: media file not found")
	// ErrUnknownKind is returned for entity kinds without a synchronizer
	ErrUnknownKind = errors.New("syncer: unknown entity kind")
	// ErrInvalidDirection is returned for directions other than to and from
	ErrInvalidDirection = errors.New("syncer: invalid direction")
	// ErrCrossSystemWrite marks a failed write to the ERP or the platform
	ErrCrossSystemWrite = errors.New("syncer: cross-system write failed")
)
