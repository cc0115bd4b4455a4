package tcal

import "errors"

// Per-scene failures are caught by the batch runner and logged; only
// ErrInvalidConfig (and a missing catalog) abort a whole run.
var (
	// ErrMissingTimingRecord: the scene stem has no acquisition
	// timestamp in the catalog and none could be recovered from the
	// raster itself. The scene is skipped.
	ErrMissingTimingRecord = errors.New("no acquisition timestamp for scene")

	// ErrGeometryUnavailable: no angle telemetry series could be
	// built. Never surfaced to the batch; it selects the fallback
	// geometry path instead.
	ErrGeometryUnavailable = errors.New("angle telemetry unavailable")

	// ErrRasterIO: raster read/write failed, or a stage panicked.
	// Per-scene; the batch continues.
	ErrRasterIO = errors.New("raster i/o failure")

	// ErrInvalidConfig: a correction/segmentation constant is missing
	// or out of range. Fatal before any scene is processed.
	ErrInvalidConfig = errors.New("invalid configuration")
)
