package jobs

import "context"

// LibraryRefreshJob is the name of the report library rescan job.
const LibraryRefreshJob = "library_refresh"

// Refresher rescans a report library.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RegisterLibraryRefresh schedules r on schedule.
func RegisterLibraryRefresh(s *Scheduler, schedule string, r Refresher) error {
	return s.Register(LibraryRefreshJob, schedule, r.Refresh)
}
