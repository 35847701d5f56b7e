package domain

// SyncRecord is the tracker's per-item record.
type SyncRecord struct {
	// ContentType is the kind of content the item is.
	ContentType ContentType

	// CourseID is the owning course. Empty for records written before
	// course scoping existed.
	CourseID string

	// UpdatedAt is the source timestamp seen when the item was processed.
	UpdatedAt string

	// ProcessedAt is when the item was last ingested.
	ProcessedAt string

	// ChunkCount is the number of chunks written for the item.
	ChunkCount int

	// Deleted marks items that disappeared from the source.
	Deleted bool
}

// CourseSync records per-course synchronisation progress.
type CourseSync struct {
	// LastSync is when the course last finished ingesting.
	LastSync string
}

// SyncState is the full persisted tracker state.
type SyncState struct {
	// LastFullSync is when the last full run completed.
	LastFullSync string

	// Courses is keyed by course ID.
	Courses map[string]CourseSync

	// Items is keyed by content ID.
	Items map[string]SyncRecord
}

// NewSyncState returns an empty state with initialised maps.
func NewSyncState() *SyncState {
	return &SyncState{
		Courses: make(map[string]CourseSync),
		Items:   make(map[string]SyncRecord),
	}
}

// TrackerStats summarises the tracker state.
type TrackerStats struct {
	TotalItems     int
	ActiveItems    int
	DeletedItems   int
	ByType         map[ContentType]int
	LastFullSync   string
	CoursesTracked int
}

// IngestMode selects incremental or full processing.
type IngestMode string

// Available ingest modes.
const (
	// IngestModeIncremental skips items whose timestamp has not advanced.
	IngestModeIncremental IngestMode = "incremental"

	// IngestModeFull reprocesses every item.
	IngestModeFull IngestMode = "full"
)

// CourseReport holds per-type chunk counts for one course.
type CourseReport struct {
	CourseID   string
	CourseName string

	// Chunks is keyed by content type name.
	Chunks map[ContentType]int

	// Deleted is the number of items flagged deleted in this run.
	Deleted int

	// Err is set when the course failed.
	Err error
}

// Total returns the sum of chunks across content types.
func (r CourseReport) Total() int {
	n := 0
	for _, c := range r.Chunks {
		n += c
	}
	return n
}

// IngestReport is the outcome of an ingestion run.
type IngestReport struct {
	// RunID identifies the run in logs.
	RunID string

	Mode    IngestMode
	Courses []CourseReport
}

// Total returns the number of chunks written across all courses.
func (r IngestReport) Total() int {
	n := 0
	for _, c := range r.Courses {
		n += c.Total()
	}
	return n
}
