package core

// FileStatus is the change status GitHub reports for a file in a pull request.
type FileStatus string

const (
	StatusAdded     FileStatus = "added"
	StatusModified  FileStatus = "modified"
	StatusChanged   FileStatus = "changed"
	StatusRemoved   FileStatus = "removed"
	StatusRenamed   FileStatus = "renamed"
	StatusCopied    FileStatus = "copied"
	StatusUnchanged FileStatus = "unchanged"
)

// Reviewable reports whether files with this status carry new content worth reviewing.
func (s FileStatus) Reviewable() bool {
	switch s {
	case StatusAdded, StatusModified, StatusChanged:
		return true
	default:
		return false
	}
}

// ChangedFile holds the filename, status and patch data for a single file
// included in a pull request. Patch is empty for binary or oversized files.
type ChangedFile struct {
	Filename string
	Status   FileStatus
	Patch    string
}

// HasPatch reports whether GitHub returned a diff for the file.
func (f ChangedFile) HasPatch() bool {
	return f.Patch != ""
}

// DiffChunk is one hunk of a file's patch.
type DiffChunk struct {
	Header   string
	Content  string
	OldStart int
	OldLines int
	NewStart int
	NewLines int
}

// EndLine returns the last line of the new file covered by the chunk.
func (c DiffChunk) EndLine() int {
	if c.NewLines <= 0 {
		return c.NewStart
	}
	return c.NewStart + c.NewLines - 1
}

// ReviewResult is the generated feedback for one file or one chunk of it.
// Body is posted verbatim.
type ReviewResult struct {
	Filename string
	Language string
	Body     string
	Chunk    *DiffChunk
}

// ReviewComment is a single comment anchored to a file at a specific commit.
type ReviewComment struct {
	Owner       string
	Repo        string
	PRNumber    int
	CommitID    string
	Path        string
	Body        string
	SubjectType string
}

// DraftReviewComment represents a single comment to be posted as part of a review.
type DraftReviewComment struct {
	Path string
	Line int
	Side string
	Body string
}

// Review is a consolidated pull request review with line-specific comments.
type Review struct {
	Owner    string
	Repo     string
	PRNumber int
	CommitID string
	Body     string
	Event    string
	Comments []DraftReviewComment
}

// RunSummary counts what happened to the files of one pipeline run.
// Listed files passed the exclusion and status filters; Eligible ones also
// carry a patch.
type RunSummary struct {
	Listed   int
	Eligible int
	Skipped  int
	Reviewed int
	Failed   int
	Comments int
}
