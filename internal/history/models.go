package history

import "time"

// Status is the lifecycle state of a recorded performance.
type Status string

const (
	StatusPlaying   Status = "playing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every status in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusPlaying, StatusCompleted, StatusFailed, StatusCancelled}
}

// ParseStatus maps a string to a Status.
func ParseStatus(value string) (Status, bool) {
	for _, status := range AllStatuses() {
		if string(status) == value {
			return status, true
		}
	}
	return "", false
}

// Finished reports whether the status is terminal.
func (s Status) Finished() bool {
	return s != StatusPlaying
}

// Performance is one recorded run of a score.
type Performance struct {
	ID           string    `json:"id"`
	ScorePath    string    `json:"score_path"`
	ScoreName    string    `json:"score_name,omitempty"`
	ScoreHash    string    `json:"score_hash,omitempty"`
	Backend      string    `json:"backend"`
	Status       Status    `json:"status"`
	NoteCount    int       `json:"note_count"`
	NotesPlayed  int       `json:"notes_played"`
	LogPath      string    `json:"log_path,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at,omitzero"`
}

// Elapsed returns the run time, measured to now for unfinished runs.
func (p Performance) Elapsed() time.Duration {
	if p.StartedAt.IsZero() {
		return 0
	}
	end := p.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(p.StartedAt)
}
