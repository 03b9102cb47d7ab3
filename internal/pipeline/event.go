package pipeline

import (
	"strconv"
	"time"
)

// RunEvent is the notification payload published after a successful run.
type RunEvent struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Pages      int       `json:"pages"`
	StopReason string    `json:"stop_reason"`
	CrawlError string    `json:"crawl_error,omitempty"`
	New        int       `json:"new_entries"`
	Total      int       `json:"total_entries"`
	Reloaded   bool      `json:"reloaded"`
}

// NewRunEvent builds the event for res.
func NewRunEvent(res Result) RunEvent {
	ev := RunEvent{
		RunID:      res.RunID,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Pages:      res.Pages,
		StopReason: string(res.StopReason),
		New:        res.New,
		Total:      res.Total,
		Reloaded:   res.Reloaded,
	}
	if res.CrawlErr != nil {
		ev.CrawlError = res.CrawlErr.Error()
	}
	return ev
}

// Attributes are copied onto the published message for subscription filters.
func (e RunEvent) Attributes() map[string]string {
	return map[string]string{
		"run_id":      e.RunID,
		"stop_reason": e.StopReason,
		"new_entries": strconv.Itoa(e.New),
	}
}
