package domain

const (
	TaskUpserted = "task-upserted"
	TaskDeleted  = "task-deleted"
)

// Change records one mutation of the task collection. Revision increases by
// one per mutation, so consumers can detect gaps.
type Change struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	TaskID   int64  `json:"taskId"`
	Revision uint64 `json:"revision"`
	Created  bool   `json:"created,omitempty"`
	Task     *Task  `json:"task,omitempty"`
	Time     int64  `json:"time"`
}
