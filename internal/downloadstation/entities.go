package downloadstation

import "time"

// TaskList is the payload of a list call.
type TaskList struct {
	Offset int    `json:"offset"`
	Total  int    `json:"total"`
	Tasks  []Task `json:"task"`
}

// taskInfo is the payload of a get call.
type taskInfo struct {
	Tasks []Task `json:"task"`
}

// Task is one download task as reported by the server. Snapshots are
// owned by the caller and never updated in place.
type Task struct {
	ID          string       `json:"id"`
	Username    string       `json:"username"`
	Type        string       `json:"type"`
	Title       string       `json:"title"`
	Size        int64        `json:"size"`
	Status      TaskStatus   `json:"status"`
	StatusExtra *StatusExtra `json:"status_extra,omitempty"`
	Additional  *Additional  `json:"additional,omitempty"`
}

// StatusExtra carries extra state for error and extraction statuses.
type StatusExtra struct {
	ErrorDetail   string `json:"error_detail,omitempty"`
	UnzipProgress int    `json:"unzip_progress,omitempty"`
}

// Additional holds the optional detail sections requested through the
// "additional" parameter.
type Additional struct {
	Detail   *Detail   `json:"detail,omitempty"`
	File     []File    `json:"file,omitempty"`
	Peer     []Peer    `json:"peer,omitempty"`
	Tracker  []Tracker `json:"tracker,omitempty"`
	Transfer *Transfer `json:"transfer,omitempty"`
}

// Detail describes task metadata. Timestamps are unix seconds.
type Detail struct {
	CompletedTime     int64  `json:"completed_time"`
	ConnectedLeechers int    `json:"connected_leechers"`
	ConnectedPeers    int    `json:"connected_peers"`
	ConnectedSeeders  int    `json:"connected_seeders"`
	CreatedTime       int64  `json:"created_time"`
	Destination       string `json:"destination"`
	SeedElapsed       int64  `json:"seed_elapsed"`
	StartedTime       int64  `json:"started_time"`
	TotalPeers        int    `json:"total_peers"`
	TotalPieces       int    `json:"total_pieces"`
	URI               string `json:"uri"`
	UnzipPassword     string `json:"unzip_password,omitempty"`
	WaitingSeconds    int    `json:"waiting_seconds"`
}

// Created returns the task creation time.
func (d *Detail) Created() time.Time { return time.Unix(d.CreatedTime, 0) }

// Started returns the time the task started transferring.
func (d *Detail) Started() time.Time { return time.Unix(d.StartedTime, 0) }

// Completed returns the completion time (zero epoch when unfinished).
func (d *Detail) Completed() time.Time { return time.Unix(d.CompletedTime, 0) }

// File is one file within a task.
type File struct {
	Filename       string `json:"filename"`
	Index          int    `json:"index"`
	Priority       string `json:"priority"`
	Size           int64  `json:"size"`
	SizeDownloaded int64  `json:"size_downloaded"`
	Wanted         bool   `json:"wanted"`
}

// Peer is one connected peer.
type Peer struct {
	Address       string  `json:"address"`
	Agent         string  `json:"agent"`
	Progress      float64 `json:"progress"`
	SpeedDownload int64   `json:"speed_download"`
	SpeedUpload   int64   `json:"speed_upload"`
}

// Tracker is one announce tracker.
type Tracker struct {
	Peers       int    `json:"peers"`
	Seeds       int    `json:"seeds"`
	Status      string `json:"status"`
	UpdateTimer int    `json:"update_timer"`
	URL         string `json:"url"`
}

// Transfer holds the transfer statistics section.
type Transfer struct {
	DownloadedPieces int   `json:"downloaded_pieces"`
	SizeDownloaded   int64 `json:"size_downloaded"`
	SizeUploaded     int64 `json:"size_uploaded"`
	SpeedDownload    int64 `json:"speed_download"`
	SpeedUpload      int64 `json:"speed_upload"`
}

// TaskCreated is the payload of a create call.
type TaskCreated struct {
	ListID []string `json:"list_id"`
	TaskID []string `json:"task_id"`
}

// TaskCompleted is the payload of a force-complete call.
type TaskCompleted struct {
	TaskID string `json:"task_id"`
}

// TaskOperation reports per-task outcomes of resume/delete calls.
type TaskOperation struct {
	FailedTasks []FailedTask `json:"failed_task"`
}

// FailedTask is one task an operation could not be applied to, with the
// service error code for that task.
type FailedTask struct {
	Error int    `json:"error"`
	ID    string `json:"id"`
}
