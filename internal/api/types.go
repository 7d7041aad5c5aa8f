package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// TranscodeRequest is the admission payload accepted by POST /transcode.
type TranscodeRequest struct {
	VideoID     string `json:"videoId" validate:"required"`
	Filename    string `json:"filename,omitempty"`
	OriginalKey string `json:"originalKey" validate:"required"`
}

// TranscodeResponse acknowledges an admitted job.
type TranscodeResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	VideoID       string `json:"videoId"`
	QueuePosition int    `json:"queuePosition"`
}

// ErrorResponse is returned for every rejected request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// JobSummary describes a job in a transport-friendly format.
type JobSummary struct {
	VideoID     string `json:"videoId"`
	Filename    string `json:"filename,omitempty"`
	OriginalKey string `json:"originalKey"`
}

// JobOutcome describes the most recently finished job.
type JobOutcome struct {
	Job         JobSummary `json:"job"`
	Status      string     `json:"status"`
	ManifestKey string     `json:"manifestKey,omitempty"`
	Stage       string     `json:"stage,omitempty"`
	Error       string     `json:"error,omitempty"`
	DurationMS  int64      `json:"durationMs"`
	FinishedAt  string     `json:"finishedAt,omitempty"`
}

// WorkflowStatus summarizes queue drain state.
type WorkflowStatus struct {
	Draining  bool         `json:"draining"`
	Stopped   bool         `json:"stopped"`
	Pending   []JobSummary `json:"pending"`
	Active    *JobSummary  `json:"active,omitempty"`
	Processed int          `json:"processed"`
	Failed    int          `json:"failed"`
	LastError string       `json:"lastError,omitempty"`
	LastJob   *JobOutcome  `json:"lastJob,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// ProfileSummary describes one rendition of the ladder.
type ProfileSummary struct {
	Label        string `json:"label"`
	Resolution   string `json:"resolution"`
	VideoBitrate string `json:"videoBitrate"`
	AudioBitrate string `json:"audioBitrate"`
	Bandwidth    int    `json:"bandwidth"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StartedAt    string             `json:"startedAt,omitempty"`
	LockFilePath string             `json:"lockFilePath"`
	WorkDir      string             `json:"workDir"`
	Storage      string             `json:"storage"`
	HistoryPath  string             `json:"historyPath,omitempty"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Profiles     []ProfileSummary   `json:"profiles"`
}

// HistoryEntry is one recorded status transition.
type HistoryEntry struct {
	ID            int64  `json:"id"`
	VideoID       string `json:"videoId"`
	Status        string `json:"status"`
	QueuePosition *int   `json:"queuePosition,omitempty"`
	ManifestKey   string `json:"manifestKey,omitempty"`
	RecordedAt    string `json:"recordedAt,omitempty"`
}

// HistoryResponse wraps recorded transitions.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}
