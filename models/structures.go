package models

type AlarmState struct {
	Active     bool    `json:"active"`
	LastUpdate float64 `json:"last_update"`
}

type AlarmStatus struct {
	Alarms map[int]AlarmState `json:"alarms"`
}

type CameraStatus struct {
	Online             bool    `json:"online"`
	AlarmActive        bool    `json:"alarm_active"`
	LastSeenSecondsAgo float64 `json:"last_seen_seconds_ago"`
	HasFrame           bool    `json:"has_frame"`
	StreamRegistered   bool    `json:"stream_registered"`
}

type Status struct {
	Status    string               `json:"status"`
	Cameras   map[int]CameraStatus `json:"cameras"`
	Timestamp float64              `json:"timestamp"`
	// PendingCommand is the command the next dashboard poll will receive.
	// Reading it does not consume it.
	PendingCommand *string  `json:"pending_command"`
	DiskUsage      *float64 `json:"diskUsage,omitempty"`
}

type Streams struct {
	Streams map[int]*string `json:"streams"`
}

type Command struct {
	Command *string `json:"command"`
}

type CommandResult struct {
	Status  string `json:"status"`
	Camera  int    `json:"camera,omitempty"`
	Command string `json:"command,omitempty"`
}

type Registration struct {
	StreamURL string `json:"stream_url"`
}
