package models

type UserRecord struct {
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	CreatedBy string `json:"created_by"`
}

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Server    string `json:"server"`
	Event     string `json:"event"`
}
