package models

// UploadRequest is the gateway /upload body. Exactly one of Content and
// ContentBase64 is set.
type UploadRequest struct {
	Filename      string  `json:"filename"`
	Encrypt       bool    `json:"encrypt"`
	Content       *string `json:"content,omitempty"`
	ContentBase64 *string `json:"content_base64,omitempty"`
}

type UploadResult struct {
	Filename  string `json:"filename"`
	Encrypted bool   `json:"encrypted"`
	Size      int64  `json:"size"`
}
