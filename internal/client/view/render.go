package view

import "github.com/dmitrijs2005/gfsdash/internal/client/models"

// Renderer draws applied views. Render is called from refresh goroutines
// and must be safe for concurrent use.
type Renderer interface {
	Render(v View)
	// Clear drops whatever is displayed, e.g. on logout.
	Clear()
}

// Notifier shows one-line operator notices (confirmations, advisories,
// failures).
type Notifier interface {
	Notify(msg string)
}

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// UploadReporter receives per-job progress of an upload batch.
type UploadReporter interface {
	UploadStarted(index, total int, filename string)
	UploadSucceeded(index, total int, res models.UploadResult)
	UploadFailed(index, total int, filename, msg string)
}

// Renderers fans a view out to several renderers.
type Renderers []Renderer

func (rs Renderers) Render(v View) {
	for _, r := range rs {
		r.Render(v)
	}
}

func (rs Renderers) Clear() {
	for _, r := range rs {
		r.Clear()
	}
}
