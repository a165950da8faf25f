package models

// PendingUpload is a local media handle awaiting promotion to a durable URL.
// It exists only between capture/selection and either a successful upload
// (replaced by the URL) or submission (kept as last-resort fallback).
type PendingUpload struct {
	// LocalRef identifies the transient handle (object URL, temp path).
	LocalRef string `json:"local_ref"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Bytes    []byte `json:"-"`

	// DurableURL is set once promotion succeeds.
	DurableURL string `json:"durable_url,omitempty"`
}

// Ref returns the reference to put into an answer: the durable URL when
// promotion succeeded, the local handle otherwise.
func (p *PendingUpload) Ref() string {
	if p.DurableURL != "" {
		return p.DurableURL
	}
	return p.LocalRef
}

// Promoted reports whether the upload already has a durable reference.
func (p *PendingUpload) Promoted() bool {
	return p.DurableURL != ""
}
