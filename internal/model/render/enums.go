package render

// RenderStatus tracks one render job from acceptance to artifact.
type RenderStatus string

const (
	RenderStatusPending   RenderStatus = "pending"   // accepted, not started
	RenderStatusRendering RenderStatus = "rendering" // sandbox work in progress
	RenderStatusRendered  RenderStatus = "rendered"  // artifact persisted to storage
	RenderStatusError     RenderStatus = "error"     // failed, see error_message
)

// String returns the status as a plain string.
func (s RenderStatus) String() string {
	return string(s)
}

// Terminal reports whether no further render transition is possible.
func (s RenderStatus) Terminal() bool {
	return s == RenderStatusRendered || s == RenderStatusError
}

// PublishStatus tracks platform delivery of a rendered artifact.
type PublishStatus string

const (
	PublishStatusPending    PublishStatus = "pending"    // not yet submitted
	PublishStatusUploading  PublishStatus = "uploading"  // resumable session in flight
	PublishStatusProcessing PublishStatus = "processing" // platform post-processing
	PublishStatusUploaded   PublishStatus = "uploaded"   // durable video ID available
	PublishStatusError      PublishStatus = "error"      // delivery failed
	PublishStatusBlocked    PublishStatus = "blocked"    // privacy decision forbids publishing
)

// String returns the status as a plain string.
func (s PublishStatus) String() string {
	return string(s)
}

// Terminal reports whether no further publish transition is possible.
func (s PublishStatus) Terminal() bool {
	switch s {
	case PublishStatusUploaded, PublishStatusError, PublishStatusBlocked:
		return true
	}
	return false
}

// Orientation selects the output frame geometry.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

func (o Orientation) String() string {
	return string(o)
}

// Valid reports whether the orientation is one of the supported values.
func (o Orientation) Valid() bool {
	return o == OrientationPortrait || o == OrientationLandscape
}

// ZoomDirection is the pan/zoom motion applied to one slide.
type ZoomDirection string

const (
	ZoomIn  ZoomDirection = "in"
	ZoomOut ZoomDirection = "out"
)

func (d ZoomDirection) String() string {
	return string(d)
}

// Privacy is the externally decided visibility for a published video.
// "blocked" means the compliance decision forbids publishing at all.
type Privacy string

const (
	PrivacyPublic   Privacy = "public"
	PrivacyUnlisted Privacy = "unlisted"
	PrivacyPrivate  Privacy = "private"
	PrivacyBlocked  Privacy = "blocked"
)

func (p Privacy) String() string {
	return string(p)
}

// Valid reports whether the privacy level is one of the supported values.
func (p Privacy) Valid() bool {
	switch p {
	case PrivacyPublic, PrivacyUnlisted, PrivacyPrivate, PrivacyBlocked:
		return true
	}
	return false
}
