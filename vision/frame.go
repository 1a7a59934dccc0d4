// Package vision holds the per-session video state: a capacity-bounded
// sliding window of recent frames and a FIFO queue of tool-produced
// snapshots awaiting transcript attachment.
package vision

import (
	"encoding/base64"
	"time"
)

// MimeJPEG is the payload type for frames and image snapshots.
const MimeJPEG = "image/jpeg"

// Frame is one unit of video input at a point in time. Data is the encoded
// image payload; sequence position is implicit in buffer order.
type Frame struct {
	Data      []byte
	Mime      string
	Timestamp time.Time
}

// NewFrame wraps a JPEG payload with the current time.
func NewFrame(data []byte) Frame {
	return Frame{Data: data, Mime: MimeJPEG, Timestamp: time.Now()}
}

// DataURI returns the frame encoded as an inline data URI for
// vision-completion requests.
func (f Frame) DataURI() string {
	mime := f.Mime
	if mime == "" {
		mime = MimeJPEG
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

// Snapshot is a tool-produced artifact queued for later attachment to the
// transcript. Exactly one of Text or Image is set.
type Snapshot struct {
	Sender string
	Text   string
	Image  []byte
}

// TextSnapshot creates a textual snapshot from a tool.
func TextSnapshot(sender, text string) Snapshot {
	return Snapshot{Sender: sender, Text: text}
}

// ImageSnapshot creates an image snapshot from a tool.
func ImageSnapshot(sender string, image []byte) Snapshot {
	return Snapshot{Sender: sender, Image: image}
}

// IsImage reports whether the snapshot payload is image data.
func (s Snapshot) IsImage() bool {
	return len(s.Image) > 0
}

// Content returns the renderable artifact: the text itself, or a data URI
// for image payloads.
func (s Snapshot) Content() any {
	if s.IsImage() {
		return "data:" + MimeJPEG + ";base64," + base64.StdEncoding.EncodeToString(s.Image)
	}
	return s.Text
}
