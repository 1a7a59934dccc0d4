package vision

import "sync"

// DefaultFrameLimit is the frame window capacity when none is configured.
const DefaultFrameLimit = 200

// Buffer owns one session's frame window and snapshot queue. Both sequences
// are mutated on the ingestion path but are logically independent: a
// snapshot's removal correlates only with ingestion cadence, never with the
// specific frame that triggered it. All methods are safe for concurrent
// use; Ingest is atomic with respect to concurrent reads.
type Buffer struct {
	mu        sync.Mutex
	limit     int
	frames    []Frame
	snapshots []Snapshot
}

// NewBuffer creates a Buffer holding at most limit frames. Non-positive
// limits fall back to DefaultFrameLimit.
func NewBuffer(limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultFrameLimit
	}
	return &Buffer{limit: limit}
}

// Ingest appends a frame, evicts the oldest frames beyond the capacity
// limit, and drains at most one pending snapshot (oldest first). The
// returned bool reports whether a snapshot was drained. Draining one
// snapshot per frame arrival throttles bursty tool output to frame cadence.
func (b *Buffer) Ingest(f Frame) (Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frames = append(b.frames, f)
	for len(b.frames) > b.limit {
		b.frames = b.frames[1:]
	}

	if len(b.snapshots) == 0 {
		return Snapshot{}, false
	}
	snap := b.snapshots[0]
	b.snapshots = b.snapshots[1:]
	return snap, true
}

// Latest returns the most recently ingested frame.
func (b *Buffer) Latest() (Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.frames) == 0 {
		return Frame{}, false
	}
	return b.frames[len(b.frames)-1], true
}

// Len returns the number of buffered frames.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// Frames returns a copy of the buffered frames in arrival order.
func (b *Buffer) Frames() []Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	copied := make([]Frame, len(b.frames))
	copy(copied, b.frames)
	return copied
}

// Sample returns a stride-subsampled view of the last seconds of video.
// Given the configured frame rate fps, it takes the most recent
// min(seconds*fps, buffered) frames and keeps every max(1, fps/2)-th one,
// targeting roughly two samples per second. Returns nil when the buffer
// is empty.
func (b *Buffer) Sample(seconds, fps int) []Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.frames) == 0 {
		return nil
	}

	available := seconds * fps
	if available > len(b.frames) {
		available = len(b.frames)
	}
	if available <= 0 {
		available = 1
	}

	window := b.frames[len(b.frames)-available:]
	stride := fps / 2
	if stride < 1 {
		stride = 1
	}

	sampled := make([]Frame, 0, (len(window)+stride-1)/stride)
	for i := 0; i < len(window); i += stride {
		sampled = append(sampled, window[i])
	}
	return sampled
}

// PushSnapshot enqueues a tool-produced snapshot for transcript attachment.
func (b *Buffer) PushSnapshot(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snapshots = append(b.snapshots, s)
}

// PendingSnapshots returns the number of snapshots awaiting attachment.
func (b *Buffer) PendingSnapshots() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.snapshots)
}
