package stream

import (
	"sort"
	"strconv"
	"sync"

	"github.com/Neumenon/propbag/propbag"
)

// Cursor tracks per-SID sequencing and the last document accepted on each
// stream.
type Cursor struct {
	mu      sync.RWMutex
	streams map[uint64]*SIDState
	codec   *propbag.Codec
}

// SIDState holds state for a single stream ID.
type SIDState struct {
	SID       uint64
	FirstSeq  uint64 // sequence of the first frame accepted
	LastSeq   uint64
	LastAcked uint64
	Started   bool // a frame has been seen

	Document string           // last accepted document
	Checksum propbag.Checksum // its checksum
	HasDoc   bool
	Final    bool
}

// CursorOption configures a Cursor.
type CursorOption func(*Cursor)

// WithCodec makes the cursor verify and load documents through codec, so its
// logger and refusal handler see rejected documents.
func WithCodec(codec *propbag.Codec) CursorOption {
	return func(c *Cursor) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// NewCursor creates an empty cursor.
func NewCursor(opts ...CursorOption) *Cursor {
	c := &Cursor{streams: make(map[uint64]*SIDState)}
	for _, opt := range opts {
		opt(c)
	}
	if c.codec == nil {
		c.codec = propbag.New()
	}
	return c
}

// State returns a copy of the state for sid, or false if it is unknown.
func (c *Cursor) State(sid uint64) (SIDState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.streams[sid]
	if !ok {
		return SIDState{}, false
	}
	return *state, true
}

// SIDs returns the tracked stream IDs in ascending order.
func (c *Cursor) SIDs() []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sids := make([]uint64, 0, len(c.streams))
	for sid := range c.streams {
		sids = append(sids, sid)
	}
	sort.Slice(sids, func(i, j int) bool { return sids[i] < sids[j] })
	return sids
}

// Process applies frame to the cursor. Sequence numbers must increase by one
// per SID, starting anywhere. Doc frames must carry an intact document, which
// becomes the stream's current document. Nothing changes when an error is
// returned, and a SID is only tracked once one of its frames is accepted.
func (c *Cursor) Process(frame *Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.streams[frame.SID]
	if ok && state.Started && frame.Seq != state.LastSeq+1 {
		return &SequenceError{SID: frame.SID, Expected: state.LastSeq + 1, Got: frame.Seq}
	}

	var (
		doc string
		sum propbag.Checksum
	)
	if frame.Kind == KindDoc {
		doc = string(frame.Payload)
		var got storeRef
		if err := c.codec.Unmarshal(doc, &got); err != nil {
			return err
		}
		sum = got.st.Checksum()
	}

	if !ok {
		state = &SIDState{SID: frame.SID}
		c.streams[frame.SID] = state
	}
	if !state.Started {
		state.FirstSeq = frame.Seq
		state.Started = true
	}
	if frame.Kind == KindDoc {
		state.Document = doc
		state.Checksum = sum
		state.HasDoc = true
	}
	state.LastSeq = frame.Seq
	if frame.IsFinal() {
		state.Final = true
	}
	return nil
}

// storeRef keeps the Store a document decoded to.
type storeRef struct {
	st *propbag.Store
}

func (r *storeRef) ReadProperties(st *propbag.Store) { r.st = st }

// Ack marks seq as acknowledged on sid. Acks for unknown SIDs are ignored.
func (c *Cursor) Ack(sid, seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.streams[sid]
	if ok && seq > state.LastAcked {
		state.LastAcked = seq
	}
}

// PendingAcks returns sequences that have been accepted but not acked.
func (c *Cursor) PendingAcks(sid uint64) []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.streams[sid]
	if !ok || !state.Started {
		return nil
	}
	start := state.FirstSeq
	if state.LastAcked >= start {
		if state.LastAcked >= state.LastSeq {
			return nil
		}
		start = state.LastAcked + 1
	}
	// Accepted sequences are contiguous from FirstSeq, so the range is
	// bounded by the number of frames processed.
	var pending []uint64
	for seq := start; ; seq++ {
		pending = append(pending, seq)
		if seq == state.LastSeq {
			break
		}
	}
	return pending
}

// Load unmarshals the current document of sid into v.
func (c *Cursor) Load(sid uint64, v propbag.Deserializable) error {
	state, ok := c.State(sid)
	if !ok || !state.HasDoc {
		return &ParseError{Reason: "no document for sid " + strconv.FormatUint(sid, 10), Offset: -1}
	}
	return c.codec.Unmarshal(state.Document, v)
}
