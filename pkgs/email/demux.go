package email

import (
	"sort"

	"github.com/emersion/go-imap/v2"
	"github.com/pkg/errors"
)

// ErrBodyMissing marks a message whose UID arrived but whose body never did.
var ErrBodyMissing = errors.New("server sent no body for message")

type pendingMessage struct {
	uid     imap.UID
	body    []byte
	hasBody bool
}

// Demux correlates the interleaved FETCH items of one UID FETCH command.
// The UID and body of a message can arrive in either order; a message is
// released once both are present. It is not safe for concurrent use.
type Demux struct {
	requested map[imap.UID]struct{}
	limit     int

	pending  map[uint32]*pendingMessage
	released map[uint32]struct{}
	seenUIDs map[imap.UID]struct{}
	count    int
}

// NewDemux builds a correlation table for the given request. Items for
// UIDs outside uids are dropped, and at most len(uids) messages are
// released.
func NewDemux(uids []imap.UID) *Demux {
	requested := make(map[imap.UID]struct{}, len(uids))
	for _, uid := range uids {
		requested[uid] = struct{}{}
	}
	return &Demux{
		requested: requested,
		limit:     len(requested),
		pending:   make(map[uint32]*pendingMessage),
		released:  make(map[uint32]struct{}),
		seenUIDs:  make(map[imap.UID]struct{}),
	}
}

// UID records the identifier of a sequence number.
func (d *Demux) UID(seq uint32, uid imap.UID) (RawMessage, bool) {
	if d.closed(seq) {
		return RawMessage{}, false
	}
	if _, ok := d.requested[uid]; !ok {
		delete(d.pending, seq)
		d.released[seq] = struct{}{}
		return RawMessage{}, false
	}
	if _, dup := d.seenUIDs[uid]; dup {
		return RawMessage{}, false
	}

	p := d.entry(seq)
	if p.uid != 0 {
		return RawMessage{}, false
	}
	p.uid = uid
	d.seenUIDs[uid] = struct{}{}
	return d.tryRelease(seq, p)
}

// Body records the full source of a sequence number.
func (d *Demux) Body(seq uint32, body []byte) (RawMessage, bool) {
	if d.closed(seq) {
		return RawMessage{}, false
	}
	p := d.entry(seq)
	if p.hasBody {
		return RawMessage{}, false
	}
	p.body = body
	p.hasBody = true
	return d.tryRelease(seq, p)
}

// Flush releases every incomplete entry at the end of the stream. Entries
// with a body but no UID come out with UID 0; entries with a UID but no
// body come out with Err set to ErrBodyMissing. Results are ordered by
// sequence number.
func (d *Demux) Flush() []RawMessage {
	seqs := make([]uint32, 0, len(d.pending))
	for seq := range d.pending {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })

	var out []RawMessage
	for _, seq := range seqs {
		p := d.pending[seq]
		delete(d.pending, seq)
		if d.count >= d.limit {
			continue
		}
		d.released[seq] = struct{}{}
		d.count++

		raw := RawMessage{SeqNum: seq, UID: p.uid, Body: p.body}
		if !p.hasBody {
			raw.Err = errors.Wrapf(ErrBodyMissing, "UID %d", p.uid)
		}
		out = append(out, raw)
	}
	return out
}

// Pending returns the number of sequence numbers still waiting for an item.
func (d *Demux) Pending() int {
	return len(d.pending)
}

// Missing returns the requested UIDs that never appeared in the stream,
// in ascending order.
func (d *Demux) Missing() []imap.UID {
	var missing []imap.UID
	for uid := range d.requested {
		if _, ok := d.seenUIDs[uid]; !ok {
			missing = append(missing, uid)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

func (d *Demux) closed(seq uint32) bool {
	if _, ok := d.released[seq]; ok {
		return true
	}
	return d.count >= d.limit
}

func (d *Demux) entry(seq uint32) *pendingMessage {
	p, ok := d.pending[seq]
	if !ok {
		p = &pendingMessage{}
		d.pending[seq] = p
	}
	return p
}

func (d *Demux) tryRelease(seq uint32, p *pendingMessage) (RawMessage, bool) {
	if p.uid == 0 || !p.hasBody {
		return RawMessage{}, false
	}
	delete(d.pending, seq)
	d.released[seq] = struct{}{}
	d.count++
	return RawMessage{SeqNum: seq, UID: p.uid, Body: p.body}, true
}
