package repository

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/veristep/veristep/internal/domain/model"
	"github.com/veristep/veristep/pkg/metrics"
)

// Treap-backed index of pending evidence ordered for review.
//
// Ordering: priority DESC, then submission time ASC (oldest first), then
// evidence id ASC for determinism. In-order traversal yields the review
// queue from most to least pressing.

// QueueEntry is one row of the review queue read model.
type QueueEntry struct {
	Position    int
	EvidenceID  string
	Priority    int
	Category    model.Priority
	SubmittedAt time.Time
}

// qnode is a treap node keyed by the queue ordering with a random heap
// priority.
type qnode struct {
	id          string
	priority    int
	submittedAt time.Time
	prio        uint64
	left, right *qnode
	size        int
}

func qsize(n *qnode) int {
	if n == nil {
		return 0
	}
	return n.size
}

func qfix(n *qnode) {
	if n != nil {
		n.size = 1 + qsize(n.left) + qsize(n.right)
	}
}

// qless reports whether a ranks before b in the review queue.
func qless(aPriority int, aAt time.Time, aID string, bPriority int, bAt time.Time, bID string) bool {
	if aPriority != bPriority {
		return aPriority > bPriority // higher priority first
	}
	if !aAt.Equal(bAt) {
		return aAt.Before(bAt) // older evidence first
	}
	return aID < bID
}

func qrotateRight(y *qnode) *qnode {
	x := y.left
	y.left = x.right
	x.right = y
	qfix(y)
	qfix(x)
	return x
}

func qrotateLeft(x *qnode) *qnode {
	y := x.right
	x.right = y.left
	y.left = x
	qfix(x)
	qfix(y)
	return y
}

func qinsert(n *qnode, ins *qnode) *qnode {
	if n == nil {
		ins.size = 1
		return ins
	}
	if qless(ins.priority, ins.submittedAt, ins.id, n.priority, n.submittedAt, n.id) {
		n.left = qinsert(n.left, ins)
		if n.left.prio > n.prio {
			n = qrotateRight(n)
		}
	} else {
		n.right = qinsert(n.right, ins)
		if n.right.prio > n.prio {
			n = qrotateLeft(n)
		}
	}
	qfix(n)
	return n
}

func qdelete(n *qnode, id string, priority int, at time.Time) *qnode {
	if n == nil {
		return nil
	}
	if n.id == id && n.priority == priority && n.submittedAt.Equal(at) {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = qrotateRight(n)
			n.right = qdelete(n.right, id, priority, at)
		} else {
			n = qrotateLeft(n)
			n.left = qdelete(n.left, id, priority, at)
		}
	} else if qless(priority, at, id, n.priority, n.submittedAt, n.id) {
		n.left = qdelete(n.left, id, priority, at)
	} else {
		n.right = qdelete(n.right, id, priority, at)
	}
	qfix(n)
	return n
}

// qcollect appends up to limit entries in queue order.
func qcollect(n *qnode, limit int, cats map[string]model.Priority, out *[]QueueEntry) {
	if n == nil || len(*out) >= limit {
		return
	}
	qcollect(n.left, limit, cats, out)
	if len(*out) < limit {
		*out = append(*out, QueueEntry{
			EvidenceID:  n.id,
			Priority:    n.priority,
			Category:    cats[n.id],
			SubmittedAt: n.submittedAt,
		})
	}
	if len(*out) < limit {
		qcollect(n.right, limit, cats, out)
	}
}

// ReviewQueue maintains the CPS-prioritized order of pending evidence.
type ReviewQueue struct {
	mu         sync.RWMutex
	root       *qnode
	byID       map[string]*qnode
	categories map[string]model.Priority
	rng        *rand.Rand
}

// NewReviewQueue constructs an empty review-priority index.
func NewReviewQueue(ctx context.Context) *ReviewQueue {
	return &ReviewQueue{
		byID:       make(map[string]*qnode),
		categories: make(map[string]model.Priority),
		rng:        rand.New(rand.NewSource(1)), //nolint:gosec // heap shape only, not security-sensitive
	}
}

// Upsert places evidence in the queue at the given priority, replacing
// any previous position.
func (q *ReviewQueue) Upsert(ctx context.Context, evidenceID string, category model.Priority, submittedAt time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if old, ok := q.byID[evidenceID]; ok {
		q.root = qdelete(q.root, old.id, old.priority, old.submittedAt)
	}
	n := &qnode{
		id:          evidenceID,
		priority:    category.Weight(),
		submittedAt: submittedAt,
		prio:        q.rng.Uint64(),
	}
	q.root = qinsert(q.root, n)
	q.byID[evidenceID] = n
	q.categories[evidenceID] = category

	metrics.UpdatePendingEvidence(len(q.byID))
}

// Remove drops evidence from the queue once it leaves the pending state.
func (q *ReviewQueue) Remove(ctx context.Context, evidenceID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	old, ok := q.byID[evidenceID]
	if !ok {
		return
	}
	q.root = qdelete(q.root, old.id, old.priority, old.submittedAt)
	delete(q.byID, evidenceID)
	delete(q.categories, evidenceID)

	metrics.UpdatePendingEvidence(len(q.byID))
}

// Next returns up to n entries in review order with positions assigned.
func (q *ReviewQueue) Next(ctx context.Context, n int) []QueueEntry {
	if n < 1 {
		return nil
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]QueueEntry, 0, n)
	qcollect(q.root, n, q.categories, &out)
	for i := range out {
		out[i].Position = i + 1
	}
	return out
}

// Len returns the number of queued evidence records.
func (q *ReviewQueue) Len(ctx context.Context) int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.byID)
}
