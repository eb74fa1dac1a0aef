package session

import (
	"context"
	"time"
)

// timerPurpose names one logical delayed transition. At most one timer per
// purpose is ever armed; scheduling a purpose again replaces the old timer.
type timerPurpose string

const (
	purposeReveal  timerPurpose = "reveal"  // presenting -> question payload goes out
	purposeRead    timerPurpose = "read"    // presenting -> reading
	purposeAnswer  timerPurpose = "answer"  // answer window timeout
	purposeAdvance timerPurpose = "advance" // result -> next question
	purposeReset   timerPurpose = "reset"   // finished -> waiting
)

type armedTimer struct {
	gen   uint64
	timer *time.Timer
}

// timerSet owns every delayed callback for one room. Fires are delivered as
// timerFired messages into the session inbox, so they are serialized with
// network events; a fire whose generation no longer matches the armed one is
// dropped by the session.
type timerSet struct {
	ctx    context.Context
	inbox  chan<- Msg
	gen    uint64
	active map[timerPurpose]*armedTimer
}

func newTimerSet(ctx context.Context, inbox chan<- Msg) *timerSet {
	return &timerSet{ctx: ctx, inbox: inbox, active: make(map[timerPurpose]*armedTimer)}
}

func (ts *timerSet) schedule(p timerPurpose, d time.Duration) {
	ts.cancel(p)
	ts.gen++
	gen := ts.gen
	t := time.AfterFunc(d, func() {
		select {
		case ts.inbox <- timerFired{purpose: p, gen: gen}:
		case <-ts.ctx.Done():
		}
	})
	ts.active[p] = &armedTimer{gen: gen, timer: t}
}

func (ts *timerSet) cancel(p timerPurpose) {
	if a, ok := ts.active[p]; ok {
		a.timer.Stop()
		delete(ts.active, p)
	}
}

func (ts *timerSet) cancelAll() {
	for p := range ts.active {
		ts.cancel(p)
	}
}

// current reports whether a fire with the given generation is the one still
// armed for its purpose. Stop cannot win every race against AfterFunc, so
// this check is what actually keeps stale fires out.
func (ts *timerSet) current(p timerPurpose, gen uint64) bool {
	a, ok := ts.active[p]
	return ok && a.gen == gen
}
