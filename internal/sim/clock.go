package sim

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"darpsim/internal/fleet"
)

// Clock drives the tick loop: timeout sweep, step, advance, sleep for the
// remainder of the tick budget (spec.md §4.3). Wall time per tick is
// 1000ms / TimeMultiplier.
type Clock struct {
	stepper        *Stepper
	store          *fleet.Store
	timeMultiplier int
	matchingPeriod int
	tmax           int
	done           chan struct{}
	now            int64

	// commitMu is the commit-path lock spec.md §4.7 steps 1-2 require:
	// harness.Runner.synchronize holds it across its reload-check-commit
	// sequence, and Run holds it across each stepper tick, so neither can
	// observe or leave behind a half-updated vehicle record while the
	// other is mid-step (spec.md §5's no-interleaving guarantee).
	commitMu sync.Mutex
}

func NewClock(stepper *Stepper, store *fleet.Store, timeMultiplier, matchingPeriod, tmax int) *Clock {
	return &Clock{
		stepper:        stepper,
		store:          store,
		timeMultiplier: timeMultiplier,
		matchingPeriod: matchingPeriod,
		tmax:           tmax,
		done:           make(chan struct{}),
	}
}

// Done returns a channel closed once the simulation has terminated, so the
// algorithm thread can stop cooperatively between batches (spec.md §4.8).
func (c *Clock) Done() <-chan struct{} {
	return c.done
}

// Now returns the current tick, safe to read concurrently from the
// algorithm thread.
func (c *Clock) Now() int {
	return int(atomic.LoadInt64(&c.now))
}

// LockCommitPath acquires the commit-path lock, blocking until any in-flight
// stepper tick (Run's call to Stepper.Step) has completed. harness.Runner
// holds this for its entire reload-check-commit sequence in synchronize, so
// a tick can never land between the reload and the commit write.
func (c *Clock) LockCommitPath() {
	c.commitMu.Lock()
}

// UnlockCommitPath releases the lock acquired by LockCommitPath.
func (c *Clock) UnlockCommitPath() {
	c.commitMu.Unlock()
}

// Run ticks until no vehicle remains active (fleet.Store.Active) or the tick
// count reaches tmax, whichever comes first, then closes Done.
func (c *Clock) Run() {
	tickBudget := time.Second
	if c.timeMultiplier > 0 {
		tickBudget = time.Duration(1000/c.timeMultiplier) * time.Millisecond
	}

	now := 0
	for {
		start := time.Now()

		c.commitMu.Lock()
		c.stepper.Step(now, c.matchingPeriod)
		now++
		atomic.StoreInt64(&c.now, int64(now))
		c.commitMu.Unlock()

		if !c.store.Active() || now >= c.tmax {
			close(c.done)
			return
		}

		elapsed := time.Since(start)
		if elapsed > tickBudget {
			log.Printf("sim: tick %d overran budget by %v", now, elapsed-tickBudget)
			continue
		}
		time.Sleep(tickBudget - elapsed)
	}
}
