// Copyright 2025 The splat Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mutex

import (
	"time"

	"github.com/kolkov/splat/internal/goid"
	"github.com/kolkov/splat/internal/splat"
	"github.com/kolkov/splat/internal/workq"
)

func tryenterWork(mp *mutexPriv) {
	if err := mp.check(Test1Name); err != nil {
		mp.record(err)
		return
	}
	mp.rc = 0

	if !mp.mtx.TryEnter() {
		mp.rc = -splat.EBUSY
		return
	}
	// Do not leave the mutex held by a worker goroutine.
	mp.mtx.Exit()
}

// tryenter holds the mutex and has a single-thread queue probe it with
// TryEnter, which must fail; then releases it and probes again, which must
// succeed.
func (s *suite) tryenter(rep splat.Reporter) (err error) {
	wq, err := workq.NewSingleThread(workqName, 1, s.qopts...)
	if err != nil {
		return splat.Wrap(splat.ErrAllocation, Test1Name, err)
	}
	defer wq.Destroy()

	mp := newPriv(s.factory(testName), rep)
	held := false
	defer func() { cleanup(mp.mtx, held, Test1Name, &err) }()

	mp.mtx.Enter()
	held = true

	// Schedule a work item which tries to acquire the mutex while it is
	// held. This should fail and the item records busy in mp.rc.
	work := workq.NewWork(func() { tryenterWork(mp) })
	if qerr := wq.Queue(work); qerr != nil {
		mp.mtx.Exit()
		held = false
		return splat.Wrap(splat.ErrSubmission, Test1Name, qerr)
	}

	wq.Flush()
	mp.mtx.Exit()
	held = false

	if rerr := mp.recorded(); rerr != nil {
		return rerr
	}
	if perr := workPanic(Test1Name, work); perr != nil {
		return perr
	}
	if mp.rc != -splat.EBUSY {
		rep.Vprintf(Name, Test1Name, "mutex_trylock() succeeded while mutex held (rc %d)\n", mp.rc)
		return splat.Errorf(splat.ErrAssertion, Test1Name,
			"try-acquire returned %d while mutex held, want %d", mp.rc, -splat.EBUSY)
	}

	rep.Vprintf(Name, Test1Name, "%s", "mutex_trylock() correctly failed when mutex held\n")

	// Same probe against the unheld mutex. This should succeed.
	if qerr := wq.Queue(work); qerr != nil {
		return splat.Wrap(splat.ErrSubmission, Test1Name, qerr)
	}
	wq.Flush()

	if rerr := mp.recorded(); rerr != nil {
		return rerr
	}
	if perr := workPanic(Test1Name, work); perr != nil {
		return perr
	}
	if mp.rc != 0 {
		rep.Vprintf(Name, Test1Name, "mutex_trylock() failed while mutex unheld (rc %d)\n", mp.rc)
		return splat.Errorf(splat.ErrAssertion, Test1Name,
			"try-acquire returned %d while mutex unheld, want 0", mp.rc)
	}

	rep.Vprintf(Name, Test1Name, "%s", "mutex_trylock() correctly succeeded when mutex unheld\n")
	return nil
}

func raceWork(mp *mutexPriv) {
	if err := mp.check(Test2Name); err != nil {
		mp.record(err)
		return
	}

	// Read the value before sleeping and write it after we wake up to
	// maximize the chance of a lost update if the mutex does not exclude.
	mp.mtx.Enter()
	rc := mp.rc
	time.Sleep(mp.sleep)
	mp.rc = rc + 1
	mp.mtx.Exit()
}

// race queues count items on a multi-worker queue; each enters the mutex,
// increments the shared counter with a sleep between read and write, and
// exits. Any lost update shows as a final counter below count.
func (s *suite) race(rep splat.Reporter) (err error) {
	wq, err := workq.New(workqName, s.workers, s.depth, s.qopts...)
	if err != nil {
		return splat.Wrap(splat.ErrAllocation, Test2Name, err)
	}
	defer wq.Destroy()

	mp := newPriv(s.factory(testName), rep)
	mp.sleep = s.sleep
	defer func() { cleanup(mp.mtx, false, Test2Name, &err) }()

	var qerr error
	works := make([]*workq.Work, s.count)
	for i := range works {
		works[i] = workq.NewWork(func() { raceWork(mp) })
		if e := wq.Queue(works[i]); e != nil {
			rep.Vprintf(Name, Test2Name, "Failed to queue work id %d\n", i)
			if qerr == nil {
				qerr = splat.Wrap(splat.ErrSubmission, Test2Name, e)
			}
		}
	}

	wq.Flush()

	var perr error
	for i, w := range works {
		if p := w.Panic(); p != nil {
			rep.Vprintf(Name, Test2Name, "Work id %d panicked: %v\n", i, p)
			if perr == nil {
				perr = workPanic(Test2Name, w)
			}
		}
	}
	if rerr := mp.recorded(); rerr != nil {
		return rerr
	}

	if mp.rc == s.count {
		rep.Vprintf(Name, Test2Name, "%d racing threads correctly entered/exited the mutex %d times\n",
			wq.Workers(), mp.rc)
	} else {
		rep.Vprintf(Name, Test2Name, "%d racing threads only processed %d/%d mutex work items\n",
			wq.Workers(), mp.rc, s.count)
	}

	switch {
	case qerr != nil:
		return qerr
	case perr != nil:
		return perr
	case mp.rc != s.count:
		return splat.Errorf(splat.ErrAssertion, Test2Name,
			"counter %d after %d increments under the mutex", mp.rc, s.count)
	}
	return nil
}

// owned checks the Owned() predicate across an enter/exit cycle.
func (s *suite) owned(rep splat.Reporter) (err error) {
	mtx := s.factory(testName)
	held := false
	defer func() { cleanup(mtx, held, Test3Name, &err) }()

	mtx.Enter()
	held = true

	// Mutex should be owned by current
	if !mtx.Owned() {
		rep.Vprintf(Name, Test3Name, "Mutex should be owned by pid %d but is owned by pid %d\n",
			self().Pid(), mtx.Owner().Pid())
		return splat.Errorf(splat.ErrAssertion, Test3Name, "Owned() false while held by caller")
	}

	mtx.Exit()
	held = false

	// Mutex should not be owned by any goroutine
	if mtx.Owned() {
		rep.Vprintf(Name, Test3Name, "Mutex should not be owned but is owned by pid %d\n",
			mtx.Owner().Pid())
		return splat.Errorf(splat.ErrAssertion, Test3Name, "Owned() true after release")
	}

	rep.Vprintf(Name, Test3Name, "%s", "Correct mutex_owned() behavior\n")
	return nil
}

// owner checks the Owner() identity across an enter/exit cycle.
func (s *suite) owner(rep splat.Reporter) (err error) {
	mtx := s.factory(testName)
	held := false
	defer func() { cleanup(mtx, held, Test4Name, &err) }()

	mtx.Enter()
	held = true

	me := self()
	if owner := mtx.Owner(); owner != me {
		rep.Vprintf(Name, Test4Name, "Mutex should be owned by pid %d but is owned by pid %d\n",
			me.Pid(), owner.Pid())
		return splat.Errorf(splat.ErrAssertion, Test4Name, "Owner() = %s while held by %s", owner, me)
	}

	mtx.Exit()
	held = false

	if owner := mtx.Owner(); owner != goid.None {
		rep.Vprintf(Name, Test4Name, "Mutex should not be owned but is owned by pid %d\n", owner.Pid())
		return splat.Errorf(splat.ErrAssertion, Test4Name, "Owner() = %s after release, want none", owner)
	}

	rep.Vprintf(Name, Test4Name, "%s", "Correct mutex_owner() behavior\n")
	return nil
}
