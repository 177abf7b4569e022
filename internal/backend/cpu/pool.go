package cpu

import "runtime"

type rangeTask struct {
	fn     func(rs, re int)
	rs, re int
	done   chan any
}

// rangePool splits a [start,end) kernel range across a fixed set of workers.
// A chunk that panics reports the recovered value on its done channel.
type rangePool struct {
	size      int
	tasks     chan rangeTask
	doneSlots chan chan any
}

func newRangePool(workers int) *rangePool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	size := max(workers, 1)
	p := &rangePool{
		size:      size,
		tasks:     make(chan rangeTask, size*2),
		doneSlots: make(chan chan any, size),
	}
	for range size {
		p.doneSlots <- make(chan any, size)
	}
	for range size {
		go func() {
			for task := range p.tasks {
				task.done <- runChunk(task.fn, task.rs, task.re)
			}
		}()
	}
	return p
}

func runChunk(fn func(rs, re int), rs, re int) (rec any) {
	defer func() { rec = recover() }()
	fn(rs, re)
	return nil
}

// run executes fn over [start,end) in chunks of at least grain entries and
// returns once every chunk finished. It returns the first recovered panic.
func (p *rangePool) run(start, end, grain int, fn func(rs, re int)) any {
	n := end - start
	if n <= 0 {
		return nil
	}
	grain = max(grain, 1)
	workers := min(p.size, (n+grain-1)/grain)
	if workers <= 1 {
		return runChunk(fn, start, end)
	}

	chunk := (n + workers - 1) / workers
	done := <-p.doneSlots

	issued := 0
	for rs := start; rs < end; rs += chunk {
		p.tasks <- rangeTask{fn: fn, rs: rs, re: min(rs+chunk, end), done: done}
		issued++
	}

	var first any
	for range issued {
		if rec := <-done; rec != nil && first == nil {
			first = rec
		}
	}
	p.doneSlots <- done
	return first
}

func (p *rangePool) close() {
	close(p.tasks)
}
