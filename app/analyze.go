package app

import "sort"

// Ownership is the resolved access discipline for one resource, per
// spec.md §3: Owned by a single priority, or Shared with a ceiling equal to
// the highest priority that touches it.
type Ownership struct {
	Shared   bool
	Priority Priority // meaningful when !Shared
	Ceiling  Priority // meaningful when Shared; equals Priority when !Shared
}

// NeedsLock reports whether a context running at priority p must take the
// ceiling lock before touching a resource with this ownership.
func (o Ownership) NeedsLock(p Priority) bool {
	if !o.Shared {
		return false
	}
	return p < o.Ceiling
}

// Dispatcher is one priority level's generated interrupt body.
type Dispatcher struct {
	Priority  Priority
	Interrupt string
	Tasks     []string
	Capacity  int
}

// TimerQueueInfo is the analyzed shape of the single timer queue.
type TimerQueueInfo struct {
	Capacity int
	Priority Priority
	Ceiling  Priority
	Tasks    []string
}

// Analysis is everything the code generator needs beyond the raw Model
// (spec.md §4.1).
type Analysis struct {
	Capacities         map[string]int
	Dispatchers        map[Priority]*Dispatcher
	FreeQueueCeilings  map[string]Priority
	ReadyQueueCeilings map[Priority]Priority
	NeedsSend          map[string]bool // task names whose payloads need cross-priority transfer
	NeedsSync          map[string]bool // RO resource types needing shared-reference safety
	Ownerships         map[string]Ownership
	TimerQueue         TimerQueueInfo
}

type resourceAccess struct {
	priority Priority
	resource string
}

type taskRef struct {
	// callerPriority is nil for calls made from init (excluded from
	// ceiling analysis, spec.md §4.1).
	callerPriority *Priority
	task           string
}

// Analyze runs the full ceiling/capacity analysis described in spec.md
// §4.1, ported directly from the original analyze.rs pass structure:
// ceiling computation, then capacity, then timer-queue sizing, then
// dispatcher assignment, then queue ceilings.
func Analyze(m *Model) (*Analysis, []*CompileError) {
	var errs []*CompileError

	ownerships, needsSync := computeOwnerships(m)
	capacities := computeCapacities(m)
	tq := computeTimerQueueShape(m, capacities)
	dispatchers, dispErrs := assignDispatchers(m, capacities)
	errs = append(errs, dispErrs...)
	needsSend := computeNeedsSend(m)
	freeQ, readyQ, tqCeiling := computeQueueCeilings(m, dispatchers, tq.Priority, needsSend)
	tq.Ceiling = tqCeiling

	return &Analysis{
		Capacities:         capacities,
		Dispatchers:        dispatchers,
		FreeQueueCeilings:  freeQ,
		ReadyQueueCeilings: readyQ,
		NeedsSend:          needsSend,
		NeedsSync:          needsSync,
		Ownerships:         ownerships,
		TimerQueue:         tq,
	}, errs
}

// resourceAccesses enumerates every (priority, resource) pair from idle,
// interrupts, exceptions, and tasks, in a stable order. init's resources are
// deliberately excluded: init consumes them by value (spec.md §3, §4.2),
// not through the shared-ownership/ceiling machinery, so a resource touched
// only by init never appears in the ownership map at all. PostCheck rejects
// a resource that init takes by value and a task also lists.
func resourceAccesses(m *Model) []resourceAccess {
	var out []resourceAccess
	add := func(p Priority, names []string) {
		for _, n := range names {
			out = append(out, resourceAccess{priority: p, resource: n})
		}
	}
	if m.Idle.Present {
		add(PriorityIdle, m.Idle.Resources)
	}
	for _, h := range m.Interrupts {
		add(h.Priority, h.Resources)
	}
	for _, h := range m.Exceptions {
		add(h.Priority, h.Resources)
	}
	for _, t := range m.Tasks {
		add(t.Priority, t.Resources)
	}
	return out
}

// computeOwnerships implements the ceiling-computation half of
// analyze.rs's `app` function: on first sight of a resource, record it
// Owned at that priority; on a later sight from a different priority,
// promote to Shared with the ceiling raised to the max. A promoted
// read-only resource's type joins needsSync.
func computeOwnerships(m *Model) (map[string]Ownership, map[string]bool) {
	ownerships := make(map[string]Ownership)
	needsSync := make(map[string]bool)

	for _, acc := range resourceAccesses(m) {
		cur, ok := ownerships[acc.resource]
		if !ok {
			ownerships[acc.resource] = Ownership{Shared: false, Priority: acc.priority, Ceiling: acc.priority}
			continue
		}

		ceiling := cur.Priority
		if cur.Shared {
			ceiling = cur.Ceiling
		}
		if acc.priority == ceiling {
			continue
		}

		newCeiling := acc.priority
		if ceiling > newCeiling {
			newCeiling = ceiling
		}
		ownerships[acc.resource] = Ownership{Shared: true, Ceiling: newCeiling}

		if r, ok := m.Resources[acc.resource]; ok && !r.Mutable {
			needsSync[r.Type] = true
		}
	}

	return ownerships, needsSync
}

// spawnCalls and scheduleCalls enumerate every spawn/schedule reference in
// the program, tagging each with the caller's priority (nil for init).
func spawnCalls(m *Model) []taskRef   { return taskRefs(m, func(spawn, _ []string) []string { return spawn }) }
func scheduleCalls(m *Model) []taskRef {
	return taskRefs(m, func(_, schedule []string) []string { return schedule })
}

func taskRefs(m *Model, pick func(spawn, schedule []string) []string) []taskRef {
	var out []taskRef
	for _, n := range pick(m.Init.Spawn, m.Init.Schedule) {
		out = append(out, taskRef{callerPriority: nil, task: n})
	}
	if m.Idle.Present {
		p := PriorityIdle
		for _, n := range pick(m.Idle.Spawn, m.Idle.Schedule) {
			out = append(out, taskRef{callerPriority: &p, task: n})
		}
	}
	for i := range m.Interrupts {
		p := m.Interrupts[i].Priority
		for _, n := range pick(m.Interrupts[i].Spawn, m.Interrupts[i].Schedule) {
			out = append(out, taskRef{callerPriority: &p, task: n})
		}
	}
	for i := range m.Exceptions {
		p := m.Exceptions[i].Priority
		for _, n := range pick(m.Exceptions[i].Spawn, m.Exceptions[i].Schedule) {
			out = append(out, taskRef{callerPriority: &p, task: n})
		}
	}
	for i := range m.Tasks {
		p := m.Tasks[i].Priority
		for _, n := range pick(m.Tasks[i].Spawn, m.Tasks[i].Schedule) {
			out = append(out, taskRef{callerPriority: &p, task: n})
		}
	}
	return out
}

// computeCapacities implements analyze.rs's capacity pass: start every task
// at zero, add one per spawn/schedule reference, then let an explicit
// declared capacity override. The open question in spec.md §9 ("declared
// capacity smaller than demand") is resolved here by taking the larger of
// the two, per that section's recommendation, rather than silently
// accepting an under-sized queue.
func computeCapacities(m *Model) map[string]int {
	capacities := make(map[string]int, len(m.Tasks))
	for _, t := range m.Tasks {
		capacities[t.Name] = 0
	}
	for _, ref := range append(spawnCalls(m), scheduleCalls(m)...) {
		if _, ok := capacities[ref.task]; ok {
			capacities[ref.task]++
		}
	}
	for _, t := range m.Tasks {
		if t.Capacity == nil {
			continue
		}
		if *t.Capacity > capacities[t.Name] {
			capacities[t.Name] = *t.Capacity
		}
		// else: declared capacity is smaller than statically visible
		// demand; the larger, demand-derived value wins (spec.md §9).
	}
	return capacities
}

// computeTimerQueueShape implements analyze.rs's timer-queue sizing:
// capacity is the sum of capacities of every schedule-able task; priority
// is the max priority among scheduled tasks, floored at 1.
func computeTimerQueueShape(m *Model, capacities map[string]int) TimerQueueInfo {
	tq := TimerQueueInfo{Priority: 1}
	seen := make(map[string]bool)
	for _, ref := range scheduleCalls(m) {
		if seen[ref.task] {
			continue
		}
		seen[ref.task] = true
		tq.Capacity += capacities[ref.task]
		if t, ok := m.Task(ref.task); ok && t.Priority > tq.Priority {
			tq.Priority = t.Priority
		}
		tq.Tasks = append(tq.Tasks, ref.task)
	}
	sort.Strings(tq.Tasks)
	return tq
}

// computeNeedsSend marks every task whose payload must be transferable
// across priority contexts: everything spawned/scheduled from init (always,
// since init runs single-threaded before any other context exists and the
// message must survive into a different context), plus anything crossing a
// priority boundary (computed again, more precisely, in computeQueueCeilings).
func computeNeedsSend(m *Model) map[string]bool {
	needsSend := make(map[string]bool)
	for _, n := range m.Init.Spawn {
		needsSend[n] = true
	}
	for _, n := range m.Init.Schedule {
		needsSend[n] = true
	}
	return needsSend
}

// assignDispatchers implements analyze.rs's dispatcher-assignment pass:
// sort tasks by ascending priority, consume one free interrupt per new
// distinct priority level, and accumulate capacities. Returns a fatal
// CompileError if the free-interrupt pool runs out (spec.md §6).
func assignDispatchers(m *Model, capacities map[string]int) (map[Priority]*Dispatcher, []*CompileError) {
	dispatchers := make(map[Priority]*Dispatcher)

	tasks := append([]TaskDecl(nil), m.Tasks...)
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Priority < tasks[j].Priority })

	freeIdx := 0
	for _, t := range tasks {
		d, ok := dispatchers[t.Priority]
		if !ok {
			if freeIdx >= len(m.FreeInterrupts) {
				return dispatchers, []*CompileError{errf(Span{}, "no free interrupt available for priority level %d (dispatcher assignment)", t.Priority)}
			}
			d = &Dispatcher{Priority: t.Priority, Interrupt: m.FreeInterrupts[freeIdx]}
			freeIdx++
			dispatchers[t.Priority] = d
		}
		d.Tasks = append(d.Tasks, t.Name)
		d.Capacity += capacities[t.Name]
	}

	return dispatchers, nil
}

// computeQueueCeilings implements analyze.rs's two ceiling passes over
// spawn/schedule call sites (free queues, ready queues, the timer queue),
// and refines needsSend for payloads crossing a priority boundary.
func computeQueueCeilings(m *Model, dispatchers map[Priority]*Dispatcher, tqPriority Priority, needsSend map[string]bool) (map[string]Priority, map[Priority]Priority, Priority) {
	freeQ := make(map[string]Priority, len(m.Tasks))
	for _, t := range m.Tasks {
		freeQ[t.Name] = 0
	}
	readyQ := make(map[Priority]Priority, len(dispatchers))
	for level := range dispatchers {
		readyQ[level] = 0
	}

	for _, ref := range spawnCalls(m) {
		if ref.callerPriority == nil {
			continue // spawns from init are excluded (spec.md §4.1)
		}
		callerP := *ref.callerPriority
		target, ok := m.Task(ref.task)
		if !ok {
			continue
		}

		if callerP > freeQ[ref.task] {
			freeQ[ref.task] = callerP
		}
		if callerP > readyQ[target.Priority] {
			readyQ[target.Priority] = callerP
		}
		if callerP != target.Priority {
			needsSend[ref.task] = true
		}
	}

	tqCeiling := tqPriority
	for _, ref := range scheduleCalls(m) {
		if ref.callerPriority == nil {
			continue
		}
		callerP := *ref.callerPriority
		if callerP > freeQ[ref.task] {
			freeQ[ref.task] = callerP
		}
		if callerP > tqCeiling {
			tqCeiling = callerP
		}
	}

	return freeQ, readyQ, tqCeiling
}
