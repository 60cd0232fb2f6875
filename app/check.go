package app

import "fmt"

// Check performs the syntactic check (spec.md §2): structural validation
// independent of priorities. Ownership/ceiling violations are Analyze's and
// PostCheck's job; this pass only asks "does the description parse into a
// self-consistent program".
func Check(m *Model) []*CompileError {
	var errs []*CompileError

	errs = append(errs, checkNames(m)...)
	errs = append(errs, checkResourceRefs(m)...)
	errs = append(errs, checkResourceInitialization(m)...)
	errs = append(errs, checkSingletons(m)...)
	errs = append(errs, checkCapacities(m)...)
	errs = append(errs, checkPriorities(m)...)
	errs = append(errs, checkFreeInterrupts(m)...)

	return errs
}

// checkNames enforces uniqueness across every namespace that shares one
// identifier space in the generated code: resources, tasks, interrupt and
// exception handlers, and the free-interrupt pool (a free interrupt must
// not double as a handler name, spec.md §6).
func checkNames(m *Model) []*CompileError {
	var errs []*CompileError
	seen := make(map[string]string) // name -> first kind that claimed it

	claim := func(kind, name string) {
		if prior, ok := seen[name]; ok {
			errs = append(errs, errf(Span{}, "duplicate name %q: declared as %s and again as %s", name, prior, kind))
			return
		}
		seen[name] = kind
	}

	for name := range m.Resources {
		claim("resource", name)
	}
	for _, t := range m.Tasks {
		claim("task", t.Name)
	}
	for _, h := range m.Interrupts {
		claim("interrupt", h.Name)
	}
	for _, h := range m.Exceptions {
		claim("exception", h.Name)
	}
	for _, fi := range m.FreeInterrupts {
		if prior, ok := seen[fi]; ok {
			errs = append(errs, errf(Span{}, "free interrupt %q reused as a %s name", fi, prior))
			continue
		}
		seen[fi] = "free interrupt"
	}

	return errs
}

// checkResourceRefs ensures every `resources`, `spawn`, and `schedule`
// reference from init, idle, interrupts, exceptions, and tasks names a
// declared resource or task.
func checkResourceRefs(m *Model) []*CompileError {
	var errs []*CompileError

	checkRes := func(ctx string, names []string) {
		for _, n := range names {
			if _, ok := m.Resources[n]; !ok {
				errs = append(errs, errf(Span{}, "%s references undeclared resource %q", ctx, n))
			}
		}
	}
	checkTasks := func(ctx string, names []string) {
		for _, n := range names {
			if _, ok := m.Task(n); !ok {
				errs = append(errs, errf(Span{}, "%s references undeclared task %q", ctx, n))
			}
		}
	}

	checkRes("init", m.Init.Resources)
	checkTasks("init", m.Init.Spawn)
	checkTasks("init", m.Init.Schedule)

	if m.Idle.Present {
		checkRes("idle", m.Idle.Resources)
		checkTasks("idle", m.Idle.Spawn)
		checkTasks("idle", m.Idle.Schedule)
	}

	for _, h := range m.Interrupts {
		ctx := fmt.Sprintf("interrupt %s", h.Name)
		checkRes(ctx, h.Resources)
		checkTasks(ctx, h.Spawn)
		checkTasks(ctx, h.Schedule)
	}
	for _, h := range m.Exceptions {
		ctx := fmt.Sprintf("exception %s", h.Name)
		checkRes(ctx, h.Resources)
		checkTasks(ctx, h.Spawn)
		checkTasks(ctx, h.Schedule)
	}
	for _, t := range m.Tasks {
		ctx := fmt.Sprintf("task %s", t.Name)
		checkRes(ctx, t.Resources)
		checkTasks(ctx, t.Spawn)
		checkTasks(ctx, t.Schedule)
	}

	return errs
}

// checkResourceInitialization enforces spec.md §3: a resource with no
// initializer must be assigned exactly once in init.
func checkResourceInitialization(m *Model) []*CompileError {
	var errs []*CompileError
	movedIn := make(map[string]int)
	for _, n := range m.Init.Resources {
		movedIn[n]++
	}

	for name, r := range m.Resources {
		if r.Init != "" {
			continue
		}
		switch movedIn[name] {
		case 0:
			errs = append(errs, errf(Span{}, "resource %q has no initializer and is not assigned in init", name))
		case 1:
			// fine
		default:
			errs = append(errs, errf(Span{}, "resource %q is assigned in init more than once", name))
		}
	}
	return errs
}

// checkSingletons enforces spec.md §3: a singleton resource's backing type
// may exist at most once in the whole program.
func checkSingletons(m *Model) []*CompileError {
	var errs []*CompileError
	byType := make(map[string]string)
	for name, r := range m.Resources {
		if !r.Singleton {
			continue
		}
		if prior, ok := byType[r.Type]; ok {
			errs = append(errs, errf(Span{}, "singleton type %q claimed by both %q and %q", r.Type, prior, name))
			continue
		}
		byType[r.Type] = name
	}
	return errs
}

// checkCapacities rejects a declared capacity of zero on a task that is
// ever referenced by spawn/schedule (spec.md §6).
func checkCapacities(m *Model) []*CompileError {
	var errs []*CompileError
	referenced := make(map[string]bool)
	walk := func(names []string) {
		for _, n := range names {
			referenced[n] = true
		}
	}
	walk(m.Init.Spawn)
	walk(m.Init.Schedule)
	if m.Idle.Present {
		walk(m.Idle.Spawn)
		walk(m.Idle.Schedule)
	}
	for _, h := range m.Interrupts {
		walk(h.Spawn)
		walk(h.Schedule)
	}
	for _, h := range m.Exceptions {
		walk(h.Spawn)
		walk(h.Schedule)
	}
	for _, t := range m.Tasks {
		walk(t.Spawn)
		walk(t.Schedule)
	}

	for _, t := range m.Tasks {
		if t.Capacity == nil {
			continue // unset, Analyze computes it
		}
		switch {
		case *t.Capacity < 0:
			errs = append(errs, errf(Span{}, "task %q declares a negative capacity", t.Name))
		case *t.Capacity == 0 && referenced[t.Name]:
			errs = append(errs, errf(Span{}, "task %q declares capacity 0 but is spawned/scheduled", t.Name))
		}
	}
	return errs
}

// checkPriorities rejects any declared priority that cannot be encoded by
// the device's NVIC priority-bit width: priority > 1<<nvic_prio_bits
// (spec.md §6).
func checkPriorities(m *Model) []*CompileError {
	var errs []*CompileError
	if m.NVICPrioBits == 0 || m.NVICPrioBits > 8 {
		errs = append(errs, errf(Span{}, "nvic_prio_bits must be in 1..=8, got %d", m.NVICPrioBits))
		return errs
	}
	limit := uint16(1) << m.NVICPrioBits

	check := func(ctx string, p Priority) {
		if uint16(p) > limit {
			errs = append(errs, errf(Span{}, "%s priority %d exceeds the device's %d-bit NVIC range (max %d)", ctx, p, m.NVICPrioBits, limit))
		}
	}
	for _, h := range m.Interrupts {
		check(fmt.Sprintf("interrupt %s", h.Name), h.Priority)
	}
	for _, h := range m.Exceptions {
		check(fmt.Sprintf("exception %s", h.Name), h.Priority)
	}
	for _, t := range m.Tasks {
		check(fmt.Sprintf("task %s", t.Name), t.Priority)
	}
	return errs
}

// checkFreeInterrupts rejects an application with fewer free interrupts
// than distinct priority levels among its tasks (spec.md §6); the
// dispatcher-assignment pass in Analyze needs one per level.
func checkFreeInterrupts(m *Model) []*CompileError {
	levels := make(map[Priority]bool)
	for _, t := range m.Tasks {
		levels[t.Priority] = true
	}
	if len(levels) > len(m.FreeInterrupts) {
		return []*CompileError{errf(Span{}, "need %d free interrupts for %d distinct task priority levels, only %d declared", len(levels), len(levels), len(m.FreeInterrupts))}
	}
	return nil
}
