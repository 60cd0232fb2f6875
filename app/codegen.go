package app

import (
	"bytes"
	"embed"
	"fmt"
	"go/format"
	"sort"
	"strings"
	"text/template"
)

//go:embed templates/firmware.go.tmpl
var templatesFS embed.FS

// mangler mints deterministic, collision-free identifiers for internal
// statics and types (spec.md §9: "any deterministic unique-naming scheme
// suffices; there is no requirement for unpredictability"). The original
// macro used a time-seeded RNG; that was an implementation accident of
// needing hygiene inside a single compiler process, not a semantic this
// port needs to reproduce.
type mangler struct {
	seq   int
	taken map[string]bool
}

func newMangler() *mangler {
	return &mangler{taken: make(map[string]bool)}
}

func (m *mangler) next(hint string) string {
	for {
		m.seq++
		name := fmt.Sprintf("__rtfm_%s_%d", hint, m.seq)
		if !m.taken[name] {
			m.taken[name] = true
			return name
		}
	}
}

// genResource is the per-resource view the template renders.
type genResource struct {
	Name            string
	VarName         string
	CellName        string
	Type            string
	Ceiling         uint8 // 0 means Owned, no lock needed at all
	InitExpr        string
	OwnedByInitOnly bool
}

// genTask is the per-task view the template renders, carrying both its own
// storage and, once dispatcher assignment is known, the target ready queue
// a Spawn call for it must enqueue onto.
type genTask struct {
	Name         string
	InputType    string
	Capacity     int
	Priority     Priority
	InputsVar    string
	ScheduledVar string
	FreeQVar     string
	FreeCeiling  uint8

	// Filled in once this task's dispatcher is known.
	DispatchIdx  int
	ReadyQVar    string
	ReadyCeiling uint8
	Interrupt    string

	// Filled in only for tasks reachable from some `schedule`.
	IsScheduled bool
	TQIdx       int
}

// genDispatcher is the per-priority-level view the template renders.
type genDispatcher struct {
	Priority  Priority
	Interrupt string
	ReadyQVar string
	Ceiling   uint8
	Tasks     []genTask
}

// genAccessor is one generated lock-wrapper function giving a single task,
// interrupt handler, or exception handler safe access to a single shared
// resource, per spec.md §4.4.
type genAccessor struct {
	FuncName string
	TaskName string
	ResName  string
	VarName  string
	CellName string
	Type     string
	Ceiling  uint8
}

// genHandler is the per-interrupt or per-exception-handler view the
// template renders. Unlike a task, a handler's vector is its own declared
// name rather than one borrowed from the free-interrupt pool (spec.md
// §4.3 treats "each interrupt handler and each dispatcher" identically
// during NVIC enablement); it gets the same currentPriority.Enter wrapper
// a dispatcher gets, so resource locks taken from inside it see the right
// starting priority.
type genHandler struct {
	Name     string
	Priority uint8
}

type templateData struct {
	Device       string
	NVICPrioBits uint8
	Resources    []genResource
	Tasks        []genTask
	Dispatchers  []genDispatcher
	Accessors    []genAccessor
	Interrupts   []genHandler
	Exceptions   []genHandler

	ScheduledTasks []genTask

	HasTimerQueue      bool
	TimerQueueCapacity int
	TimerQueueCeiling  uint8
	TimerQueuePriority uint8
	TimerQueueVar      string

	HasIdle bool
}

// Generate is the code generator (spec.md §4.3): given a checked, analyzed
// Model it emits the Go source of the firmware scaffold. The caller is
// responsible for providing, elsewhere in the same package, the bodies
// Generate only declares call sites for: Init, Idle (if declared), every
// task function, and every interrupt/exception handler function.
func Generate(m *Model, an *Analysis) ([]byte, error) {
	mg := newMangler()
	data := templateData{
		Device:       m.Device,
		NVICPrioBits: m.NVICPrioBits,
		HasIdle:      m.Idle.Present,
	}

	resByName := make(map[string]*genResource)
	for _, name := range sortedResourceNames(m) {
		r := m.Resources[name]
		o := an.Ownerships[name]
		gr := genResource{
			Name:     r.Name,
			VarName:  mg.next("res_" + r.Name),
			Type:     r.Type,
			InitExpr: r.Init,
		}
		if o.Shared {
			gr.Ceiling = uint8(o.Ceiling)
			gr.CellName = mg.next("cell_" + r.Name)
		}
		if _, touched := an.Ownerships[name]; !touched {
			gr.OwnedByInitOnly = true
		}
		data.Resources = append(data.Resources, gr)
		resByName[name] = &data.Resources[len(data.Resources)-1]
	}

	taskByName := make(map[string]int) // name -> index into data.Tasks
	for _, t := range m.Tasks {
		gt := genTask{
			Name:         t.Name,
			Capacity:     an.Capacities[t.Name],
			Priority:     t.Priority,
			InputsVar:    mg.next("inputs_" + t.Name),
			ScheduledVar: mg.next("sched_" + t.Name),
			FreeQVar:     mg.next("freeq_" + t.Name),
			FreeCeiling:  uint8(an.FreeQueueCeilings[t.Name]),
		}
		gt.InputType, _ = inputType(t.Inputs)
		data.Tasks = append(data.Tasks, gt)
		taskByName[t.Name] = len(data.Tasks) - 1
	}

	// Every context that can declare a `resources` list gets its own lock
	// accessors: tasks, interrupt handlers, and exception handlers alike
	// (spec.md §4.1 enumerates resource accesses from all three).
	addAccessors := func(ctxName string, resources []string) {
		for _, resName := range resources {
			gr, ok := resByName[resName]
			if !ok || gr.Ceiling == 0 {
				continue // Owned resources need no lock at all
			}
			data.Accessors = append(data.Accessors, genAccessor{
				FuncName: "Lock" + exportedName(ctxName) + exportedName(resName),
				TaskName: ctxName,
				ResName:  resName,
				VarName:  gr.VarName,
				CellName: gr.CellName,
				Type:     gr.Type,
				Ceiling:  gr.Ceiling,
			})
		}
	}
	for _, t := range m.Tasks {
		addAccessors(t.Name, t.Resources)
	}
	for _, h := range m.Interrupts {
		addAccessors(h.Name, h.Resources)
	}
	for _, h := range m.Exceptions {
		addAccessors(h.Name, h.Resources)
	}

	for _, h := range m.Interrupts {
		data.Interrupts = append(data.Interrupts, genHandler{Name: h.Name, Priority: uint8(h.Priority)})
	}
	for _, h := range m.Exceptions {
		data.Exceptions = append(data.Exceptions, genHandler{Name: h.Name, Priority: uint8(h.Priority)})
	}

	for _, p := range sortedDispatcherPriorities(an) {
		d := an.Dispatchers[p]
		gd := genDispatcher{
			Priority:  p,
			Interrupt: d.Interrupt,
			ReadyQVar: mg.next(fmt.Sprintf("ready_%d", p)),
			Ceiling:   uint8(an.ReadyQueueCeilings[p]),
		}
		for i, taskName := range d.Tasks {
			idx := taskByName[taskName]
			data.Tasks[idx].DispatchIdx = i
			data.Tasks[idx].ReadyQVar = gd.ReadyQVar
			data.Tasks[idx].ReadyCeiling = gd.Ceiling
			data.Tasks[idx].Interrupt = gd.Interrupt
			gd.Tasks = append(gd.Tasks, data.Tasks[idx])
		}
		data.Dispatchers = append(data.Dispatchers, gd)
	}

	tqIdx := 0
	for _, name := range an.TimerQueue.Tasks {
		idx, ok := taskByName[name]
		if !ok {
			continue
		}
		data.Tasks[idx].IsScheduled = true
		data.Tasks[idx].TQIdx = tqIdx
		data.ScheduledTasks = append(data.ScheduledTasks, data.Tasks[idx])
		tqIdx++
	}

	if len(an.TimerQueue.Tasks) > 0 {
		data.HasTimerQueue = true
		data.TimerQueueCapacity = an.TimerQueue.Capacity
		data.TimerQueueCeiling = uint8(an.TimerQueue.Ceiling)
		data.TimerQueuePriority = uint8(an.TimerQueue.Priority)
		data.TimerQueueVar = mg.next("timerq")
	}

	tmpl, err := template.New("firmware.go.tmpl").ParseFS(templatesFS, "templates/firmware.go.tmpl")
	if err != nil {
		return nil, fmt.Errorf("rtfmgen: parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rtfmgen: executing template: %w", err)
	}

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("rtfmgen: generated source does not parse: %w\n%s", err, buf.String())
	}
	return out, nil
}

// exportedName title-cases name's first byte so it reads naturally as a Go
// identifier fragment (spawn/lock helper names are built by concatenating
// these), without pulling in unicode.Title for what is always an ASCII
// application identifier.
func exportedName(name string) string {
	if name == "" {
		return name
	}
	b := []byte(name)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

func sortedResourceNames(m *Model) []string {
	names := make([]string, 0, len(m.Resources))
	for name := range m.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// inputType renders a task's `inputs` type list as a Go type expression: no
// inputs become struct{}, one input is used as-is, and two or more are
// bundled into an inline struct (tuples have no direct Go equivalent).
func inputType(inputs []string) (string, []string) {
	switch len(inputs) {
	case 0:
		return "struct{}", nil
	case 1:
		return inputs[0], nil
	default:
		fields := make([]string, len(inputs))
		var b strings.Builder
		b.WriteString("struct {\n")
		for i, ty := range inputs {
			fields[i] = fmt.Sprintf("F%d", i)
			fmt.Fprintf(&b, "\t\t%s %s\n", fields[i], ty)
		}
		b.WriteString("\t}")
		return b.String(), fields
	}
}

func sortedDispatcherPriorities(an *Analysis) []Priority {
	ps := make([]Priority, 0, len(an.Dispatchers))
	for p := range an.Dispatchers {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
	return ps
}
