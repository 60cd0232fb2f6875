// Package app is the code generator: it turns a YAML application
// description into an analyzed Model (package-level ceiling and capacity
// facts) and then into the Go source of a concurrent firmware image.
//
// The pipeline mirrors spec.md §2 exactly:
//
//	LoadDescription -> Build (model) -> Check (syntactic) -> Analyze
//	(ceiling/capacity) -> PostCheck -> Generate (code generator)
//
// Parsing the description itself is out of scope (spec.md §1): LoadDescription
// is a thin yaml.v3 unmarshal, not a hand-rolled grammar.
package app

import "gopkg.in/yaml.v3"

// Priority is a logical priority: 0 is idle/thread mode, 1..=254 are real
// interrupt priorities, 255 denotes the global critical section (spec.md §3).
type Priority uint8

// PriorityIdle and PriorityInit are the two fixed, non-interrupt priorities
// every application has.
const (
	PriorityIdle Priority = 0
	PriorityInit Priority = 255
)

// Resource is named static storage, possibly shared across priorities.
type Resource struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Mutable   bool   `yaml:"mutable"`
	Init      string `yaml:"init,omitempty"` // empty => must be assigned exactly once in init
	Singleton bool   `yaml:"singleton,omitempty"`
}

// TaskDecl is a software task dispatched through a borrowed interrupt.
type TaskDecl struct {
	Name     string   `yaml:"name"`
	Priority Priority `yaml:"priority,omitempty"` // 0 means "unset", defaulted to 1 in Build
	// Capacity is nil when not declared (Analyze computes it from
	// spawn/schedule references). A declared value of 0 is a compile
	// error if the task is ever spawned/scheduled (spec.md §6).
	Capacity  *int     `yaml:"capacity,omitempty"`
	Inputs    []string `yaml:"inputs,omitempty"`
	Resources []string `yaml:"resources,omitempty"`
	Spawn     []string `yaml:"spawn,omitempty"`
	Schedule  []string `yaml:"schedule,omitempty"`
}

// HandlerDecl is a hardware interrupt or exception handler.
type HandlerDecl struct {
	Name      string   `yaml:"name"`
	Priority  Priority `yaml:"priority,omitempty"`
	Resources []string `yaml:"resources,omitempty"`
	Spawn     []string `yaml:"spawn,omitempty"`
	Schedule  []string `yaml:"schedule,omitempty"`
}

// InitDecl is the program's single one-shot entry point, run at PriorityInit
// with all interrupts disabled.
type InitDecl struct {
	Resources []string `yaml:"resources,omitempty"` // moved in by value
	Spawn     []string `yaml:"spawn,omitempty"`
	Schedule  []string `yaml:"schedule,omitempty"`
}

// IdleDecl is the optional divergent background context run at priority 0.
type IdleDecl struct {
	Present   bool
	Resources []string `yaml:"resources,omitempty"`
	Spawn     []string `yaml:"spawn,omitempty"`
	Schedule  []string `yaml:"schedule,omitempty"`
}

// Description is the raw, unanalyzed application description as read from
// YAML (spec.md §6's "external interface").
type Description struct {
	Device         string         `yaml:"device"`
	NVICPrioBits   uint8          `yaml:"nvic_prio_bits"`
	Resources      []Resource     `yaml:"resources,omitempty"`
	Init           InitDecl       `yaml:"init"`
	Idle           *IdleDecl      `yaml:"idle,omitempty"`
	Interrupts     []HandlerDecl  `yaml:"interrupts,omitempty"`
	Exceptions     []HandlerDecl  `yaml:"exceptions,omitempty"`
	Tasks          []TaskDecl     `yaml:"tasks,omitempty"`
	FreeInterrupts []string       `yaml:"free_interrupts,omitempty"`
}

// LoadDescription decodes a YAML application description. This is the
// out-of-scope parser's concrete stand-in (spec.md §1): it produces the raw
// Description, not yet an analyzed Model.
func LoadDescription(data []byte) (*Description, error) {
	var d Description
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Model is the validated-shape, default-filled application, ready for
// Check and Analyze. Handlers and tasks are kept in kind-specific slices
// (for iteration order matching spec.md's dispatcher-assignment sort);
// tasks are also reachable by name through Task (for reference resolution).
type Model struct {
	Device       string
	NVICPrioBits uint8

	Resources map[string]*Resource

	Init InitDecl
	Idle IdleDecl

	Interrupts []HandlerDecl
	Exceptions []HandlerDecl
	Tasks      []TaskDecl

	tasksByName map[string]*TaskDecl

	FreeInterrupts []string
}

// Build lowers a Description into a Model, filling in the documented
// default priority 1 (an undeclared capacity stays nil for Analyze to
// compute) but performing no cross-referential
// validation — that's Check's job (spec.md §2 keeps the two separate).
func Build(d *Description) *Model {
	m := &Model{
		Device:         d.Device,
		NVICPrioBits:   d.NVICPrioBits,
		Resources:      make(map[string]*Resource, len(d.Resources)),
		Init:           d.Init,
		Interrupts:     append([]HandlerDecl(nil), d.Interrupts...),
		Exceptions:     append([]HandlerDecl(nil), d.Exceptions...),
		Tasks:          append([]TaskDecl(nil), d.Tasks...),
		FreeInterrupts: append([]string(nil), d.FreeInterrupts...),
	}

	for i := range d.Resources {
		rc := d.Resources[i]
		m.Resources[rc.Name] = &rc
	}

	if d.Idle != nil {
		m.Idle = *d.Idle
		m.Idle.Present = true
	}

	for i := range m.Interrupts {
		if m.Interrupts[i].Priority == 0 {
			m.Interrupts[i].Priority = 1
		}
	}
	for i := range m.Exceptions {
		if m.Exceptions[i].Priority == 0 {
			m.Exceptions[i].Priority = 1
		}
	}
	for i := range m.Tasks {
		if m.Tasks[i].Priority == 0 {
			m.Tasks[i].Priority = 1
		}
	}

	m.tasksByName = make(map[string]*TaskDecl, len(m.Tasks))
	for i := range m.Tasks {
		m.tasksByName[m.Tasks[i].Name] = &m.Tasks[i]
	}

	return m
}

// Task looks up a declared task by name.
func (m *Model) Task(name string) (*TaskDecl, bool) {
	t, ok := m.tasksByName[name]
	return t, ok
}

// AllTaskNames returns every declared task's name, in declaration order.
func (m *Model) AllTaskNames() []string {
	names := make([]string, len(m.Tasks))
	for i, t := range m.Tasks {
		names[i] = t.Name
	}
	return names
}
