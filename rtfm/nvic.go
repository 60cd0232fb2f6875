package rtfm

// Interrupt identifies a hardware interrupt vector. The concrete enumeration
// (the device's `Interrupt` type) is supplied by the peripheral-access
// crate, out of scope for this repo (spec.md §1); callers pass whatever
// small integer-backed type their device package defines.
type Interrupt interface {
	NVICNumber() uint8
}

// NVIC is the subset of the Nested Vector Interrupt Controller the
// generated firmware touches: pending a dispatcher's interrupt, enabling
// it, and setting its hardware priority in post-init.
type NVIC interface {
	Pend(i Interrupt)
	Enable(i Interrupt)
	SetPriority(i Interrupt, hw uint8)
}

// Pend sets i pending in n. A thin wrapper kept only so generated call
// sites read as `rtfm.Pend(nvic, UART1Interrupt)` instead of reaching
// into the controller directly, matching the original's `rtfm::pend`.
func Pend(n NVIC, i Interrupt) {
	n.Pend(i)
}

// SCB is the System Control Block surface used for exception priorities and
// SLEEPONEXIT.
type SCB interface {
	SetExceptionPriority(exception string, hw uint8)
	SetSleepOnExit(enabled bool)
}

// SysTick is the timer-queue driver. SysTickReloadMax is the counter's
// 24-bit ceiling; the generator clamps every reprogram to it. UseCoreClock selects
// the core clock as SysTick's source (as opposed to an external reference
// clock), the post-init step spec.md §4.3 calls "choose the core clock
// source" — it is only ever called once, before the first Enable.
type SysTick interface {
	SetReload(ticks uint32)
	UseCoreClock()
	Enable()
	Disable()
}

// SysTickReloadMax is the largest value the 24-bit SysTick reload register
// can hold.
const SysTickReloadMax uint32 = 1<<24 - 1

// ClampReload bounds a requested reload delta to what SysTick can express.
func ClampReload(ticks uint32) uint32 {
	if ticks > SysTickReloadMax {
		return SysTickReloadMax
	}
	return ticks
}

// DWT is the Data Watchpoint and Trace unit's cycle-counter control
// surface: Enable is the post-init step spec.md §4.3 calls "enable the
// cycle counter". CycleCounter (embedded) is what Instant/Duration sample
// from at runtime; this is the one piece of it the runtime itself, rather
// than user code, is responsible for arming.
type DWT interface {
	CycleCounter
	Enable()
}

// Peripherals mirrors cortex_m::Peripherals minus the handles the runtime
// owns exclusively (NVIC, SysTick, DWT): the generated Run receives this
// reduced set from its caller and hands it to the user's init body, keeping
// the runtime-owned ones out of user reach.
type Peripherals struct {
	CPUID CPUID
	DCB   *DCB
	SCB   SCB
}

// CPUID is the read-only core identification register block.
type CPUID struct {
	Base uint32
}

// DCB is the Debug Control Block.
type DCB struct {
	DEMCR uint32
}
