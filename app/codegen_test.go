package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateCapacityExampleProducesValidGoSource(t *testing.T) {
	m := mustBuild(t, capacityYAML)
	require.Empty(t, Check(m))
	an, errs := Analyze(m)
	require.Empty(t, errs)
	require.Empty(t, PostCheck(m, an))

	src, err := Generate(m, an)
	require.NoError(t, err)

	out := string(src)
	require.Contains(t, out, "package firmware")
	require.Contains(t, out, "func Spawnfoo(")
	require.Contains(t, out, "func Spawnbar(")
	require.Contains(t, out, "func Dispatch1()")
	require.Contains(t, out, "func Dispatch2()")
	require.Contains(t, out, "func Run(")
	require.Contains(t, out, "UART1Interrupt")
	require.Contains(t, out, "UART2Interrupt")
	require.Contains(t, out, "ApplicationIdle")
	require.NotContains(t, out, "func ApplicationIdle") // the application, not the generator, defines it

	// UART0 is a declared hardware interrupt handler (not a dispatcher
	// borrowed from the free-interrupt pool): it gets its own Enter-wrapped
	// Handle function and its own NVIC registration in Run.
	require.Contains(t, out, "UART0Interrupt rtfm.Interrupt")
	require.Contains(t, out, "func HandleUART0()")
	require.Contains(t, out, "currentPriority.Enter(2,")
	require.Contains(t, out, "nvic.SetPriority(UART0Interrupt,")
	require.Contains(t, out, "nvic.Enable(UART0Interrupt)")
}

func TestGenerateRunArmsHardwareInPostInit(t *testing.T) {
	m := mustBuild(t, capacityYAML)
	an, errs := Analyze(m)
	require.Empty(t, errs)

	src, err := Generate(m, an)
	require.NoError(t, err)
	out := string(src)

	require.Contains(t, out, "func Run(ctl rtfm.Controller, nvic rtfm.NVIC, systick rtfm.SysTick, dwt rtfm.DWT, peripherals rtfm.Peripherals)")
	require.Contains(t, out, "dwt.Enable()")
	// capacityYAML declares an idle block, so neither SLEEPONEXIT nor the
	// Wfi fallback loop should be emitted.
	require.NotContains(t, out, "SetSleepOnExit")
	require.NotContains(t, out, "ctl.Wfi()")
}

func TestGenerateExceptionHandlerGetsEnterWrapperAndSCBPriority(t *testing.T) {
	m := mustBuild(t, `
device: d
nvic_prio_bits: 3
init: {}
exceptions:
  - {name: SVCall, priority: 3}
tasks: []
free_interrupts: []
`)
	require.Empty(t, Check(m))
	an, errs := Analyze(m)
	require.Empty(t, errs)
	require.Empty(t, PostCheck(m, an))

	src, err := Generate(m, an)
	require.NoError(t, err)
	out := string(src)

	require.Contains(t, out, "func HandleSVCall()")
	require.Contains(t, out, `peripherals.SCB.SetExceptionPriority("SVCall",`)
	require.NotContains(t, out, "SVCallInterrupt") // exceptions aren't NVIC vectors
}

func TestGenerateNoIdleSetsSleepOnExitAndWfiLoop(t *testing.T) {
	m := mustBuild(t, `
device: d
nvic_prio_bits: 3
init: {}
tasks: []
free_interrupts: []
`)
	require.Empty(t, Check(m))
	an, errs := Analyze(m)
	require.Empty(t, errs)

	src, err := Generate(m, an)
	require.NoError(t, err)
	out := string(src)

	require.Contains(t, out, "peripherals.SCB.SetSleepOnExit(true)")
	require.Contains(t, out, "ctl.Wfi()")
}

func TestGenerateTimerQueueArmsSysTick(t *testing.T) {
	m := mustBuild(t, `
device: d
nvic_prio_bits: 3
init: {}
interrupts:
  - {name: UART0, priority: 2, schedule: [foo]}
tasks:
  - {name: foo, priority: 1, schedule: [foo]}
free_interrupts: [A]
`)
	require.Empty(t, Check(m))
	an, errs := Analyze(m)
	require.Empty(t, errs)

	src, err := Generate(m, an)
	require.NoError(t, err)
	out := string(src)

	require.Contains(t, out, `peripherals.SCB.SetExceptionPriority("SysTick",`)
	require.Contains(t, out, "systick.UseCoreClock()")
	require.Contains(t, out, "systick.Enable()")
}

func TestGenerateSharedResourceEmitsLockAccessor(t *testing.T) {
	m := mustBuild(t, `
device: d
nvic_prio_bits: 3
resources:
  - {name: shared, type: uint32, mutable: true, init: "0"}
tasks:
  - {name: lo, priority: 1, resources: [shared]}
  - {name: hi, priority: 3, resources: [shared]}
init: {}
free_interrupts: [A, B]
`)
	require.Empty(t, Check(m))
	an, errs := Analyze(m)
	require.Empty(t, errs)
	require.Empty(t, PostCheck(m, an))

	src, err := Generate(m, an)
	require.NoError(t, err)
	out := string(src)

	require.Contains(t, out, "func LockLoShared(")
	require.Contains(t, out, "func LockHiShared(")
	require.True(t, strings.Count(out, "rtfm.Lock(") >= 2)
}

func TestGenerateTimerQueueScenarioEmitsSysTickHandler(t *testing.T) {
	m := mustBuild(t, `
device: d
nvic_prio_bits: 3
init: {}
interrupts:
  - {name: UART0, priority: 2, schedule: [foo]}
tasks:
  - {name: foo, priority: 1, schedule: [foo]}
free_interrupts: [A]
`)
	require.Empty(t, Check(m))
	an, errs := Analyze(m)
	require.Empty(t, errs)
	require.Empty(t, PostCheck(m, an))

	src, err := Generate(m, an)
	require.NoError(t, err)
	out := string(src)

	require.Contains(t, out, "func SysTickHandler(")
	require.Contains(t, out, "func Schedulefoo(")
	require.Contains(t, out, "tqRoute")
}

func TestGenerateNoSchedulesOmitsTimerQueue(t *testing.T) {
	m := mustBuild(t, capacityYAML)
	an, errs := Analyze(m)
	require.Empty(t, errs)

	src, err := Generate(m, an)
	require.NoError(t, err)
	out := string(src)

	require.NotContains(t, out, "SysTickHandler")
	require.NotContains(t, out, "tq.New")
}
