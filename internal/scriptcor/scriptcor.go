// Package scriptcor implements coroutine bodies whose suspension points
// are written as JavaScript generator functions and driven by goja. A
// script defines `function* body(ctx) { ... }`; each `yield` describes
// one scheduler command (`{cmd: "sleep", ms: 250}`, `{cmd: "suspend"}`,
// `{cmd: "lock", name: "m"}`, `{cmd: "unlock", name: "m"}`, or a bare
// `yield` for a pure relinquish). The JS generator itself carries the
// resume point — the Go-side sched.Body wrapping it has exactly one
// anchor — which is this package's concrete realization of the
// "builder/generator pattern" suspension strategy.
package scriptcor

import (
	"fmt"
	"log/slog"

	"github.com/dop251/goja"

	"github.com/me/cosched/pkg/sched"
)

const anchorScript = "script"

// Engine compiles scripts into sched.Body values and owns the named
// mutexes that scripted lock/unlock commands reference by name, shared
// across every body this Engine builds.
type Engine struct {
	logger  *slog.Logger
	mutexes map[string]*sched.Mutex
}

// NewEngine creates an Engine. Host-side print output from scripts
// (ctx.print(...)) is written through logger.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{
		logger:  logger,
		mutexes: make(map[string]*sched.Mutex),
	}
}

func (e *Engine) mutex(name string) *sched.Mutex {
	m, ok := e.mutexes[name]
	if !ok {
		m = sched.NewMutex()
		e.mutexes[name] = m
	}
	return m
}

type command struct {
	cmd  string
	ms   uint32
	name string
}

func parseCommand(value any) command {
	m, ok := value.(map[string]any)
	if !ok {
		return command{cmd: "yield"}
	}
	c := command{cmd: "yield"}
	if s, ok := m["cmd"].(string); ok && s != "" {
		c.cmd = s
	}
	if ms, ok := m["ms"]; ok {
		c.ms = toUint32(ms)
	}
	if name, ok := m["name"].(string); ok {
		c.name = name
	}
	return c
}

func toUint32(v any) uint32 {
	switch n := v.(type) {
	case int64:
		return uint32(n)
	case float64:
		return uint32(n)
	case int:
		return uint32(n)
	default:
		return 0
	}
}

// NewBody compiles script, invokes its top-level `body(ctx)` generator
// function once to obtain a live generator, and returns a sched.Body
// that steps that generator one command at a time. name is used only
// for log context.
func (e *Engine) NewBody(name, script string) (sched.Body, error) {
	vm := goja.New()

	ctxObj := vm.NewObject()
	if err := ctxObj.Set("print", func(msg string) {
		e.logger.Info("script output", "task", name, "msg", msg)
	}); err != nil {
		return nil, fmt.Errorf("script %q: set ctx.print: %w", name, err)
	}

	if _, err := vm.RunString(script); err != nil {
		return nil, fmt.Errorf("script %q: compile: %w", name, err)
	}

	bodyVal := vm.Get("body")
	if bodyVal == nil || goja.IsUndefined(bodyVal) {
		return nil, fmt.Errorf("script %q: no top-level function* body(ctx) defined", name)
	}
	bodyFn, ok := goja.AssertFunction(bodyVal)
	if !ok {
		return nil, fmt.Errorf("script %q: body is not a function", name)
	}

	genVal, err := bodyFn(goja.Undefined(), ctxObj)
	if err != nil {
		return nil, fmt.Errorf("script %q: invoke body(ctx): %w", name, err)
	}
	nextFn, ok := goja.AssertFunction(genVal.ToObject(vm).Get("next"))
	if !ok {
		return nil, fmt.Errorf("script %q: body(ctx) did not return a generator", name)
	}

	var pending *command
	var resumeValue goja.Value

	return func(t *sched.Task, arg any) {
		t.Begin(anchorScript)

		for {
			if pending == nil {
				var result goja.Value
				var err error
				if resumeValue == nil {
					result, err = nextFn(genVal)
				} else {
					result, err = nextFn(genVal, resumeValue)
				}
				if err != nil {
					e.logger.Error("script error", "task", name, "error", err)
					t.Terminate()
					return
				}
				resObj := result.ToObject(vm)
				if resObj.Get("done").ToBoolean() {
					t.Terminate()
					return
				}
				c := parseCommand(resObj.Get("value").Export())
				pending = &c
			}

			switch pending.cmd {
			case "sleep":
				t.Sleep(anchorScript, pending.ms)
				pending = nil
				resumeValue = goja.Undefined()
				return
			case "suspend":
				t.SuspendSelf(anchorScript)
				pending = nil
				resumeValue = goja.Undefined()
				return
			case "lock":
				if e.mutex(pending.name).Lock(t) {
					pending = nil
					resumeValue = vm.ToValue(true)
					continue
				}
				return
			case "unlock":
				e.mutex(pending.name).Unlock(t)
				pending = nil
				t.Yield(anchorScript, sched.StateReady, 0)
				return
			default: // "yield" or unrecognized
				pending = nil
				resumeValue = goja.Undefined()
				t.Yield(anchorScript, sched.StateReady, 0)
				return
			}
		}
	}, nil
}
