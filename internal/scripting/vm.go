package scripting

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/MJE43/maze-duel/internal/maze"
)

// LogEntry is a single diagnostic line written by a program during a call.
type LogEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// VM wraps a goja runtime with sandbox restrictions for one competitor.
// A VM is owned by a single match and is never called concurrently.
type VM struct {
	runtime *goja.Runtime
	random  goja.Value

	// Diagnostic output of the call in progress.
	logs []LogEntry

	// Captured before untrusted code runs so a program cannot swap them out.
	jsonParse     goja.Callable
	jsonStringify goja.Callable
}

// The program body runs inside a strict function whose scope hides the
// host's global handles. Its completion value must be the entry point object.
const (
	sandboxHeader = "(function(random) {\n\"use strict\";\n" +
		"const self = undefined;\nconst window = undefined;\n" +
		"const globalThis = undefined;\nconst document = undefined;\n"
	sandboxFooter = "\n})"
)

var errCallTimeout = errors.New("script execution timeout")

// NewVM creates a sandboxed goja runtime whose only sources of entropy are
// random and whose only side channel is the console buffer.
func NewVM(random func() float64) *VM {
	rt := goja.New()
	vm := &VM{runtime: rt}

	jsonObj := rt.Get("JSON").ToObject(rt)
	vm.jsonParse, _ = goja.AssertFunction(jsonObj.Get("parse"))
	vm.jsonStringify, _ = goja.AssertFunction(jsonObj.Get("stringify"))

	vm.random = rt.ToValue(random)
	vm.injectGlobalFunctions()
	vm.injectConstants()
	return vm
}

// injectGlobalFunctions registers console/log, shadows Math.random and
// blocks ambient capabilities.
func (vm *VM) injectGlobalFunctions() {
	rt := vm.runtime

	console := rt.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		console.Set(level, vm.logFunc(level))
	}
	rt.Set("console", console)
	rt.Set("log", vm.logFunc("log"))

	// Math.random draws from the competitor's own stream.
	math := rt.NewObject()
	math.SetPrototype(rt.Get("Math").ToObject(rt))
	math.Set("random", vm.random)
	rt.Set("Math", math)

	for _, name := range []string{"require", "fetch", "XMLHttpRequest", "eval", "Function", "Date", "setTimeout", "setInterval"} {
		rt.Set(name, goja.Undefined())
	}
}

// injectConstants sets the frozen ACTION table of adventurer move codes.
func (vm *VM) injectConstants() {
	rt := vm.runtime
	action := rt.NewObject()
	for name, code := range maze.ActionCodes() {
		action.Set(name, code)
	}
	freeze, _ := goja.AssertFunction(rt.Get("Object").ToObject(rt).Get("freeze"))
	if freeze != nil {
		freeze(goja.Undefined(), action)
	}
	rt.Set("ACTION", action)
}

func (vm *VM) logFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		vm.logs = append(vm.logs, LogEntry{Level: level, Message: strings.Join(parts, " ")})
		return goja.Undefined()
	}
}

// Load compiles source and runs it once to obtain the program's entry point
// object.
func (vm *VM) Load(name, source string, limit time.Duration) (*goja.Object, error) {
	prog, err := goja.Compile(name, sandboxHeader+source+sandboxFooter, true)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	var api goja.Value
	_, err = vm.run(limit, func() error {
		factoryVal, err := vm.runtime.RunProgram(prog)
		if err != nil {
			return err
		}
		factory, ok := goja.AssertFunction(factoryVal)
		if !ok {
			return errors.New("script wrapper did not evaluate to a function")
		}
		api, err = factory(goja.Undefined(), vm.random)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("script execution error: %w", err)
	}
	obj, ok := api.(*goja.Object)
	if !ok || isUndefinedOrNull(api) {
		return nil, errors.New("script must return an object exposing its entry points")
	}
	return obj, nil
}

// Call invokes this[method] and returns its result as JSON text. The lookup,
// the call and the serialization of the result all run under limit, so
// getters on the returned value are charged to the program too.
func (vm *VM) Call(limit time.Duration, this *goja.Object, method string, args ...goja.Value) (json.RawMessage, time.Duration, error) {
	var out json.RawMessage
	elapsed, err := vm.run(limit, func() error {
		fn, ok := goja.AssertFunction(this.Get(method))
		if !ok {
			return ErrNotFunction
		}
		v, err := fn(this, args...)
		if err != nil {
			return err
		}
		text, err := vm.jsonStringify(goja.Undefined(), v)
		if err != nil {
			return err
		}
		if isUndefinedOrNull(text) {
			out = json.RawMessage("null")
		} else {
			out = json.RawMessage(text.String())
		}
		return nil
	})
	return out, elapsed, err
}

// run executes fn and measures it. A positive limit arms an interrupt that
// stops a runaway script once the limit has passed.
func (vm *VM) run(limit time.Duration, fn func() error) (elapsed time.Duration, err error) {
	var (
		mu       sync.Mutex
		finished bool
	)
	if limit > 0 {
		timer := time.AfterFunc(limit, func() {
			mu.Lock()
			defer mu.Unlock()
			if !finished {
				vm.runtime.Interrupt(errCallTimeout)
			}
		})
		defer func() {
			mu.Lock()
			finished = true
			mu.Unlock()
			timer.Stop()
			vm.runtime.ClearInterrupt()
		}()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			elapsed = time.Since(start)
			err = fmt.Errorf("script panic: %v", r)
		}
	}()
	err = fn()
	return time.Since(start), err
}

// DrainLogs returns and clears the diagnostic lines buffered since the last drain.
func (vm *VM) DrainLogs() []LogEntry {
	out := vm.logs
	vm.logs = nil
	return out
}

// toJS turns a plain Go value into fresh JS data via JSON, so a program
// never holds references into host memory.
func (vm *VM) toJS(v interface{}) (goja.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return vm.jsonParse(goja.Undefined(), vm.runtime.ToValue(string(b)))
}

func isInterrupted(err error) bool {
	var ie *goja.InterruptedError
	return errors.As(err, &ie)
}

func isUndefinedOrNull(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}
