package scripting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dop251/goja"
)

// Program is a competitor loaded into its own VM. It exposes the entry
// points its role requires and attributes every fault to its display name.
type Program struct {
	Role Role
	Name string

	vm     *VM
	api    *goja.Object
	logger *slog.Logger
}

// Load compiles src into a fresh VM seeded with random. Any failure here is
// a *SetupFault. The top-level body of the program runs under limit.
func Load(src Source, random func() float64, limit time.Duration, logger *slog.Logger) (*Program, error) {
	if _, ok := entryPoints[src.Role]; !ok {
		return nil, &SetupFault{Role: src.Role, Name: src.Name, Err: fmt.Errorf("%w: %q", ErrInvalidRole, src.Role)}
	}
	if logger == nil {
		logger = slog.Default()
	}

	vm := NewVM(random)
	api, err := vm.Load(src.Name, src.Code, limit)
	p := &Program{
		Role:   src.Role,
		Name:   src.Name,
		vm:     vm,
		api:    api,
		logger: logger.With("competitor", src.Name, "role", string(src.Role)),
	}
	p.flush("load")
	if err != nil {
		return nil, &SetupFault{Role: src.Role, Name: src.Name, Err: err}
	}
	return p, nil
}

// Invoke calls method with args converted to fresh JS data. The program's
// diagnostic output is flushed to the logger before Invoke returns.
func (p *Program) Invoke(method string, limit time.Duration, args ...interface{}) (json.RawMessage, time.Duration, error) {
	jsArgs := make([]goja.Value, len(args))
	for i, arg := range args {
		v, err := p.vm.toJS(arg)
		if err != nil {
			return nil, 0, fmt.Errorf("scripting: encode %s argument %d: %w", method, i, err)
		}
		jsArgs[i] = v
	}

	out, elapsed, err := p.vm.Call(limit, p.api, method, jsArgs...)
	p.flush(method)
	if err != nil {
		return nil, elapsed, &CallError{
			Name:        p.Name,
			Method:      method,
			Interrupted: isInterrupted(err),
			Err:         unwrapException(err),
		}
	}
	return out, elapsed, nil
}

func (p *Program) shapeError(method string, err error) error {
	return &ShapeError{Name: p.Name, Method: method, Err: err}
}

func (p *Program) flush(method string) {
	for _, entry := range p.vm.DrainLogs() {
		p.logger.Log(context.Background(), scriptLevel(entry.Level), entry.Message,
			"method", method, "script_level", entry.Level)
	}
}

func scriptLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// unwrapException keeps the JS error text of a thrown exception and drops
// goja's stack trace.
func unwrapException(err error) error {
	var ex *goja.Exception
	if errors.As(err, &ex) && ex.Value() != nil {
		return errors.New(ex.Value().String())
	}
	return err
}
