package template

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	hexpkg "github.com/tmthrgd/go-hex"
)

// FilterFunc is a pluggable template filter/function: it receives its
// arguments already evaluated (the piped value first, if invoked via
// `|`) and returns a value or an error, which propagates as a template
// evaluation error.
type FilterFunc func(args ...any) (any, error)

// Filters is the pluggable filter registry (§4.2). The zero value is
// not usable; construct with NewFilters/DefaultFilters.
type Filters struct {
	mu      sync.RWMutex
	entries map[string]FilterFunc
}

// NewFilters returns an empty registry.
func NewFilters() *Filters {
	return &Filters{entries: map[string]FilterFunc{}}
}

// Register adds or replaces a filter by name.
func (f *Filters) Register(name string, fn FilterFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[name] = fn
}

// Lookup returns the filter registered under name.
func (f *Filters) Lookup(name string) (FilterFunc, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	fn, ok := f.entries[name]
	return fn, ok
}

// DefaultFilters returns the standard filter set: string case
// conversion, truncation, numeric formatting, list length/slice, date
// formatting, default, plus two escape hatches wired from the domain
// dependency set (`expr` via expr-lang/expr, `hex` via tmthrgd/go-hex).
func DefaultFilters() *Filters {
	f := NewFilters()
	f.Register("upper", func(args ...any) (any, error) { return strings.ToUpper(stringify(arg(args, 0))), nil })
	f.Register("lower", func(args ...any) (any, error) { return strings.ToLower(stringify(arg(args, 0))), nil })
	f.Register("trim", func(args ...any) (any, error) { return strings.TrimSpace(stringify(arg(args, 0))), nil })
	f.Register("truncate", func(args ...any) (any, error) {
		s := stringify(arg(args, 0))
		n, err := intArg(args, 1)
		if err != nil {
			return nil, err
		}
		if len(s) <= n {
			return s, nil
		}
		return s[:n], nil
	})
	f.Register("default", func(args ...any) (any, error) {
		v := arg(args, 0)
		if v == nil || v == "" {
			return arg(args, 1), nil
		}
		return v, nil
	})
	f.Register("length", func(args ...any) (any, error) {
		switch v := arg(args, 0).(type) {
		case string:
			return int64(len(v)), nil
		case []any:
			return int64(len(v)), nil
		case map[string]any:
			return int64(len(v)), nil
		case nil:
			return int64(0), nil
		default:
			return nil, fmt.Errorf("length: unsupported type %T", v)
		}
	})
	f.Register("slice", func(args ...any) (any, error) {
		list, ok := arg(args, 0).([]any)
		if !ok {
			return nil, fmt.Errorf("slice: first argument must be a list")
		}
		start, err := intArg(args, 1)
		if err != nil {
			return nil, err
		}
		end, err := intArg(args, 2)
		if err != nil {
			return nil, err
		}
		if start < 0 {
			start = 0
		}
		if end > len(list) {
			end = len(list)
		}
		if start > end {
			return []any{}, nil
		}
		return list[start:end], nil
	})
	f.Register("round", func(args ...any) (any, error) {
		v, ok := toFloat(arg(args, 0))
		if !ok {
			return nil, fmt.Errorf("round: argument must be numeric")
		}
		return int64(v + 0.5), nil
	})
	f.Register("number_format", func(args ...any) (any, error) {
		v, ok := toFloat(arg(args, 0))
		if !ok {
			return nil, fmt.Errorf("number_format: argument must be numeric")
		}
		prec := 2
		if p, err := intArg(args, 1); err == nil {
			prec = p
		}
		return strconv.FormatFloat(v, 'f', prec, 64), nil
	})
	f.Register("date_format", func(args ...any) (any, error) {
		layout := "2006-01-02"
		if s, ok := arg(args, 1).(string); ok {
			layout = goLayout(s)
		}
		switch v := arg(args, 0).(type) {
		case string:
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, fmt.Errorf("date_format: %w", err)
			}
			return t.Format(layout), nil
		case int64:
			return time.Unix(v, 0).UTC().Format(layout), nil
		default:
			return nil, fmt.Errorf("date_format: unsupported input type %T", v)
		}
	})
	f.Register("hex", func(args ...any) (any, error) {
		return hexpkg.EncodeToString([]byte(stringify(arg(args, 0)))), nil
	})
	f.Register("expr", exprFilter())
	return f
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func intArg(args []any, i int) (int, error) {
	v, ok := toFloat(arg(args, i))
	if !ok {
		return 0, fmt.Errorf("expected numeric argument at position %d", i)
	}
	return int(v), nil
}

// goLayout maps a few common strftime-ish tokens to Go's reference
// layout; unrecognized input passes through unchanged (callers may
// already supply a Go layout string).
func goLayout(s string) string {
	switch s {
	case "%Y-%m-%d":
		return "2006-01-02"
	case "%Y-%m-%dT%H:%M:%S":
		return "2006-01-02T15:04:05"
	default:
		return s
	}
}

// exprFilter is the `expr` escape-hatch filter: it compiles and caches
// a full expr-lang program (the same dependency the teacher's condition
// evaluator uses) against the piped value as `_`, for callers who need
// an expression the core's own grammar doesn't cover.
func exprFilter() FilterFunc {
	var mu sync.Mutex
	cache := map[string]*vm.Program{}
	return func(args ...any) (any, error) {
		src, ok := arg(args, 1).(string)
		if !ok {
			return nil, fmt.Errorf("expr: second argument must be an expr-lang source string")
		}
		mu.Lock()
		program, cached := cache[src]
		mu.Unlock()
		if !cached {
			p, err := expr.Compile(src)
			if err != nil {
				return nil, fmt.Errorf("expr: compile: %w", err)
			}
			mu.Lock()
			cache[src] = p
			mu.Unlock()
			program = p
		}
		out, err := expr.Run(program, map[string]any{"_": arg(args, 0)})
		if err != nil {
			return nil, fmt.Errorf("expr: run: %w", err)
		}
		return out, nil
	}
}
