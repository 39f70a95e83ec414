// Package expression resolves the core's `$`-prefixed path grammar
// (§4.1): dotted field access, integer/quoted-string/atom bracket
// access, against a context map of named roots ($input, $nodes, $vars,
// $env, $workflow, $execution, $preparation).
package expression

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bluzky/prana/internal/domain"
)

// segKind distinguishes the three bracket-access forms from dotted access.
type segKind int

const (
	segField segKind = iota
	segIndex
	segKey
)

type segment struct {
	kind  segKind
	field string
	index int
	key   string
}

// Parse tokenizes a "$"-prefixed path expression into a root name
// (returned without the "$") and a sequence of access segments.
func Parse(path string) (root string, segs []segment, err error) {
	if !strings.HasPrefix(path, "$") {
		return "", nil, fmt.Errorf("path must start with '$': %q", path)
	}
	rest := path[1:]
	i := 0
	n := len(rest)
	readField := func() string {
		start := i
		for i < n && rest[i] != '.' && rest[i] != '[' {
			i++
		}
		return rest[start:i]
	}
	root = readField()
	if root == "" {
		return "", nil, fmt.Errorf("empty root in path %q", path)
	}
	for i < n {
		switch rest[i] {
		case '.':
			i++
			f := readField()
			if f == "" {
				return "", nil, fmt.Errorf("empty field segment in path %q", path)
			}
			segs = append(segs, segment{kind: segField, field: f})
		case '[':
			i++
			start := i
			for i < n && rest[i] != ']' {
				i++
			}
			if i >= n {
				return "", nil, fmt.Errorf("unterminated bracket in path %q", path)
			}
			inner := rest[start:i]
			i++ // skip ']'
			seg, serr := parseBracket(inner)
			if serr != nil {
				return "", nil, fmt.Errorf("path %q: %w", path, serr)
			}
			segs = append(segs, seg)
		default:
			return "", nil, fmt.Errorf("unexpected character %q in path %q", string(rest[i]), path)
		}
	}
	return root, segs, nil
}

func parseBracket(inner string) (segment, error) {
	if inner == "" {
		return segment{}, fmt.Errorf("empty bracket expression")
	}
	if inner[0] == ':' {
		return segment{kind: segKey, key: inner[1:]}, nil
	}
	if (inner[0] == '"' || inner[0] == '\'') && len(inner) >= 2 && inner[len(inner)-1] == inner[0] {
		return segment{kind: segKey, key: inner[1 : len(inner)-1]}, nil
	}
	if idx, err := strconv.Atoi(inner); err == nil {
		return segment{kind: segIndex, index: idx}, nil
	}
	return segment{}, fmt.Errorf("unrecognized bracket expression [%s]", inner)
}

// Eval resolves a full "$root.field[0]..." path against ctx, where ctx
// maps root names ("input", "nodes", "vars", ...) to values. Missing
// intermediates short-circuit to nil rather than erroring, except that
// an unknown root is always an error (path_not_found).
func Eval(path string, ctx map[string]any) (any, error) {
	root, segs, err := Parse(path)
	if err != nil {
		return nil, domain.NewError(domain.ErrCodeExpression, err.Error(), nil)
	}
	cur, ok := ctx[root]
	if !ok {
		return nil, domain.NewError(domain.ErrCodeExpression, fmt.Sprintf("path_not_found: unknown root $%s", root), nil).
			WithDetails(map[string]any{"path": path})
	}
	for _, s := range segs {
		if cur == nil {
			return nil, nil
		}
		switch s.kind {
		case segField:
			cur = getField(cur, s.field)
		case segKey:
			cur = getField(cur, s.key)
		case segIndex:
			cur = getIndex(cur, s.index)
		}
	}
	return cur, nil
}

func getField(v any, name string) any {
	switch m := v.(type) {
	case map[string]any:
		return m[name]
	case map[string]string:
		return m[name]
	default:
		return nil
	}
}

func getIndex(v any, idx int) any {
	switch l := v.(type) {
	case []any:
		if idx < 0 || idx >= len(l) {
			return nil
		}
		return l[idx]
	default:
		return nil
	}
}
