package template

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bluzky/prana/internal/domain"
	"github.com/bluzky/prana/internal/expression"
)

// Mode selects error behavior for variable lookups: Strict fails on an
// unresolvable $-path (unknown root or malformed path) or an undefined
// bare identifier; Graceful resolves those to nil, which renders as
// empty text. In both modes a missing field under a known root resolves
// to nil, and operator or filter type errors abort the render: Graceful
// does no type coercion. Node parameter rendering defaults to Strict;
// free-text interpolation defaults to Graceful (§4.2).
type Mode int

const (
	Strict Mode = iota
	Graceful
)

// Context is what expression/template evaluation sees: the named path
// roots ($input, $nodes, $vars, $env, $workflow, $execution, $preparation).
type Context map[string]any

// evalState threads mode, filters, locals (for-loop variables) and a
// recursion-depth guard through one Render call.
type evalState struct {
	ctx     Context
	locals  []map[string]any
	mode    Mode
	filters *Filters
	limits  Limits
	depth   int
}

func (s *evalState) pushLocal(name string, v any) func() {
	s.locals = append(s.locals, map[string]any{name: v})
	return func() { s.locals = s.locals[:len(s.locals)-1] }
}

func (s *evalState) lookupLocal(name string) (any, bool) {
	for i := len(s.locals) - 1; i >= 0; i-- {
		if v, ok := s.locals[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Render evaluates a parsed Template against ctx. If the template is
// exactly one {{ expr }} block with no surrounding literal text, the
// raw typed value is returned (§4.2's "single expression" rule);
// otherwise every block's string form is concatenated.
func Render(t *Template, ctx Context, mode Mode, filters *Filters, limits Limits) (any, error) {
	s := &evalState{ctx: ctx, mode: mode, filters: filters, limits: limits}
	if t.singleExpr != nil {
		return s.evalExpr(t.singleExpr)
	}
	var sb strings.Builder
	if err := s.renderBlocks(t.Blocks, &sb); err != nil {
		return nil, err
	}
	return sb.String(), nil
}

// RenderTree recursively renders a structured parameter tree (map/list
// whose string leaves are templates), preserving structure. Non-string
// leaves pass through unchanged.
func RenderTree(tree any, ctx Context, mode Mode, filters *Filters, limits Limits) (any, error) {
	switch v := tree.(type) {
	case string:
		t, err := Parse(v, limits)
		if err != nil {
			return nil, domain.NewError(domain.ErrCodeTemplate, err.Error(), nil)
		}
		out, err := Render(t, ctx, mode, filters, limits)
		if err != nil {
			return nil, err
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			rv, err := RenderTree(child, ctx, mode, filters, limits)
			if err != nil {
				return nil, err
			}
			out[k] = rv
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			rv, err := RenderTree(child, ctx, mode, filters, limits)
			if err != nil {
				return nil, err
			}
			out[i] = rv
		}
		return out, nil
	default:
		return v, nil
	}
}

func (s *evalState) renderBlocks(blocks []*Block, sb *strings.Builder) error {
	for _, b := range blocks {
		switch b.Kind {
		case BlockLiteral:
			sb.WriteString(b.Text)
		case BlockExpr:
			v, err := s.evalExpr(b.Expr)
			if err != nil {
				return err
			}
			sb.WriteString(stringify(v))
		case BlockIf:
			if err := s.renderIf(b, sb); err != nil {
				return err
			}
		case BlockFor:
			if err := s.renderFor(b, sb); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *evalState) renderIf(b *Block, sb *strings.Builder) error {
	for _, branch := range b.Branches {
		v, err := s.evalExpr(branch.Cond)
		if err != nil {
			return err
		}
		if truthy(v) {
			return s.renderBlocks(branch.Body, sb)
		}
	}
	return s.renderBlocks(b.Else, sb)
}

func (s *evalState) renderFor(b *Block, sb *strings.Builder) error {
	coll, err := s.evalExpr(b.Expr)
	if err != nil {
		return err
	}
	items, ok := coll.([]any)
	if !ok {
		if coll == nil {
			return nil
		}
		return domain.NewError(domain.ErrCodeTemplate, fmt.Sprintf("for loop collection is not a list (got %T)", coll), nil)
	}
	max := s.limits.MaxForIterations
	if max <= 0 {
		max = 10_000
	}
	if len(items) > max {
		return domain.NewError(domain.ErrCodeTemplate, fmt.Sprintf("for loop exceeds max iterations %d", max), nil)
	}
	for _, item := range items {
		pop := s.pushLocal(b.Var, item)
		err := s.renderBlocks(b.Body, sb)
		pop()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *evalState) evalExpr(n *Node) (any, error) {
	s.depth++
	defer func() { s.depth-- }()
	maxDepth := s.limits.MaxExpressionDepth
	if maxDepth <= 0 {
		maxDepth = 100
	}
	if s.depth > maxDepth {
		return nil, domain.NewError(domain.ErrCodeExpression, fmt.Sprintf("expression recursion exceeds max depth %d", maxDepth), nil)
	}
	switch n.Kind {
	case KindLiteral:
		return n.Value(), nil
	case KindGrouped:
		return s.evalExpr(n.Children[0])
	case KindVariable:
		return s.evalPath(n.Path())
	case KindBinaryOp:
		return s.evalBinOp(n)
	case KindCall:
		return s.evalCall(n)
	default:
		return nil, fmt.Errorf("unsupported node kind %v", n.Kind)
	}
}

// evalPath resolves a variable node's path: a "$"-prefixed string uses
// the full expression grammar against s.ctx; a bare identifier (possibly
// dotted) is looked up first in the innermost for-loop local scope,
// falling back to a same-named top-level context entry.
func (s *evalState) evalPath(path string) (any, error) {
	if strings.HasPrefix(path, "$") {
		v, err := expression.Eval(path, s.ctx)
		if err != nil {
			if s.mode == Graceful {
				return nil, nil
			}
			return nil, err
		}
		return v, nil
	}
	segs := strings.Split(path, ".")
	head := segs[0]
	var cur any
	if v, ok := s.lookupLocal(head); ok {
		cur = v
	} else if v, ok := s.ctx[head]; ok {
		cur = v
	} else if s.mode == Strict {
		return nil, domain.NewError(domain.ErrCodeExpression, fmt.Sprintf("path_not_found: undefined variable %q", head), nil)
	} else {
		return nil, nil
	}
	for _, f := range segs[1:] {
		if cur == nil {
			return nil, nil
		}
		if m, ok := cur.(map[string]any); ok {
			cur = m[f]
			continue
		}
		return nil, nil
	}
	return cur, nil
}

func (s *evalState) evalBinOp(n *Node) (any, error) {
	l, err := s.evalExpr(n.Children[0])
	if err != nil {
		return nil, err
	}
	r, err := s.evalExpr(n.Children[1])
	if err != nil {
		return nil, err
	}
	return applyBinOp(n.Op(), l, r)
}

func (s *evalState) evalCall(n *Node) (any, error) {
	args := make([]any, len(n.Children))
	for i, c := range n.Children {
		v, err := s.evalExpr(c)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	fn, ok := s.filters.Lookup(n.Function())
	if !ok {
		return nil, domain.NewError(domain.ErrCodeTemplate, fmt.Sprintf("unknown filter/function %q", n.Function()), nil)
	}
	v, err := fn(args...)
	if err != nil {
		return nil, domain.NewError(domain.ErrCodeTemplate, fmt.Sprintf("filter %q: %v", n.Function(), err), nil)
	}
	return v, nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int64:
		return x != 0
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", x)
	}
}
