// Package template implements the grammar-driven (not regex) parser and
// evaluator for the core's `{{ }}` / `{% %}` / `{# #}` template surface
// (spec §4.2): a uniform 3-tuple expression AST, operator precedence,
// pipe sugar, and the single-expression-returns-typed-value rule.
package template

// Kind is one of the expression AST node kinds in the uniform
// {type, metadata, children} shape.
type Kind int

const (
	KindLiteral Kind = iota
	KindVariable
	KindBinaryOp
	KindCall
	KindPipe
	KindGrouped
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindVariable:
		return "variable"
	case KindBinaryOp:
		return "binary_op"
	case KindCall:
		return "call"
	case KindPipe:
		return "pipe"
	case KindGrouped:
		return "grouped"
	default:
		return "unknown"
	}
}

// Node is one expression AST node: {type, metadata, children}. Which
// Metadata keys are populated depends on Kind:
//   - literal:   "value"
//   - variable:  "path" (string, e.g. "$input.user.email" or a bare identifier)
//   - binary_op: "op"
//   - call:      "function"
type Node struct {
	Kind     Kind
	Metadata map[string]any
	Children []*Node
}

func lit(v any) *Node                 { return &Node{Kind: KindLiteral, Metadata: map[string]any{"value": v}} }
func varNode(path string) *Node       { return &Node{Kind: KindVariable, Metadata: map[string]any{"path": path}} }
func binOp(op string, l, r *Node) *Node {
	return &Node{Kind: KindBinaryOp, Metadata: map[string]any{"op": op}, Children: []*Node{l, r}}
}
func call(fn string, args []*Node) *Node {
	return &Node{Kind: KindCall, Metadata: map[string]any{"function": fn}, Children: args}
}
func grouped(inner *Node) *Node { return &Node{Kind: KindGrouped, Children: []*Node{inner}} }

// Op returns Metadata["op"] for a binary_op node.
func (n *Node) Op() string { s, _ := n.Metadata["op"].(string); return s }

// Function returns Metadata["function"] for a call node.
func (n *Node) Function() string { s, _ := n.Metadata["function"].(string); return s }

// Path returns Metadata["path"] for a variable node.
func (n *Node) Path() string { s, _ := n.Metadata["path"].(string); return s }

// Value returns Metadata["value"] for a literal node.
func (n *Node) Value() any { return n.Metadata["value"] }

// Block is one piece of a parsed template: literal text, an expression
// block, an if/elsif/else, or a for loop. Comments are dropped by the
// parser and never produce a Block.
type Block struct {
	Kind   BlockKind
	Text   string   // literal
	Expr   *Node    // exprBlock, forBlock (collection)
	Var    string   // forBlock loop variable name
	Body   []*Block // forBlock, ifBlock "then" body of the matched-so-far branch is in Branches
	Branches []IfBranch
	Else   []*Block
}

type BlockKind int

const (
	BlockLiteral BlockKind = iota
	BlockExpr
	BlockIf
	BlockFor
)

// IfBranch is one `if`/`elsif` arm.
type IfBranch struct {
	Cond *Node
	Body []*Block
}

// Template is a parsed, renderable sequence of blocks.
type Template struct {
	Blocks []*Block
	// singleExpr holds the lone expression when the entire source is
	// exactly one {{ expr }} block with no surrounding literal text, so
	// Render can return its typed value rather than a string.
	singleExpr *Node
}
