package interp

import "github.com/stepwise-dev/stepwise/ast"

// Role hints how the evaluator should interpret a node being evaluated as
// a child of another frame (spec.md §3, glossary "Role").
type Role int

const (
	// RoleNone is the default: evaluate for its own value.
	RoleNone Role = iota
	// RoleCall marks the frame Return unwinds to: the call's sub-execution
	// root frame.
	RoleCall
	// RoleCallee marks a callee position: Identifier/MemberExpression
	// resolve to a {function, this} pair instead of a plain value.
	RoleCallee
	// RoleKey marks a non-computed property-name position: Identifier
	// resolves to its literal name rather than a scope lookup.
	RoleKey
	// RoleLeft marks an L-value position: Identifier/MemberExpression
	// resolve to an LValue instead of reading through it.
	RoleLeft
)

// OnRet is the value-return protocol between a child frame and its parent
// (spec.md §4.3, glossary "OnRet"). It runs when the child frame pops,
// receiving the parent frame and the child's returned value.
type OnRet func(parent *Frame, value Value)

// DiscardRet ignores the child's return value entirely.
func DiscardRet(parent *Frame, value Value) {}

// AsStateRet assigns the child's return value to the parent's State field.
func AsStateRet(parent *Frame, value Value) {
	parent.State = value
}

// AsStatePropRet returns an OnRet that assigns the child's return value to
// parent.State[prop], lazily creating parent.State as an *Object if nil.
func AsStatePropRet(prop string) OnRet {
	return func(parent *Frame, value Value) {
		obj, ok := parent.State.(*Object)
		if !ok || obj == nil {
			obj = NewObject()
			parent.State = obj
		}
		obj.Set(prop, value)
	}
}

// Frame is one in-progress AST node evaluation record (spec.md §3, §4.3):
// the coroutine-on-a-stack atom that lets the evaluator suspend and
// resume a recursive walk without the host call stack.
type Frame struct {
	Node  ast.Node
	Scope *Scope
	Role  Role
	Name  string // binding name, used when building named functions

	Index    int // position within an ordered child list
	SubIndex int // sub-phase within evaluating one child

	State interface{} // scratch, set by the evaluator or by an OnRet handler
	OnRet OnRet        // invoked by the child frame's ret() when it produces a value

	// loopPhase is scratch used only by For/While/DoWhile frames to track
	// which clause (init/test/body/update) is active; it's kept on Frame
	// rather than threaded through State so Break/Continue unwinding can
	// reset it without type-asserting State.
	loopPhase int

	// entered marks that this frame has already run its one-time setup
	// (child scope creation, declaration hoisting, loop initialization) so
	// a later Step() re-entering the same frame doesn't redo it.
	entered bool
}

// NewFrame allocates a frame for node evaluated against scope, with the
// given role.
func NewFrame(node ast.Node, scope *Scope, role Role) *Frame {
	return &Frame{Node: node, Scope: scope, Role: role}
}

// ExecutionState is the read-only-to-the-host observation surface spec.md
// §3/§6 describes: `{stack, awaitingPromise}`.
type ExecutionState struct {
	stack           *Stack
	awaitingPromise *ObservablePromise
}

// Stack returns the live frame stack. It is empty iff the execution has
// terminated (spec.md §3 invariant).
func (es *ExecutionState) Stack() []*Frame { return es.stack.Frames() }

// AwaitingPromise returns the promise currently suspending this
// execution, or nil if it is not parked at an await.
func (es *ExecutionState) AwaitingPromise() *ObservablePromise { return es.awaitingPromise }
