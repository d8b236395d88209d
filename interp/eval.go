package interp

import (
	"fmt"

	"github.com/stepwise-dev/stepwise/ast"
)

// evalStep is component C5 (spec.md §4.4): it inspects the top frame's node
// and performs exactly one unit of progress — pushing a child frame,
// popping the current one with a value via ret, or mutating the frame's own
// Index/SubIndex/State/loopPhase. It never recurses into the evaluation of
// a child node directly; every descent happens by pushing a frame that a
// later Step call will drive.
func (ex *Execution) evalStep() error {
	f := ex.state.stack.Top()

	switch n := f.Node.(type) {
	case *ast.Program:
		if !f.entered {
			hoistDeclarations(f.Scope, n.Body)
			f.entered = true
		}
		return ex.stepStatements(f, n.Body)

	case *ast.BlockStatement:
		if !f.entered {
			f.Scope = f.Scope.Child()
			hoistDeclarations(f.Scope, n.Body)
			f.entered = true
		}
		return ex.stepStatements(f, n.Body)

	case *ast.ExpressionStatement:
		return ex.stepExpressionStatement(f, n)

	case *ast.VariableDeclaration:
		return ex.stepVariableDeclaration(f, n)

	case *ast.IfStatement:
		return ex.stepIf(f, n)

	case *ast.ForStatement:
		return ex.stepFor(f, n)

	case *ast.WhileStatement:
		return ex.stepWhile(f, n)

	case *ast.DoWhileStatement:
		return ex.stepDoWhile(f, n)

	case *ast.BreakStatement:
		return ex.unwindTo(func(fr *Frame) bool { return isLoopNode(fr.Node) }, Undefined, "break outside of a loop")

	case *ast.ContinueStatement:
		return ex.unwindContinue()

	case *ast.ReturnStatement:
		return ex.stepReturn(f, n)

	case *ast.Identifier:
		return ex.stepIdentifier(f, n)

	case *ast.ThisExpression:
		return ex.stepThis(f)

	case *ast.MemberExpression:
		return ex.stepMember(f, n)

	case *ast.UnaryExpression:
		return ex.stepUnary(f, n)

	case *ast.BinaryExpression:
		return ex.stepBinary(f, n)

	case *ast.ConditionalExpression:
		return ex.stepConditional(f, n)

	case *ast.AssignmentExpression:
		return ex.stepAssignment(f, n)

	case *ast.UpdateExpression:
		return ex.stepUpdate(f, n)

	case *ast.ObjectExpression:
		return ex.stepObject(f, n)

	case *ast.ArrayExpression:
		return ex.stepArray(f, n)

	case *ast.CallExpression:
		return ex.stepCall(f, n)

	case *ast.NewExpression:
		return ex.stepNew(f, n)

	case *ast.FunctionExpression:
		ex.ret(newUserFunction(n, f.Scope, ex.runtime, ex.source))
		return nil

	case *ast.ArrowFunctionExpression:
		ex.ret(newArrowFunction(n, f.Scope, ex.runtime, ex.source))
		return nil

	case *ast.NumericLiteral:
		ex.ret(n.Value)
		return nil

	case *ast.StringLiteral:
		ex.ret(n.Value)
		return nil

	case *ast.BooleanLiteral:
		ex.ret(n.Value)
		return nil

	case *ast.NullLiteral:
		ex.ret(Null)
		return nil

	case *ast.RegExpLiteral:
		re, err := compileRegExp(n.Pattern, n.Flags)
		if err != nil {
			return err
		}
		ex.ret(re)
		return nil

	case *ast.AwaitExpression:
		return ex.stepAwait(f, n)

	default:
		return &UnsupportedNodeError{Kind: fmt.Sprintf("%T", n)}
	}
}

// ret pops the top (now-complete) frame, delivers value to its new parent
// through the popped frame's OnRet, and bumps the parent's SubIndex — or,
// if the stack is now empty, finishes the execution (spec.md §4.3 "the
// generic per-frame return protocol").
func (ex *Execution) ret(value Value) {
	depth := ex.state.stack.Len()
	child := ex.state.stack.Pop()
	if ex.runtime != nil && ex.runtime.IsDebug {
		ex.traceReturn(depth, value)
	}
	parent := ex.state.stack.Top()
	if parent == nil {
		ex.finish(value, nil)
		return
	}
	if child.OnRet != nil {
		child.OnRet(parent, value)
	}
	parent.SubIndex++
}

// push allocates and pushes a child frame for node, to be driven by later
// Step calls; onRet is stored on the CHILD so ret() can deliver its value
// to whatever frame is on top when the child eventually completes.
func (ex *Execution) push(node ast.Node, scope *Scope, role Role, onRet OnRet) *Frame {
	child := NewFrame(node, scope, role)
	child.OnRet = onRet
	ex.state.stack.Push(child)
	return child
}

// unwindTo pops frames (discarding them silently, without invoking their
// OnRet) until it finds one matching, then delivers value to that frame's
// parent exactly as ret() would — the shared mechanism behind Break (target
// = nearest loop) and Return (target = nearest call frame).
func (ex *Execution) unwindTo(match func(*Frame) bool, value Value, errDetail string) error {
	st := ex.state.stack
	for st.Len() > 0 {
		top := st.Top()
		if match(top) {
			depth := st.Len()
			child := st.Pop()
			if ex.runtime != nil && ex.runtime.IsDebug {
				ex.traceReturn(depth, value)
			}
			parent := st.Top()
			if parent == nil {
				ex.finish(value, nil)
				return nil
			}
			if child.OnRet != nil {
				child.OnRet(parent, value)
			}
			parent.SubIndex++
			return nil
		}
		st.Pop()
	}
	return &StateInvariantError{Detail: errDetail}
}

// unwindContinue pops frames up to (but not including) the nearest loop
// frame, then resets that loop's phase to re-enter its next iteration in
// place — it never pops the loop frame itself.
func (ex *Execution) unwindContinue() error {
	st := ex.state.stack
	for st.Len() > 0 {
		top := st.Top()
		if isLoopNode(top.Node) {
			resetLoopForContinue(top)
			return nil
		}
		st.Pop()
	}
	return &StateInvariantError{Detail: "continue outside of a loop"}
}

// hoistDeclarations pre-declares (TDZ-Uninitialized) every top-level
// VariableDeclaration binding directly in body, before any statement in
// body runs — the mechanism that makes UninitializedReadError observable
// for a binding referenced earlier in its own block (spec.md §3, §8
// property 3). It does not recurse into nested blocks, matching
// block-scoped (not function-scoped) hoisting.
func hoistDeclarations(scope *Scope, body []ast.Node) {
	for _, stmt := range body {
		if vd, ok := stmt.(*ast.VariableDeclaration); ok {
			for _, d := range vd.Declarations {
				scope.Declare(d.Name)
			}
		}
	}
}

// stepStatements is the generic statement-list driver shared by Program and
// BlockStatement: push each child in order, threading the last child's
// value through as this list's own completion value (so a REPL, or a
// function body's implicit completion, can observe it).
func (ex *Execution) stepStatements(f *Frame, body []ast.Node) error {
	if f.Index >= len(body) {
		// A function call body (Role==RoleCall) that falls off the end
		// without an explicit return always completes with Undefined;
		// threading its last statement's value through would make
		// fall-through indistinguishable from `return <lastExprValue>`.
		// Program/block bodies elsewhere still thread the last value, so a
		// REPL can echo it.
		if f.Role == RoleCall {
			ex.ret(Undefined)
			return nil
		}
		last := f.State
		if last == nil {
			last = Undefined
		}
		ex.ret(last)
		return nil
	}
	stmt := body[f.Index]
	f.Index++
	ex.push(stmt, f.Scope, RoleNone, AsStateRet)
	return nil
}

func (ex *Execution) stepExpressionStatement(f *Frame, n *ast.ExpressionStatement) error {
	if f.SubIndex == 0 {
		ex.push(n.Expression, f.Scope, RoleNone, AsStateRet)
		return nil
	}
	v := f.State
	if v == nil {
		v = Undefined
	}
	ex.ret(v)
	return nil
}

func (ex *Execution) stepVariableDeclaration(f *Frame, n *ast.VariableDeclaration) error {
	if f.Index >= len(n.Declarations) {
		ex.ret(Undefined)
		return nil
	}
	d := n.Declarations[f.Index]
	if d.Init == nil {
		f.Scope.Set(d.Name, Undefined)
		f.Index++
		return nil
	}
	if f.SubIndex == 0 {
		ex.push(d.Init, f.Scope, RoleNone, AsStateRet)
		return nil
	}
	v := f.State
	if v == nil {
		v = Undefined
	}
	f.Scope.Set(d.Name, v)
	f.State = nil
	f.SubIndex = 0
	f.Index++
	return nil
}

func (ex *Execution) stepIf(f *Frame, n *ast.IfStatement) error {
	switch f.SubIndex {
	case 0:
		ex.push(n.Test, f.Scope, RoleNone, AsStateRet)
		return nil
	case 1:
		cond := truthy(f.State)
		f.State = nil
		if cond {
			ex.push(n.Consequent, f.Scope, RoleNone, AsStateRet)
			return nil
		}
		if n.Alternate != nil {
			ex.push(n.Alternate, f.Scope, RoleNone, AsStateRet)
			return nil
		}
		ex.ret(Undefined)
		return nil
	default:
		v := f.State
		if v == nil {
			v = Undefined
		}
		ex.ret(v)
		return nil
	}
}

func (ex *Execution) stepConditional(f *Frame, n *ast.ConditionalExpression) error {
	switch f.SubIndex {
	case 0:
		ex.push(n.Test, f.Scope, RoleNone, AsStateRet)
		return nil
	case 1:
		cond := truthy(f.State)
		f.State = nil
		if cond {
			ex.push(n.Consequent, f.Scope, RoleNone, AsStateRet)
		} else {
			ex.push(n.Alternate, f.Scope, RoleNone, AsStateRet)
		}
		return nil
	default:
		v := f.State
		if v == nil {
			v = Undefined
		}
		ex.ret(v)
		return nil
	}
}

// Loop phases. Each loop kind uses f.loopPhase to track which clause is
// active and f.SubIndex (auto-advanced by ret()) to know whether that
// clause's child frame has been pushed yet (SubIndex==0) or has produced a
// result (SubIndex==1, reset back to 0 once consumed).
const (
	forInit = iota
	forTest
	forBody
	forUpdate

	whileTest
	whileBody

	doBody
	doTest
)

// stepFor's f.Scope holds init/test/update's shared bindings for the whole
// loop; forBody copies it fresh each iteration (see ShallowCopy) so the
// body's closures don't all end up capturing the one binding update mutates.
func (ex *Execution) stepFor(f *Frame, n *ast.ForStatement) error {
	if !f.entered {
		f.Scope = f.Scope.Child()
		f.entered = true
		f.loopPhase = forInit
	}
	switch f.loopPhase {
	case forInit:
		if n.Init == nil {
			f.loopPhase = forTest
			return nil
		}
		if f.SubIndex == 0 {
			ex.push(n.Init, f.Scope, RoleNone, DiscardRet)
			return nil
		}
		f.SubIndex = 0
		f.loopPhase = forTest
		return nil

	case forTest:
		if n.Test == nil {
			f.loopPhase = forBody
			return nil
		}
		if f.SubIndex == 0 {
			ex.push(n.Test, f.Scope, RoleNone, AsStateRet)
			return nil
		}
		cond := truthy(f.State)
		f.State = nil
		f.SubIndex = 0
		if !cond {
			ex.ret(Undefined)
			return nil
		}
		f.loopPhase = forBody
		return nil

	case forBody:
		if f.SubIndex == 0 {
			// A fresh copy per iteration so a closure created in the body
			// captures this iteration's own binding of the induction
			// variable rather than the single scope init/test/update share.
			ex.push(n.Body, f.Scope.ShallowCopy(), RoleNone, DiscardRet)
			return nil
		}
		f.SubIndex = 0
		f.loopPhase = forUpdate
		return nil

	case forUpdate:
		if n.Update == nil {
			f.loopPhase = forTest
			return nil
		}
		if f.SubIndex == 0 {
			ex.push(n.Update, f.Scope, RoleNone, DiscardRet)
			return nil
		}
		f.SubIndex = 0
		f.loopPhase = forTest
		return nil
	}
	return &StateInvariantError{Detail: "unreachable for-loop phase"}
}

func (ex *Execution) stepWhile(f *Frame, n *ast.WhileStatement) error {
	if !f.entered {
		f.entered = true
		f.loopPhase = whileTest
	}
	switch f.loopPhase {
	case whileTest:
		if f.SubIndex == 0 {
			ex.push(n.Test, f.Scope, RoleNone, AsStateRet)
			return nil
		}
		cond := truthy(f.State)
		f.State = nil
		f.SubIndex = 0
		if !cond {
			ex.ret(Undefined)
			return nil
		}
		f.loopPhase = whileBody
		return nil

	case whileBody:
		if f.SubIndex == 0 {
			ex.push(n.Body, f.Scope, RoleNone, DiscardRet)
			return nil
		}
		f.SubIndex = 0
		f.loopPhase = whileTest
		return nil
	}
	return &StateInvariantError{Detail: "unreachable while-loop phase"}
}

// stepDoWhile implements the post-test loop. Per spec.md's Design Notes,
// Continue inside a do/while jumps back into the body rather than to the
// test — a deliberately literal, uncorrected behavior (see DESIGN.md).
func (ex *Execution) stepDoWhile(f *Frame, n *ast.DoWhileStatement) error {
	if !f.entered {
		f.entered = true
		f.loopPhase = doBody
	}
	switch f.loopPhase {
	case doBody:
		if f.SubIndex == 0 {
			ex.push(n.Body, f.Scope, RoleNone, DiscardRet)
			return nil
		}
		f.SubIndex = 0
		f.loopPhase = doTest
		return nil

	case doTest:
		if f.SubIndex == 0 {
			ex.push(n.Test, f.Scope, RoleNone, AsStateRet)
			return nil
		}
		cond := truthy(f.State)
		f.State = nil
		f.SubIndex = 0
		if !cond {
			ex.ret(Undefined)
			return nil
		}
		f.loopPhase = doBody
		return nil
	}
	return &StateInvariantError{Detail: "unreachable do-while phase"}
}

// resetLoopForContinue points a loop frame at the phase that begins its
// next iteration, without popping it.
func resetLoopForContinue(f *Frame) {
	f.SubIndex = 0
	f.State = nil
	switch f.Node.(type) {
	case *ast.ForStatement:
		f.loopPhase = forUpdate
	case *ast.WhileStatement:
		f.loopPhase = whileTest
	case *ast.DoWhileStatement:
		f.loopPhase = doBody
	}
}

func (ex *Execution) stepReturn(f *Frame, n *ast.ReturnStatement) error {
	if n.Argument == nil {
		return ex.unwindTo(func(fr *Frame) bool { return fr.Role == RoleCall }, Undefined, "return outside of a call")
	}
	if f.SubIndex == 0 {
		ex.push(n.Argument, f.Scope, RoleNone, AsStateRet)
		return nil
	}
	v := f.State
	if v == nil {
		v = Undefined
	}
	return ex.unwindTo(func(fr *Frame) bool { return fr.Role == RoleCall }, v, "return outside of a call")
}

func (ex *Execution) stepIdentifier(f *Frame, n *ast.Identifier) error {
	switch f.Role {
	case RoleKey:
		ex.ret(n.Name)
		return nil
	case RoleLeft:
		ex.ret(&LValue{scope: f.Scope, name: n.Name})
		return nil
	case RoleCallee:
		v, err := lookupIdentifier(f.Scope, n.Name)
		if err != nil {
			return err
		}
		ex.ret(&calleeResult{fn: v, this: Undefined})
		return nil
	default:
		v, err := lookupIdentifier(f.Scope, n.Name)
		if err != nil {
			return err
		}
		ex.ret(v)
		return nil
	}
}

func lookupIdentifier(scope *Scope, name string) (Value, error) {
	v, ok := scope.Lookup(name)
	if !ok {
		return nil, &UndefinedIdentifierError{Name: name}
	}
	if v == Uninitialized {
		return nil, &UninitializedReadError{Name: name}
	}
	return v, nil
}

func (ex *Execution) stepThis(f *Frame) error {
	v, ok := f.Scope.Lookup("this")
	if !ok {
		v = Undefined
	}
	if f.Role == RoleCallee {
		ex.ret(&calleeResult{fn: v, this: Undefined})
		return nil
	}
	ex.ret(v)
	return nil
}

// calleeResult is what evaluating a CallExpression's Callee in RoleCallee
// produces: the function value together with the `this` its own base
// expression implies (spec.md §4.4 "{function, this}").
type calleeResult struct {
	fn   Value
	this Value
}

func (ex *Execution) stepMember(f *Frame, n *ast.MemberExpression) error {
	switch f.SubIndex {
	case 0:
		ex.push(n.Object, f.Scope, RoleNone, AsStatePropRet("object"))
		return nil
	case 1:
		obj, _ := f.State.(*Object)
		baseVal := obj.Get("object")
		if n.Optional && IsNullish(baseVal) {
			ex.ret(Undefined)
			return nil
		}
		if n.Computed {
			ex.push(n.Property, f.Scope, RoleNone, AsStatePropRet("key"))
			return nil
		}
		id, ok := n.Property.(*ast.Identifier)
		if !ok {
			return &UnsupportedNodeError{Kind: "non-identifier property name"}
		}
		obj.Set("key", id.Name)
		return ex.finishMember(f, n)
	default:
		return ex.finishMember(f, n)
	}
}

func (ex *Execution) finishMember(f *Frame, n *ast.MemberExpression) error {
	obj, _ := f.State.(*Object)
	baseVal := obj.Get("object")
	key, _ := obj.Get("key").(string)
	switch f.Role {
	case RoleLeft:
		ex.ret(&LValue{obj: baseVal, key: key})
		return nil
	case RoleCallee:
		v, err := getProperty(baseVal, key)
		if err != nil {
			return err
		}
		ex.ret(&calleeResult{fn: v, this: baseVal})
		return nil
	default:
		v, err := getProperty(baseVal, key)
		if err != nil {
			return err
		}
		ex.ret(v)
		return nil
	}
}

func (ex *Execution) stepUnary(f *Frame, n *ast.UnaryExpression) error {
	// typeof on a bare identifier must not throw for an undeclared name.
	if n.Operator == "typeof" {
		if id, ok := n.Argument.(*ast.Identifier); ok {
			v, ok := f.Scope.Lookup(id.Name)
			if !ok {
				ex.ret(typeOf(Undefined))
				return nil
			}
			if v == Uninitialized {
				return &UninitializedReadError{Name: id.Name}
			}
			ex.ret(typeOf(v))
			return nil
		}
	}
	if f.SubIndex == 0 {
		ex.push(n.Argument, f.Scope, RoleNone, AsStateRet)
		return nil
	}
	v := f.State
	switch n.Operator {
	case "!":
		ex.ret(!truthy(v))
	case "-":
		ex.ret(-toNumber(v))
	case "+":
		ex.ret(toNumber(v))
	case "~":
		ex.ret(float64(^toInt32(v)))
	case "void":
		ex.ret(Undefined)
	case "typeof":
		ex.ret(typeOf(v))
	default:
		return &UnsupportedOperatorError{Operator: n.Operator}
	}
	return nil
}

func (ex *Execution) stepBinary(f *Frame, n *ast.BinaryExpression) error {
	switch n.Operator {
	case "&&", "||", "??":
		return ex.stepLogical(f, n)
	}
	switch f.SubIndex {
	case 0:
		ex.push(n.Left, f.Scope, RoleNone, AsStatePropRet("left"))
		return nil
	case 1:
		ex.push(n.Right, f.Scope, RoleNone, AsStatePropRet("right"))
		return nil
	default:
		obj, _ := f.State.(*Object)
		left := obj.Get("left")
		right := obj.Get("right")
		v, err := binaryOp(n.Operator, left, right)
		if err != nil {
			return err
		}
		ex.ret(v)
		return nil
	}
}

func (ex *Execution) stepLogical(f *Frame, n *ast.BinaryExpression) error {
	switch f.SubIndex {
	case 0:
		ex.push(n.Left, f.Scope, RoleNone, AsStateRet)
		return nil
	case 1:
		left := f.State
		var short bool
		switch n.Operator {
		case "&&":
			short = !truthy(left)
		case "||":
			short = truthy(left)
		case "??":
			short = !IsNullish(left)
		}
		if short {
			ex.ret(left)
			return nil
		}
		f.State = nil
		ex.push(n.Right, f.Scope, RoleNone, AsStateRet)
		return nil
	default:
		v := f.State
		if v == nil {
			v = Undefined
		}
		ex.ret(v)
		return nil
	}
}

// assignPending threads the L-value, the pre-assignment current value (for
// compound operators), and the right-hand value across an
// AssignmentExpression's phases.
type assignPending struct {
	lv  *LValue
	cur Value
	val Value
}

func (ex *Execution) stepAssignment(f *Frame, n *ast.AssignmentExpression) error {
	switch f.SubIndex {
	case 0:
		ex.push(n.Left, f.Scope, RoleLeft, AsStateRet)
		return nil
	case 1:
		lv, ok := f.State.(*LValue)
		if !ok {
			return &StateInvariantError{Detail: "assignment target is not an lvalue"}
		}
		if n.Operator == "=" {
			f.State = &assignPending{lv: lv}
			ex.push(n.Right, f.Scope, RoleNone, func(parent *Frame, value Value) {
				parent.State.(*assignPending).val = value
			})
			return nil
		}
		cur, err := lv.Get()
		if err != nil {
			return err
		}
		switch n.Operator {
		case "&&=":
			if !truthy(cur) {
				ex.ret(cur)
				return nil
			}
		case "||=":
			if truthy(cur) {
				ex.ret(cur)
				return nil
			}
		case "??=":
			if !IsNullish(cur) {
				ex.ret(cur)
				return nil
			}
		}
		f.State = &assignPending{lv: lv, cur: cur}
		ex.push(n.Right, f.Scope, RoleNone, func(parent *Frame, value Value) {
			parent.State.(*assignPending).val = value
		})
		return nil
	default:
		ap, ok := f.State.(*assignPending)
		if !ok {
			return &StateInvariantError{Detail: "assignment missing pending state"}
		}
		var result Value
		if n.Operator == "=" || n.Operator == "&&=" || n.Operator == "||=" || n.Operator == "??=" {
			result = ap.val
		} else {
			op := n.Operator[:len(n.Operator)-1] // "+=" -> "+"
			v, err := binaryOp(op, ap.cur, ap.val)
			if err != nil {
				return err
			}
			result = v
		}
		if err := ap.lv.Set(result); err != nil {
			return err
		}
		ex.ret(result)
		return nil
	}
}

func (ex *Execution) stepUpdate(f *Frame, n *ast.UpdateExpression) error {
	if f.SubIndex == 0 {
		ex.push(n.Argument, f.Scope, RoleLeft, AsStateRet)
		return nil
	}
	lv, ok := f.State.(*LValue)
	if !ok {
		return &StateInvariantError{Detail: "update target is not an lvalue"}
	}
	cur, err := lv.Get()
	if err != nil {
		return err
	}
	old := toNumber(cur)
	var next float64
	switch n.Operator {
	case "++":
		next = old + 1
	case "--":
		next = old - 1
	default:
		return &UnsupportedOperatorError{Operator: n.Operator}
	}
	if err := lv.Set(next); err != nil {
		return err
	}
	if n.Prefix {
		ex.ret(next)
	} else {
		ex.ret(old)
	}
	return nil
}

func (ex *Execution) stepObject(f *Frame, n *ast.ObjectExpression) error {
	obj, _ := f.State.(*Object)
	if obj == nil {
		obj = NewObject()
		f.State = obj
	}
	if f.Index >= len(n.Properties) {
		ex.ret(obj)
		return nil
	}

	switch p := n.Properties[f.Index].(type) {
	case *ast.SpreadElement:
		if f.SubIndex == 0 {
			ex.push(p.Argument, f.Scope, RoleNone, func(parent *Frame, value Value) {
				if src, ok := value.(*Object); ok {
					o := parent.State.(*Object)
					for _, k := range src.Keys() {
						o.Set(k, src.Get(k))
					}
				}
			})
			return nil
		}
		f.SubIndex = 0
		f.Index++
		return nil

	case *ast.ObjectMethod:
		key, ok := staticKeyName(p.Key)
		if !ok {
			if f.SubIndex == 0 {
				ex.push(p.Key, f.Scope, RoleKey, func(parent *Frame, value Value) {
					parent.Name = toDisplayString(value)
				})
				return nil
			}
			key = f.Name
		}
		obj.Set(key, newUserFunction(p.Function, f.Scope, ex.runtime, ex.source))
		f.Name = ""
		f.SubIndex = 0
		f.Index++
		return nil

	case *ast.ObjectProperty:
		var key string
		haveKey := !p.Computed
		if haveKey {
			key, haveKey = staticKeyName(p.Key)
		}
		if !haveKey {
			if f.SubIndex == 0 {
				ex.push(p.Key, f.Scope, RoleKey, func(parent *Frame, value Value) {
					parent.Name = toDisplayString(value)
				})
				return nil
			}
			key = f.Name
		}
		if f.SubIndex <= 1 {
			ex.push(p.Value, f.Scope, RoleNone, func(parent *Frame, value Value) {
				parent.State.(*Object).Set(key, value)
			})
			f.SubIndex = 2
			return nil
		}
		f.Name = ""
		f.SubIndex = 0
		f.Index++
		return nil

	default:
		return &UnsupportedNodeError{Kind: "object property"}
	}
}

func (ex *Execution) stepArray(f *Frame, n *ast.ArrayExpression) error {
	arr, _ := f.State.(*Array)
	if arr == nil {
		arr = NewArray(nil)
		f.State = arr
	}
	if f.Index >= len(n.Elements) {
		ex.ret(arr)
		return nil
	}
	el := n.Elements[f.Index]
	f.Index++
	if el == nil {
		arr.Elements = append(arr.Elements, Undefined)
		return nil
	}
	if sp, ok := el.(*ast.SpreadElement); ok {
		ex.push(sp.Argument, f.Scope, RoleNone, func(parent *Frame, value Value) {
			a := parent.State.(*Array)
			a.Elements = append(a.Elements, spreadValues(value)...)
		})
		return nil
	}
	ex.push(el, f.Scope, RoleNone, func(parent *Frame, value Value) {
		a := parent.State.(*Array)
		a.Elements = append(a.Elements, value)
	})
	return nil
}

// callPending threads a CallExpression's resolved callee/this and
// accumulated argument values across its phases.
type callPending struct {
	this Value
	fn   Value
	args []Value
}

func (ex *Execution) stepCall(f *Frame, n *ast.CallExpression) error {
	cp, _ := f.State.(*callPending)
	if cp == nil {
		ex.push(n.Callee, f.Scope, RoleCallee, func(parent *Frame, value Value) {
			cr, ok := value.(*calleeResult)
			if !ok {
				cr = &calleeResult{fn: value, this: Undefined}
			}
			parent.State = &callPending{this: cr.this, fn: cr.fn}
		})
		return nil
	}

	if n.Optional && IsNullish(cp.fn) {
		ex.ret(Undefined)
		return nil
	}

	if f.Index >= len(n.Arguments) {
		fn, ok := cp.fn.(Callable)
		if !ok {
			return &guestError{Value: "TypeError: value is not a function"}
		}
		v, err := fn.Call(cp.this, cp.args)
		if err != nil {
			return err
		}
		ex.ret(v)
		return nil
	}

	arg := n.Arguments[f.Index]
	f.Index++
	if sp, ok := arg.(*ast.SpreadElement); ok {
		ex.push(sp.Argument, f.Scope, RoleNone, func(parent *Frame, value Value) {
			c := parent.State.(*callPending)
			c.args = append(c.args, spreadValues(value)...)
		})
		return nil
	}
	ex.push(arg, f.Scope, RoleNone, func(parent *Frame, value Value) {
		c := parent.State.(*callPending)
		c.args = append(c.args, value)
	})
	return nil
}

// newPending mirrors callPending for NewExpression, which has no `this` to
// resolve from the callee (the constructed object always plays that role).
type newPending struct {
	fn   Value
	args []Value
}

func (ex *Execution) stepNew(f *Frame, n *ast.NewExpression) error {
	np, _ := f.State.(*newPending)
	if np == nil {
		ex.push(n.Callee, f.Scope, RoleNone, func(parent *Frame, value Value) {
			parent.State = &newPending{fn: value}
		})
		return nil
	}

	if f.Index >= len(n.Arguments) {
		fn, ok := np.fn.(Callable)
		if !ok {
			return &guestError{Value: "TypeError: value is not a constructor"}
		}
		thisObj := NewObject()
		v, err := fn.Call(thisObj, np.args)
		if err != nil {
			return err
		}
		// A constructor that returns a reference value (an object, array, or
		// — as Promise's constructor does — an ObservablePromise) replaces
		// the freshly allocated `this`; anything else keeps it.
		if isConstructedResult(v) {
			if p, ok := v.(*ObservablePromise); ok {
				p.tagRuntime(ex.runtime)
			}
			ex.ret(v)
			return nil
		}
		ex.ret(thisObj)
		return nil
	}

	arg := n.Arguments[f.Index]
	f.Index++
	if sp, ok := arg.(*ast.SpreadElement); ok {
		ex.push(sp.Argument, f.Scope, RoleNone, func(parent *Frame, value Value) {
			c := parent.State.(*newPending)
			c.args = append(c.args, spreadValues(value)...)
		})
		return nil
	}
	ex.push(arg, f.Scope, RoleNone, func(parent *Frame, value Value) {
		c := parent.State.(*newPending)
		c.args = append(c.args, value)
	})
	return nil
}

// stepAwait implements AwaitExpression's three phases (spec.md §4.4,
// §5 "Cancellation"): evaluate the argument, classify and possibly park,
// and — once re-entered after the parked promise settles — resume with its
// value or propagate its rejection/abort.
func (ex *Execution) stepAwait(f *Frame, n *ast.AwaitExpression) error {
	if f.SubIndex == 0 {
		ex.push(n.Argument, f.Scope, RoleNone, AsStateRet)
		return nil
	}

	v := f.State
	var p *ObservablePromise
	switch {
	case isObservablePromise(v):
		p = v.(*ObservablePromise)
	default:
		if t, ok := v.(thenable); ok {
			p = wrapThenable(t)
			f.State = p
		} else {
			ex.ret(v)
			return nil
		}
	}

	if p.State() == Pending {
		ex.state.awaitingPromise = p
		return nil
	}
	ex.state.awaitingPromise = nil
	switch p.State() {
	case Fulfilled:
		ex.ret(p.Value())
		return nil
	case Rejected:
		return p.Err()
	case Aborted:
		return &abortError{}
	}
	return &StateInvariantError{Detail: "await resumed on a still-pending promise"}
}

func isObservablePromise(v Value) bool {
	_, ok := v.(*ObservablePromise)
	return ok
}

// isConstructedResult reports whether v is a reference value a `new`
// constructor could legitimately substitute for its freshly allocated
// `this` (spec.md §4.4 NewExpression). Primitives (and Undefined/Null) do
// not qualify, matching the host language's "constructors returning a
// primitive are ignored" rule.
func isConstructedResult(v Value) bool {
	switch v.(type) {
	case string, float64, bool, undefinedType, nullType:
		return false
	default:
		return v != nil
	}
}
