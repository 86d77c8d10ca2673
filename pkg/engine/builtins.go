package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/samber/lo"

	"github.com/LukeP0WERS/fidget/pkg/graph"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms script source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: rotate-z -> rotate_z
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpShape wraps a node of the script's Context so it can be passed
// between builtins.
type sexpShape struct {
	id graph.NodeID
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(shape %d)", s.id)
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps an offset or scale triple.
type sexpVec3 struct {
	vec [3]float64
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		switch {
		case ok && i+1 < len(args):
			result.kw[name] = args[i+1]
			i++
		case ok:
			result.kw[name] = zygo.SexpNull
		default:
			result.positional = append(result.positional, args[i])
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string or keyword name from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return strings.TrimPrefix(str.S, kwPrefix), nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toVec3 accepts a vec3, or a list or array of three numbers.
func toVec3(s zygo.Sexp) ([3]float64, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil {
		return [3]float64{}, fmt.Errorf("expected vec3: %w", err)
	}
	return toTriple(items)
}

func toTriple(items []zygo.Sexp) ([3]float64, error) {
	var out [3]float64
	if len(items) != 3 {
		return out, fmt.Errorf("expected 3 numbers, got %d", len(items))
	}
	for i, it := range items {
		f, err := toFloat64(it)
		if err != nil {
			return out, fmt.Errorf("component %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}

// toNode turns a shape or a number into a node of the script's Context.
func (s *script) toNode(x zygo.Sexp) (graph.NodeID, error) {
	if sh, ok := x.(*sexpShape); ok {
		return sh.id, nil
	}
	f, err := toFloat64(x)
	if err != nil {
		return 0, fmt.Errorf("expected shape or number: %w", err)
	}
	return s.ctx.Constant(f), nil
}

func (s *script) toNodes(args []zygo.Sexp) ([]graph.NodeID, error) {
	ids := make([]graph.NodeID, len(args))
	for i, a := range args {
		id, err := s.toNode(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		ids[i] = id
	}
	return ids, nil
}

// wrap converts a graph result into a Sexp, prefixing errors with the
// builtin's name.
func wrap(name string, id graph.NodeID, err error) (zygo.Sexp, error) {
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
	}
	return &sexpShape{id: id}, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// unaryBuiltins and binaryBuiltins map script names onto graph ops.
var (
	unaryBuiltins = map[string]graph.Op{
		"neg": graph.OpNeg, "abs": graph.OpAbs, "recip": graph.OpRecip,
		"sqrt": graph.OpSqrt, "square": graph.OpSquare, "sin": graph.OpSin,
		"cos": graph.OpCos, "exp": graph.OpExp, "ln": graph.OpLn,
	}
	binaryBuiltins = map[string]graph.Op{
		"sub": graph.OpSub, "div": graph.OpDiv,
	}
	// foldBuiltins accept one or more operands and fold left.
	foldBuiltins = map[string]graph.Op{
		"add": graph.OpAdd, "mul": graph.OpMul, "min": graph.OpMin, "max": graph.OpMax,
	}
)

// registerBuiltins installs the shape builtins into a zygomys environment.
// The builtins build nodes in the script's Context during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, s *script) {
	// (x) (y) (z)
	for name, axis := range map[string]func() graph.NodeID{"x": s.ctx.X, "y": s.ctx.Y, "z": s.ctx.Z} {
		env.AddFunction(name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 0 {
				return zygo.SexpNull, fmt.Errorf("%s takes no arguments, got %d", name, len(args))
			}
			return &sexpShape{id: axis()}, nil
		})
	}

	// (variable "radius")
	env.AddFunction("variable", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("variable requires a name argument")
		}
		varName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("variable: name: %w", err)
		}
		id, err := s.ctx.Var(varName)
		return wrap(name, id, err)
	})

	// (constant 1.5)
	env.AddFunction("constant", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("constant requires exactly 1 argument, got %d", len(args))
		}
		f, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("constant: %w", err)
		}
		return &sexpShape{id: s.ctx.Constant(f)}, nil
	})

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := toTriple(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %w", err)
		}
		return &sexpVec3{vec: v}, nil
	})

	for fname, op := range unaryBuiltins {
		env.AddFunction(fname, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires exactly 1 argument, got %d", name, len(args))
			}
			a, err := s.toNode(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			id, err := s.ctx.Insert(op, a)
			return wrap(name, id, err)
		})
	}

	for fname, op := range binaryBuiltins {
		env.AddFunction(fname, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires exactly 2 arguments, got %d", name, len(args))
			}
			ids, err := s.toNodes(args)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			id, err := s.ctx.Insert(op, ids[0], ids[1])
			return wrap(name, id, err)
		})
	}

	for fname, op := range foldBuiltins {
		env.AddFunction(fname, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) == 0 {
				return zygo.SexpNull, fmt.Errorf("%s requires at least 1 argument", name)
			}
			ids, err := s.toNodes(args)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			acc := ids[0]
			for _, id := range ids[1:] {
				if acc, err = s.ctx.Insert(op, acc, id); err != nil {
					return wrap(name, 0, err)
				}
			}
			return &sexpShape{id: acc}, nil
		})
	}

	// (circle 1) or (circle :center (list 1 2) :radius 1) or (circle cx cy r)
	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var cx, cy, r float64
		nums, err := floats(pa.positional)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: %w", err)
		}
		switch len(nums) {
		case 0:
			r = 1
		case 1:
			r = nums[0]
		case 3:
			cx, cy, r = nums[0], nums[1], nums[2]
		default:
			return zygo.SexpNull, fmt.Errorf("circle takes a radius or cx cy r, got %d numbers", len(nums))
		}
		if v, ok := pa.kw["radius"]; ok {
			if r, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("circle: radius: %w", err)
			}
		}
		if v, ok := pa.kw["center"]; ok {
			items, err := sexpListToSlice(v)
			if err == nil && len(items) != 2 {
				err = fmt.Errorf("expected 2 numbers, got %d", len(items))
			}
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("circle: center: %w", err)
			}
			c, err := floats(items)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("circle: center: %w", err)
			}
			cx, cy = c[0], c[1]
		}
		id, err := s.ctx.Circle(cx, cy, r)
		return wrap(name, id, err)
	})

	// (sphere 1) or (sphere :center (vec3 0 0 1) :radius 2) or (sphere cx cy cz r)
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var c [3]float64
		r := 1.0
		nums, err := floats(pa.positional)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		switch len(nums) {
		case 0:
		case 1:
			r = nums[0]
		case 4:
			c, r = [3]float64{nums[0], nums[1], nums[2]}, nums[3]
		default:
			return zygo.SexpNull, fmt.Errorf("sphere takes a radius or cx cy cz r, got %d numbers", len(nums))
		}
		if v, ok := pa.kw["radius"]; ok {
			if r, err = toFloat64(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere: radius: %w", err)
			}
		}
		if v, ok := pa.kw["center"]; ok {
			if c, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("sphere: center: %w", err)
			}
		}
		id, err := s.ctx.Sphere(c[0], c[1], c[2], r)
		return wrap(name, id, err)
	})

	// (box :min (vec3 -1 -1 -1) :max (vec3 1 1 1))
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		lower, upper := [3]float64{-1, -1, -1}, [3]float64{1, 1, 1}
		var err error
		if v, ok := pa.kw["min"]; ok {
			if lower, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("box: min: %w", err)
			}
		}
		if v, ok := pa.kw["max"]; ok {
			if upper, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("box: max: %w", err)
			}
		}
		id, err := s.ctx.Box(lower, upper)
		return wrap(name, id, err)
	})

	// (rectangle :min (list -1 -1) :max (list 1 1))
	env.AddFunction("rectangle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		lower, upper := [2]float64{-1, -1}, [2]float64{1, 1}
		for key, dst := range map[string]*[2]float64{"min": &lower, "max": &upper} {
			v, ok := pa.kw[key]
			if !ok {
				continue
			}
			items, err := sexpListToSlice(v)
			if err == nil && len(items) != 2 {
				err = fmt.Errorf("expected 2 numbers, got %d", len(items))
			}
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("rectangle: %s: %w", key, err)
			}
			nums, err := floats(items)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("rectangle: %s: %w", key, err)
			}
			*dst = [2]float64{nums[0], nums[1]}
		}
		id, err := s.ctx.Rectangle(lower, upper)
		return wrap(name, id, err)
	})

	// (translate shape (vec3 1 0 0)) or (translate shape dx dy [dz])
	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		shape, d, err := s.shapeAndVec(name, args, 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		id, err := s.ctx.Translate(shape, d[0], d[1], d[2])
		return wrap(name, id, err)
	})

	// (scale shape 2) or (scale shape (vec3 2 1 1)) or (scale shape sx sy [sz])
	env.AddFunction("scale", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 2 {
			if f, err := toFloat64(args[1]); err == nil {
				shape, err := s.toNode(args[0])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("scale: shape: %w", err)
				}
				id, err := s.ctx.Scale(shape, f, f, f)
				return wrap(name, id, err)
			}
		}
		shape, k, err := s.shapeAndVec(name, args, 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		id, err := s.ctx.Scale(shape, k[0], k[1], k[2])
		return wrap(name, id, err)
	})

	// (rotate-z shape angle), angle in radians
	env.AddFunction("rotate_z", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("rotate-z requires a shape and an angle")
		}
		shape, err := s.toNode(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate-z: shape: %w", err)
		}
		angle, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rotate-z: angle: %w", err)
		}
		id, err := s.ctx.RotateZ(shape, angle)
		return wrap("rotate-z", id, err)
	})

	// (union a b ...) (intersection a b ...)
	for fname, combine := range map[string]func(...graph.NodeID) (graph.NodeID, error){
		"union":        s.ctx.Union,
		"intersection": s.ctx.Intersection,
	} {
		env.AddFunction(fname, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			ids, err := s.toNodes(args)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			id, err := combine(ids...)
			return wrap(name, id, err)
		})
	}

	// (difference a b)
	env.AddFunction("difference", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("difference requires exactly 2 shapes, got %d", len(args))
		}
		ids, err := s.toNodes(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("difference: %w", err)
		}
		id, err := s.ctx.Difference(ids[0], ids[1])
		return wrap(name, id, err)
	})

	// (remap shape :x expr :y expr :z expr); omitted axes map to themselves.
	env.AddFunction("remap", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("remap requires one shape argument")
		}
		shape, err := s.toNode(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remap: shape: %w", err)
		}
		axes := []graph.NodeID{s.ctx.X(), s.ctx.Y(), s.ctx.Z()}
		for i, key := range []string{"x", "y", "z"} {
			if v, ok := pa.kw[key]; ok {
				if axes[i], err = s.toNode(v); err != nil {
					return zygo.SexpNull, fmt.Errorf("remap: %s: %w", key, err)
				}
			}
		}
		id, err := s.ctx.Remap(shape, axes[0], axes[1], axes[2])
		return wrap(name, id, err)
	})

	// (draw shape ...) marks shapes as script output and returns the last.
	env.AddFunction("draw", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			return zygo.SexpNull, fmt.Errorf("draw requires at least one shape")
		}
		ids, err := s.toNodes(args)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("draw: %w", err)
		}
		s.drawn = append(s.drawn, ids...)
		return &sexpShape{id: ids[len(ids)-1]}, nil
	})

	// (sample shape x y z) evaluates a shape at a point.
	env.AddFunction("sample", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("sample requires a shape and x y z")
		}
		shape, err := s.toNode(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sample: shape: %w", err)
		}
		p, err := floats(args[1:])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sample: %w", err)
		}
		v, err := s.ctx.EvalXYZ(shape, p[0], p[1], p[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sample: %w", err)
		}
		return &zygo.SexpFloat{Val: v}, nil
	})
}

func floats(items []zygo.Sexp) ([]float64, error) {
	out := make([]float64, len(items))
	for i, it := range items {
		f, err := toFloat64(it)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// shapeAndVec parses (op shape vec3) or (op shape a b [c]); a missing third
// component takes fill.
func (s *script) shapeAndVec(name string, args []zygo.Sexp, fill float64) (graph.NodeID, [3]float64, error) {
	var v [3]float64
	if len(args) < 2 || len(args) > 4 {
		return 0, v, fmt.Errorf("%s requires a shape and a vector", name)
	}
	shape, err := s.toNode(args[0])
	if err != nil {
		return 0, v, fmt.Errorf("%s: shape: %w", name, err)
	}
	if len(args) == 2 {
		if v, err = toVec3(args[1]); err != nil {
			return 0, v, fmt.Errorf("%s: %w", name, err)
		}
		return shape, v, nil
	}
	nums, err := floats(args[1:])
	if err != nil {
		return 0, v, fmt.Errorf("%s: %w", name, err)
	}
	v = [3]float64{nums[0], nums[1], fill}
	if len(nums) == 3 {
		v[2] = nums[2]
	}
	return shape, v, nil
}

// ---------------------------------------------------------------------------
// Script state
// ---------------------------------------------------------------------------

// script accumulates what a program builds.
type script struct {
	ctx   *graph.Context
	drawn []graph.NodeID
}

// result packages the script's output. Without a draw call the value of
// the last expression is the output, if it is a shape.
func (s *script) result(last zygo.Sexp) *Result {
	shapes := lo.Uniq(s.drawn)
	if len(shapes) == 0 {
		if sh, ok := last.(*sexpShape); ok {
			shapes = []graph.NodeID{sh.id}
		}
	}
	res := &Result{Context: s.ctx, Shapes: shapes}
	for _, f := range graph.Validate(s.ctx) {
		res.Warnings = append(res.Warnings, EvalWarning{Message: f.Message, NodeID: f.NodeID})
	}
	return res
}
