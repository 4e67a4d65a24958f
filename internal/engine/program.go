package engine

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/bookernath/stencil-cli/internal/helpers"
)

// Program is the precompiled form of one partial: a flat instruction list a
// runtime walks to produce output. It is plain data, so a runtime that
// executes it needs no template parser and nothing resembling eval.
type Program []Op

// Op is one render instruction.
type Op struct {
	// Kind is one of "text", "var", "helper", "partial", "if", "range".
	Kind string `json:"op"`

	// Text is the literal output of a text op.
	Text string `json:"text,omitempty"`

	// Path addresses a value in the render data for var, if, and range ops.
	// An empty path means the data itself.
	Path []string `json:"path,omitempty"`

	// Name and Args describe a helper call.
	Name string `json:"name,omitempty"`
	Args []Arg  `json:"args,omitempty"`

	// ID is the target of a partial op.
	ID string `json:"id,omitempty"`

	// Body and Else are the branches of if and range ops.
	Body Program `json:"body,omitempty"`
	Else Program `json:"else,omitempty"`
}

// Arg is one helper-call argument: a literal or a data path.
type Arg struct {
	Kind string   `json:"kind"`
	Lit  any      `json:"lit,omitempty"`
	Path []string `json:"path,omitempty"`
}

// GenerateProgram precompiles flat template source into a Program. The input
// is the same preprocessed source the engine parses; partial inclusions are
// kept as partial ops so the runtime resolves them by identifier.
func GenerateProgram(source string) (Program, error) {
	toks, err := tokenizeSource(source)
	if err != nil {
		return nil, err
	}
	prog, rest, term, err := parseOps(toks)
	if err != nil {
		return nil, err
	}
	if term != "" || len(rest) != 0 {
		return nil, fmt.Errorf("unexpected {{%s}} outside a block", term)
	}
	return prog, nil
}

type srcToken struct {
	literal bool
	value   string
}

func tokenizeSource(source string) ([]srcToken, error) {
	var toks []srcToken
	for len(source) > 0 {
		open := strings.Index(source, "{{")
		if open < 0 {
			toks = append(toks, srcToken{literal: true, value: source})
			break
		}
		if open > 0 {
			toks = append(toks, srcToken{literal: true, value: source[:open]})
		}
		rest := source[open+2:]
		closing := strings.Index(rest, "}}")
		if closing < 0 {
			return nil, fmt.Errorf("unterminated action at offset %d", open)
		}
		toks = append(toks, srcToken{value: strings.TrimSpace(rest[:closing])})
		source = rest[closing+2:]
	}
	return toks, nil
}

// parseOps consumes tokens until it reaches an {{else}}, an {{end}}, or the
// end of input, returning the terminator it stopped on.
func parseOps(toks []srcToken) (Program, []srcToken, string, error) {
	var prog Program
	for len(toks) > 0 {
		tok := toks[0]
		toks = toks[1:]

		if tok.literal {
			prog = append(prog, Op{Kind: "text", Text: tok.value})
			continue
		}

		fields := strings.Fields(tok.value)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "end", "else":
			return prog, toks, fields[0], nil
		case "if", "range":
			if len(fields) != 2 || !strings.HasPrefix(fields[1], ".") {
				return nil, nil, "", fmt.Errorf("unsupported %s condition %q", fields[0], tok.value)
			}
			op := Op{Kind: fields[0], Path: splitPath(fields[1])}
			body, rest, term, err := parseOps(toks)
			if err != nil {
				return nil, nil, "", err
			}
			op.Body = body
			if term == "else" {
				var elseBody Program
				elseBody, rest, term, err = parseOps(rest)
				if err != nil {
					return nil, nil, "", err
				}
				op.Else = elseBody
			}
			if term != "end" {
				return nil, nil, "", fmt.Errorf("unterminated %s block", op.Kind)
			}
			toks = rest
			prog = append(prog, op)
		default:
			op, err := parseSimple(fields, tok.value)
			if err != nil {
				return nil, nil, "", err
			}
			prog = append(prog, op)
		}
	}
	return prog, nil, "", nil
}

func parseSimple(fields []string, raw string) (Op, error) {
	if fields[0] == ">" {
		if len(fields) != 2 {
			return Op{}, fmt.Errorf("malformed partial inclusion %q", raw)
		}
		return Op{Kind: "partial", ID: fields[1]}, nil
	}
	if strings.HasPrefix(fields[0], ">") {
		return Op{Kind: "partial", ID: strings.TrimPrefix(fields[0], ">")}, nil
	}
	if strings.HasPrefix(fields[0], ".") {
		if len(fields) != 1 {
			return Op{}, fmt.Errorf("unsupported action %q", raw)
		}
		return Op{Kind: "var", Path: splitPath(fields[0])}, nil
	}

	op := Op{Kind: "helper", Name: fields[0]}
	for _, field := range fields[1:] {
		arg, err := parseArg(field)
		if err != nil {
			return Op{}, fmt.Errorf("in %q: %w", raw, err)
		}
		op.Args = append(op.Args, arg)
	}
	return op, nil
}

func parseArg(field string) (Arg, error) {
	switch {
	case strings.HasPrefix(field, "."):
		return Arg{Kind: "path", Path: splitPath(field)}, nil
	case strings.HasPrefix(field, `"`) && strings.HasSuffix(field, `"`) && len(field) >= 2:
		unquoted, err := strconv.Unquote(field)
		if err != nil {
			return Arg{}, fmt.Errorf("bad string literal %s", field)
		}
		return Arg{Kind: "lit", Lit: unquoted}, nil
	case field == "true" || field == "false":
		return Arg{Kind: "lit", Lit: field == "true"}, nil
	default:
		n, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return Arg{}, fmt.Errorf("unsupported argument %q", field)
		}
		return Arg{Kind: "lit", Lit: n}, nil
	}
}

// splitPath turns ".A.B" into ["A","B"]; "." alone addresses the data itself.
func splitPath(field string) []string {
	trimmed := strings.TrimPrefix(field, ".")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, ".")
}

// InvokeFunc resolves a partial op by identifier during a program walk.
type InvokeFunc func(id string, data any) (string, error)

// Render walks the program against data. Helper ops dispatch through the
// registry; partial ops resolve through invoke. The walk mirrors the runtime
// module's generated walker, so what this returns is what the linked artifact
// renders.
func (p Program) Render(data any, reg *helpers.Registry, invoke InvokeFunc) (string, error) {
	var b strings.Builder
	if err := p.render(&b, data, reg, invoke); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (p Program) render(b *strings.Builder, data any, reg *helpers.Registry, invoke InvokeFunc) error {
	for _, op := range p {
		switch op.Kind {
		case "text":
			b.WriteString(op.Text)
		case "var":
			writeValue(b, resolvePath(data, op.Path))
		case "helper":
			args := make([]any, len(op.Args))
			for i, arg := range op.Args {
				if arg.Kind == "path" {
					args[i] = resolvePath(data, arg.Path)
				} else {
					args[i] = arg.Lit
				}
			}
			writeValue(b, reg.Call(op.Name, args...))
		case "partial":
			if invoke == nil {
				return fmt.Errorf("no partial resolver for %q", op.ID)
			}
			out, err := invoke(op.ID, data)
			if err != nil {
				return err
			}
			b.WriteString(out)
		case "if":
			branch := op.Body
			if !truthy(resolvePath(data, op.Path)) {
				branch = op.Else
			}
			if err := branch.render(b, data, reg, invoke); err != nil {
				return err
			}
		case "range":
			items := itemsOf(resolvePath(data, op.Path))
			if len(items) == 0 {
				if err := op.Else.render(b, data, reg, invoke); err != nil {
					return err
				}
				continue
			}
			for _, item := range items {
				if err := op.Body.render(b, item, reg, invoke); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("unknown program op %q", op.Kind)
		}
	}
	return nil
}

func writeValue(b *strings.Builder, v any) {
	if v == nil {
		return
	}
	b.WriteString(fmt.Sprintf("%v", v))
}

func resolvePath(data any, path []string) any {
	v := data
	for _, key := range path {
		if v == nil {
			return nil
		}
		switch m := v.(type) {
		case map[string]any:
			v = m[key]
		default:
			rv := reflect.ValueOf(v)
			if rv.Kind() == reflect.Pointer {
				rv = rv.Elem()
			}
			switch rv.Kind() {
			case reflect.Struct:
				field := rv.FieldByName(key)
				if !field.IsValid() {
					return nil
				}
				v = field.Interface()
			case reflect.Map:
				item := rv.MapIndex(reflect.ValueOf(key))
				if !item.IsValid() {
					return nil
				}
				v = item.Interface()
			default:
				return nil
			}
		}
	}
	return v
}

func truthy(v any) bool {
	if v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case float64:
		return t != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	}
	return true
}

func itemsOf(v any) []any {
	if v == nil {
		return nil
	}
	if items, ok := v.([]any); ok {
		return items
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items
}
