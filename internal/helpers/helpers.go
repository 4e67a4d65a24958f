// Package helpers defines the template helper groups and the allow-list
// policy table that decides which helpers are linked into the edge artifact.
package helpers

import (
	"fmt"
	"sort"
	"strings"
)

// Func is a template helper. Helpers are late-bound: the compiler registers a
// dispatcher per name and the registry is consulted at render time.
type Func func(args ...any) any

// groups is the full helper index, organized as ad-hoc named groups. Linking
// never consumes this table directly; it goes through the allow-list.
var groups = map[string]map[string]Func{
	"math": {
		"add":      func(args ...any) any { return foldInts(args, func(a, b int) int { return a + b }) },
		"subtract": func(args ...any) any { return foldInts(args, func(a, b int) int { return a - b }) },
		"multiply": func(args ...any) any { return foldInts(args, func(a, b int) int { return a * b }) },
		"divide": func(args ...any) any {
			return foldInts(args, func(a, b int) int {
				if b == 0 {
					return 0
				}
				return a / b
			})
		},
		"mod": func(args ...any) any {
			return foldInts(args, func(a, b int) int {
				if b == 0 {
					return 0
				}
				return a % b
			})
		},
	},
	"string": {
		"concat":      func(args ...any) any { return joinStrings(args, "") },
		"join":        helperJoin,
		"toLowerCase": func(args ...any) any { return strings.ToLower(firstString(args)) },
		"toUpperCase": func(args ...any) any { return strings.ToUpper(firstString(args)) },
		"occurrences": func(args ...any) any {
			if len(args) < 2 {
				return 0
			}
			return strings.Count(toString(args[0]), toString(args[1]))
		},
	},
	"collection": {
		"first": func(args ...any) any {
			if items, ok := firstSlice(args); ok && len(items) > 0 {
				return items[0]
			}
			return nil
		},
		"last": func(args ...any) any {
			if items, ok := firstSlice(args); ok && len(items) > 0 {
				return items[len(items)-1]
			}
			return nil
		},
		"length": func(args ...any) any {
			if items, ok := firstSlice(args); ok {
				return len(items)
			}
			return len(toString(firstArg(args)))
		},
	},
}

// AllowList is the explicit group -> permitted-helper-names policy table.
// Any helper a group defines that is not listed here is excluded from the
// linked artifact even though the group module exports it. This is an
// auditable policy, not an incidental default: edit deliberately.
var AllowList = map[string][]string{
	"math":       {"add", "subtract", "multiply"},
	"string":     {"concat", "join", "toLowerCase", "toUpperCase"},
	"collection": {"first", "last", "length"},
}

// GroupNames returns the helper group names in sorted order.
func GroupNames() []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Members extracts the named members of a helper group. This is the generic
// extract-by-name adapter the allow-list is applied through.
func Members(group string, names []string) (map[string]Func, error) {
	defs, ok := groups[group]
	if !ok {
		return nil, fmt.Errorf("unknown helper group %q", group)
	}
	members := make(map[string]Func, len(names))
	for _, name := range names {
		fn, defined := defs[name]
		if !defined {
			return nil, fmt.Errorf("helper group %q does not define %q", group, name)
		}
		members[name] = fn
	}
	return members, nil
}

// Registry is a name -> helper lookup used for late-bound helper calls at
// render time.
type Registry struct {
	funcs map[string]Func
}

// FullIndex returns a registry over every helper in every group. Compilation
// uses the full index; the allow-list is applied at link time.
func FullIndex() *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	for _, defs := range groups {
		for name, fn := range defs {
			r.funcs[name] = fn
		}
	}
	return r
}

// Allowed returns a registry restricted to the allow-list policy table.
func Allowed() (*Registry, error) {
	r := &Registry{funcs: make(map[string]Func)}
	for group, names := range AllowList {
		members, err := Members(group, names)
		if err != nil {
			return nil, err
		}
		for name, fn := range members {
			r.funcs[name] = fn
		}
	}
	return r, nil
}

// Names returns the registered helper names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a helper is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

// Call invokes a registered helper by name. Unknown names render as an empty
// value rather than failing the render; unresolved helper calls were compiled
// as late-bound lookups on purpose.
func (r *Registry) Call(name string, args ...any) any {
	fn, ok := r.funcs[name]
	if !ok {
		return ""
	}
	return fn(args...)
}

func foldInts(args []any, op func(a, b int) int) int {
	if len(args) == 0 {
		return 0
	}
	acc, _ := toInt(args[0])
	for _, arg := range args[1:] {
		n, ok := toInt(arg)
		if !ok {
			continue
		}
		acc = op(acc, n)
	}
	return acc
}

func helperJoin(args ...any) any {
	if len(args) < 2 {
		return joinStrings(args, "")
	}
	sep := toString(args[len(args)-1])
	return joinStrings(args[:len(args)-1], sep)
}

func joinStrings(args []any, sep string) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		parts = append(parts, toString(arg))
	}
	return strings.Join(parts, sep)
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

func firstString(args []any) string {
	return toString(firstArg(args))
}

func firstSlice(args []any) ([]any, bool) {
	if len(args) == 0 {
		return nil, false
	}
	items, ok := args[0].([]any)
	return items, ok
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
