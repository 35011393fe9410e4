package scenario

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

var rangeRe = regexp.MustCompile(`^(\d+):(\d+)(?::(\d+))?$`)

// parseRange expands a start:end[:step] expression into the inclusive
// integer sequence it denotes. Step defaults to 1.
func parseRange(expr string) ([]int, error) {
	m := rangeRe.FindStringSubmatch(expr)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrBadRange, expr)
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	step := 1
	if m[3] != "" {
		step, _ = strconv.Atoi(m[3])
	}
	if step <= 0 {
		return nil, fmt.Errorf("%w: %q: step must be > 0", ErrBadRange, expr)
	}

	var out []int
	for v := start; v <= end; v += step {
		out = append(out, v)
	}
	return out, nil
}

// expandValues normalizes one parameter value to the list of concrete
// values it stands for. Scalars become single-element lists; string
// elements that look like range expressions are expanded in place.
func expandValues(v any) ([]string, error) {
	var raw []any
	switch vv := v.(type) {
	case []any:
		raw = vv
	default:
		raw = []any{v}
	}

	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok && rangeRe.MatchString(s) {
			ints, err := parseRange(s)
			if err != nil {
				return nil, err
			}
			for _, n := range ints {
				out = append(out, strconv.Itoa(n))
			}
			continue
		}
		out = append(out, fmt.Sprint(item))
	}
	return out, nil
}

// combinations builds the cartesian product over all parameter values.
// Keys are iterated in sorted order so set numbering is stable across runs.
func combinations(params map[string]any) ([]map[string]string, error) {
	if len(params) == 0 {
		return []map[string]string{{}}, nil
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	expanded := make([][]string, len(keys))
	for i, k := range keys {
		vals, err := expandValues(params[k])
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", k, err)
		}
		if len(vals) == 0 {
			vals = []string{""}
		}
		expanded[i] = vals
	}

	out := []map[string]string{{}}
	for i, k := range keys {
		next := make([]map[string]string, 0, len(out)*len(expanded[i]))
		for _, base := range out {
			for _, v := range expanded[i] {
				set := make(map[string]string, len(base)+1)
				for bk, bv := range base {
					set[bk] = bv
				}
				set[k] = v
				next = append(next, set)
			}
		}
		out = next
	}
	return out, nil
}
