package template

import (
	"fmt"
	"strings"
)

func applyBinOp(op string, l, r any) (any, error) {
	switch op {
	case "and":
		return truthy(l) && truthy(r), nil
	case "or":
		return truthy(l) || truthy(r), nil
	case "==":
		return equalValues(l, r), nil
	case "!=":
		return !equalValues(l, r), nil
	case "<", "<=", ">", ">=":
		return compareOp(op, l, r)
	case "+", "-", "*", "/":
		return arithOp(op, l, r)
	case "++":
		return concatOp(l, r)
	case "--":
		return diffOp(l, r)
	case "in":
		return inOp(l, r)
	default:
		return nil, fmt.Errorf("unknown operator %q", op)
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func equalValues(l, r any) bool {
	if l == nil || r == nil {
		return l == nil && r == nil
	}
	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if lok && rok {
		return lf == rf
	}
	if fmt.Sprintf("%T", l) != fmt.Sprintf("%T", r) {
		return false
	}
	return fmt.Sprintf("%v", l) == fmt.Sprintf("%v", r)
}

func compareOp(op string, l, r any) (any, error) {
	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if lok && rok {
		switch op {
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		}
	}
	ls, lsok := l.(string)
	rs, rsok := r.(string)
	if lsok && rsok {
		switch op {
		case "<":
			return ls < rs, nil
		case "<=":
			return ls <= rs, nil
		case ">":
			return ls > rs, nil
		case ">=":
			return ls >= rs, nil
		}
	}
	return nil, fmt.Errorf("cannot compare %T and %T with %s", l, r, op)
}

func arithOp(op string, l, r any) (any, error) {
	if op == "+" {
		if ls, ok := l.(string); ok {
			if rs, ok := r.(string); ok {
				return ls + rs, nil
			}
		}
	}
	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if !lok || !rok {
		return nil, fmt.Errorf("cannot apply %s to %T and %T", op, l, r)
	}
	_, lInt := l.(int64)
	_, rInt := r.(int64)
	var result float64
	switch op {
	case "+":
		result = lf + rf
	case "-":
		result = lf - rf
	case "*":
		result = lf * rf
	case "/":
		if rf == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		result = lf / rf
	}
	if lInt && rInt && op != "/" {
		return int64(result), nil
	}
	return result, nil
}

func concatOp(l, r any) (any, error) {
	if ls, ok := l.([]any); ok {
		if rs, ok := r.([]any); ok {
			out := make([]any, 0, len(ls)+len(rs))
			out = append(out, ls...)
			out = append(out, rs...)
			return out, nil
		}
	}
	if ls, ok := l.(string); ok {
		return ls + stringify(r), nil
	}
	return nil, fmt.Errorf("++ requires two lists or a string left operand, got %T and %T", l, r)
}

func diffOp(l, r any) (any, error) {
	ls, lok := l.([]any)
	rs, rok := r.([]any)
	if !lok || !rok {
		return nil, fmt.Errorf("-- requires two lists, got %T and %T", l, r)
	}
	remove := make(map[string]bool, len(rs))
	for _, v := range rs {
		remove[fmt.Sprintf("%v", v)] = true
	}
	out := make([]any, 0, len(ls))
	for _, v := range ls {
		if !remove[fmt.Sprintf("%v", v)] {
			out = append(out, v)
		}
	}
	return out, nil
}

func inOp(l, r any) (any, error) {
	switch coll := r.(type) {
	case []any:
		for _, v := range coll {
			if equalValues(l, v) {
				return true, nil
			}
		}
		return false, nil
	case string:
		ls, ok := l.(string)
		if !ok {
			return nil, fmt.Errorf("'in' on a string requires a string left operand, got %T", l)
		}
		return strings.Contains(coll, ls), nil
	default:
		return nil, fmt.Errorf("'in' requires a list or string right operand, got %T", r)
	}
}
