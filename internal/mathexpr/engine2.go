package mathexpr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/Blastus/confabulator/internal/core"
	"github.com/Blastus/confabulator/internal/session"
)

// EvaluatorV2 is the newer integer engine. Expressions split on their
// rightmost operator, '->' stores a result, and literals accept the 0x, 0d,
// 0o, 0q, and 0b prefixes.
type EvaluatorV2 struct {
	client *core.Client
}

func NewEvaluatorV2(client *core.Client) *EvaluatorV2 {
	return &EvaluatorV2{client: client}
}

func (e *EvaluatorV2) Handle() (session.Handler, error) {
	env := make(map[string]int64)
	for {
		line, err := e.client.Input(">>> ")
		if err != nil {
			return nil, err
		}
		if session.StopWords[line] {
			return nil, nil
		}
		if runErr := e.evaluate(line, env); runErr != nil {
			if err := e.client.Print(runErr.Error()); err != nil {
				return nil, err
			}
		}
	}
}

func (e *EvaluatorV2) evaluate(source string, env map[string]int64) error {
	for _, expression := range expressionsV2(source) {
		tree, err := e.tokens(expression)
		if err != nil {
			return err
		}
		value, err := tree.evaluate(env)
		if err != nil {
			return err
		}
		env["_"] = value
	}
	return nil
}

// expressionsV2 separates the statements of one submission: newline-split,
// '#' comments stripped, then ';'-split.
func expressionsV2(source string) []string {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	source = strings.ReplaceAll(source, "\r", "\n")
	var expressions []string
	for _, line := range strings.Split(source, "\n") {
		line, _, _ = strings.Cut(line, "#")
		if strings.TrimSpace(line) == "" {
			continue
		}
		expressions = append(expressions, strings.Split(line, ";")...)
	}
	return expressions
}

// tokens builds a tree for one expression, wrapping everything except a
// top-level assignment in a print.
func (e *EvaluatorV2) tokens(expression string) (exprV2, error) {
	tree, err := parseV2(expression)
	if err != nil {
		return nil, err
	}
	if op, ok := tree.(operationV2); ok && op.symbol == assignmentV2 {
		return tree, nil
	}
	return printV2{inner: tree, client: e.client}, nil
}

type exprV2 interface {
	evaluate(env map[string]int64) (int64, error)
}

type constantV2 int64

func (c constantV2) evaluate(map[string]int64) (int64, error) {
	return int64(c), nil
}

type variableV2 string

func (v variableV2) evaluate(env map[string]int64) (int64, error) {
	value, ok := env[string(v)]
	if !ok {
		return 0, fmt.Errorf("name %q is not defined", string(v))
	}
	return value, nil
}

type operationV2 struct {
	left   exprV2
	symbol string
	right  exprV2
}

func (o operationV2) evaluate(env map[string]int64) (int64, error) {
	if o.symbol == assignmentV2 {
		name, ok := o.right.(variableV2)
		if !ok {
			return 0, errors.New("assignment target must be a variable")
		}
		value, err := o.left.evaluate(env)
		if err != nil {
			return 0, err
		}
		env[string(name)] = value
		return value, nil
	}
	a, err := o.left.evaluate(env)
	if err != nil {
		return 0, err
	}
	b, err := o.right.evaluate(env)
	if err != nil {
		return 0, err
	}
	return runTimed(func() (int64, error) {
		return applyV2(o.symbol, a, b)
	})
}

type printV2 struct {
	inner  exprV2
	client *core.Client
}

func (p printV2) evaluate(env map[string]int64) (int64, error) {
	value, err := p.inner.evaluate(env)
	if err != nil {
		return 0, err
	}
	return value, p.client.Print(value)
}

const assignmentV2 = "->"

// operatorOrderV2 lists operators longest first; ties keep table order.
// splitTailV2 scans in this order, so a longer symbol always wins.
var operatorOrderV2 = []string{
	"->", "&&", "||", "**", ">>", "<<", "==", "!=", ">=", "<=",
	"+", "-", "*", "/", "%", "&", "|", "^", ">", "<",
}

// parseV2 recursively splits the expression on its rightmost operator.
func parseV2(expression string) (exprV2, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, errors.New("invalid syntax: empty expression")
	}
	if left, symbol, right, ok := splitV2(expression); ok {
		leftTree, err := parseV2(left)
		if err != nil {
			return nil, err
		}
		rightTree, err := parseV2(right)
		if err != nil {
			return nil, err
		}
		return operationV2{left: leftTree, symbol: symbol, right: rightTree}, nil
	}
	if len(strings.Fields(expression)) > 1 {
		return nil, fmt.Errorf("invalid syntax: %s", expression)
	}
	for prefix, base := range map[string]int{
		"0x": 16, "0d": 10, "0o": 8, "0q": 4, "0b": 2,
	} {
		if strings.HasPrefix(expression, prefix) {
			value, err := strconv.ParseInt(expression[2:], base, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid literal: %s", expression)
			}
			return constantV2(value), nil
		}
	}
	if isDigits(expression) {
		value, err := strconv.ParseInt(expression, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid literal: %s", expression)
		}
		return constantV2(value), nil
	}
	if isIdentifier(expression) {
		return variableV2(expression), nil
	}
	return nil, fmt.Errorf("invalid syntax: %s", expression)
}

// splitV2 finds the rightmost splittable symbol and divides the expression
// around it.
func splitV2(expression string) (left, symbol, right string, ok bool) {
	symbol, right, ok = splitTailV2(expression)
	if !ok {
		return "", "", "", false
	}
	return expression[:len(expression)-len(symbol)-len(right)], symbol, right, true
}

func splitTailV2(expression string) (symbol, right string, ok bool) {
	for _, candidate := range operatorOrderV2 {
		if i := strings.LastIndex(expression, candidate); i >= 0 {
			tail := expression[i+len(candidate):]
			if symbol, right, ok := splitTailV2(tail); ok {
				return symbol, right, true
			}
			return candidate, tail, true
		}
	}
	return "", "", false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func isIdentifier(s string) bool {
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return len(s) > 0
}

func applyV2(symbol string, a, b int64) (int64, error) {
	switch symbol {
	case "&&", "&":
		return a & b, nil
	case "||", "|":
		return a | b, nil
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return 0, errors.New("integer division by zero")
		}
		return floorDiv(a, b), nil
	case "%":
		if b == 0 {
			return 0, errors.New("integer modulo by zero")
		}
		return floorMod(a, b), nil
	case "**":
		return powV2(a, b)
	case "^":
		return a ^ b, nil
	case ">>":
		if b < 0 {
			return 0, errors.New("negative shift count")
		}
		return a >> uint64(b), nil
	case "<<":
		if b < 0 {
			return 0, errors.New("negative shift count")
		}
		return a << uint64(b), nil
	case "==":
		return boolToInt(a == b), nil
	case "!=":
		return boolToInt(a != b), nil
	case ">":
		return boolToInt(a > b), nil
	case ">=":
		return boolToInt(a >= b), nil
	case "<":
		return boolToInt(a < b), nil
	case "<=":
		return boolToInt(a <= b), nil
	}
	return 0, fmt.Errorf("invalid syntax: %s", symbol)
}

// floorDiv rounds toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// floorMod takes the sign of the divisor.
func floorMod(a, b int64) int64 {
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

func powV2(a, b int64) (int64, error) {
	if b < 0 {
		return 0, errors.New("negative exponent")
	}
	result := int64(1)
	for ; b > 0; b-- {
		result *= a
	}
	return result, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
