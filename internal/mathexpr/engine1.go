package mathexpr

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Blastus/confabulator/internal/core"
	"github.com/Blastus/confabulator/internal/session"
)

// EvaluatorV1 is the original float engine. Every token must be surrounded
// by whitespace; statements are separated by ';' and lines starting with
// '#' are comments. '=' chains assign right to left.
type EvaluatorV1 struct {
	client *core.Client
}

func NewEvaluatorV1(client *core.Client) *EvaluatorV1 {
	return &EvaluatorV1{client: client}
}

func (e *EvaluatorV1) Handle() (session.Handler, error) {
	env := make(map[string]float64)
	for {
		line, err := e.client.Input("Eval:")
		if err != nil {
			return nil, err
		}
		if session.StopWords[line] {
			return nil, nil
		}
		if runErr := e.run(line, env); runErr != nil {
			if err := e.client.Print(runErr.Error()); err != nil {
				return nil, err
			}
		}
	}
}

func (e *EvaluatorV1) run(line string, env map[string]float64) error {
	statements, err := e.parse(line)
	if err != nil {
		return err
	}
	for _, statement := range statements {
		value, err := statement.evaluate(env)
		if err != nil {
			return err
		}
		env["_"] = value
	}
	return nil
}

type exprV1 interface {
	evaluate(env map[string]float64) (float64, error)
}

type constantV1 float64

func (c constantV1) evaluate(map[string]float64) (float64, error) {
	return float64(c), nil
}

type variableV1 string

func (v variableV1) evaluate(env map[string]float64) (float64, error) {
	value, ok := env[string(v)]
	if !ok {
		return 0, fmt.Errorf("unknown variable: %s", string(v))
	}
	return value, nil
}

type operationV1 struct {
	left  exprV1
	op    string
	right exprV1
}

func (o operationV1) evaluate(env map[string]float64) (float64, error) {
	x, err := o.left.evaluate(env)
	if err != nil {
		return 0, err
	}
	y, err := o.right.evaluate(env)
	if err != nil {
		return 0, err
	}
	return runTimed(func() (float64, error) {
		return applyV1(o.op, x, y)
	})
}

type assignV1 struct {
	name  string
	value exprV1
}

func (a assignV1) evaluate(env map[string]float64) (float64, error) {
	value, err := a.value.evaluate(env)
	if err != nil {
		return 0, err
	}
	env[a.name] = value
	return value, nil
}

type printV1 struct {
	inner  exprV1
	client *core.Client
}

func (p printV1) evaluate(env map[string]float64) (float64, error) {
	value, err := p.inner.evaluate(env)
	if err != nil {
		return 0, err
	}
	return value, p.client.Print(value)
}

var operatorsV1 = map[string]bool{
	"=": true, "+": true, "-": true, "*": true, "/": true, "//": true,
	"%": true, "**": true, "^": true, "and": true, "&": true, "or": true,
	"|": true, "==": true, "!=": true, ">": true, "<": true, ">=": true,
	"<=": true,
}

// tokenV1 is either an operator symbol or a leaf expression.
type tokenV1 struct {
	op   string
	expr exprV1
}

// parse turns one input line into executable statements.
func (e *EvaluatorV1) parse(line string) ([]exprV1, error) {
	var statements []exprV1
	for _, statement := range strings.Split(strings.ReplaceAll(line, ";", "\n"), "\n") {
		if statement == "" || statement[0] == '#' {
			continue
		}
		var tokens []tokenV1
		for _, word := range strings.Fields(statement) {
			if operatorsV1[word] {
				tokens = append(tokens, tokenV1{op: word})
			} else if value, err := strconv.ParseFloat(word, 64); err == nil {
				tokens = append(tokens, tokenV1{expr: constantV1(value)})
			} else {
				tokens = append(tokens, tokenV1{expr: variableV1(word)})
			}
		}
		built, err := e.build(tokens)
		if err != nil {
			return nil, err
		}
		statements = append(statements, built)
	}
	return statements, nil
}

// build resolves assignment chains, or wraps a bare expression in a print.
func (e *EvaluatorV1) build(tokens []tokenV1) (exprV1, error) {
	sections := splitAssignV1(tokens)
	if len(sections) == 1 {
		inner, err := flattenV1(sections[0])
		if err != nil {
			return nil, err
		}
		return printV1{inner: inner, client: e.client}, nil
	}
	targets := make([]string, 0, len(sections)-1)
	for _, section := range sections[:len(sections)-1] {
		if len(section) != 1 {
			return nil, errors.New("must have single token")
		}
		name, ok := section[0].expr.(variableV1)
		if !ok {
			return nil, errors.New("must assign to variable")
		}
		targets = append(targets, string(name))
	}
	value, err := flattenV1(sections[len(sections)-1])
	if err != nil {
		return nil, err
	}
	for i := len(targets) - 1; i >= 0; i-- {
		value = assignV1{name: targets[i], value: value}
	}
	return value, nil
}

func splitAssignV1(tokens []tokenV1) [][]tokenV1 {
	var sections [][]tokenV1
	start := 0
	for i, token := range tokens {
		if token.op == "=" {
			sections = append(sections, tokens[start:i])
			start = i + 1
		}
	}
	return append(sections, tokens[start:])
}

// flattenV1 folds an alternating operand/operator sequence left to right.
// There is no precedence in this engine.
func flattenV1(tokens []tokenV1) (exprV1, error) {
	if len(tokens)%2 != 1 {
		return nil, errors.New("must have odd number of tokens")
	}
	for i, token := range tokens {
		if i%2 == 0 && token.expr == nil {
			return nil, errors.New("must have constant or variable")
		}
		if i%2 == 1 && token.op == "" {
			return nil, errors.New("must have operation")
		}
	}
	result := tokens[0].expr
	for i := 1; i < len(tokens); i += 2 {
		result = operationV1{left: result, op: tokens[i].op, right: tokens[i+1].expr}
	}
	return result, nil
}

func applyV1(op string, x, y float64) (float64, error) {
	switch op {
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/":
		if y == 0 {
			return 0, errors.New("float division by zero")
		}
		return x / y, nil
	case "//":
		if y == 0 {
			return 0, errors.New("float floor division by zero")
		}
		return math.Floor(x / y), nil
	case "%":
		if y == 0 {
			return 0, errors.New("float modulo by zero")
		}
		r := math.Mod(x, y)
		if r != 0 && (r < 0) != (y < 0) {
			r += y
		}
		return r, nil
	case "**":
		return math.Pow(x, y), nil
	case "^":
		return float64(int64(x) ^ int64(y)), nil
	case "and":
		if x == 0 {
			return x, nil
		}
		return y, nil
	case "&":
		return float64(int64(x) & int64(y)), nil
	case "or":
		if x != 0 {
			return x, nil
		}
		return y, nil
	case "|":
		return float64(int64(x) | int64(y)), nil
	case "==":
		return boolToFloat(x == y), nil
	case "!=":
		return boolToFloat(x != y), nil
	case ">":
		return boolToFloat(x > y), nil
	case "<":
		return boolToFloat(x < y), nil
	case ">=":
		return boolToFloat(x >= y), nil
	case "<=":
		return boolToFloat(x <= y), nil
	}
	return 0, fmt.Errorf("unknown operator: %s", op)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
