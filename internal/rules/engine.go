// Package rules provides CEL-based extra constraints on top of
// AccessLogic's fixed permission-level model: an operator can attach a
// declarative expression to a stream type's create/read/update/delete
// operations, evaluated after the level check already passed.
package rules

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

var (
	ErrRuleNotFound    = errors.New("rule not found")
	ErrRuleEvaluation  = errors.New("rule evaluation failed")
	ErrAccessDenied    = errors.New("access denied")
	ErrInvalidRuleExpr = errors.New("invalid rule expression")
)

type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// StreamRules is the set of CEL expressions an operator may declare for one
// stream type (e.g. "note/txt"), one per operation; an empty string means
// "no extra constraint". Rules are looked up by the exact type string; a key
// such as "class/*" is not expanded as a wildcard.
type StreamRules struct {
	Create string
	Read   string
	Update string
	Delete string
}

// Engine compiles and evaluates operator-declared CEL expressions. Variables
// exposed to expressions: access (the caller's access, as a map), event (the
// event being operated on), stream (the target stream), request (method-call
// metadata such as ip/method).
type Engine struct {
	env      *cel.Env
	programs map[string]cel.Program
	mu       sync.RWMutex
}

// EvalContext supplies the variable bindings for one rule evaluation.
type EvalContext struct {
	Access  map[string]any
	Event   map[string]any
	Stream  map[string]any
	Request map[string]any
}

func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("access", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("event", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("stream", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("request", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}

	return &Engine{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// LoadStreamTypeRules compiles every non-empty expression in rulesByType,
// keyed by stream type pattern, replacing any previously loaded rules for
// those types.
func (e *Engine) LoadStreamTypeRules(rulesByType map[string]StreamRules) error {
	for streamType, r := range rulesByType {
		if r.Create != "" {
			if err := e.compileRule(streamType, OpCreate, r.Create); err != nil {
				return fmt.Errorf("compiling create rule for %s: %w", streamType, err)
			}
		}
		if r.Read != "" {
			if err := e.compileRule(streamType, OpRead, r.Read); err != nil {
				return fmt.Errorf("compiling read rule for %s: %w", streamType, err)
			}
		}
		if r.Update != "" {
			if err := e.compileRule(streamType, OpUpdate, r.Update); err != nil {
				return fmt.Errorf("compiling update rule for %s: %w", streamType, err)
			}
		}
		if r.Delete != "" {
			if err := e.compileRule(streamType, OpDelete, r.Delete); err != nil {
				return fmt.Errorf("compiling delete rule for %s: %w", streamType, err)
			}
		}
	}
	return nil
}

func (e *Engine) compileRule(streamType string, op Operation, expr string) error {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRuleExpr, issues.Err())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return fmt.Errorf("creating program: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.programs[ruleKey(streamType, op)] = program
	return nil
}

// Evaluate runs the rule for (streamType, op), if any; a missing rule is
// "not constrained" and evaluates to true so AccessLogic's level check is
// the only gate.
func (e *Engine) Evaluate(streamType string, op Operation, ctx *EvalContext) (bool, error) {
	e.mu.RLock()
	program, ok := e.programs[ruleKey(streamType, op)]
	e.mu.RUnlock()

	if !ok {
		return true, nil
	}

	vars := map[string]any{
		"access":  orEmpty(ctx.Access),
		"event":   orEmpty(ctx.Event),
		"stream":  orEmpty(ctx.Stream),
		"request": orEmpty(ctx.Request),
	}

	result, _, err := program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrRuleEvaluation, err)
	}

	allowed, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: rule did not return boolean", ErrRuleEvaluation)
	}

	return allowed, nil
}

func (e *Engine) CheckAccess(streamType string, op Operation, ctx *EvalContext) error {
	allowed, err := e.Evaluate(streamType, op, ctx)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrAccessDenied
	}
	return nil
}

func (e *Engine) HasRule(streamType string, op Operation) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.programs[ruleKey(streamType, op)]
	return ok
}

func ruleKey(streamType string, op Operation) string {
	return streamType + ":" + string(op)
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
