package rules

import (
	"errors"
	"testing"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	if engine == nil {
		t.Fatal("NewEngine returned nil")
	}
}

func TestEngine_LoadStreamTypeRules(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	rulesByType := map[string]StreamRules{
		"note/txt": {
			Create: "access.id != ''",
			Read:   "true",
			Update: "access.id == event.createdBy",
			Delete: "access.type == 'personal'",
		},
	}

	if err := engine.LoadStreamTypeRules(rulesByType); err != nil {
		t.Fatalf("LoadStreamTypeRules failed: %v", err)
	}

	if !engine.HasRule("note/txt", OpCreate) {
		t.Error("expected note/txt create rule to exist")
	}
	if !engine.HasRule("note/txt", OpRead) {
		t.Error("expected note/txt read rule to exist")
	}
	if !engine.HasRule("note/txt", OpUpdate) {
		t.Error("expected note/txt update rule to exist")
	}
	if !engine.HasRule("note/txt", OpDelete) {
		t.Error("expected note/txt delete rule to exist")
	}

	if engine.HasRule("picture/attached", OpCreate) {
		t.Error("expected picture/attached create rule to not exist")
	}
}

func TestEngine_InvalidRule(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	err = engine.LoadStreamTypeRules(map[string]StreamRules{
		"note/txt": {Create: "invalid syntax !!@@##"},
	})
	if err == nil {
		t.Error("expected LoadStreamTypeRules to fail with invalid rule")
	}
}

func TestEngine_Evaluate_PublicRead(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	if err := engine.LoadStreamTypeRules(map[string]StreamRules{
		"note/txt": {Read: "true"},
	}); err != nil {
		t.Fatalf("LoadStreamTypeRules failed: %v", err)
	}

	allowed, err := engine.Evaluate("note/txt", OpRead, &EvalContext{})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !allowed {
		t.Error("expected public read to be allowed")
	}
}

func TestEngine_Evaluate_RequireNonEmptyAccess(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	if err := engine.LoadStreamTypeRules(map[string]StreamRules{
		"note/txt": {Create: "has(access.id)"},
	}); err != nil {
		t.Fatalf("LoadStreamTypeRules failed: %v", err)
	}

	allowed, err := engine.Evaluate("note/txt", OpCreate, &EvalContext{})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if allowed {
		t.Error("expected create without an access id to be denied")
	}

	allowed, err = engine.Evaluate("note/txt", OpCreate, &EvalContext{
		Access: map[string]any{"id": "access-1"},
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !allowed {
		t.Error("expected create with an access id to be allowed")
	}
}

func TestEngine_Evaluate_OwnerOnly(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	if err := engine.LoadStreamTypeRules(map[string]StreamRules{
		"note/txt": {Update: "access.id == event.createdBy"},
	}); err != nil {
		t.Fatalf("LoadStreamTypeRules failed: %v", err)
	}

	allowed, err := engine.Evaluate("note/txt", OpUpdate, &EvalContext{
		Access: map[string]any{"id": "access-1"},
		Event:  map[string]any{"createdBy": "access-1"},
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !allowed {
		t.Error("expected the creating access to be allowed to update")
	}

	allowed, err = engine.Evaluate("note/txt", OpUpdate, &EvalContext{
		Access: map[string]any{"id": "access-2"},
		Event:  map[string]any{"createdBy": "access-1"},
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if allowed {
		t.Error("expected a different access to be denied update")
	}
}

func TestEngine_Evaluate_AccessTypeCheck(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	if err := engine.LoadStreamTypeRules(map[string]StreamRules{
		"note/txt": {Delete: "access.type == 'personal'"},
	}); err != nil {
		t.Fatalf("LoadStreamTypeRules failed: %v", err)
	}

	allowed, err := engine.Evaluate("note/txt", OpDelete, &EvalContext{
		Access: map[string]any{"id": "access-1", "type": "shared"},
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if allowed {
		t.Error("expected a shared access to be denied delete")
	}

	allowed, err = engine.Evaluate("note/txt", OpDelete, &EvalContext{
		Access: map[string]any{"id": "access-1", "type": "personal"},
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !allowed {
		t.Error("expected a personal access to be allowed delete")
	}
}

func TestEngine_Evaluate_NoRule(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	allowed, err := engine.Evaluate("note/txt", OpCreate, &EvalContext{})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !allowed {
		t.Error("expected a missing rule to allow access by default")
	}
}

func TestEngine_CheckAccess(t *testing.T) {
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	if err := engine.LoadStreamTypeRules(map[string]StreamRules{
		"note/txt": {Read: "false"},
	}); err != nil {
		t.Fatalf("LoadStreamTypeRules failed: %v", err)
	}

	err = engine.CheckAccess("note/txt", OpRead, &EvalContext{})
	if err == nil {
		t.Error("expected CheckAccess to return an error for denied access")
	}
	if !errors.Is(err, ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}
}
