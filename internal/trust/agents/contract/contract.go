// Package contract holds reusable checks every verification agent must pass.
package contract

import (
	"context"
	"testing"

	"octopus/internal/trust/agents"
	"octopus/internal/trust/models"
)

// ContractTest is one successful-evaluation case for an agent.
type ContractTest struct {
	Name         string
	Agent        agents.Agent
	Subject      agents.Subject
	Context      func() context.Context
	ValidateFunc func(result *agents.Result) error
}

// ContractSuite is a collection of contract tests for one agent kind.
type ContractSuite struct {
	Kind  models.AgentKind
	Tests []ContractTest
}

// Run executes all contract tests in the suite. Each case is evaluated twice
// to check that agents are idempotent over an unchanged subject.
func (s *ContractSuite) Run(t *testing.T) {
	for _, test := range s.Tests {
		t.Run(test.Name, func(t *testing.T) {
			ctx := context.Background()
			if test.Context != nil {
				ctx = test.Context()
			}

			if test.Agent.Kind() != s.Kind {
				t.Fatalf("expected agent kind %s, got %s", s.Kind, test.Agent.Kind())
			}

			result, err := test.Agent.Evaluate(ctx, test.Subject)
			if err != nil {
				t.Fatalf("agent evaluation failed: %v", err)
			}
			if err := result.Validate(s.Kind); err != nil {
				t.Fatalf("result violates contract: %v", err)
			}
			if result.Factors == nil {
				t.Error("factors not set")
			}

			again, err := test.Agent.Evaluate(ctx, test.Subject)
			if err != nil {
				t.Fatalf("second evaluation failed: %v", err)
			}
			if again.Score != result.Score {
				t.Errorf("agent not idempotent: score %d then %d", result.Score, again.Score)
			}

			if test.ValidateFunc != nil {
				if err := test.ValidateFunc(result); err != nil {
					t.Errorf("custom validation failed: %v", err)
				}
			}
		})
	}
}

// ErrorContractTest validates that agent failures follow the taxonomy.
type ErrorContractTest struct {
	Name             string
	Agent            agents.Agent
	Subject          agents.Subject
	ExpectedCategory agents.Category
	ExpectedRetry    bool
}

// Run executes an error contract test.
func (ect *ErrorContractTest) Run(t *testing.T) {
	t.Run(ect.Name, func(t *testing.T) {
		result, err := ect.Agent.Evaluate(context.Background(), ect.Subject)
		if err == nil {
			t.Fatalf("expected error but got result %+v", result)
		}
		if category := agents.CategoryOf(err); category != ect.ExpectedCategory {
			t.Errorf("expected error category %s, got %s", ect.ExpectedCategory, category)
		}
		if retry := agents.IsRetryable(err); retry != ect.ExpectedRetry {
			t.Errorf("expected retryable=%v, got %v", ect.ExpectedRetry, retry)
		}
	})
}
