package roster

import (
	"context"
	"testing"
)

func TestStaticProvider(t *testing.T) {
	provider := &StaticProvider{
		Members: map[string][]string{
			"CSC-101": {"alice", "bob"},
		},
	}

	enrolled, err := provider.IsEnrolled(context.Background(), "CSC-101", "alice")
	if err != nil || !enrolled {
		t.Fatalf("expected alice enrolled, got %v, %v", enrolled, err)
	}

	enrolled, err = provider.IsEnrolled(context.Background(), "CSC-101", "dave")
	if err != nil || enrolled {
		t.Fatalf("expected dave not enrolled, got %v, %v", enrolled, err)
	}

	enrolled, err = provider.IsEnrolled(context.Background(), "CSC-999", "alice")
	if err != nil || enrolled {
		t.Fatalf("expected unknown course to have no members, got %v, %v", enrolled, err)
	}
}
