package exec

import (
	"context"
	"testing"
)

func TestRunLocalOnMaster(t *testing.T) {
	e := New("master", nil)

	out, err := e.Run(context.Background(), "master", []string{"echo", "hello"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "hello\n" {
		t.Errorf("got %q, want %q", out, "hello\n")
	}
}

func TestRunAllowFailSuppressesError(t *testing.T) {
	e := New("master", nil)

	_, err := e.Run(context.Background(), "master", []string{"false"}, AllowFail())
	if err != nil {
		t.Fatalf("expected allow-fail to suppress the error, got %v", err)
	}
}

func TestRunFailsWithoutAllowFail(t *testing.T) {
	e := New("master", nil)

	_, err := e.Run(context.Background(), "master", []string{"false"})
	if err == nil {
		t.Fatal("expected an error")
	}

	if _, ok := err.(*CommandFailed); !ok {
		t.Fatalf("expected *CommandFailed, got %T", err)
	}
}

func TestRunUnknownRemoteHost(t *testing.T) {
	e := New("master", nil)

	_, err := e.Run(context.Background(), "nonexistent-host", []string{"echo", "hi"})
	if err == nil {
		t.Fatal("expected an error for an unknown host")
	}
}
