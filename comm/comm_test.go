package comm_test

import (
	"context"
	"testing"

	"github.com/salanous/spacesyntax/comm"
)

func TestNoopNeverCancels(t *testing.T) {
	var c comm.Communicator = comm.Noop{}
	c.PostMessage(comm.NumSteps, 10)
	if c.IsCancelled() {
		t.Error("Noop reported cancelled")
	}
}

func TestLoggingCancelsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := comm.NewLogging(ctx, nil)
	if c.IsCancelled() {
		t.Fatal("cancelled before context was")
	}
	cancel()
	if !c.IsCancelled() {
		t.Error("not cancelled after context was")
	}
}

func TestNewLoggingDefaults(t *testing.T) {
	c := comm.NewLogging(nil, nil)
	if c.Ctx == nil || c.Logger == nil {
		t.Error("NewLogging left nil defaults in place")
	}
	if c.IsCancelled() {
		t.Error("background context reported cancelled")
	}
}
