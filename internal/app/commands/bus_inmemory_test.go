package commands

import (
	"context"
	"errors"
	"testing"
)

type pingCommand struct{ Name string }

func (pingCommand) Key() string { return "test.ping" }

func TestDispatchTyped(t *testing.T) {
	t.Parallel()

	bus := NewInMemoryBus()
	RegisterHandler[pingCommand, string](bus, "test.ping", HandlerFunc[pingCommand, string](func(_ context.Context, cmd pingCommand) (string, error) {
		return "pong " + cmd.Name, nil
	}))

	got, err := Dispatch[pingCommand, string](context.Background(), bus, pingCommand{Name: "rider"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got != "pong rider" {
		t.Fatalf("got %q, want %q", got, "pong rider")
	}
	if _, err := Dispatch[pingCommand, int](context.Background(), bus, pingCommand{}); !errors.Is(err, ErrResultType) {
		t.Fatalf("err = %v, want %v", err, ErrResultType)
	}
}

type unknownCommand struct{}

func (unknownCommand) Key() string { return "test.unknown" }

func TestDispatchUnknown(t *testing.T) {
	t.Parallel()

	_, err := NewInMemoryBus().Dispatch(context.Background(), unknownCommand{})
	if !errors.Is(err, ErrHandlerNotFound) {
		t.Fatalf("err = %v, want %v", err, ErrHandlerNotFound)
	}
	if _, err := Dispatch[unknownCommand, string](context.Background(), nil, unknownCommand{}); !errors.Is(err, ErrNilBus) {
		t.Fatalf("err = %v, want %v", err, ErrNilBus)
	}
}

func TestRegisterRejectsDuplicateKeys(t *testing.T) {
	t.Parallel()

	bus := NewInMemoryBus()
	h := HandlerFunc[pingCommand, string](func(context.Context, pingCommand) (string, error) { return "", nil })
	RegisterHandler[pingCommand, string](bus, "test.ping", h)
	RegisterHandler[pingCommand, string](bus, "test.another", h)
	if got := bus.Keys(); len(got) != 2 || got[0] != "test.another" || got[1] != "test.ping" {
		t.Fatalf("Keys = %v", got)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("duplicate registration did not panic")
		}
	}()
	RegisterHandler[pingCommand, string](bus, "test.ping", h)
}
