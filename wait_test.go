package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestWaitFor(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves with emitted arguments", func(t *testing.T) {
		e := NewEmitter()
		w := e.WaitFor("evt.a", time.Second)

		want := []any{"payload", 7}
		go e.Emit("evt.a", want...)

		got, err := w.Result(ctx)
		if err != nil {
			t.Fatalf("Result failed: %v", err)
		}
		if !cmp.Equal(got, want) {
			t.Errorf("diff: %v", cmp.Diff(got, want))
		}
	})

	t.Run("fails with timeout when no event arrives", func(t *testing.T) {
		e := NewEmitter()
		w := e.WaitFor("evt.never", 20*time.Millisecond)

		_, err := w.Result(ctx)
		if !IsTimeout(err) {
			t.Fatalf("expected timeout error, got %v", err)
		}
		var te *TimeoutError
		if !errors.As(err, &te) || te.Event != "evt.never" {
			t.Errorf("timeout error missing event name: %v", err)
		}
	})

	t.Run("listener is deregistered after resolution", func(t *testing.T) {
		e := NewEmitter()
		w := e.WaitFor("evt.b", time.Second)
		e.Emit("evt.b")
		if _, err := w.Result(ctx); err != nil {
			t.Fatalf("Result failed: %v", err)
		}
		if got := e.Len(); got != 0 {
			t.Errorf("expected empty registry after resolution, got %d patterns", got)
		}
	})

	t.Run("listener is deregistered after timeout", func(t *testing.T) {
		e := NewEmitter()
		w := e.WaitFor("evt.c", 10*time.Millisecond)
		<-w.Done()
		if got := e.Len(); got != 0 {
			t.Errorf("expected empty registry after timeout, got %d patterns", got)
		}
	})

	t.Run("cancel deregisters and fails the wait", func(t *testing.T) {
		e := NewEmitter()
		w := e.WaitFor("evt.d", time.Hour)
		w.Cancel()
		_, err := w.Result(ctx)
		if !errors.Is(err, ErrWaitCanceled) {
			t.Fatalf("expected ErrWaitCanceled, got %v", err)
		}
		if got := e.Len(); got != 0 {
			t.Errorf("expected empty registry after cancel, got %d patterns", got)
		}
	})

	t.Run("exactly one resolution wins", func(t *testing.T) {
		e := NewEmitter()
		// Timeout and event race; whichever wins, a later emit or the
		// timer firing must not overwrite the first outcome.
		w := e.WaitFor("evt.race", 5*time.Millisecond)
		e.Emit("evt.race", "first")
		time.Sleep(15 * time.Millisecond)
		got, err := w.Result(ctx)
		if err != nil {
			t.Fatalf("event fired before the deadline, got error %v", err)
		}
		if len(got) != 1 || got[0] != "first" {
			t.Errorf("unexpected result: %v", got)
		}
	})

	t.Run("second emit does not change the result", func(t *testing.T) {
		e := NewEmitter()
		w := e.WaitFor("evt.e", time.Second)
		e.Emit("evt.e", 1)
		e.Emit("evt.e", 2)
		got, err := w.Result(ctx)
		if err != nil {
			t.Fatalf("Result failed: %v", err)
		}
		if got[0] != 1 {
			t.Errorf("expected first emission to win, got %v", got)
		}
	})

	t.Run("zero timeout selects the default", func(t *testing.T) {
		e := NewEmitter()
		w := e.WaitFor("evt.f", 0)
		defer w.Cancel()
		go e.Emit("evt.f", "ok")
		if _, err := w.Result(ctx); err != nil {
			t.Fatalf("Result failed: %v", err)
		}
	})

	t.Run("result honors caller context", func(t *testing.T) {
		e := NewEmitter()
		w := e.WaitFor("evt.g", time.Hour)
		defer w.Cancel()

		cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		_, err := w.Result(cctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected context deadline, got %v", err)
		}
	})
}

func TestWaitForCorrelator(t *testing.T) {
	ctx := context.Background()
	e := NewEmitter()
	logger := testLogger()
	wf := newWaitFor(e, "m1", logger)

	t.Run("ack resolves on matching correlation id only", func(t *testing.T) {
		w := wf.WaitForAck(100 * time.Millisecond)
		e.Emit("ack.other")
		select {
		case <-w.Done():
			t.Fatal("ack for another id resolved the wait")
		case <-time.After(10 * time.Millisecond):
		}
		e.Emit("ack.m1")
		if _, err := w.Result(ctx); err != nil {
			t.Fatalf("WaitForAck failed: %v", err)
		}
	})

	t.Run("reply resolves on matching correlation id only", func(t *testing.T) {
		w := wf.WaitForReply(100 * time.Millisecond)
		e.Emit("response.other", &ResponseMessage{ID: "other"})
		e.Emit("response.m1", &ResponseMessage{ID: "m1", Status: "ok", Data: "pong"})
		args, err := w.Result(ctx)
		if err != nil {
			t.Fatalf("WaitForReply failed: %v", err)
		}
		reply, ok := args[0].(*ResponseMessage)
		if !ok || reply.ID != "m1" || reply.Data != "pong" {
			t.Errorf("unexpected reply: %v", args)
		}
	})

	t.Run("message id accessor", func(t *testing.T) {
		if wf.MessageID() != "m1" {
			t.Errorf("expected m1, got %q", wf.MessageID())
		}
	})
}
