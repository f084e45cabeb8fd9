package apt

import (
	"errors"
	"testing"
	"time"
)

func TestTaskLifecycle(t *testing.T) {
	ran := make(chan struct{})
	var preRun, postRun bool

	tk := New("t1", Hooks{
		PreRun: func() { preRun = true },
		Run: func() {
			close(ran)
		},
		PostRun: func() { postRun = true },
	})

	if tk.State() != StateIdle {
		t.Fatalf("expected idle, got %v", tk.State())
	}
	if !tk.Start() {
		t.Fatal("Start returned false")
	}

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("Run never executed")
	}

	tk.WaitTillComplete()

	if !preRun || !postRun {
		t.Fatalf("expected PreRun and PostRun both invoked, got preRun=%v postRun=%v", preRun, postRun)
	}
	if tk.State() != StateIdle {
		t.Fatalf("expected task back to idle after completion, got %v", tk.State())
	}
}

func TestTaskStartTwiceFails(t *testing.T) {
	block := make(chan struct{})
	tk := New("t2", Hooks{Run: func() { <-block }})

	if !tk.Start() {
		t.Fatal("first Start should succeed")
	}
	if tk.Start() {
		t.Fatal("second Start should fail while already running")
	}
	close(block)
	tk.WaitTillComplete()
}

func TestTaskStartFailureLeavesIdle(t *testing.T) {
	tk := New("t3", Hooks{
		OnStart: func() error { return errors.New("setup failed") },
		Run:     func() { t.Fatal("Run must not execute when OnStart fails") },
	})

	if tk.Start() {
		t.Fatal("Start should report failure when OnStart errors")
	}
	if tk.State() != StateIdle {
		t.Fatalf("expected idle after failed start, got %v", tk.State())
	}
}

func TestTaskTerminateWhileRunningInvokesOnTerminate(t *testing.T) {
	terminated := make(chan struct{})
	proceed := make(chan struct{})

	tk := New("t4", Hooks{
		Run: func() {
			<-proceed
		},
		OnTerminate: func() {
			close(terminated)
		},
	})
	tk.Start()

	// Give the goroutine a chance to reach StateRunning before terminating.
	for tk.State() != StateRunning {
		time.Sleep(time.Millisecond)
	}

	tk.Terminate(false)
	select {
	case <-terminated:
	case <-time.After(time.Second):
		t.Fatal("OnTerminate was not invoked")
	}
	close(proceed)
	tk.WaitTillComplete()
}
