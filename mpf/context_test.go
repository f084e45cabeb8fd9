package mpf

import "testing"

func TestContextAddRemove(t *testing.T) {
	ctx := NewContext("ctx1", 5)
	t1 := &Termination{ID: "t1"}
	t2 := &Termination{ID: "t2"}
	ctx.Add(t1)
	ctx.Add(t2)

	if got := ctx.Terminations(); len(got) != 2 {
		t.Fatalf("len(Terminations()) = %d, want 2", len(got))
	}

	ctx.Remove(t1)
	got := ctx.Terminations()
	if len(got) != 1 || got[0] != t2 {
		t.Fatalf("after Remove(t1), Terminations() = %v, want [t2]", got)
	}
}

func TestCommandIDString(t *testing.T) {
	cases := map[CommandID]string{
		CommandAdd:      "ADD",
		CommandModify:   "MODIFY",
		CommandSubtract: "SUBTRACT",
		CommandID(99):   "UNKNOWN",
	}
	for id, want := range cases {
		if got := id.String(); got != want {
			t.Errorf("CommandID(%d).String() = %q, want %q", id, got, want)
		}
	}
}
