package apt

import "testing"

func TestMessagePoolWarmAcquireRelease(t *testing.T) {
	p := NewMessagePool(2)
	if p.Size() != 2 {
		t.Fatalf("expected warm pool of 2, got %d", p.Size())
	}

	m1 := p.Acquire()
	m2 := p.Acquire()
	if p.Size() != 0 {
		t.Fatalf("expected pool drained, got %d", p.Size())
	}

	// Dynamic growth: pool is empty, Acquire must still succeed.
	m3 := p.Acquire()
	if m3 == nil {
		t.Fatal("Acquire on empty pool should allocate, not return nil")
	}

	m1.Type = 7
	m1.Data = "x"
	p.Release(m1)
	if p.Size() != 1 {
		t.Fatalf("expected 1 after release, got %d", p.Size())
	}

	m1again := p.Acquire()
	if m1again.Type != 0 || m1again.Data != nil {
		t.Fatal("Release must clear Type/Data before returning to the pool")
	}

	p.Release(m2)
	p.Release(m3)
}
