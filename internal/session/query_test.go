package session

import "testing"

func TestQueryRegistry_RegisterAndByID(t *testing.T) {
	r := newQueryRegistry()
	q := &PendingQuery{QueryID: 7}

	if err := r.register(q); err != nil {
		t.Fatalf("register() error = %v, want nil", err)
	}

	if got := r.byID(7); got != q {
		t.Errorf("byID(7) = %v, want %v", got, q)
	}
}

func TestQueryRegistry_DuplicateRejected(t *testing.T) {
	r := newQueryRegistry()
	q1 := &PendingQuery{QueryID: 1}
	q2 := &PendingQuery{QueryID: 1}

	if err := r.register(q1); err != nil {
		t.Fatalf("first register() error = %v, want nil", err)
	}

	err := r.register(q2)
	if err == nil {
		t.Fatal("second register() error = nil, want DuplicateQueryIDError")
	}
	if _, ok := err.(*DuplicateQueryIDError); !ok {
		t.Errorf("error type = %T, want *DuplicateQueryIDError", err)
	}
	if r.byID(1) != q1 {
		t.Error("registry mutated by rejected duplicate registration")
	}
}

func TestQueryRegistry_UnregisterThenByIDIsNil(t *testing.T) {
	r := newQueryRegistry()
	q := &PendingQuery{QueryID: 3}
	_ = r.register(q)

	r.unregister(3)

	if r.byID(3) != nil {
		t.Error("byID() after unregister() = non-nil, want nil")
	}
}

func TestQueryRegistry_Flush(t *testing.T) {
	r := newQueryRegistry()
	_ = r.register(&PendingQuery{QueryID: 1})
	_ = r.register(&PendingQuery{QueryID: 2})

	r.flush()

	if r.byID(1) != nil || r.byID(2) != nil {
		t.Error("registry not empty after flush()")
	}
}

func TestQueryRegistry_NextQueryIDMonotonic(t *testing.T) {
	r := newQueryRegistry()

	first := r.nextQueryID()
	second := r.nextQueryID()

	if second != first+1 {
		t.Errorf("nextQueryID() sequence = %d, %d, want monotonic +1", first, second)
	}
}
