package session

import (
	"sync"
	"testing"
)

func exactIntersects(a, b string) bool { return a == b }

func TestSession_DispatchSample_InvokesMatchingCallback(t *testing.T) {
	s := New(exactIntersects)

	var got Sample
	cb := func(sample Sample, arg any) { got = sample }
	if _, err := s.RegisterSubscription(true, KeyExpr{Suffix: "a/b"}, cb, nil, nil); err != nil {
		t.Fatalf("RegisterSubscription() error = %v", err)
	}

	if err := s.DispatchSample(KeyExpr{Suffix: "a/b"}, []byte("payload"), "text/plain", 1, Timestamp{}, nil); err != nil {
		t.Fatalf("DispatchSample() error = %v", err)
	}

	if got.KeyExpr != "a/b" || string(got.Payload) != "payload" {
		t.Errorf("sample = %+v, want KeyExpr=a/b Payload=payload", got)
	}
}

func TestSession_DispatchSample_UnknownKeyExprPropagates(t *testing.T) {
	s := New(exactIntersects)

	err := s.DispatchSample(KeyExpr{ID: 99, Suffix: "x"}, nil, "", 0, Timestamp{}, nil)
	if err == nil {
		t.Fatal("DispatchSample() error = nil, want UnknownKeyExprError")
	}
}

// A callback that reenters the session must not deadlock the sample
// dispatch path: the lock is released before DispatchSample's
// callbacks run.
func TestSession_DispatchSample_CallbackMayReenterSession(t *testing.T) {
	s := New(exactIntersects)

	reentered := false
	cb := func(sample Sample, arg any) {
		// Reentering from a sample callback must be safe: the lock was
		// released before this call.
		s.DeclareResource(true, 1, KeyExpr{Suffix: "reentrant/"})
		reentered = true
	}
	if _, err := s.RegisterSubscription(true, KeyExpr{Suffix: "a"}, cb, nil, nil); err != nil {
		t.Fatalf("RegisterSubscription() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = s.DispatchSample(KeyExpr{Suffix: "a"}, nil, "", 0, Timestamp{}, nil)
		close(done)
	}()
	<-done

	if !reentered {
		t.Fatal("callback did not run")
	}
}

func TestSession_RegisterQuery_DuplicateRejected(t *testing.T) {
	s := New(exactIntersects)

	if err := s.RegisterQuery(&PendingQuery{QueryID: 1}); err != nil {
		t.Fatalf("first RegisterQuery() error = %v", err)
	}
	if err := s.RegisterQuery(&PendingQuery{QueryID: 1}); err == nil {
		t.Fatal("second RegisterQuery() error = nil, want duplicate error")
	}
}

func TestSession_OnFinalReply_UnregistersQuery(t *testing.T) {
	s := New(exactIntersects)
	var calls int
	q := &PendingQuery{
		QueryID:       1,
		TargetKind:    AllKinds,
		Consolidation: ConsolidationNone,
		Callback:      func(Reply, any) { calls++ },
	}
	if err := s.RegisterQuery(q); err != nil {
		t.Fatalf("RegisterQuery() error = %v", err)
	}

	s.OnFinalReply(ReplyContext{QueryID: 1, Final: true})

	if s.QueryByID(1) != nil {
		t.Error("QueryByID() after final reply = non-nil, want nil")
	}
	if calls != 1 {
		t.Errorf("callback invoked %d times, want 1 (the synthetic FINAL)", calls)
	}
}

func TestSession_Flush_ClearsSubscriptionsAndQueries(t *testing.T) {
	s := New(exactIntersects)
	dropped := false
	_, _ = s.RegisterSubscription(true, KeyExpr{Suffix: "a"}, func(Sample, any) {}, nil, func(any) { dropped = true })
	_ = s.RegisterQuery(&PendingQuery{QueryID: 1, Callback: func(Reply, any) {}})

	s.Flush()

	if !dropped {
		t.Error("Flush() did not invoke subscription dropper")
	}
	if s.QueryByID(1) != nil {
		t.Error("QueryByID() after Flush() = non-nil, want nil")
	}
}

// Concurrent put/get/subscribe from many goroutines must not race: a
// real deployment has a background receive loop and application
// goroutines calling into the same session simultaneously.
func TestSession_ConcurrentAccess(t *testing.T) {
	s := New(exactIntersects)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := uint64(i + 1)
			_ = s.RegisterQuery(&PendingQuery{QueryID: id, TargetKind: AllKinds, Callback: func(Reply, any) {}})
			s.OnFinalReply(ReplyContext{QueryID: id, Final: true})
		}(i)
	}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.RegisterSubscription(true, KeyExpr{Suffix: keyForIndex(i)}, func(Sample, any) {}, nil, nil)
		}(i)
	}
	wg.Wait()
}

func keyForIndex(i int) string {
	letters := "abcdefghijklmnopqrstuvwxyz"
	return string(letters[i%len(letters)]) + string(letters[(i/len(letters))%len(letters)])
}
