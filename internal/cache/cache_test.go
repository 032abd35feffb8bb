package cache

import (
	"errors"
	"testing"
	"time"
)

func TestGetOrCompute(t *testing.T) {
	s := NewStore()
	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return calls, nil
	}

	v, err := s.GetOrCompute("wallet:abc:JPY", time.Minute, fetch)
	if err != nil || v.(int) != 1 {
		t.Fatalf("first call = %v, %v; want 1, nil", v, err)
	}

	// Second read within TTL must not call the fetcher again
	v, err = s.GetOrCompute("wallet:abc:JPY", time.Minute, fetch)
	if err != nil || v.(int) != 1 {
		t.Fatalf("cached call = %v, %v; want 1, nil", v, err)
	}
	if calls != 1 {
		t.Errorf("fetcher called %d times, want 1", calls)
	}
}

func TestGetOrComputeExpiry(t *testing.T) {
	s := NewStore()
	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return calls, nil
	}

	if _, err := s.GetOrCompute("k", time.Nanosecond, fetch); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	v, err := s.GetOrCompute("k", time.Minute, fetch)
	if err != nil || v.(int) != 2 {
		t.Fatalf("post-expiry call = %v, %v; want 2, nil", v, err)
	}
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	s := NewStore()
	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}

	if _, err := s.GetOrCompute("k", time.Minute, fetch); err == nil {
		t.Fatal("expected error from first fetch")
	}
	v, err := s.GetOrCompute("k", time.Minute, fetch)
	if err != nil || v.(string) != "ok" {
		t.Fatalf("retry = %v, %v; want ok, nil", v, err)
	}
}

func TestInvalidatePrefix(t *testing.T) {
	s := NewStore()
	fetch := func(v string) func() (interface{}, error) {
		return func() (interface{}, error) { return v, nil }
	}

	_, _ = s.GetOrCompute("invoice:share:tok1", time.Minute, fetch("a"))
	_, _ = s.GetOrCompute("invoice:share:tok2", time.Minute, fetch("b"))
	_, _ = s.GetOrCompute("customer:list", time.Minute, fetch("c"))

	s.Invalidate("invoice:share:")

	calls := 0
	counted := func() (interface{}, error) { calls++; return "new", nil }
	_, _ = s.GetOrCompute("invoice:share:tok1", time.Minute, counted)
	_, _ = s.GetOrCompute("invoice:share:tok2", time.Minute, counted)
	if calls != 2 {
		t.Errorf("invalidated keys recomputed %d times, want 2", calls)
	}

	v, _ := s.GetOrCompute("customer:list", time.Minute, counted)
	if v.(string) != "c" {
		t.Errorf("unrelated key was invalidated, got %v", v)
	}
}

func TestNilStoreAlwaysComputes(t *testing.T) {
	var s *Store
	calls := 0
	for i := 0; i < 3; i++ {
		v, err := s.GetOrCompute("k", time.Minute, func() (interface{}, error) {
			calls++
			return calls, nil
		})
		if err != nil || v.(int) != i+1 {
			t.Fatalf("nil store call %d = %v, %v", i, v, err)
		}
	}
	s.Invalidate("k") // must not panic
}
