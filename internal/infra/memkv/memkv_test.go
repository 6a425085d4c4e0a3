package memkv

import (
	"errors"
	"testing"
)

func TestStore_SaveLoad(t *testing.T) {
	s := New()
	if _, ok, err := s.Load("k"); ok || err != nil {
		t.Fatalf("Load(missing) = %v, %v", ok, err)
	}

	buf := []byte("abc")
	if err := s.Save("k", buf); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'z' // must not alias stored bytes

	got, ok, err := s.Load("k")
	if err != nil || !ok || string(got) != "abc" {
		t.Fatalf("Load() = %q, %v, %v; want abc", got, ok, err)
	}
	if s.Saves() != 1 {
		t.Errorf("Saves() = %d, want 1", s.Saves())
	}
}

func TestStore_Failures(t *testing.T) {
	boom := errors.New("disk full")
	s := New()
	s.FailSave = boom
	if err := s.Save("k", []byte("v")); !errors.Is(err, boom) {
		t.Errorf("Save() error = %v, want %v", err, boom)
	}
	s.FailLoad = boom
	if _, _, err := s.Load("k"); !errors.Is(err, boom) {
		t.Errorf("Load() error = %v, want %v", err, boom)
	}
	if len(s.Keys()) != 0 {
		t.Errorf("Keys() = %v, want empty", s.Keys())
	}
}
