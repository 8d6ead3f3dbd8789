package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinLimit(t *testing.T) {
	l := New(time.Minute)
	for i := 0; i < 5; i++ {
		if !l.Allow("key-a", 5) {
			t.Fatalf("request %d denied within limit", i)
		}
	}
}

func TestAllowDeniesOverLimit(t *testing.T) {
	l := New(time.Hour) // long window so refill is negligible
	for i := 0; i < 3; i++ {
		if !l.Allow("key-b", 3) {
			t.Fatalf("request %d denied within limit", i)
		}
	}
	if l.Allow("key-b", 3) {
		t.Error("request allowed over limit")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(time.Hour)
	for i := 0; i < 2; i++ {
		l.Allow("key-c", 2)
	}
	if l.Allow("key-c", 2) {
		t.Error("exhausted key allowed")
	}
	if !l.Allow("key-d", 2) {
		t.Error("fresh key denied")
	}
}

func TestReset(t *testing.T) {
	l := New(time.Hour)
	for i := 0; i < 2; i++ {
		l.Allow("key-e", 2)
	}
	if l.Allow("key-e", 2) {
		t.Fatal("exhausted key allowed before reset")
	}
	l.Reset("key-e")
	if !l.Allow("key-e", 2) {
		t.Error("key denied after reset")
	}
}

func TestTokensRefill(t *testing.T) {
	l := New(100 * time.Millisecond)
	for i := 0; i < 2; i++ {
		l.Allow("key-f", 2)
	}
	if l.Allow("key-f", 2) {
		t.Fatal("exhausted key allowed before refill")
	}
	time.Sleep(150 * time.Millisecond)
	if !l.Allow("key-f", 2) {
		t.Error("key denied after full refill window")
	}
}
