package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestChatParticipantKeyIsOrderInsensitive(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()

	key1 := ChatParticipantKey([]uuid.UUID{a, b, c})
	key2 := ChatParticipantKey([]uuid.UUID{c, a, b})
	if key1 != key2 {
		t.Fatalf("expected identical keys, got %q and %q", key1, key2)
	}
}

func TestChatParticipantKeyDropsDuplicates(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	key1 := ChatParticipantKey([]uuid.UUID{a, b, a, b})
	key2 := ChatParticipantKey([]uuid.UUID{a, b})
	if key1 != key2 {
		t.Fatalf("expected duplicate ids to collapse, got %q and %q", key1, key2)
	}
}

func TestExcludeSelf(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	out := ExcludeSelf([]uuid.UUID{self, other, other}, self)
	if len(out) != 1 || out[0] != other {
		t.Fatalf("expected only the other participant, got %v", out)
	}
}

func TestExcludeSelfWithOnlySelfIsEmpty(t *testing.T) {
	self := uuid.New()
	if out := ExcludeSelf([]uuid.UUID{self, self}, self); len(out) != 0 {
		t.Fatalf("expected empty participant set, got %v", out)
	}
}
