package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := Errf(KindDuplicateKey, "User with id %d already exists.", 7)
	if KindOf(err) != KindDuplicateKey {
		t.Errorf("KindOf = %s, want %s", KindOf(err), KindDuplicateKey)
	}
	if err.Error() != "User with id 7 already exists." {
		t.Errorf("message = %q", err.Error())
	}

	wrapped := fmt.Errorf("import users: %w", err)
	if KindOf(wrapped) != KindDuplicateKey {
		t.Error("KindOf should see through wrapping")
	}

	if KindOf(errors.New("boom")) != KindInternal {
		t.Error("unclassified errors default to KindInternal")
	}
}

func TestIsKind(t *testing.T) {
	err := Errf(KindNotFound, "User not found")
	if !IsKind(err, KindNotFound) {
		t.Error("IsKind should match")
	}
	if IsKind(err, KindValidation) {
		t.Error("IsKind should not match a different kind")
	}
	if IsKind(nil, KindNotFound) {
		t.Error("IsKind(nil) must be false")
	}
}
