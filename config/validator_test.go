package config

import (
	"errors"
	"testing"
)

type fakeValidator struct {
	err error
}

func (f fakeValidator) Validate() error { return f.err }

func TestValidateAll(t *testing.T) {
	if err := ValidateAll(fakeValidator{}, fakeValidator{}); err != nil {
		t.Errorf("ValidateAll() = %v, want nil", err)
	}

	boom := errors.New("bad config")
	err := ValidateAll(fakeValidator{}, fakeValidator{err: boom}, fakeValidator{})
	if !errors.Is(err, boom) {
		t.Errorf("ValidateAll() = %v, want %v", err, boom)
	}
}
