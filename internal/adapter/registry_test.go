package adapter

import "testing"

func TestRegisterGetList(t *testing.T) {
	registryLock.Lock()
	registry = make(map[string]func() Adapter)
	registryLock.Unlock()

	Register("stub", func() Adapter { return nil })

	if !Exists("stub") {
		t.Fatalf("expected stub to be registered")
	}

	if _, err := Get("missing"); err == nil {
		t.Fatalf("expected error for unknown adapter")
	}

	names := List()
	if len(names) != 1 || names[0] != "stub" {
		t.Fatalf("unexpected registry contents: %v", names)
	}
}
