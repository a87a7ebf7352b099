package ctxt

import "testing"

func TestInitLoadsMemDriver(t *testing.T) {
	if drv == nil {
		t.Fatal("unexpected nil drv")
	}
	if gpu == nil {
		t.Fatal("unexpected nil gpu")
	}
	if limits != gpu.Limits() {
		t.Error("unexpected limits value")
	}
	if Driver() != drv || GPU() != gpu {
		t.Error("accessors disagree with package state")
	}
}

func TestLoadRejectsUnknownName(t *testing.T) {
	if err := Load("no-such-driver"); err == nil {
		t.Error("expected an error loading an unregistered driver name")
	}
}
