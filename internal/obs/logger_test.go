package obs

import "testing"

func TestInitThenCloseAllowsReinit(t *testing.T) {
	if err := Init(Config{Development: true, Level: "debug"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Close()

	if GetLogger() == nil {
		t.Fatal("expected a non-nil logger after Init")
	}

	if err := Init(Config{Development: true}); err == nil {
		t.Fatal("expected a second Init before Close to error")
	}

	if err := Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := Init(Config{Development: true}); err != nil {
		t.Fatalf("expected Init to succeed again after Close, got %v", err)
	}
	Close()
}

func TestGetLoggerLazilyInitializes(t *testing.T) {
	Close() // ensure a clean slate regardless of test ordering
	if GetLogger() == nil {
		t.Fatal("expected GetLogger to lazily initialize a default logger")
	}
	Close()
}

func TestScopedLoggersAttachFields(t *testing.T) {
	Close()
	defer Close()
	if l := WithRun("run-1"); l == nil {
		t.Fatal("expected WithRun to return a non-nil logger")
	}
	if l := WithFrame("orders"); l == nil {
		t.Fatal("expected WithFrame to return a non-nil logger")
	}
	if l := WithFeature("sum:amount"); l == nil {
		t.Fatal("expected WithFeature to return a non-nil logger")
	}
	if l := WithFingerprint(42); l == nil {
		t.Fatal("expected WithFingerprint to return a non-nil logger")
	}
}
