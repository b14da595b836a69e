package predictor

import "testing"

func TestRegistryResolvesRegisteredKind(t *testing.T) {
	r := NewRegistry()
	r.Register(KindLinear, func() Predictor { return NewLinear(1.0) })

	p, err := r.New(KindLinear)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Kind() != string(KindLinear) {
		t.Fatalf("expected a linear predictor, got kind %q", p.Kind())
	}
}

func TestRegistryUnknownKindErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.New(KindLinear); err == nil {
		t.Fatal("expected an unregistered kind to error")
	}
}

func TestRegistryRejectsCommunityRestrictedKinds(t *testing.T) {
	r := NewRegistry()
	// Even if a factory happens to be registered under a legacy alias,
	// community-edition kinds must still be rejected.
	r.Register(KindFastBoost, func() Predictor { return NewLinear(1.0) })

	for _, kind := range []Kind{KindFastBoost, KindMultirel, KindRelboost, KindRelMT} {
		if _, err := r.New(kind); err == nil {
			t.Fatalf("expected kind %q to be rejected in the community edition", kind)
		}
	}
}

func TestRegistryOverwritesPriorRegistration(t *testing.T) {
	r := NewRegistry()
	calls := 0
	r.Register(KindLinear, func() Predictor { calls++; return NewLinear(1.0) })
	r.Register(KindLinear, func() Predictor { calls += 10; return NewLinear(2.0) })

	p, err := r.New(KindLinear)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.(*Linear).Ridge != 2.0 {
		t.Fatalf("expected the second registration to win, got ridge %v", p.(*Linear).Ridge)
	}
	if calls != 10 {
		t.Fatalf("expected only the second factory to run, got calls=%d", calls)
	}
}
