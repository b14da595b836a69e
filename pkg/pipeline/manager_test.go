package pipeline

import (
	"testing"

	"fastprop/pkg/datamodel"
	"fastprop/pkg/fastprop"
	"fastprop/pkg/preprocess"
)

func newUnfittedPipeline(name string) *Pipeline {
	root := &datamodel.Placeholder{Name: "p"}
	return New(name, root, fastprop.DefaultConfig(), preprocess.NewChain())
}

func TestManagerPutAndGet(t *testing.T) {
	m := NewManager()
	p := newUnfittedPipeline("first")
	m.Put(p)

	got, err := m.Get("first")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != p {
		t.Fatal("expected Get to return the exact pipeline that was Put")
	}
}

func TestManagerGetMissingErrors(t *testing.T) {
	m := NewManager()
	if _, err := m.Get("nope"); err == nil {
		t.Fatal("expected an error for an unregistered pipeline name")
	}
}

func TestManagerDeployRejectsUnfitted(t *testing.T) {
	m := NewManager()
	m.Put(newUnfittedPipeline("p"))
	if err := m.Deploy("p"); err == nil {
		t.Fatal("expected Deploy to reject a pipeline that has never been fit")
	}
	if m.IsDeployed("p") {
		t.Fatal("expected IsDeployed to stay false after a rejected Deploy")
	}
}

func TestManagerNamesListsRegistered(t *testing.T) {
	m := NewManager()
	m.Put(newUnfittedPipeline("a"))
	m.Put(newUnfittedPipeline("b"))
	if len(m.Names()) != 2 {
		t.Fatalf("expected 2 registered pipelines, got %v", m.Names())
	}
}

func TestManagerRefreshUnfittedReturnsNilWithoutError(t *testing.T) {
	m := NewManager()
	m.Put(newUnfittedPipeline("p"))
	store := NewFrameStore()

	scores, err := m.Refresh("p", store)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if scores != nil {
		t.Fatalf("expected nil scores for an unfitted pipeline, got %v", scores)
	}
}

func TestManagerRefreshAllSkipsUnfittedPipelines(t *testing.T) {
	m := NewManager()
	m.Put(newUnfittedPipeline("p"))
	store := NewFrameStore()

	results := m.RefreshAll(store, nil)
	if len(results) != 0 {
		t.Fatalf("expected RefreshAll to skip pipelines that were never fit, got %v", results)
	}
}

func TestNewPredictorRegistryRejectsCommunityKinds(t *testing.T) {
	reg := NewPredictorRegistry()
	if _, err := reg.New("linear"); err != nil {
		t.Fatalf("expected linear to be constructible, got %v", err)
	}
	if _, err := reg.New("xgboost"); err == nil {
		t.Fatal("expected xgboost to be rejected since no factory is registered for it")
	}
	if _, err := reg.New("fastboost"); err == nil {
		t.Fatal("expected fastboost to be rejected as a community-restricted kind")
	}
}
