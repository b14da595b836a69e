package wire

import (
	"testing"

	"fastprop/pkg/columnstore"
	"fastprop/pkg/dataframe"
	"fastprop/pkg/encoding"
	"fastprop/pkg/pipeline"

	"github.com/goccy/go-json"
)

func newTestServer() *Server {
	return NewServer("127.0.0.1:0", pipeline.NewManager(), pipeline.NewFrameStore())
}

func TestDispatchIsAlive(t *testing.T) {
	s := newTestServer()
	resp := s.dispatch(Envelope{Type: "is_alive"})
	if resp.Status != StatusSuccess {
		t.Fatalf("expected is_alive to succeed, got %+v", resp)
	}
}

func TestDispatchUnknownDomainFails(t *testing.T) {
	s := newTestServer()
	resp := s.dispatch(Envelope{Type: "Bogus.op"})
	if resp.Status != "Error" {
		t.Fatalf("expected an unknown domain to fail, got %+v", resp)
	}
}

func TestDispatchUnsupportedDomainFails(t *testing.T) {
	s := newTestServer()
	resp := s.dispatch(Envelope{Type: "Column.get"})
	if resp.Status != "Error" {
		t.Fatalf("expected the Column domain to be rejected as unimplemented, got %+v", resp)
	}
}

func TestDispatchPipelineCreateThenCheck(t *testing.T) {
	s := newTestServer()
	reg := encoding.NewRegistry()
	pop := dataframe.New("p", 0, reg.JoinKeys(), reg.Categorical)
	s.Store.Put("p", pop)

	payload, err := json.Marshal(map[string]any{
		"name":        "orders_model",
		"placeholder": map[string]any{"name": "p"},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	resp := s.dispatch(Envelope{Type: "Pipeline.create", Payload: payload})
	if resp.Status != StatusSuccess {
		t.Fatalf("expected create to succeed, got %+v", resp)
	}

	if _, err := s.Manager.Get("orders_model"); err != nil {
		t.Fatalf("expected the pipeline to be registered after create: %v", err)
	}

	checkPayload, _ := json.Marshal(map[string]any{"name": "orders_model"})
	checkResp := s.dispatch(Envelope{Type: "Pipeline.check", Payload: checkPayload})
	if checkResp.Status != StatusFound {
		t.Fatalf("expected check to succeed with a warnings payload, got %+v", checkResp)
	}
}

func TestDispatchPipelineCreateWithoutPlaceholderFails(t *testing.T) {
	s := newTestServer()
	payload, _ := json.Marshal(map[string]any{"name": "p"})
	resp := s.dispatch(Envelope{Type: "Pipeline.create", Payload: payload})
	if resp.Status != "Error" {
		t.Fatalf("expected create without a placeholder to fail, got %+v", resp)
	}
}

func TestDispatchPipelineUnknownNameFails(t *testing.T) {
	s := newTestServer()
	payload, _ := json.Marshal(map[string]any{"name": "nonexistent"})
	resp := s.dispatch(Envelope{Type: "Pipeline.fit", Payload: payload})
	if resp.Status != "Error" {
		t.Fatalf("expected fit on an unregistered pipeline to fail, got %+v", resp)
	}
}

func TestDispatchDataFrameListColumns(t *testing.T) {
	s := newTestServer()
	reg := encoding.NewRegistry()
	pop := dataframe.New("p", 2, reg.JoinKeys(), reg.Categorical)
	col := columnstore.FromSlice("amount", []float64{1, 2})
	if err := pop.AddNumerical("amount", col); err != nil {
		t.Fatal(err)
	}
	s.Store.Put("p", pop)

	payload, _ := json.Marshal(map[string]any{"frame": "p"})
	resp := s.dispatch(Envelope{Type: "DataFrame.list_columns", Payload: payload})
	if resp.Status != StatusFound {
		t.Fatalf("expected list_columns to succeed, got %+v", resp)
	}

	var names []string
	if err := json.Unmarshal(resp.Payload, &names); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	found := false
	for _, n := range names {
		if n == "amount" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected amount among the listed columns, got %v", names)
	}
}

func TestDispatchDataFrameGetColumnReturnsArrowPayload(t *testing.T) {
	s := newTestServer()
	reg := encoding.NewRegistry()
	pop := dataframe.New("p", 2, reg.JoinKeys(), reg.Categorical)
	col := columnstore.FromSlice("amount", []float64{1, 2})
	if err := pop.AddNumerical("amount", col); err != nil {
		t.Fatal(err)
	}
	s.Store.Put("p", pop)

	payload, _ := json.Marshal(map[string]any{"frame": "p", "column": "amount"})
	resp := s.dispatch(Envelope{Type: "DataFrame.get_column", Payload: payload})
	if resp.Status != StatusFound {
		t.Fatalf("expected get_column to succeed, got %+v", resp)
	}
	if resp.ArrowPayload == nil {
		t.Fatal("expected a non-nil Arrow payload for a numeric column")
	}

	values, err := DecodeNumericColumn(resp.ArrowPayload)
	if err != nil {
		t.Fatalf("DecodeNumericColumn: %v", err)
	}
	if len(values) != 2 || values[0] != 1 || values[1] != 2 {
		t.Fatalf("expected [1,2], got %v", values)
	}
}

func TestDispatchDataFrameGetColumnUnknownColumnFails(t *testing.T) {
	s := newTestServer()
	reg := encoding.NewRegistry()
	pop := dataframe.New("p", 0, reg.JoinKeys(), reg.Categorical)
	s.Store.Put("p", pop)

	payload, _ := json.Marshal(map[string]any{"frame": "p", "column": "missing"})
	resp := s.dispatch(Envelope{Type: "DataFrame.get_column", Payload: payload})
	if resp.Status != "Error" {
		t.Fatalf("expected an unknown column to fail, got %+v", resp)
	}
}
