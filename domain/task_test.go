package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/bytedance/sonic"
)

func TestParseTask(t *testing.T) {
	task, err := ParseTask([]byte(`{"id": 7, "name": "a", "tags": ["x", "y"], "meta": {"done": false}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !task.HasID() || task.ID != 7 {
		t.Fatalf("unexpected identity: %+v", task)
	}
	if len(task.Fields) != 3 {
		t.Fatalf("expected 3 opaque fields, got %d", len(task.Fields))
	}
	if _, ok := task.Fields[IDField]; ok {
		t.Fatalf("id must not be duplicated into fields")
	}
	if string(task.Fields["name"]) != `"a"` {
		t.Fatalf("unexpected name field: %s", task.Fields["name"])
	}
}

func TestParseTaskRejectsInvalidPayloads(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "missing id", body: `{"name":"no id"}`, wantErr: ErrMissingID},
		{name: "string id", body: `{"id":"1"}`, wantErr: ErrInvalidID},
		{name: "fractional id", body: `{"id":1.5}`, wantErr: ErrInvalidID},
		{name: "exponent id", body: `{"id":1e3}`, wantErr: ErrInvalidID},
		{name: "null id", body: `{"id":null}`, wantErr: ErrInvalidID},
		{name: "overflow id", body: `{"id":92233720368547758070}`, wantErr: ErrInvalidID},
		{name: "array body", body: `[{"id":1}]`, wantErr: ErrNotObject},
		{name: "null body", body: `null`, wantErr: ErrNotObject},
		{name: "scalar body", body: `42`, wantErr: ErrNotObject},
		{name: "malformed", body: `{"id":1`, wantErr: ErrNotObject},
		{name: "empty", body: ``, wantErr: ErrNotObject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTask([]byte(tt.body))
			if err == nil {
				t.Fatalf("expected error for %s", tt.body)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseTaskAcceptsNegativeAndZeroIDs(t *testing.T) {
	for _, body := range []string{`{"id":0}`, `{"id":-12}`} {
		if _, err := ParseTask([]byte(body)); err != nil {
			t.Fatalf("parse %s: %v", body, err)
		}
	}
}

func TestTaskMarshalPutsIDFirst(t *testing.T) {
	task, err := ParseTask([]byte(`{"zeta":1,"id":3,"alpha":{"k":[1,2]}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	payload, err := sonic.Marshal(task)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":3,"alpha":{"k":[1,2]},"zeta":1}`
	if string(payload) != want {
		t.Fatalf("got %s, want %s", payload, want)
	}
}

func TestTaskRoundTripKeepsUnknownFields(t *testing.T) {
	in := `{"id":1,"name":"a","nested":{"deep":[true,null,"s"]},"n":12.5}`
	var task Task
	if err := json.Unmarshal([]byte(in), &task); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var want, got map[string]any
	if err := json.Unmarshal([]byte(in), &want); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	wantJSON, _ := json.Marshal(want)
	gotJSON, _ := json.Marshal(got)
	if string(wantJSON) != string(gotJSON) {
		t.Fatalf("round trip mismatch: got %s, want %s", gotJSON, wantJSON)
	}
}

func TestTaskUnmarshalSurfacesValidationError(t *testing.T) {
	var task Task
	err := json.Unmarshal([]byte(`{"name":"x"}`), &task)
	if err == nil {
		t.Fatal("expected error")
	}
	if task.HasID() {
		t.Fatalf("task must stay unidentified on error")
	}
}

func TestNewTaskDropsShadowedID(t *testing.T) {
	task := NewTask(5, map[string]json.RawMessage{"id": json.RawMessage(`9`), "name": json.RawMessage(`"n"`)})
	if task.ID != 5 || !task.HasID() {
		t.Fatalf("unexpected task: %+v", task)
	}
	if _, ok := task.Fields[IDField]; ok {
		t.Fatalf("id key must be stripped from fields")
	}
}

func TestZeroTaskHasNoID(t *testing.T) {
	if (Task{}).HasID() {
		t.Fatal("zero task must not be identified")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := NewTask(1, map[string]json.RawMessage{"name": json.RawMessage(`"a"`)})
	cp := orig.Clone()
	cp.Fields["name"] = json.RawMessage(`"b"`)
	cp.Fields["extra"] = json.RawMessage(`1`)
	if string(orig.Fields["name"]) != `"a"` || len(orig.Fields) != 1 {
		t.Fatalf("clone mutated original: %+v", orig.Fields)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Field: IDField, Err: ErrMissingID}
	if err.Error() != "id: field is required" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	if (&ValidationError{Err: ErrNotObject}).Error() != ErrNotObject.Error() {
		t.Fatal("field-less error should use the wrapped message")
	}
}
