package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"

	"mock-server/api"
	"mock-server/domain"
	"mock-server/storage"
)

func newServer(t *testing.T) *Client {
	t.Helper()
	logger, _ := test.NewNullLogger()
	e := echo.New()
	api.Register(e, storage.NewMemory(), api.Config{}, logger)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestClientRoundTrip(t *testing.T) {
	c := newServer(t)
	ctx := context.Background()

	tasks, err := c.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected empty list, got %d", len(tasks))
	}

	first := domain.NewTask(1, map[string]json.RawMessage{"name": json.RawMessage(`"a"`)})
	second := domain.NewTask(2, nil)
	for _, tk := range []domain.Task{first, second} {
		if err := c.Upsert(ctx, tk); err != nil {
			t.Fatalf("upsert %d: %v", tk.ID, err)
		}
	}
	replaced := domain.NewTask(1, map[string]json.RawMessage{"name": json.RawMessage(`"b"`)})
	if err := c.Upsert(ctx, replaced); err != nil {
		t.Fatalf("upsert replacement: %v", err)
	}

	tasks, err = c.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != 1 || tasks[1].ID != 2 {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
	if string(tasks[0].Fields["name"]) != `"b"` {
		t.Fatalf("expected replaced content, got %s", tasks[0].Fields["name"])
	}

	if err := c.Delete(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := c.Delete(ctx, 1); err != nil {
		t.Fatalf("repeat delete must succeed: %v", err)
	}
	tasks, err = c.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != 2 {
		t.Fatalf("unexpected tasks after delete: %+v", tasks)
	}
}

func TestClientSurfacesStatusErrors(t *testing.T) {
	c := newServer(t)
	err := c.do(context.Background(), http.MethodPost, "/tasks", []byte(`{"name":"no id"}`), nil)
	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if serr.Code != http.StatusBadRequest || serr.Message == "" {
		t.Fatalf("unexpected status error: %+v", serr)
	}
}
