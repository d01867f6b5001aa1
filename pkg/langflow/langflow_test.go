package langflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const otherID = "0f8fad5b-d9cb-469f-a165-70867728950e"

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(filepath.Join(t.TempDir(), "langflow_flows.json"), "")
	require.NoError(t, err)
	return r
}

func TestRegistry_Seed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "langflow_flows.json")
	r, err := NewRegistry(path, "http://flows:7860/")
	require.NoError(t, err)

	f, err := r.Get(DefaultFlowKey)
	require.NoError(t, err)
	assert.Equal(t, DefaultFlowID, f.ID)
	assert.Equal(t, "http://flows:7860", f.HostURL)
	assert.True(t, f.IsActive)

	raw, err := json.Marshal(r.List())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"active_count":1`)

	reopened, err := NewRegistry(path, "ignored")
	require.NoError(t, err)
	f, err = reopened.Get(DefaultFlowKey)
	require.NoError(t, err)
	assert.Equal(t, "http://flows:7860", f.HostURL, "existing file wins over seed")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "customer_support_bot", Key("Customer Support-Bot"))
	assert.True(t, ValidID(DefaultFlowID))
	assert.False(t, ValidID("not-a-uuid"))
}

func TestRegistry_Register(t *testing.T) {
	r := newRegistry(t)

	f, err := r.Register(Flow{ID: otherID, Name: "Tutor Flow", Description: "Explains maths", Category: "Education", HostURL: "http://h:1/"})
	require.NoError(t, err)
	assert.Equal(t, "tutor_flow", f.Key)
	assert.Equal(t, "http://h:1", f.HostURL)
	assert.Zero(t, f.UsageCount)

	_, err = r.Register(Flow{ID: otherID, Name: "tutor-flow"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
	_, err = r.Register(Flow{ID: "nope", Name: "Other"})
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = r.Register(Flow{ID: otherID})
	assert.ErrorIs(t, err, ErrInvalid)

	plain, err := r.Register(Flow{ID: otherID, Name: "Plain"})
	require.NoError(t, err)
	assert.Equal(t, DefaultCategory, plain.Category)
	assert.Equal(t, DefaultHostURL, plain.HostURL)

	l := r.List()
	assert.Equal(t, 3, l.Count)
	assert.Equal(t, 3, l.ActiveCount)

	assert.Equal(t, []string{"Education", "General"}, r.Categories())
	assert.Len(t, r.ByCategory("education"), 1)
	assert.Len(t, r.Search("MATHS"), 1)
	assert.Len(t, r.Search("flow"), 2)
}

func TestRegistry_UpdateDelete(t *testing.T) {
	r := newRegistry(t)

	name := "Renamed"
	inactive := false
	f, err := r.Update(DefaultFlowKey, Update{Name: &name, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", f.Name)
	assert.False(t, f.IsActive)
	assert.NotNil(t, f.UpdatedAt)
	assert.Equal(t, DefaultFlowKey, f.Key, "key does not follow the name")

	_, err = r.Active()
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Update("ghost", Update{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Delete(DefaultFlowKey)
	require.NoError(t, err)
	_, err = r.Delete(DefaultFlowKey)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, r.List().Count)
}

func TestRegistry_Active(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Register(Flow{ID: otherID, Name: "Alpha"})
	require.NoError(t, err)

	f, err := r.Active()
	require.NoError(t, err)
	assert.Equal(t, "alpha", f.Key, "first active flow by key when none used")

	used, err := r.SetActive(DefaultFlowKey)
	require.NoError(t, err)
	assert.Equal(t, 1, used.UsageCount)
	require.NotNil(t, used.LastUsed)

	f, err = r.Active()
	require.NoError(t, err)
	assert.Equal(t, DefaultFlowKey, f.Key)

	time.Sleep(2 * time.Millisecond)
	_, err = r.SetActive("alpha")
	require.NoError(t, err)
	f, err = r.Active()
	require.NoError(t, err)
	assert.Equal(t, "alpha", f.Key)

	_, err = r.SetActive("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"nested outputs", `{"outputs":[{"outputs":[{"results":{"message":{"data":{"text":"Hello there"}}}}]}]}`, "Hello there"},
		{"artifacts", `{"artifacts":{"message":"From artifacts"}}`, "From artifacts"},
		{"outputs message object", `{"outputs":{"message":{"message":"Deep"}}}`, "Deep"},
		{"outputs message string", `{"outputs":{"message":"Flat"}}`, "Flat"},
		{"messages array", `{"messages":[{"message":"First"}]}`, "First"},
		{"long string", `{"session_id":"langflow_session","reply":"This is a fairly long reply text"}`, "This is a fairly long reply text"},
		{"common keys", `{"x":{"content":"short"}}`, "short"},
		{"list", `[{"artifacts":{"message":"In list"}}]`, "In list"},
		{"nothing", `{"a":1}`, NoResponse},
		{"empty list", `[]`, NoResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v interface{}
			require.NoError(t, json.Unmarshal([]byte(tt.body), &v))
			assert.Equal(t, tt.want, ExtractText(v))
		})
	}
}

func newLangflowServer(t *testing.T) (*httptest.Server, *runRequest) {
	t.Helper()
	var got runRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/api/v1/flows", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"` + DefaultFlowID + `","name":"Default"}]`))
	})
	mux.HandleFunc("/api/v1/run/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`[{"execution_time":1.5,"outputs":[{"outputs":[{"results":{"message":{"data":{"text":"echo: ` + got.InputValue + `"}}}}]}]}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestClient(t *testing.T) {
	srv, got := newLangflowServer(t)
	c := NewClient(srv.URL + "/")
	ctx := context.Background()

	h, err := c.CheckConnection(ctx)
	require.NoError(t, err)
	assert.Equal(t, "connected", h.Status)
	assert.Equal(t, srv.URL, h.HostURL)

	flows, err := c.Flows(ctx)
	require.NoError(t, err)
	assert.Len(t, flows, 1)

	res, err := c.Run(ctx, DefaultFlowID, "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", res.Response)
	assert.Equal(t, 1.5, res.ExecutionTime)
	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, "chat", got.InputType)
	assert.Equal(t, "chat", got.OutputType)
	assert.Equal(t, res.SessionID, got.SessionID)
}

func TestClient_NonJSONHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>hello</html>"))
	}))
	defer srv.Close()

	h, err := NewClient(srv.URL).CheckConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "connected", h.Status)
}

func TestClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.CheckConnection(context.Background())
	assert.Error(t, err)
	_, err = c.Run(context.Background(), DefaultFlowID, "hi", "s1")
	assert.Error(t, err)
}

func TestService(t *testing.T) {
	srv, got := newLangflowServer(t)
	r, err := NewRegistry(filepath.Join(t.TempDir(), "flows.json"), srv.URL)
	require.NoError(t, err)
	s := NewService(r, time.Second)
	ctx := context.Background()

	test, err := s.TestConnection(ctx, DefaultFlowKey)
	require.NoError(t, err)
	assert.Equal(t, StatusPassed, test.Status)

	_, err = r.Register(Flow{ID: otherID, Name: "Offline", HostURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	test, err = s.TestConnection(ctx, "offline")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, test.Status)
	assert.NotEmpty(t, test.Error)

	_, err = s.TestConnection(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	res, flow, err := s.Chat(ctx, "", "hello", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", res.Response)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, 1, flow.UsageCount)

	assert.Same(t, s.Client(srv.URL), s.Client(srv.URL))
}
