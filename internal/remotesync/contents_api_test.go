package remotesync

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/MrSnakeDoc/toomanytabs/internal/cache"
	"github.com/MrSnakeDoc/toomanytabs/internal/domain"
	"github.com/MrSnakeDoc/toomanytabs/internal/remote"
	"github.com/MrSnakeDoc/toomanytabs/internal/state"
)

// contentsAPI is a minimal hosted contents API for a single repository.
type contentsAPI struct {
	mu    sync.Mutex
	token string
	files map[string]fakeDoc
	seq   int
}

func (api *contentsAPI) setToken(token string) {
	api.mu.Lock()
	defer api.mu.Unlock()
	api.token = token
}

func (api *contentsAPI) file(name string) (fakeDoc, bool) {
	api.mu.Lock()
	defer api.mu.Unlock()
	f, ok := api.files[name]
	return f, ok
}

func (api *contentsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	defer api.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+api.token {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
		return
	}
	if r.URL.Path == "/repos/o/r" {
		_, _ = w.Write([]byte(`{"full_name":"o/r"}`))
		return
	}
	name, ok := strings.CutPrefix(r.URL.Path, "/repos/o/r/contents/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		f, ok := api.files[name]
		if !ok {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"content":  base64.StdEncoding.EncodeToString(f.content),
			"encoding": "base64",
			"sha":      f.version,
		})
	case http.MethodPut:
		var body struct {
			Content string `json:"content"`
			SHA     string `json:"sha"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, `{"message":"bad body"}`, http.StatusBadRequest)
			return
		}
		cur, exists := api.files[name]
		if exists && body.SHA == "" {
			http.Error(w, `{"message":"sha wasn't supplied"}`, http.StatusUnprocessableEntity)
			return
		}
		if exists && body.SHA != cur.version {
			http.Error(w, `{"message":"does not match"}`, http.StatusConflict)
			return
		}
		content, err := base64.StdEncoding.DecodeString(body.Content)
		if err != nil {
			http.Error(w, `{"message":"bad content"}`, http.StatusBadRequest)
			return
		}
		api.seq++
		sha := fmt.Sprintf("sha-%d", api.seq)
		api.files[name] = fakeDoc{content: content, version: sha}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"content": map[string]string{"sha": sha}})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestSyncAgainstContentsAPI(t *testing.T) {
	api := &contentsAPI{token: "secret", files: map[string]fakeDoc{}}
	api.files[domain.FoldersDocument] = fakeDoc{
		content: []byte(`[{"id":"9","name":"Work","color":"#10B981","dateCreated":"2024-01-01"}]`),
		version: "sha-0",
	}
	srv := httptest.NewServer(api)
	defer srv.Close()

	client, err := remote.NewClient(
		remote.Credentials{Token: "secret", Repository: "https://github.com/o/r"},
		remote.Options{BaseURL: srv.URL, MaxRetries: -1},
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	c := cache.NewFile(t.TempDir())
	o := newTestOrchestrator(t, client, c)
	initialize(t, o)

	if st := o.Status(); st.State != Connected || st.Versions[domain.FoldersDocument] != "sha-0" {
		t.Fatalf("Status() = %+v, want connected with folders at sha-0", st)
	}

	_, err = o.Mutate(func(s *state.Store) error {
		_, err := s.AddBookmark(domain.Bookmark{Title: "Go", URL: "https://go.dev", FolderID: "9", Tags: []string{"Lang"}})
		return err
	})
	if err != nil {
		t.Fatalf("Mutate() error = %v", err)
	}
	waitIdle(t, o)

	st := o.Status()
	if st.State != Connected {
		t.Fatalf("state = %v (%s), want connected", st.State, st.LastError)
	}
	f, ok := api.file(domain.BookmarksDocument)
	if !ok {
		t.Fatal("bookmarks.json not written")
	}
	var got []domain.Bookmark
	if err := json.Unmarshal(f.content, &got); err != nil {
		t.Fatalf("bookmarks.json: %v", err)
	}
	if len(got) != 1 || got[0].FolderID != "9" || got[0].Tags[0] != "lang" {
		t.Errorf("remote bookmarks = %+v", got)
	}
	if st.Versions[domain.BookmarksDocument] != f.version {
		t.Errorf("bookmarks version = %q, want %q", st.Versions[domain.BookmarksDocument], f.version)
	}
	assertCacheMatchesStore(t, c, o)

	// rotating the token on the server side is an auth failure until
	// the orchestrator is reconfigured
	api.setToken("rotated")
	o.SyncNow()
	waitIdle(t, o)
	if st := o.Status(); st.State != Error || !st.AuthFailed {
		t.Fatalf("Status() = %+v, want auth error", st)
	}

	if err := o.Reconfigure(remote.Credentials{Token: "rotated", Repository: "o/r"}); err != nil {
		t.Fatalf("Reconfigure() error = %v", err)
	}
	waitIdle(t, o)
	if st := o.Status(); st.State != Connected {
		t.Errorf("state after Reconfigure = %v (%s), want connected", st.State, st.LastError)
	}
}
