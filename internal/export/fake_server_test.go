package export_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aviator-co/adoexport/internal/config"
	"github.com/aviator-co/adoexport/internal/devops"
	"github.com/aviator-co/adoexport/internal/export"
	"github.com/stretchr/testify/require"
)

const (
	testOrg     = "contoso"
	testProject = "Fabrikam"
	testUser    = "jane@contoso.com"
	testPAT     = "secret-pat"
)

// fakeDevOps is a minimal stand-in for the Azure DevOps REST API. Every
// request is recorded.
type fakeDevOps struct {
	t *testing.T

	repos []devops.Repository
	// commits by repository ID; a missing key means 404.
	commits map[string][]map[string]any
	// status overrides the response status for a repository's commit search.
	status    map[string]int
	relations []devops.WorkItemRelation
	workItems map[int]devops.WorkItem

	mu       sync.Mutex
	requests []recordedRequest

	*httptest.Server
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

func runFakeDevOps(t *testing.T) *fakeDevOps {
	s := &fakeDevOps{
		t:         t,
		commits:   map[string][]map[string]any{},
		status:    map[string]int{},
		workItems: map[int]devops.WorkItem{},
	}
	s.Server = httptest.NewServer(s)
	t.Cleanup(s.Close)
	return s
}

func (s *fakeDevOps) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != testUser || pass != testPAT {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	req := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
	if r.Body != nil && r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req.Body); err != nil {
			s.t.Logf("Failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	prefix := "/" + testOrg + "/" + testProject + "/_apis/"
	endpoint := strings.TrimPrefix(r.URL.Path, prefix)
	switch {
	case endpoint == "git/repositories" && r.Method == http.MethodGet:
		s.reply(w, http.StatusOK, map[string]any{"count": len(s.repos), "value": s.repos})
	case strings.HasPrefix(endpoint, "git/repositories/") && strings.HasSuffix(endpoint, "/commitsbatch"):
		id := strings.TrimSuffix(strings.TrimPrefix(endpoint, "git/repositories/"), "/commitsbatch")
		if code, ok := s.status[id]; ok {
			s.reply(w, code, map[string]any{"message": "boom"})
			return
		}
		commits, ok := s.commits[id]
		if !ok {
			s.reply(w, http.StatusNotFound, map[string]any{
				"message": "TF401019: The Git repository with name or identifier " + id + " does not exist",
			})
			return
		}
		if commits == nil {
			commits = []map[string]any{}
		}
		s.reply(w, http.StatusOK, map[string]any{"count": len(commits), "value": commits})
	case endpoint == "wit/wiql":
		s.reply(w, http.StatusOK, map[string]any{
			"queryType":         "oneHop",
			"queryResultType":   "workItemLink",
			"workItemRelations": s.relations,
		})
	case endpoint == "wit/workitemsbatch":
		var items []devops.WorkItem
		for _, id := range req.Body["ids"].([]any) {
			if wi, ok := s.workItems[int(id.(float64))]; ok {
				items = append(items, wi)
			}
		}
		s.reply(w, http.StatusOK, map[string]any{"count": len(items), "value": items})
	default:
		s.t.Logf("Received unexpected request: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (s *fakeDevOps) reply(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.t.Logf("Failed to encode response: %v", err)
	}
}

func (s *fakeDevOps) Requests() []recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedRequest(nil), s.requests...)
}

func (s *fakeDevOps) RequestsTo(suffix string) []recordedRequest {
	var matching []recordedRequest
	for _, r := range s.Requests() {
		if strings.HasSuffix(r.Path, suffix) {
			matching = append(matching, r)
		}
	}
	return matching
}

func (s *fakeDevOps) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func (s *fakeDevOps) config(t *testing.T) *config.Config {
	return &config.Config{
		BaseURL:       s.URL,
		Organization:  testOrg,
		Project:       testProject,
		Username:      testUser,
		Password:      testPAT,
		Author:        testUser,
		FromDate:      "2019-01-01",
		OutputDir:     t.TempDir(),
		CommitsDir:    "commits",
		WorkItemsFile: "wi.json",
		CommitTop:     1000000,
		BatchSize:     200,
		WorkItems: config.WorkItems{
			Types: []string{"User Story", "Bug", "Task"},
		},
	}
}

func (s *fakeDevOps) exporter(t *testing.T, cfg *config.Config) *export.Exporter {
	client, err := devops.NewClient(cfg.APIBaseURL(), cfg.Username, cfg.Password, devops.WithHTTPClient(s.Client()))
	require.NoError(t, err)
	return newExporter(t, cfg, client)
}

func newExporter(t *testing.T, cfg *config.Config, api export.API) *export.Exporter {
	e, err := export.New(cfg, api)
	require.NoError(t, err)
	return e
}
