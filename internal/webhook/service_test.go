package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake/extractor"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/apperr"
)

type fakeKeys struct {
	byHash map[string]APIKey
}

func (f *fakeKeys) GetByHash(_ context.Context, hash string) (APIKey, error) {
	if k, ok := f.byHash[hash]; ok {
		return k, nil
	}
	return APIKey{}, ErrAPIKeyNotFound
}

func (f *fakeKeys) Create(_ context.Context, p CreateKeyParams) (APIKey, error) {
	k := APIKey{ID: uuid.New(), Name: p.Name, KeyHash: p.KeyHash, KeyPrefix: p.KeyPrefix, DefaultSource: p.DefaultSource, AllowedDomains: p.AllowedDomains, IsActive: true}
	f.byHash[p.KeyHash] = k
	return k, nil
}

func (f *fakeKeys) List(context.Context) ([]APIKey, error) { return nil, nil }

func (f *fakeKeys) Revoke(_ context.Context, id uuid.UUID) error {
	for h, k := range f.byHash {
		if k.ID == id {
			delete(f.byHash, h)
			return nil
		}
	}
	return ErrAPIKeyNotFound
}

type fakePipeline struct {
	seen []extractor.Candidate
	fail string
}

func (f *fakePipeline) ProcessCandidate(_ context.Context, cand extractor.Candidate, _ string) (intake.Result, error) {
	f.seen = append(f.seen, cand)
	if cand.FirstName == f.fail {
		return intake.Result{}, errors.New("boom")
	}
	if !cand.HasContact() {
		return intake.Result{Outcome: intake.OutcomeDiscarded, Source: cand.Source}, nil
	}
	return intake.Result{Outcome: intake.OutcomeCreatedUnassigned, Source: cand.Source}, nil
}

func TestIngestReportsPerItemOutcomes(t *testing.T) {
	pipeline := &fakePipeline{fail: "Bad"}
	svc := NewService(&fakeKeys{byHash: map[string]APIKey{}}, pipeline, nil)
	key := APIKey{ID: uuid.New(), DefaultSource: "Landing Page"}

	summary, err := svc.Ingest(context.Background(), key, []byte(`{"data":[
		{"firstName":"Ana","email":"ana@x.com"},
		{"firstName":"Bad","email":"bad@x.com"},
		{"firstName":"NoContact","source":"Zillow"}
	]}`))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if summary.Received != 3 || summary.Failed != 1 {
		t.Fatalf("received %d failed %d", summary.Received, summary.Failed)
	}
	if summary.Outcomes[intake.OutcomeCreatedUnassigned] != 1 || summary.Outcomes[intake.OutcomeDiscarded] != 1 {
		t.Fatalf("outcomes %v", summary.Outcomes)
	}
	if summary.Items[1].Error == "" || summary.Items[1].Result != nil {
		t.Fatalf("failed item %+v", summary.Items[1])
	}
	if pipeline.seen[0].Source != "Landing Page" || pipeline.seen[2].Source != "Zillow" {
		t.Fatalf("sources %q %q", pipeline.seen[0].Source, pipeline.seen[2].Source)
	}
}

func TestIngestRejectsMalformedBody(t *testing.T) {
	svc := NewService(&fakeKeys{byHash: map[string]APIKey{}}, &fakePipeline{}, nil)
	_, err := svc.Ingest(context.Background(), APIKey{}, []byte(`nope`))
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("err = %v, want bad request", err)
	}
}

func TestCreateKeyStoresOnlyHash(t *testing.T) {
	keys := &fakeKeys{byHash: map[string]APIKey{}}
	svc := NewService(keys, &fakePipeline{}, nil)
	created, err := svc.CreateKey(context.Background(), " Site ", "", []string{" Example.com ", ""}, nil)
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	if !strings.HasPrefix(created.Plaintext, "whk_") || created.KeyPrefix != created.Plaintext[:12] {
		t.Fatalf("unexpected key %q prefix %q", created.Plaintext, created.KeyPrefix)
	}
	stored, err := keys.GetByHash(context.Background(), HashKey(created.Plaintext))
	if err != nil {
		t.Fatalf("stored key not found by hash: %v", err)
	}
	if stored.DefaultSource != intake.ChannelWebhook || len(stored.AllowedDomains) != 1 || stored.AllowedDomains[0] != "example.com" {
		t.Fatalf("unexpected stored key %+v", stored)
	}
	if err := svc.RevokeKey(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("revoke unknown: %v", err)
	}
}

func TestWebhookEndpointAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	keys := &fakeKeys{byHash: map[string]APIKey{}}
	svc := NewService(keys, &fakePipeline{}, nil)
	created, err := svc.CreateKey(context.Background(), "site", "Website", []string{"example.com"}, nil)
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}

	r := gin.New()
	r.POST("/webhook/leads", APIKeyAuthMiddleware(keys), NewHandler(svc).HandleLeads)

	tests := []struct {
		name   string
		key    string
		origin string
		want   int
	}{
		{"missing key", "", "https://example.com", http.StatusUnauthorized},
		{"wrong key", "whk_nope", "https://example.com", http.StatusUnauthorized},
		{"wrong origin", created.Plaintext, "https://other.com", http.StatusForbidden},
		{"ok", created.Plaintext, "https://example.com", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhook/leads", strings.NewReader(`{"firstName":"Ana","email":"ana@x.com"}`))
			req.Header.Set("Content-Type", "application/json")
			if tt.key != "" {
				req.Header.Set(headerAPIKey, tt.key)
			}
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}
