package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/distribution"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/dedup"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/domain"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/followup"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/leadstest"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/lifecycle"
	"github.com/phillipshepard1/internal-re-crm-sub000/internal/leads/transport"
	"github.com/phillipshepard1/internal-re-crm-sub000/platform/httpkit"
)

type testServer struct {
	store  *leadstest.Store
	router *gin.Engine
	agent  domain.Agent
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := leadstest.NewStore()
	agent := leadstest.Agent(1, 1, true)
	agents := leadstest.NewAgents(agent)
	svc := lifecycle.New(store, distribution.New(agents, nil, nil), agents, followup.New(store, nil, nil, nil, nil), nil, nil, nil)
	h := New(svc, store, dedup.New(store, nil, nil))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if raw := c.GetHeader("X-Test-User"); raw != "" {
			c.Set(httpkit.ContextUserIDKey, uuid.MustParse(raw))
			c.Set(httpkit.ContextRolesKey, strings.Split(c.GetHeader("X-Test-Roles"), ","))
		}
		c.Next()
	})
	r.GET("/leads", h.List)
	r.GET("/leads/:id", h.Get)
	r.POST("/leads/duplicate-check", h.CheckDuplicate)
	r.POST("/leads/:id/assign", h.Assign)
	r.PATCH("/leads/:id/status", h.UpdateStatus)
	return &testServer{store: store, router: r, agent: agent}
}

func (s *testServer) do(t *testing.T, method, path, body string, user uuid.UUID, roles string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != uuid.Nil {
		req.Header.Set("X-Test-User", user.String())
		req.Header.Set("X-Test-Roles", roles)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestListScopesAgentsToOwnLeads(t *testing.T) {
	s := newTestServer(t)
	mine := s.store.Put(domain.Lead{FirstName: "Mine", Emails: []string{"m@x.com"}, Status: domain.StatusAssigned, AssignedTo: &s.agent.ID})
	s.store.Put(domain.Lead{FirstName: "Other", Emails: []string{"o@x.com"}})

	w := s.do(t, http.MethodGet, "/leads", "", s.agent.ID, httpkit.RoleAgent)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp transport.LeadListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 || resp.Items[0].ID != mine.ID {
		t.Fatalf("agent saw %+v", resp)
	}

	w = s.do(t, http.MethodGet, "/leads", "", uuid.New(), httpkit.RoleAdmin)
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("admin saw %d leads, want 2", resp.Total)
	}
}

func TestListRejectsBadFilters(t *testing.T) {
	s := newTestServer(t)
	for _, q := range []string{"?status=nope", "?limit=0", "?offset=-1", "?assignedTo=x"} {
		if w := s.do(t, http.MethodGet, "/leads"+q, "", uuid.New(), httpkit.RoleAdmin); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", q, w.Code)
		}
	}
}

func TestAnonymousIsRejected(t *testing.T) {
	s := newTestServer(t)
	if w := s.do(t, http.MethodGet, "/leads", "", uuid.Nil, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", w.Code)
	}
}

func TestDuplicateCheckHidesOtherAgentsLead(t *testing.T) {
	s := newTestServer(t)
	owner := uuid.New()
	lead := s.store.Put(domain.Lead{FirstName: "John", Emails: []string{"john@test.com"}, Status: domain.StatusAssigned, AssignedTo: &owner})

	w := s.do(t, http.MethodPost, "/leads/duplicate-check", `{"email":"JOHN@TEST.COM"}`, s.agent.ID, httpkit.RoleAgent)
	var resp transport.DuplicateCheckResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.IsDuplicate || resp.LeadID != nil || resp.AssignedToYou == nil || *resp.AssignedToYou {
		t.Fatalf("agent response %+v", resp)
	}

	w = s.do(t, http.MethodPost, "/leads/duplicate-check", `{"email":"JOHN@TEST.COM"}`, uuid.New(), httpkit.RoleAdmin)
	resp = transport.DuplicateCheckResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.LeadID == nil || *resp.LeadID != lead.ID {
		t.Fatalf("admin response %+v", resp)
	}
}

func TestAssignEndpoint(t *testing.T) {
	s := newTestServer(t)
	lead := s.store.Put(domain.Lead{FirstName: "Ana", Emails: []string{"ana@x.com"}})
	path := "/leads/" + lead.ID.String() + "/assign"

	if w := s.do(t, http.MethodPost, path, `{}`, s.agent.ID, httpkit.RoleAgent); w.Code != http.StatusForbidden {
		t.Fatalf("agent assign status %d, want 403", w.Code)
	}
	if w := s.do(t, http.MethodPost, path, `{"followUpDayOfWeek":9}`, uuid.New(), httpkit.RoleAdmin); w.Code != http.StatusBadRequest {
		t.Fatalf("bad weekday status %d, want 400", w.Code)
	}

	w := s.do(t, http.MethodPost, path, `{"followUpFrequency":"weekly","followUpDayOfWeek":1}`, uuid.New(), httpkit.RoleAdmin)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp transport.AssignLeadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AgentID != s.agent.ID || resp.Mode != lifecycle.ModeAuto || !resp.FollowUpCreated {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Lead.Status != string(domain.StatusAssigned) {
		t.Fatalf("lead status %s", resp.Lead.Status)
	}

	if w := s.do(t, http.MethodPost, path, `{}`, uuid.New(), httpkit.RoleAdmin); w.Code != http.StatusConflict {
		t.Fatalf("second assign status %d, want 409", w.Code)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	s := newTestServer(t)
	lead := s.store.Put(domain.Lead{FirstName: "Ana", Emails: []string{"ana@x.com"}, Status: domain.StatusAssigned, AssignedTo: &s.agent.ID})
	path := "/leads/" + lead.ID.String() + "/status"

	if w := s.do(t, http.MethodPatch, path, `{"status":"won"}`, s.agent.ID, httpkit.RoleAgent); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid status code %d, want 400", w.Code)
	}
	w := s.do(t, http.MethodPatch, path, `{"status":"converted"}`, s.agent.ID, httpkit.RoleAgent)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp transport.LeadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ClientType != string(domain.ClientTypeClient) {
		t.Fatalf("client type %s", resp.ClientType)
	}
}
