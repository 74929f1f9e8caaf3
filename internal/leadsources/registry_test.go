package leadsources

import (
	"context"
	"errors"
	"testing"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake/classifier"
)

type fakeSource struct {
	regs []classifier.Registration
	err  error
}

func (f *fakeSource) ListActive(context.Context) ([]classifier.Registration, error) {
	return f.regs, f.err
}

func TestRegistryReloadSwapsClassifier(t *testing.T) {
	src := &fakeSource{}
	r := NewRegistry(src, nil)

	if got := r.Classify("leads@acme-homes.com", "hello", ""); got != classifier.SourceOther {
		t.Fatalf("before reload got %q", got)
	}

	src.regs = []classifier.Registration{{Name: "Acme Homes", DomainPatterns: []string{"acme-homes.com"}}}
	if err := r.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := r.Classify("leads@acme-homes.com", "hello", ""); got != "Acme Homes" {
		t.Fatalf("after reload got %q", got)
	}

	src.err = errors.New("db down")
	if err := r.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	if got := r.Classify("leads@acme-homes.com", "hello", ""); got != "Acme Homes" {
		t.Fatalf("failed reload dropped registrations, got %q", got)
	}
}

func TestParseSeed(t *testing.T) {
	data := []byte(`
sources:
  - name: Zillow
    email_patterns: ["*@convo.zillow.com"]
    domain_patterns: ["*.zillow.com"]
    keywords: [zillow]
  - name: Office Website
    email_patterns: ["forms@example-realty.com"]
`)
	regs, err := ParseSeed(data)
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	if len(regs) != 2 || regs[0].Name != "Zillow" || regs[0].DomainPatterns[0] != "*.zillow.com" {
		t.Fatalf("unexpected registrations %+v", regs)
	}
	if regs[1].EmailPatterns[0] != "forms@example-realty.com" {
		t.Fatalf("unexpected second registration %+v", regs[1])
	}

	if _, err := ParseSeed([]byte("sources:\n  - keywords: [x]\n")); err == nil {
		t.Fatal("expected error for nameless source")
	}
}

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name    string
		reg     classifier.Registration
		wantErr bool
	}{
		{"ok", classifier.Registration{Name: "X", EmailPatterns: []string{"*@x.com"}}, false},
		{"no name", classifier.Registration{EmailPatterns: []string{"a@x.com"}}, true},
		{"blank name", classifier.Registration{Name: " "}, true},
		{"blank domain pattern", classifier.Registration{Name: "X", DomainPatterns: []string{" "}}, true},
		{"two wildcards", classifier.Registration{Name: "X", DomainPatterns: []string{"*.x.*"}}, true},
		{"empty pattern", classifier.Registration{Name: "X", EmailPatterns: []string{" "}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateRegistration(tt.reg); (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
