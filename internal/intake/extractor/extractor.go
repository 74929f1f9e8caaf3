// Package extractor turns a classified message into a structured lead
// candidate. Each lead source has a Strategy; sources without one use the
// generic strategy.
package extractor

import (
	"regexp"
	"strings"

	"github.com/phillipshepard1/internal-re-crm-sub000/internal/intake/classifier"
)

// Candidate is an extracted lead that has not been persisted yet.
type Candidate struct {
	FirstName       string   `json:"firstName"`
	LastName        string   `json:"lastName"`
	Emails          []string `json:"emails"`
	Phones          []string `json:"phones"`
	Message         string   `json:"message,omitempty"`
	PropertyAddress string   `json:"propertyAddress,omitempty"`
	PropertyDetails string   `json:"propertyDetails,omitempty"`
	Company         string   `json:"company,omitempty"`
	JobTitle        string   `json:"jobTitle,omitempty"`
	Source          string   `json:"source"`
}

// FullName joins first and last name.
func (c Candidate) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// HasContact reports whether the candidate can be reached at all.
func (c Candidate) HasContact() bool {
	return len(c.Emails) > 0 || len(c.Phones) > 0
}

// Strategy extracts a candidate from one source's message layout. ok is
// false when no name could be resolved.
type Strategy interface {
	Name() string
	Extract(subject, body string) (Candidate, bool)
}

// Extractor dispatches to a Strategy by source tag.
type Extractor struct {
	strategies map[string]Strategy
	generic    Strategy
}

// New returns an Extractor with the built-in vendor strategies.
func New() *Extractor {
	e := &Extractor{
		strategies: make(map[string]Strategy),
		generic:    Generic(),
	}
	e.Register(classifier.SourceHomeStack, HomeStack())
	e.Register(classifier.SourceZillow, Zillow())
	e.Register(classifier.SourceRealtor, Realtor())
	e.Register(classifier.SourceRedfin, Redfin())
	return e
}

// Register binds a strategy to a source tag, replacing any existing one.
func (e *Extractor) Register(source string, s Strategy) {
	e.strategies[sourceKey(source)] = s
}

// StrategyFor returns the strategy used for source.
func (e *Extractor) StrategyFor(source string) Strategy {
	if s, ok := e.strategies[sourceKey(source)]; ok {
		return s
	}
	return e.generic
}

// Extract runs the strategy for source. The result carries source as its tag.
func (e *Extractor) Extract(source, subject, body string) (Candidate, bool) {
	c, ok := e.StrategyFor(source).Extract(subject, body)
	c.Source = source
	return c, ok
}

// ExtractGeneric runs the generic strategy regardless of source.
func (e *Extractor) ExtractGeneric(source, subject, body string) (Candidate, bool) {
	c, ok := e.generic.Extract(subject, body)
	c.Source = source
	return c, ok
}

// ExtractWithFallback tries the source strategy, then the generic one. It
// returns the name of the strategy that produced the candidate.
func (e *Extractor) ExtractWithFallback(source, subject, body string) (Candidate, string, bool) {
	s := e.StrategyFor(source)
	if c, ok := e.Extract(source, subject, body); ok {
		return c, s.Name(), true
	}
	if s == e.generic {
		return Candidate{Source: source}, s.Name(), false
	}
	c, ok := e.ExtractGeneric(source, subject, body)
	return c, e.generic.Name(), ok
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

func sourceKey(source string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(source), "")
}
