package library

import (
	"sort"
	"strings"

	"phrasedesk/internal/model"
)

// Field names one of the three categorical filters
type Field string

const (
	FieldCompany  Field = "company"
	FieldReason   Field = "reason"
	FieldDocument Field = "document"
)

// ParseField accepts the filter names used by the HTTP layer; unknown names yield "".
func ParseField(s string) Field {
	switch Field(strings.ToLower(strings.TrimSpace(s))) {
	case FieldCompany:
		return FieldCompany
	case FieldReason:
		return FieldReason
	case FieldDocument:
		return FieldDocument
	}
	return ""
}

// Query is the active search and filter state of the library view.
type Query struct {
	Search   string
	Company  string
	Reason   string
	Document string
	// Focused is the control the user is interacting with. Its option list and
	// value are left untouched.
	Focused Field
}

// Selection holds the settled filter values
type Selection struct {
	Company  string `json:"company"`
	Reason   string `json:"reason"`
	Document string `json:"document"`
}

// Active reports whether any categorical filter is set
func (s Selection) Active() bool {
	return s.Company != "" || s.Reason != "" || s.Document != ""
}

// Options are the dropdown lists. A nil list means the control is focused and
// must not be rewritten.
type Options struct {
	Companies []string `json:"companies"`
	Reasons   []string `json:"reasons"`
	Documents []string `json:"documents"`
}

// Result is what the library view renders
type Result struct {
	Options  Options        `json:"options"`
	Selected Selection      `json:"selected"`
	Phrases  []model.Phrase `json:"phrases"`
	Total    int            `json:"total"`   // matches before the top-K cut
	Limited  bool           `json:"limited"` // true when only the top-K default view is returned
}

// Index is the phrase collection with each phrase's precomputed search key.
// Phrases keep the order they were fetched in (usage count descending).
type Index struct {
	phrases []model.Phrase
	keys    []string
}

// NewIndex builds the search keys over content, company, reason and document.
func NewIndex(phrases []model.Phrase) *Index {
	keys := make([]string, len(phrases))
	for i, p := range phrases {
		keys[i] = Normalize(p.Content + p.Company + p.Reason + p.DocumentType)
	}
	return &Index{phrases: phrases, keys: keys}
}

// Len is the size of the indexed collection
func (ix *Index) Len() int {
	return len(ix.phrases)
}

// Search returns the phrases whose key contains the normalised term, in fetch order.
func (ix *Index) Search(term string) []model.Phrase {
	term = Normalize(strings.TrimSpace(term))
	if term == "" {
		out := make([]model.Phrase, len(ix.phrases))
		copy(out, ix.phrases)
		return out
	}
	out := make([]model.Phrase, 0)
	for i, key := range ix.keys {
		if strings.Contains(key, term) {
			out = append(out, ix.phrases[i])
		}
	}
	return out
}

// Apply runs the library algorithm: text filter, cascading option lists built
// from the other two filters, settling of each filter against its own list,
// lists rebuilt from the settled values, categorical filter, and the top-K cut
// when nothing is being searched.
func (ix *Index) Apply(q Query, topK int) Result {
	base := ix.Search(q.Search)

	var res Result
	first := optionLists(base, q.Company, q.Reason, q.Document)
	res.Selected.Company = settle(q.Company, first.Companies, q.Focused == FieldCompany)
	res.Selected.Reason = settle(q.Reason, first.Reasons, q.Focused == FieldReason)
	res.Selected.Document = settle(q.Document, first.Documents, q.Focused == FieldDocument)

	// Settling only clears values, so lists rebuilt from the settled selection
	// still contain every kept value.
	res.Options = optionLists(base, res.Selected.Company, res.Selected.Reason, res.Selected.Document)
	switch q.Focused {
	case FieldCompany:
		res.Options.Companies = nil
	case FieldReason:
		res.Options.Reasons = nil
	case FieldDocument:
		res.Options.Documents = nil
	}

	filtered := make([]model.Phrase, 0, len(base))
	for _, p := range base {
		if matches(p.Company, res.Selected.Company) &&
			matches(p.Reason, res.Selected.Reason) &&
			matches(p.DocumentType, res.Selected.Document) {
			filtered = append(filtered, p)
		}
	}
	res.Total = len(filtered)

	if strings.TrimSpace(q.Search) == "" && !res.Selected.Active() {
		filtered = TopByUsage(filtered, topK)
		res.Limited = true
	}
	res.Phrases = filtered
	return res
}

// TopByUsage returns the k most used phrases, ties kept in collection order.
// k <= 0 returns everything.
func TopByUsage(phrases []model.Phrase, k int) []model.Phrase {
	out := make([]model.Phrase, len(phrases))
	copy(out, phrases)
	sort.SliceStable(out, func(i, j int) bool { return out[i].UsageCount > out[j].UsageCount })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

func matches(value, want string) bool {
	return want == "" || value == want
}

// optionLists builds each categorical list from the text-filtered set narrowed
// by the other two values
func optionLists(base []model.Phrase, company, reason, document string) Options {
	return Options{
		Companies: distinct(base, func(p model.Phrase) string { return p.Company }, func(p model.Phrase) bool {
			return matches(p.Reason, reason) && matches(p.DocumentType, document)
		}),
		Reasons: distinct(base, func(p model.Phrase) string { return p.Reason }, func(p model.Phrase) bool {
			return matches(p.Company, company) && matches(p.DocumentType, document)
		}),
		Documents: distinct(base, func(p model.Phrase) string { return p.DocumentType }, func(p model.Phrase) bool {
			return matches(p.Company, company) && matches(p.Reason, reason)
		}),
	}
}

func settle(requested string, options []string, focused bool) string {
	if focused || requested == "" {
		return requested
	}
	for _, o := range options {
		if o == requested {
			return requested
		}
	}
	return ""
}

func distinct(phrases []model.Phrase, key func(model.Phrase) string, keep func(model.Phrase) bool) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range phrases {
		if !keep(p) {
			continue
		}
		v := key(p)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
