package document

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/rdleal/intervalst/interval"
)

// DefaultContentType is the content type of text no rule claims.
const DefaultContentType = "default"

// TypedRegion is a region of the document with a content type.
type TypedRegion struct {
	Offset int
	Length int
	Type   string
}

// End returns the offset just past the region.
func (r TypedRegion) End() int {
	return r.Offset + r.Length
}

// Partitioner divides a document into typed regions.
type Partitioner interface {
	// Connect attaches the partitioner to doc and computes the initial
	// partitioning.
	Connect(doc *Document)

	// DocumentChanged updates the partitioning after a change. It is called
	// before document listeners are notified.
	DocumentChanged(e Event)

	// ContentType returns the content type at offset.
	ContentType(offset int) string

	// Partitions returns the typed regions covering [offset, offset+length],
	// clipped to that range.
	Partitions(offset, length int) []TypedRegion

	// ContentTypes returns every content type this partitioner can produce.
	ContentTypes() []string
}

// SinglePartitioner assigns one content type to the whole document.
type SinglePartitioner struct {
	contentType string
}

// NewSinglePartitioner creates a partitioner that reports contentType everywhere.
func NewSinglePartitioner(contentType string) *SinglePartitioner {
	return &SinglePartitioner{contentType: contentType}
}

// Connect implements Partitioner.
func (p *SinglePartitioner) Connect(*Document) {}

// DocumentChanged implements Partitioner.
func (p *SinglePartitioner) DocumentChanged(Event) {}

// ContentType implements Partitioner.
func (p *SinglePartitioner) ContentType(int) string {
	return p.contentType
}

// Partitions implements Partitioner.
func (p *SinglePartitioner) Partitions(offset, length int) []TypedRegion {
	return []TypedRegion{{Offset: offset, Length: length, Type: p.contentType}}
}

// ContentTypes implements Partitioner.
func (p *SinglePartitioner) ContentTypes() []string {
	return []string{p.contentType}
}

// Rule marks a partition that opens with Start and closes with End.
// An empty End closes the partition at the end of the line.
// A partition whose End never appears runs to the end of the document.
type Rule struct {
	Start       string
	End         string
	ContentType string
}

// RulePartitioner partitions a document with start/end rules, such as
// comments and string literals. Text outside every rule gets the default
// content type. Partitions are kept in an interval tree for lookup.
type RulePartitioner struct {
	rules       []Rule
	defaultType string

	mu     sync.RWMutex
	doc    *Document
	length int
	parts  []TypedRegion
	tree   *interval.MultiValueSearchTree[TypedRegion, int]
}

// NewRulePartitioner creates a partitioner for rules. Rules with an empty
// Start are ignored. When several rules open at the same offset the first
// one listed wins.
func NewRulePartitioner(defaultType string, rules ...Rule) *RulePartitioner {
	if defaultType == "" {
		defaultType = DefaultContentType
	}
	kept := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Start != "" && r.ContentType != "" {
			kept = append(kept, r)
		}
	}
	return &RulePartitioner{rules: kept, defaultType: defaultType}
}

// Connect implements Partitioner.
func (p *RulePartitioner) Connect(doc *Document) {
	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
	p.rebuild()
}

// DocumentChanged implements Partitioner.
func (p *RulePartitioner) DocumentChanged(Event) {
	p.rebuild()
}

func (p *RulePartitioner) rebuild() {
	p.mu.RLock()
	doc := p.doc
	p.mu.RUnlock()
	if doc == nil {
		return
	}

	text := doc.Get()
	parts := p.scan(text)

	tree := interval.NewMultiValueSearchTree[TypedRegion](func(a, b int) int {
		return cmp.Compare(a, b)
	})
	for _, r := range parts {
		if r.Length > 0 {
			tree.Insert(r.Offset, r.End(), r)
		}
	}

	p.mu.Lock()
	p.length = len(text)
	p.parts = parts
	p.tree = tree
	p.mu.Unlock()
}

// scan computes the partitions of text from left to right.
func (p *RulePartitioner) scan(text string) []TypedRegion {
	var parts []TypedRegion
	emit := func(start, end int, typ string) {
		if end <= start {
			return
		}
		if n := len(parts); n > 0 && parts[n-1].Type == typ && parts[n-1].End() == start {
			parts[n-1].Length += end - start
			return
		}
		parts = append(parts, TypedRegion{Offset: start, Length: end - start, Type: typ})
	}

	pos := 0
	for pos < len(text) {
		at, rule, ok := p.nextStart(text, pos)
		if !ok {
			break
		}
		emit(pos, at, p.defaultType)
		end := p.closeOf(text, at+len(rule.Start), rule)
		emit(at, end, rule.ContentType)
		pos = end
	}
	emit(pos, len(text), p.defaultType)

	if len(parts) == 0 {
		parts = append(parts, TypedRegion{Offset: 0, Length: 0, Type: p.defaultType})
	}
	return parts
}

func (p *RulePartitioner) nextStart(text string, from int) (int, Rule, bool) {
	best, found := -1, Rule{}
	for _, r := range p.rules {
		i := strings.Index(text[from:], r.Start)
		if i < 0 {
			continue
		}
		if best < 0 || from+i < best {
			best, found = from+i, r
		}
	}
	return best, found, best >= 0
}

func (p *RulePartitioner) closeOf(text string, from int, r Rule) int {
	if r.End == "" {
		if i := strings.IndexAny(text[from:], "\r\n"); i >= 0 {
			return from + i
		}
		return len(text)
	}
	if i := strings.Index(text[from:], r.End); i >= 0 {
		return from + i + len(r.End)
	}
	return len(text)
}

// ContentType implements Partitioner.
func (p *RulePartitioner) ContentType(offset int) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if r, ok := p.at(offset); ok {
		return r.Type
	}
	return p.defaultType
}

// at returns the partition containing offset. The document length maps to
// the last partition.
func (p *RulePartitioner) at(offset int) (TypedRegion, bool) {
	if len(p.parts) == 0 || offset < 0 || offset > p.length {
		return TypedRegion{}, false
	}
	if offset == p.length {
		return p.parts[len(p.parts)-1], true
	}
	hits, _ := p.tree.AllIntersections(offset, offset+1)
	for _, r := range hits {
		if r.Offset <= offset && offset < r.End() {
			return r, true
		}
	}
	return TypedRegion{}, false
}

// Partitions implements Partitioner.
func (p *RulePartitioner) Partitions(offset, length int) []TypedRegion {
	p.mu.RLock()
	defer p.mu.RUnlock()

	offset = max(0, min(offset, p.length))
	end := max(offset, min(offset+length, p.length))
	if end == offset {
		r, ok := p.at(offset)
		if !ok {
			r.Type = p.defaultType
		}
		return []TypedRegion{{Offset: offset, Length: 0, Type: r.Type}}
	}

	hits, _ := p.tree.AllIntersections(offset, end)
	out := make([]TypedRegion, 0, len(hits))
	for _, r := range hits {
		if r.End() <= offset || r.Offset >= end {
			continue
		}
		lo, hi := max(r.Offset, offset), min(r.End(), end)
		out = append(out, TypedRegion{Offset: lo, Length: hi - lo, Type: r.Type})
	}
	slices.SortFunc(out, func(a, b TypedRegion) int {
		return cmp.Compare(a.Offset, b.Offset)
	})
	return out
}

// ContentTypes implements Partitioner.
func (p *RulePartitioner) ContentTypes() []string {
	types := []string{p.defaultType}
	for _, r := range p.rules {
		if !slices.Contains(types, r.ContentType) {
			types = append(types, r.ContentType)
		}
	}
	return types
}

// Snapshot returns a copy of the current partitioning.
func (p *RulePartitioner) Snapshot() []TypedRegion {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.parts)
}
