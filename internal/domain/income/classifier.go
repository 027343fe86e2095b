package income

import (
	"sort"
	"strings"

	"github.com/FACorreiaa/loan-affordability/internal/domain/document"
	"github.com/FACorreiaa/loan-affordability/pkg/config"
)

// Classifier assigns document pages to income sections by their configured
// key phrases.
type Classifier struct {
	// sections are held in priority order, lowest number first.
	sections []section
}

// NewClassifier builds a page classifier from the section marker config.
func NewClassifier(cfg config.DocumentsConfig) *Classifier {
	sections := []section{
		newSection(SimplifiedCategory, prioritySimplified, cfg.Simplified),
		newSection(IncomeWithholdings, priorityWithholdings, cfg.Withholdings),
		newSection(TaxedCategory, priorityTaxed, cfg.Taxed),
	}
	sort.SliceStable(sections, func(i, j int) bool {
		return sections[i].priority < sections[j].priority
	})
	return &Classifier{sections: sections}
}

// ClassifyPage returns the section a page belongs to. A page matching several
// keys goes to the lowest-priority-number section; a page matching none is
// excluded (ok == false).
func (c *Classifier) ClassifyPage(pageText string) (SectionKind, bool) {
	norm := document.Normalize(pageText)
	for _, s := range c.sections {
		if s.key != "" && strings.Contains(norm, s.key) {
			return s.kind, true
		}
	}
	return "", false
}

// ClassifyDocument maps page numbers to section kinds, skipping unmatched
// pages.
func (c *Classifier) ClassifyDocument(doc *document.Document) map[int]SectionKind {
	kinds := make(map[int]SectionKind, len(doc.Pages))
	for _, page := range doc.Pages {
		if kind, ok := c.ClassifyPage(page.Text); ok {
			kinds[page.Number] = kind
		}
	}
	return kinds
}

func (c *Classifier) section(kind SectionKind) section {
	for _, s := range c.sections {
		if s.kind == kind {
			return s
		}
	}
	return section{}
}
