package kpi

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// CanonicalStatus is the fixed status vocabulary quotes are normalised into.
type CanonicalStatus string

const (
	StatusUnknown  CanonicalStatus = "UNKNOWN"
	StatusDraft    CanonicalStatus = "DRAFT"
	StatusPending  CanonicalStatus = "PENDING"
	StatusApproved CanonicalStatus = "APPROVED"
	StatusRejected CanonicalStatus = "REJECTED"
)

// defaultSynonyms covers the English and Portuguese labels the quote store emits.
var defaultSynonyms = map[CanonicalStatus][]string{
	StatusDraft:    {"draft", "rascunho"},
	StatusPending:  {"pending", "pendente", "sent", "enviado", "enviada", "submitted"},
	StatusApproved: {"approved", "aprovado", "aprovada", "accepted", "aceito", "aceita"},
	StatusRejected: {"rejected", "rejeitado", "rejeitada", "recusado", "recusada", "declined"},
}

// StatusClassifier maps free-form status labels to a CanonicalStatus.
type StatusClassifier struct {
	lookup map[string]CanonicalStatus
}

// NewStatusClassifier builds a classifier from synonym sets. A label listed
// under more than one status keeps its first registration in canonical order.
func NewStatusClassifier(synonyms map[CanonicalStatus][]string) *StatusClassifier {
	c := &StatusClassifier{
		lookup: make(map[string]CanonicalStatus),
	}
	for _, status := range []CanonicalStatus{StatusDraft, StatusPending, StatusApproved, StatusRejected} {
		for _, label := range synonyms[status] {
			key := normalizeStatus(label)
			if key == "" {
				continue
			}
			if _, exists := c.lookup[key]; exists {
				continue
			}
			c.lookup[key] = status
		}
	}
	return c
}

// DefaultClassifier returns the classifier for the built-in synonym table.
func DefaultClassifier() *StatusClassifier {
	return NewStatusClassifier(defaultSynonyms)
}

// Classify resolves raw into a canonical status or StatusUnknown.
func (c *StatusClassifier) Classify(raw string) CanonicalStatus {
	if c == nil {
		return StatusUnknown
	}
	if status, ok := c.lookup[normalizeStatus(raw)]; ok {
		return status
	}
	return StatusUnknown
}

// normalizeStatus folds case and composes accents. Casers are stateful, so a
// fresh one is taken per call.
func normalizeStatus(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return cases.Fold().String(norm.NFC.String(trimmed))
}
