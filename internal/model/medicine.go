package model

import (
	"database/sql/driver"
	"strings"

	"github.com/lib/pq"
)

// Alternative kinds
const (
	AlternativeGeneric = "generic"
	AlternativeBranded = "branded"
)

// DefaultSource tags records produced by the default generation provider.
const DefaultSource = "gemini"

// Alternative is a substitute medicine suggested alongside a record.
type Alternative struct {
	Name string `json:"name"`
	Kind string `json:"type"`
}

// Alternatives is stored as a JSONB array.
type Alternatives []Alternative

func (a Alternatives) Value() (driver.Value, error) {
	if a == nil {
		a = Alternatives{}
	}
	return valueJSON(a)
}

func (a *Alternatives) Scan(value interface{}) error {
	return scanJSON(value, a)
}

// Medicine is a resolved, persisted medicine record keyed by NormalizedName.
type Medicine struct {
	Base
	NormalizedName string         `json:"normalizedName" db:"normalized_name"`
	MedicineName   string         `json:"medicineName" db:"medicine_name"`
	GenericName    string         `json:"genericName" db:"generic_name"`
	Category       string         `json:"category" db:"category"`
	Uses           pq.StringArray `json:"uses" db:"uses"`
	Symptoms       pq.StringArray `json:"symptoms" db:"symptoms"`
	HowToUse       string         `json:"howToUse" db:"how_to_use"`
	Warnings       pq.StringArray `json:"warnings" db:"warnings"`
	SideEffects    pq.StringArray `json:"sideEffects" db:"side_effects"`
	Alternatives   Alternatives   `json:"alternatives" db:"alternatives"`
	Source         string         `json:"source" db:"source"`
}

// EnsureLists replaces nil slices so records always serialize lists as [].
func (m *Medicine) EnsureLists() {
	if m.Uses == nil {
		m.Uses = pq.StringArray{}
	}
	if m.Symptoms == nil {
		m.Symptoms = pq.StringArray{}
	}
	if m.Warnings == nil {
		m.Warnings = pq.StringArray{}
	}
	if m.SideEffects == nil {
		m.SideEffects = pq.StringArray{}
	}
	if m.Alternatives == nil {
		m.Alternatives = Alternatives{}
	}
}

// Confidence levels reported by the normalizer
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// NormalizationResult is the canonical form of a free-text medicine name.
type NormalizationResult struct {
	CanonicalName string `json:"canonicalName"`
	GenericName   string `json:"genericName"`
	Confidence    string `json:"confidence"`
}

// LookupKey is the store key: the generic name when present, otherwise the
// canonical name, lowercased.
func (n *NormalizationResult) LookupKey() string {
	name := strings.TrimSpace(n.GenericName)
	if name == "" {
		name = strings.TrimSpace(n.CanonicalName)
	}
	return strings.ToLower(name)
}

// DisplayName is the name used to prompt record generation.
func (n *NormalizationResult) DisplayName() string {
	if g := strings.TrimSpace(n.GenericName); g != "" {
		return g
	}
	return strings.TrimSpace(n.CanonicalName)
}

// PrescriptionScanResult is returned by a prescription scan.
type PrescriptionScanResult struct {
	Text      string      `json:"text"`
	Names     []string    `json:"names"`
	Medicines []*Medicine `json:"medicines"`
}
