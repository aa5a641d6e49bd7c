package model

import (
	"sort"
	"strings"
	"time"
)

// ReviewStatus is the card-level review state derived from per-field flags.
type ReviewStatus string

// ReviewStatus values.
const (
	StatusNeedsHumanReview ReviewStatus = "needs_human_review"
	StatusReviewed         ReviewStatus = "reviewed"
)

// CardRecord is the assembled output for one processed card.
type CardRecord struct {
	CardID       string                 `json:"card_id"`
	TenantID     string                 `json:"tenant_id"`
	Fields       map[string]ScoredField `json:"fields"`
	ReviewStatus ReviewStatus           `json:"review_status"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// FieldsNeedingReview returns the sorted field keys flagged for review.
// Disabled fields are the caller's concern; this reads the record as
// persisted.
func (c *CardRecord) FieldsNeedingReview() []string {
	var keys []string
	for key, f := range c.Fields {
		if f.NeedsReview {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// TenantFieldConfig is one row of a tenant's field configuration. There is at
// most one row per (tenant, field key); rows are created by the schema
// synchronizer with defaults and only mutated by explicit admin action.
type TenantFieldConfig struct {
	TenantID  string    `json:"tenant_id"`
	FieldKey  string    `json:"field_key"`
	Enabled   bool      `json:"enabled"`
	Required  bool      `json:"required"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// identityKeys are fields that identify the prospective student; tenants
// almost always want these present, so they default to required.
var identityKeys = map[string]bool{
	"name":  true,
	"email": true,
}

// addressComponentKeys are fields produced by splitting combined address text.
var addressComponentKeys = map[string]bool{
	"city":     true,
	"state":    true,
	"zip_code": true,
}

// DefaultFieldConfig returns the configuration inserted the first time a field
// key is observed for a tenant. Every new field starts enabled so it shows up
// in the review UI; only identity fields start required.
func DefaultFieldConfig(tenantID, key string) TenantFieldConfig {
	return TenantFieldConfig{
		TenantID: tenantID,
		FieldKey: key,
		Enabled:  true,
		Required: identityKeys[key],
	}
}

// AddressComponentKey reports whether key is a split-derived address component.
func AddressComponentKey(key string) bool {
	return addressComponentKeys[key]
}

// combinedAddressKeys are provider field names holding multiple address
// components in one string. They are split into components and excluded from
// the persisted record.
var combinedAddressKeys = map[string]bool{
	"city_state":         true,
	"city_state_zip":     true,
	"city_state_country": true,
	"address_combined":   true,
	"address_line":       true,
	"full_address":       true,
}

// CombinedAddressKey reports whether key is a combined-address field.
func CombinedAddressKey(key string) bool {
	return combinedAddressKeys[key]
}

// fieldLabels maps canonical field keys to review-UI display labels.
var fieldLabels = map[string]string{
	"name":                 "Name",
	"preferred_first_name": "Preferred Name",
	"date_of_birth":        "Birthday",
	"email":                "Email",
	"cell":                 "Phone Number",
	"permission_to_text":   "Permission to Text",
	"address":              "Address",
	"city":                 "City",
	"state":                "State",
	"zip_code":             "Zip Code",
	"high_school":          "High School",
	"class_rank":           "Class Rank",
	"students_in_class":    "Students in Class",
	"gpa":                  "GPA",
	"student_type":         "Student Type",
	"entry_term":           "Entry Term",
	"major":                "Major",
	"gender":               "Gender",
}

// FieldLabel returns the display label for a field key, falling back to
// title-cased snake_case for keys without an explicit label.
func FieldLabel(key string) string {
	if label, ok := fieldLabels[key]; ok {
		return label
	}
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ReviewField is one entry of the tenant-facing review view.
type ReviewField struct {
	Key          string  `json:"key"`
	Label        string  `json:"label"`
	Value        string  `json:"value"`
	Confidence   float64 `json:"confidence"`
	NeedsReview  bool    `json:"needs_review"`
	ReviewReason string  `json:"review_reason,omitempty"`
}
