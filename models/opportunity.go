// models/opportunity.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Classification fallback values. A record always carries a region pair, never NULL.
const (
	UnresolvedCountry = "UNRESOLVED"
	Unclassified      = "UNCLASSIFIED"
)

// RawRow is one record of a SAM.gov Contract Opportunities export.
// CSV tags match the export headers exactly; every field is kept as text until normalization.
type RawRow struct {
	NoticeID           string `csv:"NoticeId"`
	Title              string `csv:"Title,omitempty"`
	SolicitationNumber string `csv:"Sol#,omitempty"`
	Department         string `csv:"Department/Ind.Agency,omitempty"`
	SubTier            string `csv:"Sub-Tier,omitempty"`
	Office             string `csv:"Office,omitempty"`
	PostedDate         string `csv:"PostedDate"`
	LastModifiedDate   string `csv:"LastModifiedDate,omitempty"` // not present in every export
	NoticeType         string `csv:"Type,omitempty"`
	BaseType           string `csv:"BaseType,omitempty"`
	ArchiveType        string `csv:"ArchiveType,omitempty"`
	ArchiveDate        string `csv:"ArchiveDate,omitempty"`
	SetAside           string `csv:"SetASide,omitempty"`
	ResponseDeadline   string `csv:"ResponseDeadLine,omitempty"`
	NaicsCode          string `csv:"NaicsCode,omitempty"`
	ClassificationCode string `csv:"ClassificationCode,omitempty"`
	PopCity            string `csv:"PopCity,omitempty"`
	PopState           string `csv:"PopState,omitempty"`
	PopCountry         string `csv:"PopCountry,omitempty"`
	Active             string `csv:"Active,omitempty"`
	AwardNumber        string `csv:"AwardNumber,omitempty"`
	AwardDate          string `csv:"AwardDate,omitempty"`
	AwardAmount        string `csv:"Award$,omitempty"`
	Awardee            string `csv:"Awardee,omitempty"`
	ContactName        string `csv:"PrimaryContactFullName,omitempty"`
	ContactEmail       string `csv:"PrimaryContactEmail,omitempty"`
	Link               string `csv:"Link,omitempty"`
	Description        string `csv:"Description,omitempty"`

	// Position of the record in the export, not from CSV.
	Line int `csv:"-"`
}

// MandatoryColumns must be present in an export header for the file to be ingested at all.
var MandatoryColumns = []string{"NoticeId", "PostedDate", "PopCountry"}

// Opportunity is one classified contract notice as stored in the opportunities table.
type Opportunity struct {
	NoticeID     string    `db:"notice_id" json:"notice_id"`
	PostedDate   time.Time `db:"posted_date" json:"posted_date"`
	LastModified time.Time `db:"last_modified" json:"last_modified"`

	RawCountry          string `db:"raw_country" json:"raw_country"`
	ResolvedCountryCode string `db:"resolved_country_code" json:"resolved_country_code"`
	Region              string `db:"region" json:"region"`
	SubRegion           string `db:"sub_region" json:"sub_region"`

	Title              string              `db:"title" json:"title"`
	SolicitationNumber string              `db:"solicitation_number" json:"solicitation_number,omitempty"`
	Department         string              `db:"department" json:"department,omitempty"`
	SubTier            string              `db:"sub_tier" json:"sub_tier,omitempty"`
	Office             string              `db:"office" json:"office,omitempty"`
	NoticeType         string              `db:"notice_type" json:"notice_type,omitempty"`
	BaseType           string              `db:"base_type" json:"base_type,omitempty"`
	SetAside           string              `db:"set_aside" json:"set_aside,omitempty"`
	ResponseDeadline   string              `db:"response_deadline" json:"response_deadline,omitempty"`
	NaicsCode          string              `db:"naics_code" json:"naics_code,omitempty"`
	ClassificationCode string              `db:"classification_code" json:"classification_code,omitempty"`
	PopCity            string              `db:"pop_city" json:"pop_city,omitempty"`
	PopState           string              `db:"pop_state" json:"pop_state,omitempty"`
	Active             bool                `db:"active" json:"active"`
	AwardNumber        string              `db:"award_number" json:"award_number,omitempty"`
	AwardDate          *time.Time          `db:"award_date" json:"award_date,omitempty"`
	AwardAmount        decimal.NullDecimal `db:"award_amount" json:"award_amount"`
	Awardee            string              `db:"awardee" json:"awardee,omitempty"`
	ContactName        string              `db:"contact_name" json:"contact_name,omitempty"`
	ContactEmail       string              `db:"contact_email" json:"contact_email,omitempty"`
	Link               string              `db:"link" json:"link,omitempty"`
	Description        string              `db:"description" json:"description,omitempty"`
	DescriptionText    string              `db:"description_text" json:"description_text,omitempty"`

	SourceScope string    `db:"source_scope" json:"source_scope"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// RecordVersion is the slice of a stored opportunity the merger compares against.
type RecordVersion struct {
	NoticeID            string
	LastModified        time.Time
	ResolvedCountryCode string
	Region              string
	SubRegion           string
}

// Version returns the comparable part of o.
func (o *Opportunity) Version() RecordVersion {
	return RecordVersion{
		NoticeID:            o.NoticeID,
		LastModified:        o.LastModified,
		ResolvedCountryCode: o.ResolvedCountryCode,
		Region:              o.Region,
		SubRegion:           o.SubRegion,
	}
}

// SameClassification reports whether both versions carry the same country/region/sub-region triple.
func (v RecordVersion) SameClassification(other RecordVersion) bool {
	return v.ResolvedCountryCode == other.ResolvedCountryCode &&
		v.Region == other.Region &&
		v.SubRegion == other.SubRegion
}

// ScopeQuery filters opportunities for readers such as the dashboard API.
// Zero values mean "no filter".
type ScopeQuery struct {
	Region        string
	SubRegion     string
	CountryCode   string
	ModifiedSince time.Time
	PostedFrom    time.Time
	PostedTo      time.Time
	Limit         int
	Offset        int
}

// RegionCount is one row of the per region / sub-region statistics.
type RegionCount struct {
	Region    string `json:"region"`
	SubRegion string `json:"sub_region"`
	Count     int64  `json:"count"`
}
