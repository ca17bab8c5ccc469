// Package model defines the raw and prepared record types shared across floodaudit.
package model

import "strings"

// Source column names. The header of the input file must match these exactly.
const (
	ColProjectID                 = "ProjectId"
	ColProjectName               = "ProjectName"
	ColContractor                = "Contractor"
	ColRegion                    = "Region"
	ColProvince                  = "Province"
	ColMunicipality              = "Municipality"
	ColLegislativeDistrict       = "LegislativeDistrict"
	ColDistrictEngineeringOffice = "DistrictEngineeringOffice"
	ColTypeOfWork                = "TypeOfWork"
	ColMainIsland                = "MainIsland"
	ColContractCost              = "ContractCost"
	ColApprovedBudget            = "ApprovedBudgetForContract"
	ColStartDate                 = "StartDate"
	ColActualCompletionDate      = "ActualCompletionDate"
	ColFundingYear               = "FundingYear"
	ColProjectLatitude           = "ProjectLatitude"
	ColProjectLongitude          = "ProjectLongitude"
)

// Derived column names added by the preparer.
const (
	ColLatitude         = "latitude"
	ColLongitude        = "longitude"
	ColDuration         = "Duration"
	ColBudgetDifference = "BudgetDifference"
	ColBudgetVariance   = "BudgetVariance"
	ColRiskScore        = "RiskScore"
	ColIsSuspicious     = "IsSuspicious"
)

// RawColumns lists every source column in canonical order.
var RawColumns = []string{
	ColProjectID, ColProjectName, ColContractor, ColRegion, ColProvince,
	ColMunicipality, ColLegislativeDistrict, ColDistrictEngineeringOffice,
	ColTypeOfWork, ColMainIsland, ColContractCost, ColApprovedBudget,
	ColStartDate, ColActualCompletionDate, ColFundingYear,
	ColProjectLatitude, ColProjectLongitude,
}

// DerivedColumns lists the columns the preparer adds on top of the source columns.
var DerivedColumns = []string{
	ColDuration, ColBudgetDifference, ColBudgetVariance, ColRiskScore, ColIsSuspicious,
}

// RawRecord is one source row with every field kept as text.
type RawRecord struct {
	ProjectID                 string `json:"ProjectId"`
	ProjectName               string `json:"ProjectName"`
	Contractor                string `json:"Contractor"`
	Region                    string `json:"Region"`
	Province                  string `json:"Province"`
	Municipality              string `json:"Municipality"`
	LegislativeDistrict       string `json:"LegislativeDistrict"`
	DistrictEngineeringOffice string `json:"DistrictEngineeringOffice"`
	TypeOfWork                string `json:"TypeOfWork"`
	MainIsland                string `json:"MainIsland"`
	ContractCost              string `json:"ContractCost"`
	ApprovedBudgetForContract string `json:"ApprovedBudgetForContract"`
	StartDate                 string `json:"StartDate"`
	ActualCompletionDate      string `json:"ActualCompletionDate"`
	FundingYear               string `json:"FundingYear"`
	ProjectLatitude           string `json:"ProjectLatitude"`
	ProjectLongitude          string `json:"ProjectLongitude"`
}

// Field returns the raw text of the named source column, or "" for unknown columns.
func (r *RawRecord) Field(col string) string {
	if p := r.fieldPtr(col); p != nil {
		return *p
	}
	return ""
}

// SetField assigns the named source column. Unknown columns are ignored and reported false.
func (r *RawRecord) SetField(col, value string) bool {
	p := r.fieldPtr(col)
	if p == nil {
		return false
	}
	*p = value
	return true
}

func (r *RawRecord) fieldPtr(col string) *string {
	switch col {
	case ColProjectID:
		return &r.ProjectID
	case ColProjectName:
		return &r.ProjectName
	case ColContractor:
		return &r.Contractor
	case ColRegion:
		return &r.Region
	case ColProvince:
		return &r.Province
	case ColMunicipality:
		return &r.Municipality
	case ColLegislativeDistrict:
		return &r.LegislativeDistrict
	case ColDistrictEngineeringOffice:
		return &r.DistrictEngineeringOffice
	case ColTypeOfWork:
		return &r.TypeOfWork
	case ColMainIsland:
		return &r.MainIsland
	case ColContractCost:
		return &r.ContractCost
	case ColApprovedBudget:
		return &r.ApprovedBudgetForContract
	case ColStartDate:
		return &r.StartDate
	case ColActualCompletionDate:
		return &r.ActualCompletionDate
	case ColFundingYear:
		return &r.FundingYear
	case ColProjectLatitude:
		return &r.ProjectLatitude
	case ColProjectLongitude:
		return &r.ProjectLongitude
	default:
		return nil
	}
}

// IsBlank reports whether the named column holds no value (empty or whitespace).
func (r *RawRecord) IsBlank(col string) bool {
	return strings.TrimSpace(r.Field(col)) == ""
}

// RawTable is a loaded source file: its header as read and the ordered records.
type RawTable struct {
	Source  string      `json:"source"`
	Header  []string    `json:"header"`
	Records []RawRecord `json:"records"`
}

// Len returns the number of records, tolerating a nil table.
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Empty reports whether the table has no records.
func (t *RawTable) Empty() bool {
	return t.Len() == 0
}

// Project is a prepared record: the source identifiers plus typed and derived fields.
// Instances are produced only by the preparer and are never mutated afterwards.
type Project struct {
	ProjectID                 string `json:"ProjectId"`
	ProjectName               string `json:"ProjectName"`
	Contractor                string `json:"Contractor"`
	Region                    string `json:"Region"`
	Province                  string `json:"Province"`
	Municipality              string `json:"Municipality"`
	LegislativeDistrict       string `json:"LegislativeDistrict"`
	DistrictEngineeringOffice string `json:"DistrictEngineeringOffice"`
	TypeOfWork                string `json:"TypeOfWork"`
	MainIsland                string `json:"MainIsland"`

	ContractCost              float64 `json:"ContractCost"`
	ApprovedBudgetForContract float64 `json:"ApprovedBudgetForContract"`

	StartDate            *Date `json:"StartDate"`
	ActualCompletionDate *Date `json:"ActualCompletionDate"`
	Duration             *int  `json:"Duration"`

	FundingYear int     `json:"FundingYear"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`

	BudgetDifference float64  `json:"BudgetDifference"`
	BudgetVariance   *float64 `json:"BudgetVariance"`
	RiskScore        *float64 `json:"RiskScore"`
	IsSuspicious     bool     `json:"IsSuspicious"`

	Anomalies Anomaly `json:"Anomalies"`
}

// StartDateLabel returns the display form of StartDate, or "" when missing.
func (p *Project) StartDateLabel() string {
	return p.StartDate.Label()
}

// CompletionDateLabel returns the display form of ActualCompletionDate, or "" when missing.
func (p *Project) CompletionDateLabel() string {
	return p.ActualCompletionDate.Label()
}

// RiskScoreOr returns RiskScore, or def when it is undefined.
func (p *Project) RiskScoreOr(def float64) float64 {
	if p.RiskScore == nil {
		return def
	}
	return *p.RiskScore
}

// Numeric returns the value of a numeric column by name. ok is false for unknown
// columns and for optional values that are missing on this project.
func (p *Project) Numeric(col string) (float64, bool) {
	switch col {
	case ColContractCost:
		return p.ContractCost, true
	case ColApprovedBudget:
		return p.ApprovedBudgetForContract, true
	case ColFundingYear:
		return float64(p.FundingYear), true
	case ColLatitude:
		return p.Latitude, true
	case ColLongitude:
		return p.Longitude, true
	case ColBudgetDifference:
		return p.BudgetDifference, true
	case ColDuration:
		if p.Duration == nil {
			return 0, false
		}
		return float64(*p.Duration), true
	case ColBudgetVariance:
		if p.BudgetVariance == nil {
			return 0, false
		}
		return *p.BudgetVariance, true
	case ColRiskScore:
		if p.RiskScore == nil {
			return 0, false
		}
		return *p.RiskScore, true
	default:
		return 0, false
	}
}

// Category returns the value of a categorical column by name.
func (p *Project) Category(col string) (string, bool) {
	switch col {
	case ColProjectID:
		return p.ProjectID, true
	case ColProjectName:
		return p.ProjectName, true
	case ColContractor:
		return p.Contractor, true
	case ColRegion:
		return p.Region, true
	case ColProvince:
		return p.Province, true
	case ColMunicipality:
		return p.Municipality, true
	case ColLegislativeDistrict:
		return p.LegislativeDistrict, true
	case ColDistrictEngineeringOffice:
		return p.DistrictEngineeringOffice, true
	case ColTypeOfWork:
		return p.TypeOfWork, true
	case ColMainIsland:
		return p.MainIsland, true
	default:
		return "", false
	}
}
