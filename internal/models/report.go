package models

import "encoding/json"

// ReportMetadata describes how a report was produced.
type ReportMetadata struct {
	GeneratedAt            string `json:"generated_at"`
	AnalysisVersion        string `json:"analysis_version"`
	DataSourcesUsed        int    `json:"data_sources_used"`
	TotalValidationPoints  int    `json:"total_validation_points"`
	ProcessingTimeEstimate string `json:"processing_time_estimate"`
}

// CompanyDetails is the descriptive block of the report. The field names
// follow the published report format, including its spelling.
type CompanyDetails struct {
	Name          string  `json:"name"`
	About         string  `json:"about"`
	Status        string  `json:"status"`
	FoundedYear   int     `json:"founded_year"`
	CEO           string  `json:"CEO"`
	Headquarters  string  `json:"headquaters"`
	BusinessModel string  `json:"business_model"`
	Revenue       string  `json:"revenue"`
	Domain        string  `json:"domain"`
	SubDomain     *string `json:"sub-domain"`
	Problem       string  `json:"problem"`
	Solution      string  `json:"solution"`
	USP           string  `json:"usp"`
}

// DataQualityAssessment summarises completeness and reliability.
type DataQualityAssessment struct {
	OverallQuality    string   `json:"overall_quality"`
	DataCompleteness  string   `json:"data_completeness"`
	SourceDiversity   string   `json:"source_diversity"`
	ReliabilityScore  float64  `json:"reliability_score"`
	ConsistencyScore  float64  `json:"consistency_score"`
	ConsistencyIssues int      `json:"consistency_issues"`
	FailedCategories  []string `json:"failed_categories"`
	Recommendations   []string `json:"recommendations"`
}

type ValidationFramework struct {
	QuantitativeMethods []string `json:"quantitative_methods"`
	QualitativeMethods  []string `json:"qualitative_methods"`
}

// ForecastingMethodology is a fixed descriptive block.
type ForecastingMethodology struct {
	Approach            string              `json:"approach"`
	ValidationFramework ValidationFramework `json:"validation_framework"`
	AccuracyTargets     map[string]string   `json:"accuracy_targets"`
	UpdateFrequency     string              `json:"update_frequency"`
	ConfidenceIntervals string              `json:"confidence_intervals"`
}

// ConsolidatedReport is the final document returned to callers.
type ConsolidatedReport struct {
	PitchID                string                 `json:"pitchId"`
	ClientID               string                 `json:"clientId"`
	Metadata               ReportMetadata         `json:"metadata"`
	ValidationSummary      Analyses               `json:"validation_summary"`
	Comments               []string               `json:"comments"`
	Details                CompanyDetails         `json:"details"`
	Summary                string                 `json:"summary"`
	Pros                   []string               `json:"pros"`
	RedFlags               []string               `json:"red_flags"`
	AIQuestionnaire        []string               `json:"ai_questionnaire"`
	DataQualityAssessment  DataQualityAssessment  `json:"data_quality_assessment"`
	ForecastingMethodology ForecastingMethodology `json:"forecasting_methodology"`
	FinalIRSScore          int                    `json:"final_irs_score"`
	FinalCSScore           int                    `json:"final_cs_score"`
	Uniqueness             int                    `json:"uniqueness"`
}

// ToMap converts the report to its generic JSON form.
func (r *ConsolidatedReport) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReportKeys lists the top-level keys of a report in document order.
var ReportKeys = []string{
	"pitchId", "clientId", "metadata", "validation_summary", "comments",
	"details", "summary", "pros", "red_flags", "ai_questionnaire",
	"data_quality_assessment", "forecasting_methodology",
	"final_irs_score", "final_cs_score", "uniqueness",
}
