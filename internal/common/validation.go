package common

import (
	"fmt"
	"slices"
	"strings"

	"resumeforensics/internal/export"
	"resumeforensics/internal/types"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ResolveOutputFormat applies the default and then validates.
func ResolveOutputFormat(format, defaultFormat string, supportedFormats []string) (string, error) {
	if format == "" {
		format = defaultFormat
	}
	return format, ValidateOutputFormat(format, supportedFormats)
}

// GetSupportedFormats returns the list of supported formats
func GetSupportedFormats(supportedFormats []string) []string {
	return supportedFormats
}

// AnalysisTarget is the benchmark an upload is scored against.
type AnalysisTarget struct {
	Industry types.Industry
	Region   types.Region
}

// ParseAnalysisTarget validates the industry and region flags.
func ParseAnalysisTarget(industry, region string) (AnalysisTarget, error) {
	ind, err := types.ParseIndustry(industry)
	if err != nil {
		return AnalysisTarget{}, fmt.Errorf("%w. Supported industries: %v", err, types.Industries)
	}
	reg, err := types.ParseRegion(region)
	if err != nil {
		return AnalysisTarget{}, fmt.Errorf("%w. Supported regions: %v", err, types.Regions)
	}
	return AnalysisTarget{Industry: ind, Region: reg}, nil
}

// ParseExportKinds splits a comma-separated list of export kinds.
func ParseExportKinds(s string) ([]string, error) {
	var kinds []string
	for part := range strings.SplitSeq(s, ",") {
		kind := strings.ToLower(strings.TrimSpace(part))
		switch kind {
		case "":
			continue
		case export.KindPDF, export.KindDOCX:
			if !slices.Contains(kinds, kind) {
				kinds = append(kinds, kind)
			}
		default:
			return nil, fmt.Errorf("unsupported export format '%s'. Supported formats: [pdf docx]", part)
		}
	}
	return kinds, nil
}
