package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/MeKo-Tech/leafscan/internal/analysis"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatText = "text"
)

var csvHeader = []string{
	"file", "success", "disease", "confidence", "severity", "reliability", "reliability_level",
	"urgency", "quality", "model_kind", "preprocess_stage", "error",
}

type imageEntry struct {
	File string `json:"file"`
	analysis.BatchItem
}

// FormatItems renders batch items; paths[i] names items[i]. Unknown formats
// fall back to text.
func FormatItems(items []analysis.BatchItem, paths []string, format string) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(items, paths)
	case FormatCSV:
		return formatCSV(items, paths)
	default:
		return formatText(items, paths), nil
	}
}

func fileName(items []analysis.BatchItem, paths []string, i int) string {
	if i < len(paths) {
		return paths[i]
	}
	return items[i].Source
}

func formatJSON(items []analysis.BatchItem, paths []string) (string, error) {
	batchResult := struct {
		Images []imageEntry `json:"images"`
	}{Images: make([]imageEntry, len(items))}

	for i, it := range items {
		batchResult.Images[i] = imageEntry{File: fileName(items, paths, i), BatchItem: it}
	}

	bts, err := json.MarshalIndent(batchResult, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bts) + "\n", nil
}

func formatCSV(items []analysis.BatchItem, paths []string) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.Write(csvHeader); err != nil {
		return "", err
	}

	for i, it := range items {
		row := make([]string, len(csvHeader))
		row[0] = fileName(items, paths, i)
		row[1] = strconv.FormatBool(it.Success)
		row[11] = it.Error
		if res := it.Result; res != nil {
			row[8] = fmt.Sprintf("%.3f", res.ImageInfo.Quality)
			row[10] = string(res.ImageInfo.PreprocessStage)
			if d := res.Analysis; d != nil {
				row[2] = string(d.DiseaseDetected)
				row[3] = fmt.Sprintf("%.4f", d.Confidence)
				row[4] = string(d.Severity)
				row[5] = strconv.Itoa(d.Reliability.Score)
				row[6] = string(d.Reliability.Level)
				row[9] = d.ModelKind.String()
			}
			if res.Recommendations != nil {
				row[7] = string(res.Recommendations.Urgency)
			}
		}
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

func formatText(items []analysis.BatchItem, paths []string) string {
	title := cases.Title(language.English)
	titled := func(s string) string {
		return title.String(strings.ReplaceAll(s, "_", " "))
	}

	var output strings.Builder
	for i, it := range items {
		if i > 0 {
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "# %s\n", fileName(items, paths, i))

		res := it.Result
		if res == nil {
			fmt.Fprintf(&output, "Error: %s\n", it.Error)
			continue
		}
		if !res.Success {
			fmt.Fprintf(&output, "Rejected: %s\n", res.Error)
			if res.Quality != nil {
				fmt.Fprintf(&output, "Quality: %.2f\n", res.Quality.Score)
				for _, issue := range res.Quality.Issues {
					fmt.Fprintf(&output, "  - %s\n", issue)
				}
			}
			for _, s := range res.Suggestions {
				fmt.Fprintf(&output, "Suggestion: %s\n", s)
			}
			continue
		}

		d := res.Analysis
		fmt.Fprintf(&output, "Diagnosis: %s (%.1f%%)\n", d.DiseaseDetected, d.Confidence*100)
		fmt.Fprintf(&output, "Severity: %s\n", titled(string(d.Severity)))
		fmt.Fprintf(&output, "Reliability: %d (%s)\n", d.Reliability.Score, titled(string(d.Reliability.Level)))
		fmt.Fprintf(&output, "Model: %s %s\n", d.ModelKind, d.ModelVersion)
		output.WriteString("Predictions:\n")
		for _, p := range d.AllPredictions {
			fmt.Fprintf(&output, "  %-16s %6.2f%%\n", p.Disease, p.Confidence*100)
		}
		if rec := res.Recommendations; rec != nil {
			fmt.Fprintf(&output, "Urgency: %s\n", titled(string(rec.Urgency)))
			for _, t := range rec.Treatments {
				fmt.Fprintf(&output, "Treatment: %s\n", t)
			}
			for _, p := range rec.Prevention {
				fmt.Fprintf(&output, "Prevention: %s\n", p)
			}
		}
		for _, w := range res.Warnings {
			fmt.Fprintf(&output, "Warning: %s\n", w)
		}
	}
	return output.String()
}
