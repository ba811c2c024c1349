package tokens

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
)

const (
	jsonReportWrittenTemplateConstant = "JSON report written: %s\n"
	csvReportWrittenTemplateConstant  = "CSV report written: %s\n"
	reportWriteErrorTemplateConstant  = "unable to write report %s: %w"
	jsonReportIndentConstant          = "  "
	csvHeaderPathConstant             = "path"
	csvHeaderTokensConstant           = "tokens"
	csvHeaderMethodConstant           = "method"
	csvHeaderCharactersConstant       = "chars"
	reportFilePermissionsConstant     = 0o644
)

// WriteJSONReport serializes the report to the provided path.
func WriteJSONReport(reportPath string, report Report) error {
	reportBytes, marshalError := json.MarshalIndent(report, "", jsonReportIndentConstant)
	if marshalError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, reportPath, marshalError)
	}

	if writeError := os.WriteFile(reportPath, reportBytes, reportFilePermissionsConstant); writeError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, reportPath, writeError)
	}
	return nil
}

// WriteCSVReport writes the per-file rows to the provided path.
func WriteCSVReport(reportPath string, rows []FileTokenCount) error {
	reportFile, createError := os.Create(reportPath)
	if createError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, reportPath, createError)
	}
	defer reportFile.Close()

	csvWriter := csv.NewWriter(reportFile)
	header := []string{
		csvHeaderPathConstant,
		csvHeaderTokensConstant,
		csvHeaderMethodConstant,
		csvHeaderCharactersConstant,
	}
	if writeError := csvWriter.Write(header); writeError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, reportPath, writeError)
	}

	for _, row := range rows {
		if writeError := csvWriter.Write(row.CSVRecord()); writeError != nil {
			return fmt.Errorf(reportWriteErrorTemplateConstant, reportPath, writeError)
		}
	}

	csvWriter.Flush()
	if flushError := csvWriter.Error(); flushError != nil {
		return fmt.Errorf(reportWriteErrorTemplateConstant, reportPath, flushError)
	}
	return nil
}
