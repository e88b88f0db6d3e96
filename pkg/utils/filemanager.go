// =============================================================================
// Webshop Sales Report - File Manager Utility
// =============================================================================
//
// This module provides the file handling around a run:
//   - Discovery of export files (.csv and .xlsx) in the input directory
//   - Archival of processed exports
//   - Report folder naming with placeholders
//   - Summary log generation for the process command
//
// ARCHIVAL STRATEGY:
//   - Exports are moved to input_archive after a successful run
//   - Failed exports stay in the input directory so they can be fixed
//   - Summary logs are written to the output directory
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ExportExtensions lists the file extensions treated as exports.
var ExportExtensions = []string{".csv", ".xlsx"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for report runs.
type FileManager struct {
	// InputDir is the directory where exports are dropped.
	InputDir string

	// OutputDir is the directory where report folders are created.
	OutputDir string

	// InputArchiveDir is the directory for processed exports.
	InputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: input_archive/2024/01/15/export.csv
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether exports are archived after a run.
	ArchiveOnSuccess bool

	// now is replaced in tests.
	now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		ArchiveOnSuccess: true,
		now:              time.Now,
	}
}

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.InputDir, fm.OutputDir, fm.InputArchiveDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (fm *FileManager) clock() time.Time {
	if fm.now == nil {
		return time.Now()
	}
	return fm.now()
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverExports returns the export files in the input directory, sorted by
// name. Hidden files and Excel lock files (~$report.xlsx) are skipped.
//
// RETURNS:
//   - A slice of file paths.
//   - An error if the directory cannot be read.
func (fm *FileManager) DiscoverExports() ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		if IsExportFile(name) {
			result = append(result, filepath.Join(fm.InputDir, name))
		}
	}

	sort.Strings(result)
	return result, nil
}

// IsExportFile reports whether path has one of the export extensions.
func IsExportFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, candidate := range ExportExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves a processed export to the archive directory. An
// existing archive entry with the same name gets a timestamp suffix instead
// of being overwritten.
//
// RETURNS:
//   - The path to the archived file (the original path when archiving is off).
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Cross-device rename; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

func (fm *FileManager) getArchivePath(filePath string) string {
	dir := fm.InputArchiveDir
	now := fm.clock()

	if fm.UseTimestampSubdirs {
		dir = filepath.Join(dir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
	}

	name := filepath.Base(filePath)
	target := filepath.Join(dir, name)
	if FileExists(target) {
		ext := filepath.Ext(name)
		target = filepath.Join(dir, fmt.Sprintf("%s_%s%s",
			strings.TrimSuffix(name, ext), now.Format("20060102_150405"), ext))
	}
	return target
}

// =============================================================================
// OUTPUT NAMING
// =============================================================================

// ExpandPlaceholders fills a folder or file name format.
//
// PARAMETERS:
//   - format: The format string. Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {date}      - Current date (YYYY-MM-DD)
//     plus any key of params, e.g. {first} and {last}
//   - params: Placeholder values.
//
// EXAMPLE:
//
//	format: "{first}_to_{last}"
//	params: {"first": "2023-12-01", "last": "2023-12-31"}
//	output: "2023-12-01_to_2023-12-31"
func (fm *FileManager) ExpandPlaceholders(format string, params map[string]string) string {
	now := fm.clock()

	pairs := []string{
		"{timestamp}", now.Format("20060102_150405"),
		"{date}", now.Format("2006-01-02"),
	}
	if strings.Contains(format, "{uuid}") {
		pairs = append(pairs, "{uuid}", uuid.New().String())
	}
	for key, value := range params {
		pairs = append(pairs, "{"+key+"}", value)
	}

	return strings.NewReplacer(pairs...).Replace(format)
}

// ReportDir creates (if needed) and returns the report folder for name.
// Path separators in name are replaced so a format cannot escape OutputDir.
func (fm *FileManager) ReportDir(name string) (string, error) {
	name = strings.NewReplacer("/", "-", `\`, "-").Replace(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("invalid report folder name %q", name)
	}

	dir := filepath.Join(fm.OutputDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report folder %s: %w", dir, err)
	}
	return dir, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a process run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	TotalRecords    int
	RepairedRows    int
	Issues          int
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo contains information about a successfully processed export.
type ProcessedFileInfo struct {
	InputFile   string
	ReportDir   string
	ArchivePath string
	RunID       string
	Records     int
	Repaired    int
	Issues      int
	ProcessTime time.Duration
}

// FailedFileInfo contains information about a failed export.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes summary_<timestamp>.log to outputDir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir,
		fmt.Sprintf("summary_%s.log", summary.StartTime.Format("20060102_150405")))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	rule := strings.Repeat("=", 80) + "\n"
	thin := strings.Repeat("-", 80) + "\n"

	fmt.Fprintf(writer, "Webshop Sales Report - Processing Summary\n%s\n", rule)
	fmt.Fprintf(writer, "Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String())
	fmt.Fprintf(writer, "Statistics:\n"+
		"  Total Files:    %d\n"+
		"  Successful:     %d\n"+
		"  Failed:         %d\n"+
		"  Records:        %d\n"+
		"  Repaired Rows:  %d\n"+
		"  Issues:         %d\n\n",
		summary.TotalFiles, summary.SuccessfulFiles, summary.FailedFiles,
		summary.TotalRecords, summary.RepairedRows, summary.Issues)

	if len(summary.ProcessedFiles) > 0 {
		fmt.Fprintf(writer, "Successful Files:\n%s", thin)
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(writer, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(writer, "  Report:       %s\n", pf.ReportDir)
			if pf.ArchivePath != "" {
				fmt.Fprintf(writer, "  Archived:     %s\n", pf.ArchivePath)
			}
			fmt.Fprintf(writer, "  Run ID:       %s\n", pf.RunID)
			fmt.Fprintf(writer, "  Records:      %d\n", pf.Records)
			fmt.Fprintf(writer, "  Repaired:     %d\n", pf.Repaired)
			fmt.Fprintf(writer, "  Issues:       %d\n", pf.Issues)
			fmt.Fprintf(writer, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		fmt.Fprintf(writer, "Failed Files:\n%s", thin)
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	fmt.Fprintf(writer, "%sEnd of Summary\n", rule)

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}
	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
