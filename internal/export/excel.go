// internal/export/excel.go
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

// MaxCellLength is the longest value an Excel cell holds
const MaxCellLength = 32767

// ExcelService keeps every record path in its own sheet of one workbook,
// saved after each Post. Images are written next to the workbook.
type ExcelService struct {
	mu       sync.Mutex
	path     string
	imageDir string
	file     *excelize.File
	sheets   map[string]*sheetState
	logger   utils.Logger
}

type sheetState struct {
	name    string
	columns []string
	index   map[string]int
	row     int
}

// NewExcelService creates a workbook sink writing to path
func NewExcelService(path string, logger utils.Logger) (*ExcelService, error) {
	if path == "" {
		return nil, fmt.Errorf("excel file path is required")
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &ExcelService{
		path:     path,
		imageDir: filepath.Join(dir, "images"),
		file:     excelize.NewFile(),
		sheets:   make(map[string]*sheetState),
		logger:   logger.WithFields(map[string]interface{}{"component": "export", "file": path}),
	}, nil
}

// SheetName maps a record path to a sheet name, e.g. "amazon_detail_items"
func SheetName(path string) string {
	name := strings.ReplaceAll(strings.Trim(path, "/"), "/", "_")
	if len(name) > 31 {
		name = name[:31]
	}
	if name == "" {
		name = "records"
	}
	return name
}

// Post implements Service
func (s *ExcelService) Post(ctx context.Context, path string, records []map[string]interface{}) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet, err := s.sheet(path)
	if err != nil {
		return utils.WrapError(err, utils.ErrCodeExportFailed, "failed to prepare sheet")
	}
	if err := s.extendColumns(sheet, Columns(records)); err != nil {
		return utils.WrapError(err, utils.ErrCodeExportFailed, "failed to write header")
	}
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := make([]interface{}, len(sheet.columns))
		for k, v := range record {
			row[sheet.index[k]] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, sheet.row)
		if err != nil {
			return utils.WrapError(err, utils.ErrCodeExportFailed, "failed to address row")
		}
		if err := s.file.SetSheetRow(sheet.name, cell, &row); err != nil {
			return utils.WrapError(err, utils.ErrCodeExportFailed, "failed to write row")
		}
		sheet.row++
	}

	if err := s.file.SaveAs(s.path); err != nil {
		return utils.NewError(utils.ErrCodeExportFailed, "failed to save workbook").
			WithCause(err).
			WithRetryable(true).
			Build()
	}
	s.logger.WithFields(map[string]interface{}{"sheet": sheet.name, "records": len(records)}).Debug("records exported")
	return nil
}

func (s *ExcelService) sheet(path string) (*sheetState, error) {
	if st, ok := s.sheets[path]; ok {
		return st, nil
	}
	name := SheetName(path)
	if len(s.sheets) == 0 {
		// reuse the default sheet of a new workbook
		if err := s.file.SetSheetName(s.file.GetSheetName(0), name); err != nil {
			return nil, err
		}
	} else if _, err := s.file.NewSheet(name); err != nil {
		return nil, err
	}
	st := &sheetState{name: name, index: make(map[string]int), row: 2}
	s.sheets[path] = st
	return st, nil
}

func (s *ExcelService) extendColumns(st *sheetState, columns []string) error {
	added := false
	for _, c := range columns {
		if _, ok := st.index[c]; ok {
			continue
		}
		st.index[c] = len(st.columns)
		st.columns = append(st.columns, c)
		added = true
	}
	if !added {
		return nil
	}
	header := make([]interface{}, len(st.columns))
	for i, c := range st.columns {
		header[i] = c
	}
	return s.file.SetSheetRow(st.name, "A1", &header)
}

func cellValue(v interface{}) interface{} {
	if s, ok := v.(string); ok {
		return utils.TruncateString(s, MaxCellLength)
	}
	return v
}

// UploadImage writes png into the images directory and returns its path
func (s *ExcelService) UploadImage(ctx context.Context, name string, png []byte) (string, error) {
	if err := os.MkdirAll(s.imageDir, 0755); err != nil {
		return "", utils.WrapError(err, utils.ErrCodeExportFailed, "failed to create image directory")
	}
	target := filepath.Join(s.imageDir, utils.CleanFileName(filepath.Base(name)))
	if err := os.WriteFile(target, png, 0644); err != nil {
		return "", utils.WrapError(err, utils.ErrCodeExportFailed, "failed to write image")
	}
	return target, nil
}

// Close releases the workbook
func (s *ExcelService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
