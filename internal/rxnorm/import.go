package rxnorm

import (
	"bytes"
	"context"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"ndcscan/internal"
	"ndcscan/internal/pipeline"
)

type MappingWriter interface {
	UpsertMappings(ctx context.Context, mappings []internal.NDCMapping) (int, error)
}

type ImportService struct {
	db     MappingWriter
	logger *zap.Logger
}

func NewImportService(db MappingWriter, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{db: db, logger: logger}
}

// ImportXLSX loads every sheet of an ndc/rxcui/str workbook into the store.
func (s *ImportService) ImportXLSX(ctx context.Context, content []byte) (int, error) {
	mappings, err := ParseMappingsXLSX(content)
	if err != nil {
		return 0, err
	}
	n, err := s.db.UpsertMappings(ctx, mappings)
	if err != nil {
		return 0, err
	}
	s.logger.Info("mappings imported", zap.Int("rows", len(mappings)), zap.Int("stored", n))
	return n, nil
}

// ParseMappingsXLSX reads rows with ndc, rxcui and str columns. A header row
// naming those columns is optional; without one the first three columns are
// used in that order. NDCs are stored in canonical form.
func ParseMappingsXLSX(content []byte) ([]internal.NDCMapping, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := []internal.NDCMapping{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}

		ndcIdx, rxcuiIdx, strIdx := 0, 1, 2
		for i, row := range rows {
			if i == 0 {
				if n, r, s, ok := inferMappingColumns(row); ok {
					ndcIdx, rxcuiIdx, strIdx = n, r, s
					continue
				}
			}
			ndc := pickCell(row, ndcIdx)
			rxcui := pickCell(row, rxcuiIdx)
			if ndc == "" || rxcui == "" {
				continue
			}
			out = append(out, internal.NDCMapping{
				NDC:   pipeline.NormalizeNDC(ndc),
				RXCUI: rxcui,
				Name:  pickCell(row, strIdx),
			})
		}
	}
	return out, nil
}

func inferMappingColumns(header []string) (int, int, int, bool) {
	ndcIdx, rxcuiIdx, strIdx := -1, -1, -1
	for i, cell := range header {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "ndc":
			ndcIdx = i
		case "rxcui":
			rxcuiIdx = i
		case "str", "name", "drug_name", "drugname":
			strIdx = i
		}
	}
	if ndcIdx < 0 || rxcuiIdx < 0 {
		return 0, 0, 0, false
	}
	return ndcIdx, rxcuiIdx, strIdx, true
}

func pickCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
