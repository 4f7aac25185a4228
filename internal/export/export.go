package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/tabletalk/tabletalk/internal/observability"
	"github.com/tabletalk/tabletalk/internal/query"
)

type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case FormatCSV, FormatParquet:
		return Format(raw), nil
	default:
		return "", fmt.Errorf("unsupported export format %q (expected csv or parquet)", raw)
	}
}

type Info struct {
	Key         string `json:"key"`
	Format      Format `json:"format"`
	SizeBytes   int64  `json:"size_bytes"`
	RecordCount int    `json:"record_count"`
	ETag        string `json:"etag,omitempty"`
}

// Service persists a turn's result set to object storage so a report can be
// shared outside the chat.
type Service struct {
	Store ObjectStore
	Now   func() time.Time
}

func (s *Service) Export(ctx context.Context, sessionID string, format Format, result query.Result) (Info, error) {
	if s.Store == nil {
		return Info{}, fmt.Errorf("object store is required")
	}
	if len(result.Columns) == 0 {
		return Info{}, fmt.Errorf("result has no columns")
	}

	var (
		data        []byte
		contentType string
		err         error
	)
	switch format {
	case FormatCSV:
		data, err = encodeCSV(result)
		contentType = "text/csv"
	case FormatParquet:
		data, err = encodeParquet(result)
		contentType = "application/vnd.apache.parquet"
	default:
		return Info{}, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return Info{}, err
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	key := fmt.Sprintf("reports/%s/%s.%s", sessionID, now().UTC().Format("20060102T150405.000Z"), format)

	etag, err := s.Store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		return Info{}, fmt.Errorf("upload export: %w", err)
	}
	observability.IncExport(string(format))

	return Info{
		Key:         key,
		Format:      format,
		SizeBytes:   int64(len(data)),
		RecordCount: len(result.Rows),
		ETag:        etag,
	}, nil
}

func encodeCSV(result query.Result) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buf)

	if err := writer.Write(result.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) && row[i] != nil {
				record[i] = fmt.Sprint(row[i])
			}
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// reportRow is the parquet envelope for one result row. Result sets have
// arbitrary shapes, so each row travels as a JSON object keyed by column
// name rather than as typed parquet columns.
type reportRow struct {
	RowIndex   int64  `parquet:"row_index"`
	ValuesJSON string `parquet:"values_json"`
}

func encodeParquet(result query.Result) ([]byte, error) {
	rows := make([]reportRow, 0, len(result.Rows))
	for index, row := range result.Rows {
		values := make(map[string]any, len(result.Columns))
		for i, column := range result.Columns {
			if i < len(row) {
				values[column] = row[i]
			}
		}
		payload, err := json.Marshal(values)
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", index, err)
		}
		rows = append(rows, reportRow{RowIndex: int64(index), ValuesJSON: string(payload)})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[reportRow](buf)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
