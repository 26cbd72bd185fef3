package models

import (
	"time"
)

type CSVTable struct {
	ID        string    `json:"id" db:"id"`
	Filename  string    `json:"filename" db:"filename"`
	TableName string    `json:"table_name" db:"table_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	RowCount  int64     `json:"row_count" db:"row_count"`
}

type ErrorResponse struct {
	Timestamp string `json:"timestamp"`
	Error     string `json:"error"`
	Message   string `json:"message"`
}

type ImportResponse struct {
	OK       bool      `json:"ok"`
	Endpoint string    `json:"endpoint"`
	Table    *CSVTable `json:"table"`
}

type TablesResponse struct {
	OK     bool       `json:"ok"`
	Tables []CSVTable `json:"tables"`
}

type DropResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type QueryRequest struct {
	SQL string `json:"sql"`
}

type DataResponseBase struct {
	OK      bool     `json:"ok"`
	QueryMS float64  `json:"query_ms"`
	Columns []string `json:"columns"`
	Types   []string `json:"types,omitempty"`
	Total   int      `json:"total,omitempty"`
}

type DataResponseObjects struct {
	DataResponseBase
	Rows []map[string]any `json:"rows"`
}

type DataResponseArray struct {
	DataResponseBase
	Rows [][]any `json:"rows"`
}

type ColumnInfo struct {
	CID        int
	Name       string
	Type       string
	NotNull    bool
	DefaultVal any
	PK         bool
}
