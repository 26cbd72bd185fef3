package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JayJamieson/duckcsv/pkg/db"
	"github.com/JayJamieson/duckcsv/pkg/models"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()

	database, err := db.New(db.Config{CatalogURL: "file:" + filepath.Join(t.TempDir(), "catalog.db")})
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return New(Config{Port: 0}, database)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func importEmployees(t *testing.T, s *Server) models.ImportResponse {
	t.Helper()

	data, err := os.ReadFile("../db/testdata/employees.csv")
	if err != nil {
		t.Fatal(err)
	}

	rec := do(t, s, http.MethodPost, "/api/import?name=employees.csv", string(data))
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp models.ImportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode import response: %v", err)
	}
	return resp
}

func TestImportAndListTables(t *testing.T) {
	s := setupTestServer(t)

	resp := importEmployees(t, s)
	if !resp.OK || resp.Table.TableName != "employees" || resp.Table.RowCount != 15 {
		t.Errorf("Unexpected import response: %+v", resp)
	}
	if !strings.HasSuffix(resp.Endpoint, "/api/tables/employees") {
		t.Errorf("Unexpected endpoint: %s", resp.Endpoint)
	}

	rec := do(t, s, http.MethodGet, "/api/tables", "")
	var list models.TablesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(list.Tables) != 1 || list.Tables[0].ID != resp.Table.ID {
		t.Errorf("Unexpected tables: %+v", list.Tables)
	}
}

func TestImportValidation(t *testing.T) {
	s := setupTestServer(t)

	tests := []struct {
		name   string
		target string
	}{
		{"no source", "/api/import"},
		{"bad header", "/api/import?name=a.csv&header=maybe"},
		{"bad skip", "/api/import?name=a.csv&skip=-1"},
		{"local url", "/api/import?url=/etc/passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, tt.target, "a,b\n1,2\n")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestImportFromURL(t *testing.T) {
	s := setupTestServer(t)

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("id,score\n1,9.5\n2,7.25\n"))
	}))
	defer remote.Close()

	rec := do(t, s, http.MethodPost, "/api/import?url="+remote.URL+"/scores.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp models.ImportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Table.TableName != "scores" || resp.Table.RowCount != 2 {
		t.Errorf("Unexpected import: %+v", resp.Table)
	}
}

func TestQueryTableShapes(t *testing.T) {
	s := setupTestServer(t)
	importEmployees(t, s)

	rec := do(t, s, http.MethodGet, "/api/tables/employees?_sort=Salary&_size=3&_rowid=hide", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var objects models.DataResponseObjects
	if err := json.Unmarshal(rec.Body.Bytes(), &objects); err != nil {
		t.Fatal(err)
	}
	if len(objects.Rows) != 3 || objects.Total != 3 {
		t.Fatalf("Expected 3 rows, got %d (total %d)", len(objects.Rows), objects.Total)
	}
	if objects.Rows[0]["First Name"] != "Kimberly" {
		t.Errorf("Expected lowest salary first, got %v", objects.Rows[0])
	}
	if objects.Columns[0] != "First Name" {
		t.Errorf("Expected rowid hidden, got columns %v", objects.Columns)
	}

	rec = do(t, s, http.MethodGet, "/api/tables/employees?_shape=array&_size=1&_total=hide", "")
	var arrays models.DataResponseArray
	if err := json.Unmarshal(rec.Body.Bytes(), &arrays); err != nil {
		t.Fatal(err)
	}
	if len(arrays.Rows) != 1 || arrays.Columns[0] != "rowid" || arrays.Total != 0 {
		t.Errorf("Unexpected array response: %+v", arrays)
	}

	rec = do(t, s, http.MethodGet, "/api/tables/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRunQuery(t *testing.T) {
	s := setupTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/query?_shape=array", `{"sql": "SELECT 42 AS answer"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp models.DataResponseArray
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Columns[0] != "answer" || resp.Rows[0][0] != float64(42) {
		t.Errorf("Unexpected response: %+v", resp)
	}

	rec = do(t, s, http.MethodPost, "/api/query", `{"sql": "SELEC 1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for invalid SQL", rec.Code)
	}

	rec = do(t, s, http.MethodPost, "/api/query", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing sql", rec.Code)
	}
}

func TestRunQueryDropKeepsCatalogInSync(t *testing.T) {
	s := setupTestServer(t)
	importEmployees(t, s)

	rec := do(t, s, http.MethodPost, "/api/query", `{"sql": "DROP TABLE employees"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/tables", "")
	var list models.TablesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Tables) != 0 {
		t.Errorf("Expected catalog to forget dropped table, got %+v", list.Tables)
	}

	rec = do(t, s, http.MethodGet, "/api/tables/employees", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDropTable(t *testing.T) {
	s := setupTestServer(t)
	importEmployees(t, s)

	rec := do(t, s, http.MethodDelete, "/api/tables/employees", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/tables", "")
	var list models.TablesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Tables) != 0 {
		t.Errorf("Expected empty catalog, got %+v", list.Tables)
	}

	rec = do(t, s, http.MethodDelete, "/api/tables/employees", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAPIDocCoversRoutes(t *testing.T) {
	s := setupTestServer(t)

	doc, err := LoadDoc(context.Background())
	if err != nil {
		t.Fatalf("LoadDoc error: %v", err)
	}

	routes := 0
	for _, r := range s.router.Routes() {
		if !strings.HasPrefix(r.Path, "/api/") {
			continue
		}
		routes++

		path := strings.ReplaceAll(r.Path, ":name", "{name}")
		item := doc.Paths.Value(path)
		if item == nil {
			t.Errorf("%s %s is not documented", r.Method, r.Path)
			continue
		}
		if item.GetOperation(r.Method) == nil {
			t.Errorf("%s %s has no documented operation", r.Method, r.Path)
		}
	}
	if routes != 5 {
		t.Errorf("Expected 5 api routes, got %d", routes)
	}

	rec := do(t, s, http.MethodGet, "/doc.yml", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "openapi: 3.0.3") {
		t.Errorf("Expected /doc.yml to serve the OpenAPI document, got %d", rec.Code)
	}

	rec = do(t, s, http.MethodGet, "/swagger/index.html", "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected swagger UI, got %d", rec.Code)
	}
}
