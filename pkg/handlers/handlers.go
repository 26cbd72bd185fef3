package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/JayJamieson/duckcsv/pkg/db"
	"github.com/JayJamieson/duckcsv/pkg/models"
	"github.com/JayJamieson/duckcsv/pkg/source"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type Handler struct {
	DB *db.DB
	S3 source.S3Config
}

func NewHandler(db *db.DB, s3 source.S3Config) *Handler {
	return &Handler{
		DB: db,
		S3: s3,
	}
}

func (h *Handler) ImportCSV(c echo.Context) error {
	ctx := c.Request().Context()

	csvURL := c.QueryParam("url")
	name := c.QueryParam("name")

	opts, err := readOptions(c)
	if err != nil {
		return createErrorResponse(c, http.StatusBadRequest, "Invalid parameter", err.Error())
	}

	var reader io.Reader
	var filename string

	if csvURL != "" {
		if !source.IsRemote(csvURL) {
			return createErrorResponse(c, http.StatusBadRequest, "Invalid URL",
				"Only http, https and s3 URLs can be imported")
		}

		body, err := source.Open(ctx, csvURL, h.S3)
		if err != nil {
			return createErrorResponse(c, http.StatusBadRequest, "URL fetch error", err.Error())
		}
		defer body.Close()

		reader = body
		filename = source.Filename(csvURL)
	} else if name != "" {
		reader = c.Request().Body
		filename = name
	} else {
		return createErrorResponse(c, http.StatusBadRequest, "Missing parameter",
			"Either 'url' or 'name' parameter must be provided")
	}

	csvTable, err := h.DB.ImportCSV(ctx, filename, reader, opts)
	if err != nil {
		return createErrorResponse(c, http.StatusInternalServerError, "CSV import error", err.Error())
	}

	endpoint := fmt.Sprintf("%s://%s/api/tables/%s", c.Scheme(), c.Request().Host, csvTable.TableName)

	return c.JSON(http.StatusOK, models.ImportResponse{
		OK:       true,
		Endpoint: endpoint,
		Table:    csvTable,
	})
}

func (h *Handler) ListTables(c echo.Context) error {
	if h.DB.Catalog() == nil {
		return createErrorResponse(c, http.StatusInternalServerError, "Catalog error", db.ErrNoCatalog.Error())
	}

	tables, err := h.DB.Catalog().List(c.Request().Context())
	if err != nil {
		return createErrorResponse(c, http.StatusInternalServerError, "Catalog error", err.Error())
	}

	return c.JSON(http.StatusOK, models.TablesResponse{
		OK:     true,
		Tables: tables,
	})
}

func (h *Handler) QueryTable(c echo.Context) error {
	ctx := c.Request().Context()

	name := c.Param("name")
	if name == "" {
		return createErrorResponse(c, http.StatusBadRequest, "Missing parameter", "Table name is required")
	}

	tables, err := h.DB.ShowTables(ctx)
	if err != nil {
		return createErrorResponse(c, http.StatusInternalServerError, "Query error", err.Error())
	}
	if !slices.Contains(tables, name) {
		return createErrorResponse(c, http.StatusNotFound, "Resource not found",
			fmt.Sprintf("table %s not found", name))
	}

	size, _ := strconv.Atoi(c.QueryParam("_size"))
	offset, _ := strconv.Atoi(c.QueryParam("_offset"))
	sortCol := c.QueryParam("_sort")
	if sortCol == "" {
		sortCol = c.QueryParam("_sort_desc")
	}
	sortDesc := c.QueryParam("_sort_desc") != ""
	showRowID := c.QueryParam("_rowid") != "hide"

	rel := h.DB.TableRelation(name, db.TableQuery{
		Limit:      size,
		Offset:     offset,
		SortColumn: sortCol,
		SortDesc:   sortDesc,
		RowID:      showRowID,
	})

	return h.respond(c, rel)
}

func (h *Handler) RunQuery(c echo.Context) error {
	var req models.QueryRequest
	if err := c.Bind(&req); err != nil {
		return createErrorResponse(c, http.StatusBadRequest, "Invalid body", err.Error())
	}
	if req.SQL == "" {
		return createErrorResponse(c, http.StatusBadRequest, "Missing parameter", "'sql' is required")
	}

	ctx := c.Request().Context()

	result, err := h.DB.Sql(req.SQL).Execute(ctx)
	if err != nil {
		return createErrorResponse(c, http.StatusBadRequest, "Query error", err.Error())
	}

	// Plain SQL may have dropped imported tables behind the catalog's back.
	if pruned, err := h.DB.SyncCatalog(ctx); err != nil {
		log.Warnf("Failed to sync catalog after query: %v", err)
	} else if pruned > 0 {
		log.Infof("Pruned %d catalog entries after query", pruned)
	}

	return h.write(c, result)
}

func (h *Handler) DropTable(c echo.Context) error {
	ctx := c.Request().Context()
	name := c.Param("name")

	tables, err := h.DB.ShowTables(ctx)
	if err != nil {
		return createErrorResponse(c, http.StatusInternalServerError, "Drop error", err.Error())
	}
	if !slices.Contains(tables, name) {
		return createErrorResponse(c, http.StatusNotFound, "Resource not found",
			fmt.Sprintf("table %s not found", name))
	}

	if err := h.DB.DropTable(ctx, name); err != nil {
		return createErrorResponse(c, http.StatusInternalServerError, "Drop error", err.Error())
	}

	return c.JSON(http.StatusOK, models.DropResponse{
		OK:      true,
		Message: fmt.Sprintf("Dropped table %s", name),
	})
}

func (h *Handler) respond(c echo.Context, rel *db.Relation) error {
	result, err := rel.Execute(c.Request().Context())
	if err != nil {
		return createErrorResponse(c, http.StatusBadRequest, "Query error", err.Error())
	}
	return h.write(c, result)
}

func (h *Handler) write(c echo.Context, result *db.Result) error {
	shape := c.QueryParam("_shape")
	if shape == "" {
		shape = "objects"
	}
	showTotal := c.QueryParam("_total") != "hide"

	baseResp := models.DataResponseBase{
		OK:      true,
		QueryMS: result.QueryMS,
		Columns: result.Columns,
		Types:   result.Types,
	}

	if showTotal {
		baseResp.Total = len(result.Rows)
	}

	if shape == "objects" {
		resp := models.DataResponseObjects{
			DataResponseBase: baseResp,
			Rows:             result.Shape("objects").([]map[string]any),
		}
		return c.JSON(http.StatusOK, resp)
	}

	resp := models.DataResponseArray{
		DataResponseBase: baseResp,
		Rows:             result.Shape("array").([][]any),
	}

	return c.JSON(http.StatusOK, resp)
}

func readOptions(c echo.Context) (db.ReadCSVOptions, error) {
	var opts db.ReadCSVOptions

	if v := c.QueryParam("header"); v != "" {
		header, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("header: %w", err)
		}
		opts.Header = &header
	}

	if v := c.QueryParam("skip"); v != "" {
		skip, err := strconv.Atoi(v)
		if err != nil || skip < 0 {
			return opts, errors.New("skip must be a non-negative integer")
		}
		opts.SkipRows = skip
	}

	if v := c.QueryParam("filename"); v != "" {
		filename, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("filename: %w", err)
		}
		opts.Filename = filename
	}

	opts.Delimiter = c.QueryParam("delim")

	return opts, nil
}

func createErrorResponse(c echo.Context, status int, error string, message string) error {
	resp := models.ErrorResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Error:     error,
		Message:   message,
	}
	return c.JSON(status, resp)
}
