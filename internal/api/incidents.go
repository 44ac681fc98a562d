package api

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-incident-dedupe/internal/repository"
)

// utf8BOM lets spreadsheet tools detect UTF-8 so Bangla titles survive.
const utf8BOM = "\uFEFF"

func (h *Handler) listIncidents(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing, err := h.reader.List(c.Request.Context(), filter)
	if err != nil {
		slog.Error("error listing incidents", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list incidents"})
		return
	}
	if listing.Rows == nil {
		listing.Rows = []map[string]any{}
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handler) exportIncidents(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing, err := h.reader.List(c.Request.Context(), filter)
	if err != nil {
		slog.Error("error exporting incidents", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export incidents"})
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="incidents.csv"`)
	c.Status(http.StatusOK)

	if _, err := c.Writer.WriteString(utf8BOM); err != nil {
		return
	}
	w := csv.NewWriter(c.Writer)
	if err := w.Write(listing.Columns); err != nil {
		slog.Error("error writing csv header", "error", err)
		return
	}
	record := make([]string, len(listing.Columns))
	for _, row := range listing.Rows {
		for i, col := range listing.Columns {
			record[i] = csvValue(row[col])
		}
		if err := w.Write(record); err != nil {
			slog.Error("error writing csv row", "error", err)
			return
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		slog.Error("error flushing csv", "error", err)
	}
}

func (h *Handler) repairLinks(c *gin.Context) {
	dryRun := false
	if v := c.Query("dry"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dry must be a boolean"})
			return
		}
		dryRun = b
	}

	res, err := h.ingester.RepairLinks(c.Request.Context(), dryRun)
	if err != nil {
		slog.Error("error repairing links", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to repair links"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// listFilter reads date_from, date_to, category, division and limit from the
// query string.
func listFilter(c *gin.Context) (repository.ListFilter, error) {
	var f repository.ListFilter

	from, err := parseDate(c.Query("date_from"))
	if err != nil {
		return f, fmt.Errorf("invalid date_from: %w", err)
	}
	to, err := parseDate(c.Query("date_to"))
	if err != nil {
		return f, fmt.Errorf("invalid date_to: %w", err)
	}
	f.From, f.To = from, to
	f.Category = c.Query("category")
	f.Division = c.Query("division")

	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	return f, nil
}

func csvValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
