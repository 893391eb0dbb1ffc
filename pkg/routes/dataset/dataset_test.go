package dataset

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func paginationContext(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestPagination(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantPage     int
		wantPageSize int
	}{
		{"defaults", "", 1, 50},
		{"explicit values", "page=3&page_size=25", 3, 25},
		{"zero page falls back", "page=0", 1, 50},
		{"negative page falls back", "page=-2", 1, 50},
		{"page size capped", "page_size=1000", 1, 50},
		{"max page size allowed", "page_size=500", 1, 500},
		{"garbage ignored", "page=abc&page_size=xyz", 1, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, pageSize := pagination(paginationContext(tt.query))
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantPageSize, pageSize)
		})
	}
}
