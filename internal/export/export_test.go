// internal/export/export_test.go
package export

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

type rankInfo struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
}

type sample struct {
	ASIN      string     `json:"asin"`
	Category1 *rankInfo  `json:"category1,omitempty"`
	Images    []string   `json:"imageUrls,omitempty"`
	Reviews   []rankInfo `json:"reviews,omitempty"`
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name string
		in   sample
		want map[string]interface{}
	}{
		{
			name: "scalar fields",
			in:   sample{ASIN: "B000000001"},
			want: map[string]interface{}{"asin": "B000000001"},
		},
		{
			name: "nested object",
			in:   sample{ASIN: "A", Category1: &rankInfo{Name: "Lamps", Rank: 3}},
			want: map[string]interface{}{"asin": "A", "category1Name": "Lamps", "category1Rank": float64(3)},
		},
		{
			name: "scalar list",
			in:   sample{ASIN: "A", Images: []string{"a.jpg", "b.jpg"}},
			want: map[string]interface{}{"asin": "A", "imageUrls": "a.jpg;b.jpg"},
		},
		{
			name: "object list",
			in:   sample{ASIN: "A", Reviews: []rankInfo{{Name: "x", Rank: 1}}},
			want: map[string]interface{}{"asin": "A", "reviews0Name": "x", "reviews0Rank": float64(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Flatten(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlattenRejectsScalar(t *testing.T) {
	_, err := Flatten(42)
	assert.Error(t, err)
}

func TestColumns(t *testing.T) {
	cols := Columns([]map[string]interface{}{
		{"b": 1, "a": 2},
		{"a": 3, "c": 4},
	})
	assert.Equal(t, []string{"a", "b", "c"}, cols)
}

func TestHTTPServicePost(t *testing.T) {
	var gotPath string
	var gotBody postBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc, err := NewHTTPService(server.URL+"/", time.Second, nil)
	require.NoError(t, err)

	records := []map[string]interface{}{{"asin": "A"}}
	require.NoError(t, svc.Post(context.Background(), PathAmazonSearchItems, records))
	assert.Equal(t, "/amazon/search_items", gotPath)
	require.Len(t, gotBody.Items, 1)
	assert.Equal(t, "A", gotBody.Items[0]["asin"])
}

func TestHTTPServiceErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"bad request", http.StatusBadRequest, false},
		{"server error", http.StatusBadGateway, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			svc, err := NewHTTPService(server.URL, time.Second, nil)
			require.NoError(t, err)

			err = svc.Post(context.Background(), PathAmazonReviews, nil)
			require.Error(t, err)
			assert.Equal(t, utils.ErrCodeExportFailed, utils.CodeOf(err))
			assert.Equal(t, tt.retryable, utils.IsRetryableError(err))
		})
	}
}

func TestHTTPServiceUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	svc, err := NewHTTPService(url, time.Second, nil)
	require.NoError(t, err)
	err = svc.Post(context.Background(), PathLowesDetailItems, nil)
	require.Error(t, err)
	assert.True(t, utils.IsRetryableError(err))
}

func TestNewHTTPServiceInvalidURL(t *testing.T) {
	_, err := NewHTTPService("not a url", 0, nil)
	assert.Error(t, err)
}

func TestHTTPServiceUploadImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/image/B01.png", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "B01.png", header.Filename)
		assert.Equal(t, []byte("png-bytes"), data)
		_, _ = w.Write([]byte(`{"file": "/static/B01.png"}`))
	}))
	defer server.Close()

	svc, err := NewHTTPService(server.URL, time.Second, nil)
	require.NoError(t, err)

	url, err := svc.UploadImage(context.Background(), "B01.png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/static/B01.png", url)
}

func TestHTTPServiceUploadWithoutFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	svc, err := NewHTTPService(server.URL, time.Second, nil)
	require.NoError(t, err)
	_, err = svc.UploadImage(context.Background(), "x.png", nil)
	assert.Error(t, err)
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "amazon_detail_items", SheetName(PathAmazonDetailItems))
	assert.Equal(t, "records", SheetName("/"))
	assert.Len(t, SheetName("/"+string(make([]byte, 40))), 31)
}

func TestExcelService(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "export.xlsx")
	svc, err := NewExcelService(path, nil)
	require.NoError(t, err)
	defer svc.Close()

	ctx := context.Background()
	require.NoError(t, svc.Post(ctx, PathAmazonSearchItems, []map[string]interface{}{
		{"asin": "A", "rank": 1},
	}))
	require.NoError(t, svc.Post(ctx, PathAmazonSearchItems, []map[string]interface{}{
		{"asin": "B", "rank": 2, "price": "$5"},
	}))
	require.NoError(t, svc.Post(ctx, PathAmazonReviews, []map[string]interface{}{
		{"id": "r1"},
	}))
	require.NoError(t, svc.Post(ctx, PathAmazonReviews, nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"amazon_search_items", "amazon_reviews"}, f.GetSheetList())
	rows, err := f.GetRows("amazon_search_items")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"asin", "rank", "price"}, rows[0])
	assert.Equal(t, []string{"A", "1"}, rows[1])
	assert.Equal(t, []string{"B", "2", "$5"}, rows[2])

	imagePath, err := svc.UploadImage(ctx, "A.png", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "images", "A.png"), imagePath)
	assert.FileExists(t, imagePath)
}
