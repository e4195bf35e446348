// internal/export/export.go
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Service receives committed records and uploaded images. Paths name the
// record kind, e.g. PathAmazonDetailItems.
type Service interface {
	Post(ctx context.Context, path string, records []map[string]interface{}) error
	UploadImage(ctx context.Context, name string, png []byte) (string, error)
}

// Record paths
const (
	PathAmazonSearchItems    = "/amazon/search_items"
	PathAmazonDetailItems    = "/amazon/detail_items"
	PathAmazonReviews        = "/amazon/reviews"
	PathHomedepotDetailItems = "/homedepot/detail_items"
	PathHomedepotReviews     = "/homedepot/reviews"
	PathLowesDetailItems     = "/lowes/detail_items"
)

// ListSeparator joins lists of scalars, such as image URLs, into one value
const ListSeparator = ";"

// Flatten turns v into a single level record. Nested object keys are joined
// in camel case ("category1" + "name" = "category1Name"); lists of scalars
// are joined with ListSeparator; lists of objects are indexed
// ("reviews0Title").
func Flatten(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("record is not an object: %w", err)
	}
	out := make(map[string]interface{}, len(tree))
	flattenInto(out, "", tree)
	return out, nil
}

// FlattenAll flattens every item
func FlattenAll[T any](items []T) ([]map[string]interface{}, error) {
	records := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		r, err := Flatten(item)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func flattenInto(out map[string]interface{}, prefix string, v interface{}) {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, child := range t {
			flattenInto(out, joinKey(prefix, k), child)
		}
	case []interface{}:
		if scalars, ok := joinScalars(t); ok {
			out[prefix] = scalars
			return
		}
		for i, child := range t {
			flattenInto(out, joinKey(prefix, fmt.Sprint(i)), child)
		}
	default:
		out[prefix] = t
	}
}

func joinScalars(list []interface{}) (string, bool) {
	parts := make([]string, 0, len(list))
	for _, v := range list {
		switch t := v.(type) {
		case map[string]interface{}, []interface{}:
			return "", false
		case nil:
			parts = append(parts, "")
		default:
			parts = append(parts, fmt.Sprint(t))
		}
	}
	return strings.Join(parts, ListSeparator), true
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	r, size := utf8.DecodeRuneInString(key)
	return prefix + string(unicode.ToUpper(r)) + key[size:]
}

// Columns returns the keys of records in a stable order: keys of the first
// record first, sorted, then keys that only later records carry
func Columns(records []map[string]interface{}) []string {
	seen := make(map[string]bool)
	var columns []string
	for _, r := range records {
		keys := make([]string, 0, len(r))
		for k := range r {
			if !seen[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = true
			columns = append(columns, k)
		}
	}
	return columns
}
