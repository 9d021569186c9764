package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

// ParseJSON decodes JSON from the request body into the destination
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParsePathInt64 extracts and parses an int64 path parameter
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return 0, fmt.Errorf("missing path parameter: %s", key)
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, nil
}

// PathString extracts a string path parameter
func PathString(r *http.Request, key string) (string, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return "", fmt.Errorf("missing path parameter: %s", key)
	}
	return str, nil
}

// QueryInt parses an optional integer query parameter, returning the
// fallback when absent
func QueryInt(r *http.Request, key string, fallback int) (int, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return fallback, nil
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, nil
}

// QueryInt64 parses an optional int64 query parameter; ok reports presence
func QueryInt64(r *http.Request, key string) (val int64, ok bool, err error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return 0, false, nil
	}
	val, err = strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, true, nil
}

// QueryBool parses an optional boolean query parameter
func QueryBool(r *http.Request, key string) (bool, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return false, nil
	}
	val, err := strconv.ParseBool(str)
	if err != nil {
		return false, fmt.Errorf("invalid boolean for %s: %s", key, str)
	}
	return val, nil
}

// QueryTime parses an optional RFC3339 time query parameter
func QueryTime(r *http.Request, key string) (*time.Time, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, str)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp for %s: %s", key, str)
	}
	return &t, nil
}
