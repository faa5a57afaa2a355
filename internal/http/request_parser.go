package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"financeflow/internal/analytics"
	"financeflow/internal/core"

	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

// pathID reads the {id} route variable.
func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id " + strconv.Quote(raw))
	}
	return id, nil
}

// decodeJSON reads a single JSON value from the body into dst. Fields
// absent from the body keep whatever dst already holds.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return badRequest("request body too large or unreadable")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return badRequest("request body is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid JSON: " + err.Error())
	}
	if dec.More() {
		return badRequest("request body must hold a single JSON value")
	}
	return nil
}

func parseTransactionFilter(q url.Values) (analytics.TransactionFilter, error) {
	f := analytics.TransactionFilter{
		Search:   strings.TrimSpace(q.Get("search")),
		Category: strings.TrimSpace(q.Get("category")),
	}
	if v := strings.TrimSpace(q.Get("type")); v != "" {
		f.Type = core.TransactionType(strings.ToLower(v))
		if !f.Type.Valid() {
			return f, badRequest("type must be income or expense")
		}
	}
	return f, nil
}

// parseMonths returns the trend window; anything unparseable becomes 0 and
// is replaced by the default window downstream.
func parseMonths(q url.Values) int {
	months, err := strconv.Atoi(strings.TrimSpace(q.Get("months")))
	if err != nil {
		return 0
	}
	return months
}

// parseFeatured reads the optional featured flag; absent means false.
func parseFeatured(q url.Values) (bool, error) {
	v := strings.TrimSpace(q.Get("featured"))
	if v == "" {
		return false, nil
	}
	featured, err := strconv.ParseBool(v)
	if err != nil {
		return false, badRequest("featured must be true or false")
	}
	return featured, nil
}

type contributionRequest struct {
	Amount json.Number `json:"amount"`
}
