package httpapi

import (
	"net/http"
	"strconv"

	"github.com/portier-acs/portier/server/internal/portier/store"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

// ruleJSON is the wire shape of a rule: times and dates as the strings the
// CRUD client submits them in.
type ruleJSON struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	ScannerID int64  `json:"scanner_id"`
	TimeStart string `json:"time_start"`
	TimeEnd   string `json:"time_end"`
	ValidFrom string `json:"valid_from"`
	ValidTo   string `json:"valid_to"`
	Weekdays  []int  `json:"weekdays"`
	IsRequest bool   `json:"is_request"`
}

func ruleToJSON(r types.AccessRule) ruleJSON {
	days := make([]int, len(r.Weekdays))
	for i, d := range r.Weekdays {
		days[i] = int(d)
	}
	return ruleJSON{
		ID:        r.ID,
		UserID:    r.UserID,
		ScannerID: r.ScannerID,
		TimeStart: r.TimeStart.String(),
		TimeEnd:   r.TimeEnd.String(),
		ValidFrom: r.ValidFrom.String(),
		ValidTo:   r.ValidTo.String(),
		Weekdays:  days,
		IsRequest: r.IsRequest,
	}
}

func rulesToJSON(rules []types.AccessRule) []ruleJSON {
	out := make([]ruleJSON, len(rules))
	for i, r := range rules {
		out[i] = ruleToJSON(r)
	}
	return out
}

// ruleFilterFromQuery reads the optional user_id/scanner_id filters.
// Unparseable values are ignored rather than rejected; filters only
// narrow.
func ruleFilterFromQuery(r *http.Request) store.RuleFilter {
	var f store.RuleFilter
	if id, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64); err == nil && id > 0 {
		f.UserID = &id
	}
	if id, err := strconv.ParseInt(r.URL.Query().Get("scanner_id"), 10, 64); err == nil && id > 0 {
		f.ScannerID = &id
	}
	return f
}

func eventFilterFromQuery(r *http.Request) store.EventFilter {
	var f store.EventFilter
	if id, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64); err == nil && id > 0 {
		f.UserID = &id
	}
	if id, err := strconv.ParseInt(r.URL.Query().Get("scanner_id"), 10, 64); err == nil && id > 0 {
		f.ScannerID = &id
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		f.Limit = n
	}
	return f
}

// pathID parses the {id} path segment, writing a 404 on garbage (a
// non-numeric id can never exist).
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "not_found", "no such id")
		return 0, false
	}
	return id, true
}
