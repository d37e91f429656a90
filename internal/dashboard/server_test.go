package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/drmeng/vds/internal/db/dbtest"
	"github.com/drmeng/vds/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var today = dbtest.Date(2025, 6, 10)

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	router, err := NewRouter(StartOpts{DB: db, Now: dbtest.Clock(today), Poll: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return router, db
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func TestNewRouter_NilDB(t *testing.T) {
	_, err := NewRouter(StartOpts{DB: nil})
	if err == nil {
		t.Fatal("expected error for nil db")
	}
	if !strings.Contains(err.Error(), "db is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db is required")
	}
}

func TestStart_NilDB(t *testing.T) {
	err := Start(context.Background(), StartOpts{DB: nil})
	if err == nil || !strings.Contains(err.Error(), "db is required") {
		t.Fatalf("Start error = %v, want db is required", err)
	}
}

func TestHealthz(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(t, router, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("response has no request ID")
	}
}

func TestRequestID_Propagated(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("%s = %q, want %q", RequestIDHeader, got, "abc-123")
	}
}

func TestMetrics(t *testing.T) {
	router, _ := setupRouter(t)

	w := do(t, router, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("metrics output missing default collectors")
	}
}

func TestProjects(t *testing.T) {
	router, db := setupRouter(t)
	dbtest.Project(t, db, "WA-100")
	p := dbtest.Project(t, db, "WA-200")
	dbtest.Document(t, db, p.ID, "D-1", "0")
	dbtest.Document(t, db, p.ID, "D-2", "")

	w := do(t, router, http.MethodGet, "/api/projects?limit=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var list []models.Project
	decode(t, w, &list)
	if len(list) != 1 || list[0].WANumber != "WA-200" {
		t.Errorf("projects = %+v, want only WA-200", list)
	}

	w = do(t, router, http.MethodGet, fmt.Sprintf("/api/projects/%d", p.ID), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var detail struct {
		Project models.Project `json:"project"`
		Summary ProjectSummary `json:"summary"`
	}
	decode(t, w, &detail)
	if detail.Summary.Documents != 2 || detail.Summary.Issued != 1 || detail.Summary.NeverIssued != 1 {
		t.Errorf("summary = %+v, want 2 documents, 1 issued", detail.Summary)
	}
}

func TestErrorMapping(t *testing.T) {
	router, db := setupRouter(t)
	p := dbtest.Project(t, db, "WA-1")
	dbtest.Transmittal(t, db, p.ID, "TR-001", "HOUSE", today)
	other := dbtest.Project(t, db, "WA-2")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown project", http.MethodGet, "/api/projects/999", "", http.StatusNotFound},
		{"bad id", http.MethodGet, "/api/projects/abc", "", http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/projects?limit=-2", "", http.StatusBadRequest},
		{"unknown transmittal", http.MethodGet, "/api/transmittals/999", "", http.StatusNotFound},
		{"unknown revision", http.MethodGet, "/api/revisions/999", "", http.StatusNotFound},
		{"issue without documents", http.MethodPost, fmt.Sprintf("/api/projects/%d/issue", p.ID), `{"document_ids":[]}`, http.StatusBadRequest},
		{"issue malformed", http.MethodPost, fmt.Sprintf("/api/projects/%d/issue", p.ID), `{`, http.StatusBadRequest},
		// The second project's first number TR-001 is already taken.
		{"number conflict", http.MethodPost, fmt.Sprintf("/api/projects/%d/transmittals", other.ID), "", http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestTransmittalLifecycle(t *testing.T) {
	router, db := setupRouter(t)
	p := dbtest.Project(t, db, "WA-1")
	dbtest.Transmittal(t, db, p.ID, "V-041", "VENDOR", dbtest.Date(2025, 1, 1))

	w := do(t, router, http.MethodPost, fmt.Sprintf("/api/projects/%d/transmittals", p.ID), `{"notes":"by courier"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	var tr models.Transmittal
	decode(t, w, &tr)
	if tr.Number != "V-042" || tr.Source != "VENDOR" || tr.Notes != "by courier" {
		t.Errorf("transmittal = %+v, want V-042 from VENDOR", tr)
	}

	w = do(t, router, http.MethodGet, fmt.Sprintf("/api/projects/%d/transmittals", p.ID), "")
	var list []models.Transmittal
	decode(t, w, &list)
	if len(list) != 2 || list[0].Number != "V-042" {
		t.Errorf("list = %+v, want V-042 first", list)
	}

	w = do(t, router, http.MethodGet, "/api/transmittals/recent", "")
	decode(t, w, &list)
	if len(list) != 2 {
		t.Errorf("recent = %d transmittals, want 2", len(list))
	}

	w = do(t, router, http.MethodDelete, fmt.Sprintf("/api/transmittals/%d", tr.ID), "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", w.Code)
	}
	w = do(t, router, http.MethodDelete, fmt.Sprintf("/api/transmittals/%d", tr.ID), "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestIssue(t *testing.T) {
	router, db := setupRouter(t)
	p := dbtest.Project(t, db, "WA-1")
	d1 := dbtest.Document(t, db, p.ID, "D-1", "")
	d2 := dbtest.Document(t, db, p.ID, "D-2", "A")

	body := fmt.Sprintf(`{"document_ids":[%d,%d]}`, d1.ID, d2.ID)
	w := do(t, router, http.MethodPost, fmt.Sprintf("/api/projects/%d/issue", p.ID), body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	var res struct {
		Transmittal models.Transmittal `json:"transmittal"`
		Revisions   []models.Revision  `json:"revisions"`
		Failures    []issueFailure     `json:"failures"`
	}
	decode(t, w, &res)
	if res.Transmittal.Number != "TR-001" {
		t.Errorf("transmittal = %q, want TR-001", res.Transmittal.Number)
	}
	if len(res.Revisions) != 2 || res.Revisions[0].RevisionNumber != "0" || res.Revisions[1].RevisionNumber != "B" {
		t.Errorf("revisions = %+v, want labels 0 and B", res.Revisions)
	}

	w = do(t, router, http.MethodGet, fmt.Sprintf("/api/transmittals/%d", res.Transmittal.ID), "")
	var details struct {
		Lines []struct {
			DocumentNumber string `json:"document_number"`
			RevisionNumber string `json:"revision_number"`
		} `json:"lines"`
	}
	decode(t, w, &details)
	if len(details.Lines) != 2 || details.Lines[0].DocumentNumber != "D-1" || details.Lines[1].RevisionNumber != "B" {
		t.Errorf("details = %+v", details.Lines)
	}

	w = do(t, router, http.MethodGet, fmt.Sprintf("/api/projects/%d/documents", p.ID), "")
	var rows []struct {
		DocumentNumber string  `json:"document_number"`
		RevisionNumber *string `json:"revision_number"`
		NextRevision   string  `json:"next_revision"`
	}
	decode(t, w, &rows)
	if len(rows) != 2 || rows[0].NextRevision != "1" || rows[1].NextRevision != "C" {
		t.Errorf("document rows = %+v, want next revisions 1 and C", rows)
	}

	w = do(t, router, http.MethodGet, fmt.Sprintf("/api/documents/%d/revisions", d2.ID), "")
	var revs []models.Revision
	decode(t, w, &revs)
	if len(revs) != 1 || revs[0].Purpose != "IFR - Issued for Review" {
		t.Errorf("revisions = %+v", revs)
	}
}

func TestIssue_PartialFailure(t *testing.T) {
	router, db := setupRouter(t)
	p := dbtest.Project(t, db, "WA-1")
	d := dbtest.Document(t, db, p.ID, "D-1", "")

	body := fmt.Sprintf(`{"document_ids":[%d,%d]}`, d.ID, d.ID+50)
	w := do(t, router, http.MethodPost, fmt.Sprintf("/api/projects/%d/issue", p.ID), body)
	if w.Code != http.StatusMultiStatus {
		t.Fatalf("status = %d, want 207 (body %s)", w.Code, w.Body.String())
	}
	var res struct {
		Revisions []models.Revision `json:"revisions"`
		Failures  []issueFailure    `json:"failures"`
	}
	decode(t, w, &res)
	if len(res.Revisions) != 1 || len(res.Failures) != 1 || res.Failures[0].DocumentID != d.ID+50 {
		t.Errorf("result = %+v", res)
	}
}

func TestDigest(t *testing.T) {
	router, db := setupRouter(t)
	p := dbtest.Project(t, db, "WA-1")
	late := dbtest.Document(t, db, p.ID, "D-1", "")
	due := dbtest.Date(2025, 6, 1)
	if err := db.Model(late).Update("next_due", due).Error; err != nil {
		t.Fatal(err)
	}

	w := do(t, router, http.MethodGet, "/api/digest", "")
	var res struct {
		Date    string `json:"date"`
		Entries []struct {
			DocumentNumber string `json:"document_number"`
			DaysOverdue    int    `json:"days_overdue"`
		} `json:"entries"`
	}
	decode(t, w, &res)
	if res.Date != "2025-06-10" || len(res.Entries) != 1 || res.Entries[0].DaysOverdue != 9 {
		t.Errorf("digest = %+v", res)
	}
}

func TestEvents_StreamsNewTransmittals(t *testing.T) {
	router, db := setupRouter(t)
	p := dbtest.Project(t, db, "WA-1")
	dbtest.Transmittal(t, db, p.ID, "OLD-001", "HOUSE", today)

	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	waitFor := func(prefix string) string {
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, prefix) {
				return line
			}
		}
		t.Fatalf("stream ended before %q: %v", prefix, scanner.Err())
		return ""
	}

	waitFor("event: connected")
	dbtest.Transmittal(t, db, p.ID, "NEW-001", "HOUSE", today)
	waitFor("event: transmittal")
	data := waitFor("data: ")
	if !strings.Contains(data, "NEW-001") || strings.Contains(data, "OLD-001") {
		t.Errorf("event data = %q, want only NEW-001", data)
	}
}

func TestWriteSSE(t *testing.T) {
	var b strings.Builder
	writeSSE(&b, "transmittal", transmittalEvent{ID: 4, Number: "TR-004"})
	want := "event: transmittal\ndata: {\"id\":4,\"project_id\":0,\"number\":\"TR-004\",\"source\":\"\",\"date_sent\":\"\"}\n\n"
	if b.String() != want {
		t.Errorf("writeSSE = %q, want %q", b.String(), want)
	}
}
