package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/akkordio/akkordio/internal/config"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.UploadDir = t.TempDir()
	cfg.ProcessedDir = t.TempDir()
	return New(cfg)
}

// testMIDI renders a short single-voice phrase as SMF bytes.
func testMIDI(t *testing.T) []byte {
	t.Helper()
	clock := smf.MetricTicks(480)
	data := smf.New()
	data.TimeFormat = clock

	var tr smf.Track
	tr.Add(0, smf.MetaMeter(4, 4))
	for _, key := range []uint8{60, 62, 64, 65} {
		tr.Add(0, midi.NoteOn(0, key, 96))
		tr.Add(480, midi.NoteOff(0, key))
	}
	tr.Close(0)
	if err := data.Add(tr); err != nil {
		t.Fatalf("add track: %v", err)
	}

	var buf bytes.Buffer
	if _, err := data.WriteTo(&buf); err != nil {
		t.Fatalf("write smf: %v", err)
	}
	return buf.Bytes()
}

func multipartFile(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	w.Close()
	return &body, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	srv := testServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Fatalf("body = %v", resp)
	}
}

func TestListPresets(t *testing.T) {
	srv := testServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/layouts/presets", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Treble []string `json:"treble"`
		Bass   []string `json:"bass"`
		All    []string `json:"all"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Treble) == 0 || len(resp.Bass) == 0 {
		t.Fatalf("empty preset listing: %+v", resp)
	}
	if len(resp.All) < len(resp.Treble)+len(resp.Bass) {
		t.Fatalf("all (%d) smaller than treble+bass (%d)", len(resp.All), len(resp.Treble)+len(resp.Bass))
	}
}

func TestPresetLayoutUnknown(t *testing.T) {
	srv := testServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/layouts/preset/piano_88", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGenerateLayoutEndpoint(t *testing.T) {
	srv := testServer(t)
	body := bytes.NewBufferString(`{"system":"c-system","rows":3,"columns":11,"start_midi":48}`)
	req := httptest.NewRequest(http.MethodPost, "/layouts/generate", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Layout struct {
			Rows    int `json:"rows"`
			Columns int `json:"columns"`
			Buttons []struct {
				MIDI int `json:"midi"`
			} `json:"buttons"`
		} `json:"layout"`
		NoteIndex map[string][]struct {
			Row    int `json:"row"`
			Column int `json:"column"`
		} `json:"note_index"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Layout.Rows != 3 || len(resp.Layout.Buttons) != 33 {
		t.Fatalf("layout shape = %dx?, %d buttons", resp.Layout.Rows, len(resp.Layout.Buttons))
	}
	if _, ok := resp.NoteIndex["48"]; !ok {
		t.Fatal("note index missing the start pitch")
	}
}

func TestGenerateLayoutRejectsUnknownSystem(t *testing.T) {
	srv := testServer(t)
	body := bytes.NewBufferString(`{"system":"piano","rows":1,"columns":88}`)
	req := httptest.NewRequest(http.MethodPost, "/layouts/generate", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadRejectsNonMIDI(t *testing.T) {
	srv := testServer(t)
	body, contentType := multipartFile(t, "file", "song.pdf", []byte("%PDF"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadRejectsMissingFile(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/upload", bytes.NewBuffer(nil))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	srv := testServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestProcessUnknownJob(t *testing.T) {
	srv := testServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/process/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUploadProcessResultsFlow(t *testing.T) {
	srv := testServer(t)
	router := srv.Router()

	// Upload.
	body, contentType := multipartFile(t, "file", "etude.mid", testMIDI(t))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	var uploaded struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if uploaded.JobID == "" || uploaded.Status != string(JobUploaded) {
		t.Fatalf("upload response = %+v", uploaded)
	}

	// Process.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/process/"+uploaded.JobID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("process status = %d: %s", rec.Code, rec.Body.String())
	}

	// Poll until the background pipeline finishes.
	deadline := time.Now().Add(10 * time.Second)
	var job Job
	for {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/"+uploaded.JobID, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status status = %d", rec.Code)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if job.Status == JobCompleted || job.Status == JobFailed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck at %s (%d%%)", job.Status, job.Progress)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if job.Status != JobCompleted {
		t.Fatalf("job failed: %s", job.Error)
	}
	if job.Progress != 100 || job.CompletedAt == nil {
		t.Fatalf("completed job = %+v", job)
	}

	// Results.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/"+uploaded.JobID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("results status = %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		JobID    string            `json:"job_id"`
		Events   []json.RawMessage `json:"events"`
		Solution struct {
			Events []struct {
				Assignments []struct {
					Finger int `json:"finger"`
				} `json:"assignments"`
			} `json:"events"`
			Complete bool `json:"complete"`
		} `json:"solution"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if result.JobID != uploaded.JobID {
		t.Fatalf("result job id = %q", result.JobID)
	}
	if len(result.Events) != 4 || len(result.Solution.Events) != 4 {
		t.Fatalf("got %d events, %d assigned events", len(result.Events), len(result.Solution.Events))
	}
	if !result.Solution.Complete {
		t.Fatal("solution not complete")
	}
	for i, ev := range result.Solution.Events {
		if len(ev.Assignments) != 1 {
			t.Fatalf("event %d: %d assignments", i, len(ev.Assignments))
		}
		f := ev.Assignments[0].Finger
		if f < 1 || f > 5 {
			t.Fatalf("event %d: finger %d out of range", i, f)
		}
	}
}

// infeasibleMIDI renders a playable note followed by a chord whose only
// buttons on the default 5x12 C-system grid sit 198mm apart, beyond any
// hand span. The search exhausts after the first event.
func infeasibleMIDI(t *testing.T) []byte {
	t.Helper()
	clock := smf.MetricTicks(480)
	data := smf.New()
	data.TimeFormat = clock

	var tr smf.Track
	tr.Add(0, smf.MetaMeter(4, 4))
	tr.Add(0, midi.NoteOn(0, 60, 96))
	tr.Add(480, midi.NoteOff(0, 60))
	tr.Add(0, midi.NoteOn(0, 48, 96))
	tr.Add(0, midi.NoteOn(0, 74, 96))
	tr.Add(480, midi.NoteOff(0, 48))
	tr.Add(0, midi.NoteOff(0, 74))
	tr.Close(0)
	if err := data.Add(tr); err != nil {
		t.Fatalf("add track: %v", err)
	}

	var buf bytes.Buffer
	if _, err := data.WriteTo(&buf); err != nil {
		t.Fatalf("write smf: %v", err)
	}
	return buf.Bytes()
}

func TestResultsForFailedJobServesPartial(t *testing.T) {
	srv := testServer(t)
	router := srv.Router()

	body, contentType := multipartFile(t, "file", "unplayable.mid", infeasibleMIDI(t))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var uploaded struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/process/"+uploaded.JobID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("process status = %d: %s", rec.Code, rec.Body.String())
	}

	deadline := time.Now().Add(10 * time.Second)
	var job Job
	for {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/"+uploaded.JobID, nil))
		if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if job.Status == JobCompleted || job.Status == JobFailed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job stuck at %s", job.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if job.Status != JobFailed {
		t.Fatalf("job status = %s, want failed", job.Status)
	}
	if job.Error == "" {
		t.Fatal("failed job carries no error")
	}

	// The persisted partial path is still retrievable.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/"+uploaded.JobID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("results status = %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Solution struct {
			Events   []json.RawMessage `json:"events"`
			Complete bool              `json:"complete"`
		} `json:"solution"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(result.Solution.Events) != 1 {
		t.Fatalf("partial covers %d events, want 1", len(result.Solution.Events))
	}
	if result.Solution.Complete {
		t.Fatal("partial solution flagged complete")
	}
}

func TestMIDIPlayback(t *testing.T) {
	srv := testServer(t)
	router := srv.Router()

	content := testMIDI(t)
	body, contentType := multipartFile(t, "file", "etude.mid", content)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var uploaded struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/midi/"+uploaded.JobID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/midi" {
		t.Fatalf("content type = %q", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), content) {
		t.Fatalf("served %d bytes, uploaded %d", rec.Body.Len(), len(content))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/midi/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown job status = %d, want 404", rec.Code)
	}
}

func TestResultsBeforeCompletion(t *testing.T) {
	srv := testServer(t)
	router := srv.Router()

	body, contentType := multipartFile(t, "file", "etude.mid", testMIDI(t))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var uploaded struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/"+uploaded.JobID, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := testServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/upload", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
}
