package directupload_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tendant/direct-upload/pkg/directupload"
)

func testPolicy(key, contentType string) map[string]string {
	return map[string]string{
		"key":                   key,
		"AWSAccessKeyId":        "AKIDEXAMPLE",
		"acl":                   "public-read",
		"success_action_status": "201",
		"policy":                "eyJleHBpcmF0aW9uIjoiMjAzMC0wMS0wMVQwMDowMDowMFoifQ==",
		"signature":             "c2lnbmF0dXJl",
		"Content-Type":          contentType,
	}
}

// receivedUpload is what the fake storage saw in one multipart post
type receivedUpload struct {
	FieldOrder []string
	Fields     map[string]string
	FileName   string
	FileData   string
}

// fakeCollaborators serves both the signature endpoint and the storage form
type fakeCollaborators struct {
	server *httptest.Server

	// policy returns the JSON body for a signature request; nil means use testPolicy
	policy func(filename, mimeType string) map[string]string
	// storageStatus is the status storage answers with; 0 means use success_action_status
	storageStatus int
	storageBody   string

	signatureCalls atomic.Int32
	uploadCalls    atomic.Int32

	mu      sync.Mutex
	uploads []receivedUpload
}

func newFakeCollaborators(t *testing.T) *fakeCollaborators {
	f := &fakeCollaborators{}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/upload_signatures", f.handleSignature)
	mux.HandleFunc("/upload", f.handleUpload)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeCollaborators) uploadURL() string {
	return f.server.URL + "/upload"
}

func (f *fakeCollaborators) handleSignature(w http.ResponseWriter, r *http.Request) {
	f.signatureCalls.Add(1)
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	filename := r.PostForm.Get("filename")
	mimeType := r.PostForm.Get("mimetype")

	body := testPolicy("uploads/"+filename, mimeType)
	if f.policy != nil {
		body = f.policy(filename, mimeType)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func (f *fakeCollaborators) handleUpload(w http.ResponseWriter, r *http.Request) {
	f.uploadCalls.Add(1)

	mr, err := r.MultipartReader()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec := receivedUpload{Fields: map[string]string{}}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(part)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		rec.FieldOrder = append(rec.FieldOrder, part.FormName())
		if part.FileName() != "" {
			rec.FileName = part.FileName()
			rec.FileData = string(data)
			continue
		}
		rec.Fields[part.FormName()] = string(data)
	}

	f.mu.Lock()
	f.uploads = append(f.uploads, rec)
	f.mu.Unlock()

	status := f.storageStatus
	if status == 0 {
		fmt.Sscanf(rec.Fields["success_action_status"], "%d", &status)
	}
	if status == http.StatusCreated && f.storageBody == "" {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(status)
		fmt.Fprintf(w, "<PostResponse><Location>%s/%s</Location><Bucket>test-bucket</Bucket><Key>%s</Key><ETag>\"abc123\"</ETag></PostResponse>",
			f.server.URL, rec.Fields["key"], rec.Fields["key"])
		return
	}
	w.WriteHeader(status)
	io.WriteString(w, f.storageBody)
}

func (f *fakeCollaborators) received() []receivedUpload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]receivedUpload(nil), f.uploads...)
}

// hookRecorder captures lifecycle notifications in order
type hookRecorder struct {
	mu     sync.Mutex
	events []string
	errs   []error
	resps  []*directupload.StorageResponse
}

func (h *hookRecorder) record(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *hookRecorder) hooks() *directupload.Hooks {
	return &directupload.Hooks{
		OnAttemptStarted: []directupload.AttemptStartedHook{
			func(hctx *directupload.HookContext, a *directupload.Attempt, file *directupload.SelectedFile) {
				h.record(fmt.Sprintf("started:%d:%s", a.Seq, file.Name))
			},
		},
		OnUploadBegin: []directupload.UploadBeginHook{
			func(hctx *directupload.HookContext, a *directupload.Attempt) {
				h.record(fmt.Sprintf("upload:%d", a.Seq))
			},
		},
		OnFailure: []directupload.FailureHook{
			func(hctx *directupload.HookContext, a *directupload.Attempt, err error) {
				h.mu.Lock()
				h.errs = append(h.errs, err)
				h.mu.Unlock()
				h.record(fmt.Sprintf("failure:%d:%s", a.Seq, directupload.Kind(err)))
			},
		},
		OnSuccess: []directupload.SuccessHook{
			func(hctx *directupload.HookContext, a *directupload.Attempt, resp *directupload.StorageResponse) {
				h.mu.Lock()
				h.resps = append(h.resps, resp)
				h.mu.Unlock()
				h.record(fmt.Sprintf("success:%d", a.Seq))
			},
		},
	}
}

func (h *hookRecorder) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func catFile() *directupload.SelectedFile {
	return directupload.NewSelectedFile("cat.png", "image/png", strings.NewReader("\x89PNG fake image bytes"))
}
