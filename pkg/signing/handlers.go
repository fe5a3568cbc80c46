package signing

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/direct-upload/pkg/directupload"
	"github.com/tendant/direct-upload/pkg/storage"
)

const (
	defaultMaxUploadBytes = 100 << 20
	maxFieldBytes         = 64 << 10
)

// Handlers serves the signature endpoint and the form upload endpoint
type Handlers struct {
	signer         *Signer
	store          storage.BlobStore
	maxUploadBytes int64
	logger         *slog.Logger
}

// HandlersOption configures Handlers
type HandlersOption func(*Handlers)

// WithMaxUploadBytes caps the size of an upload request body
func WithMaxUploadBytes(n int64) HandlersOption {
	return func(h *Handlers) {
		h.maxUploadBytes = n
	}
}

// WithHandlersLogger sets the logger used for request outcomes
func WithHandlersLogger(logger *slog.Logger) HandlersOption {
	return func(h *Handlers) {
		h.logger = logger
	}
}

// NewHandlers creates handlers that sign with signer and store into store
func NewHandlers(signer *Signer, store storage.BlobStore, opts ...HandlersOption) *Handlers {
	h := &Handlers{
		signer:         signer,
		store:          store,
		maxUploadBytes: defaultMaxUploadBytes,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Mount registers both endpoints on r
func (h *Handlers) Mount(r chi.Router) {
	r.Post(directupload.DefaultSignaturePath, h.HandleSignature)
	r.Post("/upload", h.HandleUpload)
}

// SignatureRequest is the body of a signature request
type SignatureRequest struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimetype"`
}

// HandleSignature issues a signed upload policy.
// Accepts application/x-www-form-urlencoded or application/json bodies.
func (h *Handlers) HandleSignature(w http.ResponseWriter, r *http.Request) {
	var req SignatureRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			writeJSONError(w, r, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		req.Filename = r.PostForm.Get("filename")
		req.MimeType = r.PostForm.Get("mimetype")
	}

	policy, err := h.signer.Sign(req.Filename, req.MimeType)
	if err != nil {
		if errors.Is(err, ErrMissingField) {
			writeJSONError(w, r, http.StatusBadRequest, "missing_field", err.Error())
			return
		}
		h.logger.Error("Failed to sign upload policy", "filename", req.Filename, "err", err)
		writeJSONError(w, r, http.StatusInternalServerError, "signing_failed", "failed to sign upload policy")
		return
	}

	h.logger.Info("Issued upload policy", "key", policy.ObjectKey, "mimetype", policy.ContentType)
	render.JSON(w, r, policy)
}

// HandleUpload accepts a multipart form POST the way S3 does.
// Policy fields must precede the file part; fields after it are ignored.
func (h *Handlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mr, err := r.MultipartReader()
	if err != nil {
		writeXMLError(w, r, http.StatusBadRequest, "MalformedPOSTRequest", "The body of your POST request is not well-formed multipart/form-data.")
		return
	}

	fields := make(map[string]string)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeXMLError(w, r, http.StatusBadRequest, "MalformedPOSTRequest", err.Error())
			return
		}

		if part.FormName() != directupload.FieldFile {
			value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes))
			part.Close()
			if err != nil {
				writeXMLError(w, r, http.StatusBadRequest, "MalformedPOSTRequest", err.Error())
				return
			}
			fields[part.FormName()] = string(value)
			continue
		}

		h.storeFile(w, r, fields, part)
		part.Close()
		return
	}

	writeXMLError(w, r, http.StatusBadRequest, "InvalidArgument", "POST requires exactly one file upload per request.")
}

func (h *Handlers) storeFile(w http.ResponseWriter, r *http.Request, fields map[string]string, file io.Reader) {
	if err := h.signer.ValidateForm(fields); err != nil {
		status := http.StatusBadRequest
		if IsAuthError(err) {
			status = http.StatusForbidden
		} else if errors.Is(err, ErrNoSecretKey) {
			status = http.StatusInternalServerError
		}
		h.logger.Warn("Rejected upload", "key", fields[directupload.FieldKey], "err", err)
		writeXMLError(w, r, status, errorCode(err), err.Error())
		return
	}

	key := fields[directupload.FieldKey]
	err := h.store.UploadWithParams(r.Context(), file, storage.UploadParams{
		ObjectKey: key,
		MimeType:  fields[directupload.FieldContentType],
		ACL:       fields[directupload.FieldACL],
	})
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeXMLError(w, r, http.StatusBadRequest, "EntityTooLarge", "Your proposed upload exceeds the maximum allowed size.")
			return
		}
		h.logger.Error("Failed to store upload", "key", key, "err", err)
		writeXMLError(w, r, http.StatusInternalServerError, "InternalError", "failed to store upload")
		return
	}

	var etag string
	if meta, err := h.store.GetObjectMeta(r.Context(), key); err == nil {
		etag = fmt.Sprintf("%q", meta.ETag)
	}
	location := objectLocation(r, key)

	h.logger.Info("Stored upload", "key", key, "etag", etag)

	w.Header().Set("Location", location)
	if etag != "" {
		w.Header().Set("ETag", etag)
	}

	switch fields[directupload.FieldSuccessActionStatus] {
	case "201":
		render.Status(r, http.StatusCreated)
		render.XML(w, r, directupload.PostResponse{
			Location: location,
			Bucket:   h.signer.Bucket(),
			Key:      key,
			ETag:     etag,
		})
	case "200":
		w.WriteHeader(http.StatusOK)
	default:
		render.NoContent(w, r)
	}
}

func objectLocation(r *http.Request, key string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, r.Host, strings.TrimPrefix(key, "/"))
}

func writeXMLError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.XML(w, r, directupload.StorageErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
