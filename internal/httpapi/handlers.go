package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/optimode/mailscore"
	apimw "github.com/optimode/mailscore/internal/httpapi/middleware"
)

var endpoints = []string{
	"GET  /health",
	"GET  /validate?email=<email>",
	`POST /validate         { "email": "..." }`,
	`POST /validate/bulk    { "emails": ["..."] }`,
}

type errorBody struct {
	Error     string   `json:"error"`
	Detail    string   `json:"detail,omitempty"`
	Endpoints []string `json:"endpoints,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

func (s *Server) handleValidateQuery(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing `email` query parameter."})
		return
	}
	s.validateOne(w, r, strings.TrimSpace(email))
}

func (s *Server) handleValidateBody(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeObject(w, r)
	if !ok {
		return
	}
	v, present := body["email"]
	if !present || falsy(v) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing `email` in request body."})
		return
	}
	s.validateOne(w, r, strings.TrimSpace(coerce(v)))
}

func (s *Server) validateOne(w http.ResponseWriter, r *http.Request, email string) {
	res, err := s.Validator.Validate(r.Context(), email)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleValidateBulk(w http.ResponseWriter, r *http.Request) {
	body, ok := s.decodeObject(w, r)
	if !ok {
		return
	}
	list, _ := body["emails"].([]any)
	if len(list) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "`emails` must be a non-empty array."})
		return
	}
	if s.MaxBulk > 0 && len(list) > s.MaxBulk {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: tooMany(s.MaxBulk)})
		return
	}

	emails := make([]string, len(list))
	for i, v := range list {
		emails[i] = strings.TrimSpace(coerce(v))
	}

	out, err := s.Validator.ValidateBulk(r.Context(), emails, s.MaxBulk)
	switch {
	case errors.Is(err, mailscore.ErrBatchTooLarge):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: tooMany(s.MaxBulk)})
	case errors.Is(err, mailscore.ErrEmptyBatch):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "`emails` must be a non-empty array."})
	case err != nil:
		s.internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, out)
	}
}

func tooMany(n int) string {
	return fmt.Sprintf("Maximum %d emails per bulk request.", n)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found.", Endpoints: endpoints})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.Logger.Error("validate_failed",
		zap.String("request_id", apimw.GetRequestID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error.", Detail: err.Error()})
}

// decodeObject reads a JSON body. An empty body or a non-object document
// yields an empty object, so the handlers report the missing field.
func (s *Server) decodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Request body too large."})
			return nil, false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body."})
		return nil, false
	}
	obj, _ := doc.(map[string]any)
	if obj == nil {
		obj = map[string]any{}
	}
	return obj, true
}

// falsy reports whether v is null, false, zero or "".
func falsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	}
	return false
}

// coerce renders a decoded JSON value the way clients of the original
// service saw it stringified: null is "null", booleans and numbers keep
// their text, arrays join their elements with "," (null elements are
// empty) and objects become "[object Object]".
func coerce(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			if e != nil {
				parts[i] = coerce(e)
			}
		}
		return strings.Join(parts, ",")
	}
	return "[object Object]"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
