package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/example/zeeguu/internal/apperr"
)

// maxFormMemory bounds multipart uploads kept in memory
const maxFormMemory = 8 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// writeError writes {"error": message}; server errors are logged with their cause
func writeError(w http.ResponseWriter, r *http.Request, logger logrus.FieldLogger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"path":       r.URL.Path,
			"request_id": requestID(r.Context()),
		}).Error("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": apperr.PublicMessage(err)})
}

// params holds the request input from the query string and a form or JSON body
type params map[string]string

func readParams(r *http.Request) (params, error) {
	p := params{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			p[k] = v[0]
		}
	}

	contentType := r.Header.Get("Content-Type")
	switch {
	case r.Body == nil || r.Method == http.MethodGet:
	case strings.HasPrefix(contentType, "application/json"):
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, apperr.BadRequest("invalid JSON body")
		}
		for k, v := range body {
			switch val := v.(type) {
			case nil:
			case string:
				p[k] = val
			case float64:
				p[k] = strconv.FormatFloat(val, 'f', -1, 64)
			default:
				p[k] = fmt.Sprint(val)
			}
		}
	case strings.HasPrefix(contentType, "multipart/form-data"):
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, apperr.BadRequest("invalid form")
		}
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				p[k] = v[0]
			}
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, apperr.BadRequest("invalid form")
		}
		for k, v := range r.PostForm {
			if len(v) > 0 {
				p[k] = v[0]
			}
		}
	}
	return p, nil
}

func (p params) str(key string) string {
	return strings.TrimSpace(p[key])
}

func (p params) has(key string) bool {
	_, ok := p[key]
	return ok
}

func (p params) required(key string) (string, error) {
	v := p.str(key)
	if v == "" {
		return "", apperr.BadRequest("%s is required", key)
	}
	return v, nil
}

func (p params) intValue(key string, def int) (int, error) {
	v := p.str(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.BadRequest("%s must be a number", key)
	}
	return n, nil
}

func (p params) id(key string) (int64, error) {
	v, err := p.required(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, apperr.BadRequest("%s must be a positive id", key)
	}
	return n, nil
}

// optionalID returns nil when key is absent or empty
func (p params) optionalID(key string) (*int64, error) {
	if p.str(key) == "" {
		return nil, nil
	}
	n, err := p.id(key)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (p params) boolValue(key string) (bool, error) {
	v := p.str(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, apperr.BadRequest("%s must be true or false", key)
	}
	return b, nil
}

// optionalBool returns nil when key is absent
func (p params) optionalBool(key string) (*bool, error) {
	if !p.has(key) {
		return nil, nil
	}
	b, err := p.boolValue(key)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (p params) optionalInt(key string) (*int, error) {
	if p.str(key) == "" {
		return nil, nil
	}
	n, err := p.intValue(key, 0)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (p params) optionalString(key string) *string {
	if !p.has(key) {
		return nil
	}
	v := p.str(key)
	return &v
}

// pathID parses a positive integer path variable
func pathID(r *http.Request, name string) (int64, error) {
	n, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || n <= 0 {
		return 0, apperr.BadRequest("%s must be a positive id", name)
	}
	return n, nil
}

// pathInt parses a positive integer path variable
func pathInt(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || n <= 0 {
		return 0, apperr.BadRequest("%s must be a positive number", name)
	}
	return n, nil
}
