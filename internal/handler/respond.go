package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ChristopherDuggan/django-rest-framework/internal/model"
	"github.com/ChristopherDuggan/django-rest-framework/internal/service"
)

var errMalformedJSON = errors.New("malformed JSON body")

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code and a JSON body. Unexpected errors are logged
// and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	var vErr *model.ValidationError
	switch {
	case errors.As(err, &vErr):
		if len(vErr.Fields) == 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{vErr.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, vErr.FieldMap())
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{"not found"})
	case errors.Is(err, errMalformedJSON):
		writeJSON(w, http.StatusBadRequest, errorBody{errMalformedJSON.Error()})
	case errors.Is(err, service.ErrUnsupportedFormat):
		writeJSON(w, http.StatusBadRequest, errorBody{err.Error()})
	default:
		log.WithError(err).WithFields(logrus.Fields{
			"request_id": RequestID(r),
			"method":     r.Method,
			"uri":        r.URL.RequestURI(),
		}).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{http.StatusText(http.StatusInternalServerError)})
	}
}

// decodeJSON decodes the request body into v. Type mismatches become field errors.
func decodeJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return nil
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return model.NewValidationError(nil, model.FieldError{
			Field: typeErr.Field,
			Error: "incorrect type, expected " + typeErr.Type.String(),
		})
	}
	return errMalformedJSON
}

// pathID reads the numeric {id} route variable. Out-of-range ids are reported as not found.
func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 0)
	if err != nil || id == 0 {
		return 0, service.ErrNotFound
	}
	return uint(id), nil
}
