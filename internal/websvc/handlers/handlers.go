package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/avvvet/kidzone-services/internal/websvc/metrics"
	"github.com/avvvet/kidzone-services/internal/websvc/service"
	"github.com/avvvet/kidzone-services/internal/websvc/store"
	"github.com/avvvet/kidzone-services/internal/websvc/ws"
	"github.com/go-chi/jwtauth"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

// Services bundles the service layer the handlers talk to.
type Services struct {
	Users       *service.UserService
	Submissions *service.SubmissionService
	Tables      *service.TablesService
	Scores      *service.ScoreService
	Coins       *service.CoinService
	Catalog     *service.CatalogService
	Friends     *service.FriendService
	Hints       *service.HintService
	Analytics   *service.AnalyticsService
}

type Handler struct {
	tokenAuth    *jwtauth.JWTAuth
	cookieSecure bool
	svc          Services
	metrics      *metrics.Metrics
	upgrader     websocket.Upgrader
	ws           *ws.Ws
}

func NewHandler(tokenAuth *jwtauth.JWTAuth, svc Services, m *metrics.Metrics, cookieSecure bool, checkOrigin func(r *http.Request) bool) *Handler {
	return &Handler{
		tokenAuth:    tokenAuth,
		cookieSecure: cookieSecure,
		svc:          svc,
		metrics:      m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		ws: ws.NewWs(),
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	writeJSON(w, rsp.Code, rsp)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) ok(w http.ResponseWriter, code int, message string, data interface{}) {
	h.CreateResponse(w, Response{Message: message, Code: code, Data: data})
}

func (h *Handler) fail(w http.ResponseWriter, code int, msg string) {
	h.CreateResponse(w, Response{Code: code, Error: msg})
}

// respondError maps service and store errors to status codes. Unexpected
// errors are logged and reported as a generic 500.
func (h *Handler) respondError(w http.ResponseWriter, err error, where string) {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Errorf("%s %s", where, err)
	}
	h.fail(w, code, msg)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", service.ErrInvalidInput)
		}
		return fmt.Errorf("%w: malformed JSON: %s", service.ErrInvalidInput, err)
	}
	return nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", service.ErrInvalidInput, key)
	}
	return n, nil
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, "web service is running", nil)
}
