package usersvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/mkrupp/homecase-users/internal/domain"
	"github.com/mkrupp/homecase-users/internal/infra/logging"
	http_ "github.com/mkrupp/homecase-users/internal/infra/transport/http"
)

var errTrailingData = errors.New("trailing data after JSON value")

// Client-facing error messages.
const (
	MessageUserNotFound  = "User not found"
	MessageEmailExists   = "Email already exists"
	MessageInvalidJSON   = "Invalid JSON"
	MessageBodyTooLarge  = "Request body too large"
	MessageUserDeleted   = "User deleted successfully"
	MessageInternalError = "Internal Server Error"
)

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig
}

// HTTPTransport handles HTTP requests for the user service.
type HTTPTransport struct {
	userSvc *UserService
	log     logging.Logger
	cfg     HTTPTransportConfig
	mux     *http.ServeMux
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport instance with the given configuration.
// It requires a UserService for handling user operations and sets up routes:
// - GET /: List the available endpoints
// - GET /users: List all users
// - POST /users: Create a user
// - GET /users/{id}: Get a user
// - PUT /users/{id}: Update a user
// - DELETE /users/{id}: Delete a user.
func NewHTTPTransport(userSvc *UserService, cfg HTTPTransportConfig) *HTTPTransport {
	ht := &HTTPTransport{
		userSvc: userSvc,
		log:     logging.GetLogger("svc.usersvc.http_transport"),
		cfg:     cfg,
		mux:     http.NewServeMux(),
	}

	ht.mux.HandleFunc("GET /{$}", ht.HandleIndex)
	ht.mux.HandleFunc("GET /users", ht.HandleList)
	ht.mux.HandleFunc("POST /users", ht.HandleCreate)
	ht.mux.HandleFunc("GET /users/{id}", ht.HandleGet)
	ht.mux.HandleFunc("PUT /users/{id}", ht.HandleUpdate)
	ht.mux.HandleFunc("DELETE /users/{id}", ht.HandleDelete)

	return ht
}

// ServeHTTP implements http.Handler. Requests no route matches get the mux's
// own 404 or 405 status (and Allow header), with a JSON body.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h, pattern := ht.mux.Handler(r); pattern == "" {
		rw := &routeErrorWriter{ResponseWriter: w, status: http.StatusNotFound}
		h.ServeHTTP(rw, r)

		ht.write(r.Context(), w, rw.status, domain.ErrorResponse{Error: http.StatusText(rw.status)})

		return
	}

	ht.mux.ServeHTTP(w, r)
}

// routeErrorWriter records the status of the mux's plain-text 404/405 reply
// and discards its body.
type routeErrorWriter struct {
	http.ResponseWriter
	status int
}

func (w *routeErrorWriter) WriteHeader(code int) {
	w.status = code
}

func (w *routeErrorWriter) Write(b []byte) (int, error) {
	return len(b), nil
}

// parseUserID reads the {id} path value. Only canonical positive base-10
// integers are ids: no sign, no leading zeros. Anything else cannot name a stored user.
func parseUserID(r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	if raw == "" || raw[0] < '1' || raw[0] > '9' {
		return 0, false
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

// decodeJSON decodes a single JSON value from the request body into dst.
// An empty body leaves dst untouched; anything after the value is malformed input.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)

	err := dec.Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}

	if err == nil {
		var trailing json.RawMessage
		if err = dec.Decode(&trailing); errors.Is(err, io.EOF) {
			return nil
		} else if err == nil {
			err = errTrailingData
		}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("decode body: %w", err)
	}

	return errors.Join(domain.NewInvalidRequestError(MessageInvalidJSON), fmt.Errorf("decode body: %w", err))
}

// writeError maps err onto a status code and JSON error body.
func (ht *HTTPTransport) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		status  int
		message string

		invalid  *domain.InvalidRequestError
		tooLarge *http.MaxBytesError
	)

	switch {
	case errors.As(err, &invalid):
		status, message = http.StatusBadRequest, invalid.Reason
	case errors.As(err, &tooLarge):
		status, message = http.StatusRequestEntityTooLarge, MessageBodyTooLarge
	case errors.Is(err, domain.ErrUserNotFound):
		status, message = http.StatusNotFound, MessageUserNotFound
	case errors.Is(err, domain.ErrUserAlreadyExists):
		status, message = http.StatusConflict, MessageEmailExists
	default:
		status, message = http.StatusInternalServerError, MessageInternalError
	}

	ht.write(ctx, w, status, domain.ErrorResponse{Error: message})
}

func (ht *HTTPTransport) write(ctx context.Context, w http.ResponseWriter, status int, body any) {
	if err := http_.WriteJSON(w, status, body); err != nil {
		ht.log.ErrorContext(ctx, "write response failed", "error", err)
	}
}

// HandleIndex lists the service endpoints.
func (ht *HTTPTransport) HandleIndex(w http.ResponseWriter, r *http.Request) {
	ht.write(r.Context(), w, http.StatusOK, domain.IndexResponse{
		Message: "Users API",
		Endpoints: map[string]string{
			"GET /users":         "Get all users",
			"GET /users/<id>":    "Get a specific user",
			"POST /users":        "Create a new user",
			"PUT /users/<id>":    "Update a user",
			"DELETE /users/<id>": "Delete a user",
		},
	})
}

// HandleList returns all users.
func (ht *HTTPTransport) HandleList(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleList(w, r)
}

func (ht *HTTPTransport) handleList(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			ht.writeError(ctx, w, err)
			log.WarnContext(ctx, "user list failed", "error", err)
		} else {
			log.DebugContext(ctx, "users listed")
		}
	}(r.Context())

	users, err := ht.userSvc.ListUsers(r.Context())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	ht.write(r.Context(), w, http.StatusOK, users)

	return nil
}

// HandleCreate processes user creation requests.
// Expects a JSON body: {"name": string, "email": string, "age": int|null}.
func (ht *HTTPTransport) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleCreate(w, r)
}

func (ht *HTTPTransport) handleCreate(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			ht.writeError(ctx, w, err)
			log.WarnContext(ctx, "user create failed", "error", err)
		} else {
			log.DebugContext(ctx, "user created")
		}
	}(r.Context())

	var req domain.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	created, err := ht.userSvc.CreateUser(r.Context(), req)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	ht.write(r.Context(), w, http.StatusCreated, created)

	return nil
}

// HandleGet returns a single user.
func (ht *HTTPTransport) HandleGet(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleGet(w, r)
}

func (ht *HTTPTransport) handleGet(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			ht.writeError(ctx, w, err)
			log.WarnContext(ctx, "user get failed", "error", err)
		} else {
			log.DebugContext(ctx, "user fetched")
		}
	}(r.Context())

	id, ok := parseUserID(r)
	if !ok {
		return domain.ErrUserNotFound
	}

	found, err := ht.userSvc.GetUser(r.Context(), id)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	ht.write(r.Context(), w, http.StatusOK, found)

	return nil
}

// HandleUpdate processes user update requests.
// Expects a JSON body with any of: name, email, age. Absent fields are kept.
func (ht *HTTPTransport) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUpdate(w, r)
}

func (ht *HTTPTransport) handleUpdate(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			ht.writeError(ctx, w, err)
			log.WarnContext(ctx, "user update failed", "error", err)
		} else {
			log.DebugContext(ctx, "user updated")
		}
	}(r.Context())

	id, ok := parseUserID(r)
	if !ok {
		return domain.ErrUserNotFound
	}

	var patch domain.UserPatch
	if err := decodeJSON(r, &patch); err != nil {
		return err
	}

	updated, err := ht.userSvc.UpdateUser(r.Context(), id, patch)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	ht.write(r.Context(), w, http.StatusOK, updated)

	return nil
}

// HandleDelete processes user deletion requests.
func (ht *HTTPTransport) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDelete(w, r)
}

func (ht *HTTPTransport) handleDelete(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			ht.writeError(ctx, w, err)
			log.WarnContext(ctx, "user delete failed", "error", err)
		} else {
			log.DebugContext(ctx, "user deleted")
		}
	}(r.Context())

	id, ok := parseUserID(r)
	if !ok {
		return domain.ErrUserNotFound
	}

	if err := ht.userSvc.DeleteUser(r.Context(), id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	ht.write(r.Context(), w, http.StatusOK, domain.MessageResponse{Message: MessageUserDeleted})

	return nil
}
