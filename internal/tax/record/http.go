// Copyright (c) 2026 FileMyTax. All rights reserved.

package record

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/filemytax/filemytax/internal/platform/middleware"
	requestutil "github.com/filemytax/filemytax/internal/platform/request"
	"github.com/filemytax/filemytax/internal/platform/respond"
	"github.com/filemytax/filemytax/internal/platform/validate"
)

// Handler implements the saved-return HTTP endpoints.
type Handler struct {
	recordService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{recordService: service}
}

// Routes returns a [chi.Router] for the saved-return endpoints.
//
// # Endpoints
//   - GET / : Returns the filer's saved return (or null).
//   - PUT / : Replaces the filer's saved return.
//
// Both require an authenticated bearer token.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.load)
	router.Put("/", handler.save)

	return router
}

type saveRequest struct {
	Data json.RawMessage `json:"data"`
}

/*
Load returns the filer's saved tax return.

GET /api/data

Response:
  - 200: {data}: The stored document, null when never saved
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) load(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	data, err := handler.recordService.Load(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]json.RawMessage{
		"data": data,
	})
}

/*
Save replaces the filer's saved tax return.

PUT /api/data

Request:
  - Body: saveRequest (Data: JSON object)

Response:
  - 200: {message}: Saved
  - 400: ErrInvalidJSON: Body or data is not a JSON object
  - 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) save(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input saveRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if err := handler.recordService.Save(request.Context(), userID, input.Data); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		"message": "Saved",
	})
}
