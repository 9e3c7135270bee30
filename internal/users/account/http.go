// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

// HTTP delivery layer for profile, address book, and session management.
// Every route requires an authenticated customer.

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zaffranfoods/zaffran/internal/platform/constants"
	"github.com/zaffranfoods/zaffran/internal/platform/middleware"
	requestutil "github.com/zaffranfoods/zaffran/internal/platform/request"
	"github.com/zaffranfoods/zaffran/internal/platform/respond"
	"github.com/zaffranfoods/zaffran/internal/platform/validate"
	"github.com/zaffranfoods/zaffran/internal/users/auth"
)

// # Definitions & Constructors

// Handler implements account management HTTP endpoints.
type Handler struct {
	accountService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{accountService: service}
}

// Register attaches account routes to the given router. The router is
// expected to already carry the /api/v1/users prefix and the Authenticate
// middleware.
func (handler *Handler) Register(router chi.Router) {
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)

		r.Get("/me", handler.getProfile)
		r.Patch("/me", handler.updateProfile)

		r.Get("/addresses", handler.listAddresses)
		r.Post("/addresses", handler.addAddress)
		r.Patch("/addresses/{addressID}", handler.updateAddress)
		r.Delete("/addresses/{addressID}", handler.deleteAddress)

		r.Get("/sessions", handler.listSessions)
		r.Delete("/sessions", handler.terminateAllSessions)
		r.Delete("/sessions/{sessionID}", handler.terminateSession)

		r.Delete("/delete-account", handler.deleteOwnAccount)
		r.Delete("/{userID}", handler.deleteUser)
	})
}

// # Request Payloads

type updateProfileRequest struct {
	FullName *string `json:"full_name"`
	Mobile   *string `json:"mobile"`
}

type addressRequest struct {
	AddressType string `json:"address_type"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2"`
	City        string `json:"city"`
	State       string `json:"state"`
	Country     string `json:"country"`
	PostalCode  string `json:"postal_code"`
	IsDefault   bool   `json:"is_default"`
}

func (input *addressRequest) validate() error {
	validator := &validate.Validator{}
	validator.Required(FieldAddressType, input.AddressType).
		OneOf(FieldAddressType, input.AddressType, AddressTypes...).
		Required(FieldLine1, input.Line1).
		MaxLen(FieldLine1, input.Line1, 200).
		MaxLen(FieldLine2, input.Line2, 200).
		Required(FieldCity, input.City).
		Required(FieldState, input.State).
		Required(FieldCountry, input.Country).
		Required(FieldPostalCode, input.PostalCode).
		MaxLen(FieldPostalCode, input.PostalCode, 16)
	return validator.Err()
}

// uuidParam extracts a path parameter and rejects values that are not UUIDs.
// Without this, a malformed ID reaches pgx parameter encoding against a UUID
// column and surfaces as a 500 instead of a client error.
func uuidParam(request *http.Request, name string) (string, error) {
	value := requestutil.Param(request, name)
	validator := &validate.Validator{}
	if err := validator.UUID(name, value).Err(); err != nil {
		return "", err
	}
	return value, nil
}

func (input *addressRequest) toInput() AddressInput {
	return AddressInput{
		AddressType: input.AddressType,
		Line1:       input.Line1,
		Line2:       input.Line2,
		City:        input.City,
		State:       input.State,
		Country:     input.Country,
		PostalCode:  input.PostalCode,
		IsDefault:   input.IsDefault,
	}
}

// # Profile Endpoints

/*
GetProfile returns the authenticated customer's private profile.

GET /api/v1/users/me

Response:
  - 200: User: Full private profile
  - 401: ErrUnauthorized: Missing or invalid token
*/
func (handler *Handler) getProfile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetProfile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

/*
UpdateProfile applies partial changes to the customer's profile.

PATCH /api/v1/users/me

Request:
  - Body: updateProfileRequest (FullName?, Mobile?)

Response:
  - 200: User: Updated profile
  - 400: ErrInvalidJSON: Malformed input
  - 409: ErrConflict: Mobile already registered
*/
func (handler *Handler) updateProfile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateProfileRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	if input.FullName != nil {
		validator.Required(auth.FieldFullName, *input.FullName).
			MaxLen(auth.FieldFullName, *input.FullName, 120)
	}
	if input.Mobile != nil {
		validator.Mobile(auth.FieldMobile, *input.Mobile)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.UpdateProfile(request.Context(), userID, UpdateProfileInput{
		FullName: input.FullName,
		Mobile:   input.Mobile,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// # Address Endpoints

/*
ListAddresses returns the customer's address book.

GET /api/v1/users/addresses

Response:
  - 200: []Address: Default first, then newest
*/
func (handler *Handler) listAddresses(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	addresses, err := handler.accountService.ListAddresses(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, addresses)
}

/*
AddAddress creates an address in the customer's book.

POST /api/v1/users/addresses

Request:
  - Body: addressRequest

Response:
  - 201: Address: Created entity (first address becomes default)
  - 400: ErrInvalidJSON: Validation failure
*/
func (handler *Handler) addAddress(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input addressRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}
	if err := input.validate(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	address, err := handler.accountService.AddAddress(request.Context(), userID, input.toInput())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, address)
}

/*
UpdateAddress modifies an address the customer owns.

PATCH /api/v1/users/addresses/{addressID}

Response:
  - 200: Address: Updated entity
  - 400: ErrValidation: Malformed address ID
  - 404: ErrNotFound: Unknown or foreign address
*/
func (handler *Handler) updateAddress(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	addressID, err := uuidParam(request, "addressID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input addressRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}
	if err := input.validate(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	address, err := handler.accountService.UpdateAddress(request.Context(), userID, addressID, input.toInput())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, address)
}

/*
DeleteAddress removes an address the customer owns.

DELETE /api/v1/users/addresses/{addressID}

Response:
  - 204: No Content
  - 400: ErrValidation: Malformed address ID
  - 404: ErrNotFound: Unknown or foreign address
*/
func (handler *Handler) deleteAddress(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	addressID, err := uuidParam(request, "addressID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.DeleteAddress(request.Context(), userID, addressID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Session Endpoints

/*
ListSessions returns the customer's active device sessions.

GET /api/v1/users/sessions

Response:
  - 200: []SessionInfo: Active devices without token material
*/
func (handler *Handler) listSessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessions, err := handler.accountService.ListSessions(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, sessions)
}

/*
TerminateSession deactivates one of the customer's sessions.

DELETE /api/v1/users/sessions/{sessionID}

Response:
  - 204: No Content
  - 400: ErrValidation: Malformed session ID
  - 404: ErrNotFound: Unknown or foreign session
*/
func (handler *Handler) terminateSession(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessionID, err := uuidParam(request, "sessionID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.TerminateSession(request.Context(), userID, sessionID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
TerminateAllSessions deactivates every session of the customer.

DELETE /api/v1/users/sessions

Response:
  - 204: No Content
*/
func (handler *Handler) terminateAllSessions(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.TerminateAllSessions(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// # Deletion Endpoints

/*
DeleteOwnAccount removes the authenticated customer's account entirely.

DELETE /api/v1/users/delete-account

Description: Runs the session/address/account cascade and clears the auth
cookies since the actor just deleted themself.

Response:
  - 204: No Content
*/
func (handler *Handler) deleteOwnAccount(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.DeleteAccount(request.Context(), actor, actor.UserID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	clearAuthCookies(writer)
	respond.NoContent(writer)
}

/*
DeleteUser removes a target account, for the owner or privileged staff.

DELETE /api/v1/users/{userID}

Response:
  - 204: No Content
  - 400: ErrValidation: Malformed user ID
  - 403: ErrForbidden: Actor lacks the capability over the target
  - 404: ErrNotFound: Unknown user
*/
func (handler *Handler) deleteUser(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	targetUserID, err := uuidParam(request, "userID")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.DeleteAccount(request.Context(), actor, targetUserID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Self-deletion through the admin-shaped route still resets the client.
	if actor.UserID == targetUserID {
		clearAuthCookies(writer)
	}

	respond.NoContent(writer)
}

// clearAuthCookies expires both token cookies after a self-deletion.
func clearAuthCookies(writer http.ResponseWriter) {
	for _, name := range []string{constants.AccessTokenCookieName, constants.RefreshTokenCookieName} {
		http.SetCookie(writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     constants.AuthCookiePath,
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
