// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

// This file provides the HTTP delivery layer for the authentication lifecycle.
//
// # Architecture
//
// The handler acts as a thin mediation layer between the web and the domain
// service:
//   - Protocol: Standard RESTful JSON interface under /api/v1/users.
//   - Security: Orchestrates the accessToken/refreshToken cookie pair and
//     mirrors both tokens in the response body for non-browser clients.
//   - Verification: Enforces strict input validation before passing to [Service].
//
// This layer is strictly responsible for transport concerns (status codes,
// headers, cookies, JSON).

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zaffranfoods/zaffran/internal/platform/apperr"
	"github.com/zaffranfoods/zaffran/internal/platform/constants"
	"github.com/zaffranfoods/zaffran/internal/platform/middleware"
	requestutil "github.com/zaffranfoods/zaffran/internal/platform/request"
	"github.com/zaffranfoods/zaffran/internal/platform/respond"
	"github.com/zaffranfoods/zaffran/internal/platform/validate"
)

// # Definitions & Constructors

// CookiePolicy controls the environment-dependent cookie attributes.
type CookiePolicy struct {
	Secure bool
	Domain string
}

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages the user lifecycle entry points (registration, login,
// token refresh, verification, password recovery).
type Handler struct {
	authService *Service
	cookies     CookiePolicy
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, cookies CookiePolicy) *Handler {
	return &Handler{authService: service, cookies: cookies}
}

// Register attaches authentication routes to the given router. The router is
// expected to already carry the /api/v1/users prefix and the Authenticate
// middleware, so anonymous requests flow through with nil claims.
func (handler *Handler) Register(router chi.Router) {
	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh-token", handler.refresh)
	router.Post("/logout", handler.logout)
	router.Get("/verify-email/{token}", handler.verifyEmail)
	router.Post("/resend-verification-email", handler.resendVerificationEmail)
	router.Post("/forgot-password", handler.forgotPassword)
	router.Post("/reset-password/{token}", handler.resetPassword)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/send-mobile-verification", handler.sendMobileOTP)
		r.Post("/verify-mobile", handler.verifyMobileOTP)
	})
}

// # Request Payloads

type registerRequest struct {
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceInfo string `json:"device_info"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyMobileRequest struct {
	OTP string `json:"otp"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// # Cookie Handling

// setAuthCookies installs both tokens as httpOnly cookies. Each cookie's
// lifetime is scoped to its own token's TTL so an expired access cookie
// disappears instead of being replayed.
func (handler *Handler) setAuthCookies(writer http.ResponseWriter, tokens TokenPair) {
	http.SetCookie(writer, handler.newCookie(
		constants.AccessTokenCookieName, tokens.AccessToken, int(AccessTokenTTL/time.Second),
	))
	http.SetCookie(writer, handler.newCookie(
		constants.RefreshTokenCookieName, tokens.RefreshToken, int(RefreshTokenTTL/time.Second),
	))
}

// clearAuthCookies expires both token cookies on the client.
func (handler *Handler) clearAuthCookies(writer http.ResponseWriter) {
	http.SetCookie(writer, handler.newCookie(constants.AccessTokenCookieName, "", -1))
	http.SetCookie(writer, handler.newCookie(constants.RefreshTokenCookieName, "", -1))
}

func (handler *Handler) newCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     constants.AuthCookiePath,
		Domain:   handler.cookies.Domain,
		MaxAge:   maxAge,
		Secure:   handler.cookies.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// deviceIdentity assembles the network identity for session tracking. An
// explicit device_info from the client wins; otherwise the User-Agent stands
// in as the device key.
func deviceIdentity(request *http.Request, deviceInfo string) DeviceIdentity {
	if deviceInfo == "" {
		deviceInfo = request.UserAgent()
	}
	return DeviceIdentity{
		DeviceInfo: deviceInfo,
		UserAgent:  request.UserAgent(),
		IPAddress:  getClientIP(request),
	}
}

// getClientIP tries to extract the real IP address of a user over proxy environments.
func getClientIP(request *http.Request) string {
	ip := request.Header.Get(constants.HeaderXRealIP)
	if ip == "" {
		ip = request.Header.Get(constants.HeaderXForwardedFor)
	}
	if ip == "" {
		ip = request.RemoteAddr
	}
	return ip
}

// refreshTokenFromRequest reads the refresh token with cookie-first
// precedence, falling back to the JSON body for non-browser clients.
func refreshTokenFromRequest(request *http.Request) string {
	if cookie, err := request.Cookie(constants.RefreshTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var input refreshRequest
	if err := requestutil.DecodeJSON(request, &input); err == nil {
		return input.RefreshToken
	}

	return ""
}

// # Account Lifecycle

/*
Register handles the creation of a new customer account.

POST /api/v1/users/register

Description: Validates input, checks for identity conflicts, persists the
unverified account, and triggers the verification email.

Request:
  - Body: registerRequest (Email, Mobile, Password, FullName)

Response:
  - 201: User: Created customer profile
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Email or mobile already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Mobile(FieldMobile, input.Mobile).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8).
		Required(FieldFullName, input.FullName).
		MaxLen(FieldFullName, input.FullName, 120)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:    input.Email,
		Mobile:   input.Mobile,
		Password: input.Password,
		FullName: input.FullName,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, user)
}

/*
Login authenticates a customer and establishes a per-device session.

POST /api/v1/users/login

Description: Verifies credentials, rotates the device's session, and injects
the accessToken/refreshToken cookie pair. Tokens are mirrored in the body.

Request:
  - Body: loginRequest (Email, Password, DeviceInfo)

Response:
  - 200: Session: Token pair and customer profile
  - 401: ErrUnauthorized: Invalid credentials
  - 403: ErrForbidden: Email not verified
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.authService.Login(request.Context(), LoginInput{
		Email:    input.Email,
		Password: input.Password,
		Device:   deviceIdentity(request, input.DeviceInfo),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setAuthCookies(writer, session.Tokens)

	respond.OK(writer, map[string]any{
		FieldAccessToken:  session.Tokens.AccessToken,
		FieldRefreshToken: session.Tokens.RefreshToken,
		FieldTokenType:    "Bearer",
		FieldExpiresIn:    AccessTokenTTL / time.Second,
		FieldUser:         session.User,
	})
}

/*
Refresh exchanges a refresh token for a fresh token pair.

POST /api/v1/users/refresh-token

Description: Reads the refresh token (cookie first, body fallback), rotates
the session, and reissues both cookies.

Response:
  - 200: RefreshResponse: New token pair
  - 401: ErrUnauthorized: Missing, expired, invalid, or superseded token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	refreshToken := refreshTokenFromRequest(request)
	if refreshToken == "" {
		respond.Error(writer, request, apperr.Unauthorized("Missing refresh token"))
		return
	}

	session, err := handler.authService.Refresh(
		request.Context(),
		refreshToken,
		deviceIdentity(request, ""),
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setAuthCookies(writer, session.Tokens)

	respond.OK(writer, map[string]any{
		FieldAccessToken:  session.Tokens.AccessToken,
		FieldRefreshToken: session.Tokens.RefreshToken,
		FieldTokenType:    "Bearer",
		FieldExpiresIn:    AccessTokenTTL / time.Second,
	})
}

/*
Logout signs the customer out of every device.

POST /api/v1/users/logout

Description: Resolves the acting user from whatever credential survives
(access claims first, then a verifiable refresh token), deactivates all
sessions, and clears the cookies. Always succeeds from the client's view —
even with no resolvable actor the cookies are cleared.

Response:
  - 200: Success: Signed out
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	var refreshToken string
	if cookie, err := request.Cookie(constants.RefreshTokenCookieName); err == nil {
		refreshToken = cookie.Value
	}

	userID, ok := ResolveActor(
		requestutil.Claims(request),
		refreshToken,
		handler.authService.tokenProvider.VerifyRefreshToken,
	)
	if ok {
		_ = handler.authService.Logout(request.Context(), userID)
	}

	handler.clearAuthCookies(writer)

	respond.OK(writer, map[string]any{FieldMessage: "Logged out successfully"})
}

// # Verification Endpoints

/*
VerifyEmail confirms a customer's email ownership.

GET /api/v1/users/verify-email/{token}

Description: Redeems the emailed verification token and marks the account
verified. GET so the emailed link works with a bare click.

Response:
  - 200: Success: Email verified
  - 400: ErrValidation: Unknown or expired token
*/
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	token := requestutil.Param(request, "token")
	if token == "" {
		respond.Error(writer, request, validate.RequiredError(FieldToken, "is required"))
		return
	}

	if err := handler.authService.VerifyEmail(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{FieldMessage: "Email verified successfully"})
}

/*
ResendVerificationEmail reissues the verification token.

POST /api/v1/users/resend-verification-email

Description: Overwrites any previously issued token. Unknown emails get the
same success reply to prevent enumeration.

Request:
  - Body: emailRequest (Email)

Response:
  - 200: Success: Email sent (or silently skipped)
  - 409: ErrConflict: Email already verified
*/
func (handler *Handler) resendVerificationEmail(writer http.ResponseWriter, request *http.Request) {
	var input emailRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResendVerificationEmail(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{FieldMessage: "Verification email sent"})
}

/*
SendMobileOTP issues an OTP to the authenticated customer's mobile number.

POST /api/v1/users/send-mobile-verification

Response:
  - 200: Success: OTP sent
  - 400: ErrValidation: No mobile number on profile
  - 409: ErrConflict: Mobile already verified
*/
func (handler *Handler) sendMobileOTP(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.SendMobileOTP(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{FieldMessage: "OTP sent"})
}

/*
VerifyMobileOTP redeems a submitted one-time password.

POST /api/v1/users/verify-mobile

Request:
  - Body: verifyMobileRequest (OTP)

Response:
  - 200: Success: Mobile verified
  - 400: ErrValidation: Wrong or expired OTP
*/
func (handler *Handler) verifyMobileOTP(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input verifyMobileRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldOTP, input.OTP).OTP(FieldOTP, input.OTP)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.VerifyMobileOTP(request.Context(), userID, input.OTP); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{FieldMessage: "Mobile number verified successfully"})
}

// # Password Recovery

/*
ForgotPassword initiates the password reset flow.

POST /api/v1/users/forgot-password

Description: Emails a reset token valid for 15 minutes. Unknown emails get
the same success reply.

Request:
  - Body: emailRequest (Email)

Response:
  - 200: Success: Reset email sent (or silently skipped)
*/
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input emailRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ForgotPassword(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{FieldMessage: "Password reset email sent"})
}

/*
ResetPassword completes the password reset flow.

POST /api/v1/users/reset-password/{token}

Description: Applies the new password and signs the customer out everywhere.

Request:
  - Body: resetPasswordRequest (NewPassword)

Response:
  - 200: Success: Password updated
  - 400: ErrValidation: Unknown or expired token, or weak password
*/
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	token := requestutil.Param(request, "token")
	if token == "" {
		respond.Error(writer, request, validate.RequiredError(FieldToken, "is required"))
		return
	}

	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, 8)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), token, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{FieldMessage: "Password reset successfully"})
}
