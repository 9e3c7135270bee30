// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

package account_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/zaffranfoods/zaffran/internal/platform/ctxutil"
	"github.com/zaffranfoods/zaffran/internal/platform/sec"
	"github.com/zaffranfoods/zaffran/internal/users/account"
)

// newTestRouter mounts the account routes behind a middleware that injects
// the given claims, standing in for the Authenticate middleware.
func newTestRouter(handler *account.Handler, claims *sec.AccessClaims) http.Handler {
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	})
	handler.Register(router)
	return router
}

/*
TestHandler_MalformedPathIDs ensures path IDs are validated before reaching
storage: a non-UUID ID is a 400 validation failure, while a well-formed but
unknown ID remains a 404. Without the up-front check, malformed IDs fail pgx
parameter encoding against the UUID columns and surface as 500s.
*/
func TestHandler_MalformedPathIDs(t *testing.T) {
	f := newFixture()
	admin := f.seedUser(t, "0199c0de-0000-7000-8000-000000000001", sec.RoleAdmin)

	router := newTestRouter(account.NewHandler(f.service), &sec.AccessClaims{
		UserID: admin.ID,
		Email:  admin.Email,
		Role:   string(sec.RoleAdmin),
	})

	testCases := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"terminate_session_bad_id", http.MethodDelete, "/sessions/not-a-uuid", http.StatusBadRequest},
		{"delete_address_bad_id", http.MethodDelete, "/addresses/definitely%20not", http.StatusBadRequest},
		{"update_address_bad_id", http.MethodPatch, "/addresses/42", http.StatusBadRequest},
		{"delete_user_bad_id", http.MethodDelete, "/not-a-uuid", http.StatusBadRequest},
		{"terminate_session_unknown", http.MethodDelete, "/sessions/0199c0de-0000-7000-8000-00000000feed", http.StatusNotFound},
		{"delete_address_unknown", http.MethodDelete, "/addresses/0199c0de-0000-7000-8000-00000000feed", http.StatusNotFound},
		{"delete_user_unknown", http.MethodDelete, "/0199c0de-0000-7000-8000-00000000feed", http.StatusNotFound},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(testCase.method, testCase.path, nil)
			recorder := httptest.NewRecorder()

			router.ServeHTTP(recorder, request)
			assert.Equal(t, testCase.wantStatus, recorder.Code)
		})
	}
}
