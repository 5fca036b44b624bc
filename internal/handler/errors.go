package handler

import (
	"context"
	"errors"
	"net/http"

	"nftminter/internal/logic"
	"nftminter/internal/session"
	"nftminter/internal/types"
)

type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

// errorResponse maps session error kinds to HTTP status codes.
func errorResponse(_ context.Context, err error) (int, any) {
	status, code := http.StatusInternalServerError, "internal"
	var badReq badRequestError
	switch {
	case errors.As(err, &badReq):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, session.ErrWalletUnavailable):
		status, code = http.StatusPreconditionFailed, "wallet_unavailable"
	case errors.Is(err, session.ErrAuthorizationDenied):
		status, code = http.StatusForbidden, "authorization_denied"
	case errors.Is(err, session.ErrNotConnected):
		status, code = http.StatusConflict, "not_connected"
	case errors.Is(err, session.ErrMintInProgress):
		status, code = http.StatusConflict, "mint_in_progress"
	case errors.Is(err, session.ErrMintFailed):
		status, code = http.StatusBadGateway, "mint_failed"
	case errors.Is(err, logic.ErrKeystoreDisabled):
		status, code = http.StatusNotFound, "keystore_disabled"
	}
	return status, &types.ErrorResp{Code: code, Message: err.Error()}
}
