package api

import (
	"net/http"

	"git.sr.ht/~jakintosh/yourauth/internal/service"
)

type UserSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetRequest struct {
	Email string `json:"email"`
}

type LogoutRequest struct {
	UserID string `json:"userId"`
}

type UserSessionResponse struct {
	User   UserView   `json:"user"`
	Tokens TokensView `json:"tokens"`
}

type TokensResponse struct {
	Tokens TokensView `json:"tokens"`
}

func (a *API) UserSignup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := UserSignupRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		session, err := a.service.SignupUser(
			r.Context(),
			developerFrom(r),
			req.Email,
			req.Password,
			req.Name,
			requestMeta(r),
		)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		response := UserSessionResponse{
			User:   userView(session.User),
			Tokens: tokensView(session.Tokens),
		}
		returnJson(w, http.StatusCreated, "User registered successfully", &response)
	}
}

func (a *API) UserLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := UserLoginRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		session, err := a.service.LoginUser(
			r.Context(),
			developerFrom(r),
			req.Email,
			req.Password,
			requestMeta(r),
		)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		response := UserSessionResponse{
			User:   userView(session.User),
			Tokens: tokensView(session.Tokens),
		}
		returnJson(w, http.StatusOK, "Login successful", &response)
	}
}

func (a *API) UserRefresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := RefreshRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		pair, err := a.service.RefreshUserTokens(r.Context(), developerFrom(r), req.RefreshToken)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		response := TokensResponse{Tokens: tokensView(pair)}
		returnJson(w, http.StatusOK, "Tokens refreshed", &response)
	}
}

func (a *API) UserReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := ResetRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		err := a.service.ResetPassword(r.Context(), developerFrom(r), req.Email, requestMeta(r))
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, "If the email exists, a password reset link has been sent", nil)
	}
}

func (a *API) UserLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := LogoutRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		err := a.service.LogoutUser(r.Context(), developerFrom(r), req.UserID, requestMeta(r))
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		returnJson(w, http.StatusOK, "Logout successful", nil)
	}
}

// Me resolves the end user behind an access token sent in the
// X-User-Token header, or as the bearer credential when the tenant was
// identified by X-API-Key.
func (a *API) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(UserTokenHeader)
		if token == "" && r.Header.Get(APIKeyHeader) != "" {
			token = bearerToken(r)
		}
		if token == "" {
			a.writeError(w, r, service.ErrMissingCredential)
			return
		}

		user, err := a.service.VerifyAccessToken(r.Context(), developerFrom(r), token)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		response := UserResponse{User: userView(user)}
		returnJson(w, http.StatusOK, "", &response)
	}
}
