package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

type DeveloperSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type DeveloperLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type DeveloperSessionResponse struct {
	Developer   DeveloperView    `json:"developer"`
	Tokens      TokensView       `json:"tokens"`
	Credentials *CredentialsView `json:"credentials,omitempty"`
}

type RegenerateKeyResponse struct {
	APIKey string `json:"apiKey"`
}

type UserStatusRequest struct {
	Status string `json:"status"`
}

type UserResponse struct {
	User UserView `json:"user"`
}

func (a *API) DeveloperSignup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := DeveloperSignupRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		session, err := a.service.SignupDeveloper(r.Context(), req.Email, req.Password, req.Name)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		response := DeveloperSessionResponse{
			Developer: developerView(session.Developer, false),
			Tokens:    tokensView(session.Tokens),
			Credentials: &CredentialsView{
				APIKey:    session.Credentials.APIKey,
				APISecret: session.Credentials.APISecret,
			},
		}
		returnJson(w, http.StatusCreated, "Developer account created successfully", &response)
	}
}

func (a *API) DeveloperLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := DeveloperLoginRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		session, err := a.service.LoginDeveloper(r.Context(), req.Email, req.Password)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		response := DeveloperSessionResponse{
			Developer: developerView(session.Developer, false),
			Tokens:    tokensView(session.Tokens),
		}
		returnJson(w, http.StatusOK, "Login successful", &response)
	}
}

func (a *API) DeveloperRefresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := RefreshRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		pair, err := a.service.RefreshDeveloperTokens(r.Context(), req.RefreshToken)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		response := TokensResponse{Tokens: tokensView(pair)}
		returnJson(w, http.StatusOK, "Tokens refreshed", &response)
	}
}

func (a *API) Dashboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dashboard, err := a.service.Dashboard(r.Context(), developerFrom(r))
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		view := dashboardView(dashboard)
		returnJson(w, http.StatusOK, "", &view)
	}
}

func (a *API) RegenerateKey() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apiKey, err := a.service.RegenerateAPIKey(r.Context(), developerFrom(r))
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		response := RegenerateKeyResponse{APIKey: apiKey}
		returnJson(w, http.StatusOK, "API key regenerated", &response)
	}
}

func (a *API) UpdateUserStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := UserStatusRequest{}
		if ok := decodeRequest(&req, w, r); !ok {
			return
		}

		userID := mux.Vars(r)["id"]
		user, err := a.service.SetUserStatus(r.Context(), developerFrom(r), userID, req.Status)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		response := UserResponse{User: userView(user)}
		returnJson(w, http.StatusOK, "User updated", &response)
	}
}
