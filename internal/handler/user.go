package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/fundoo/notes-api/internal/auth"
	"github.com/fundoo/notes-api/internal/config"
	"github.com/fundoo/notes-api/internal/mail"
	"github.com/fundoo/notes-api/internal/queue"
	"github.com/fundoo/notes-api/internal/repository"
	"github.com/fundoo/notes-api/internal/utils"
)

// UserHandler bundles dependencies for the registration, verification,
// login and password-reset endpoints.
type UserHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Tokens   *auth.Service
	Mailer   mail.Sender
	Validate *validator.Validate
}

func NewUserHandler(cfg config.Config, users *repository.UserRepo, tokens *auth.Service, mailer mail.Sender, v *validator.Validate) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users, Tokens: tokens, Mailer: mailer, Validate: v}
}

// ----- DTOs -----

type registerReq struct {
	Username  string `json:"username" validate:"required,min=3,max=50,username"`
	Password  string `json:"password" validate:"required,max=250,password"`
	FirstName string `json:"first_name" validate:"required,min=1,max=20"`
	LastName  string `json:"last_name" validate:"required,min=1,max=20"`
	Email     string `json:"email" validate:"required,email"`
}

type loginReq struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required"`
}

type forgotReq struct {
	Email string `json:"email" validate:"required,email"`
}

type resetReq struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,max=250,password"`
}

type userPart struct {
	ID         uint64 `json:"id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	IsVerified bool   `json:"is_verified"`
}

type loginResp struct {
	Token string   `json:"token"`
	User  userPart `json:"user"`
}

// Register creates an unverified account and emails a verification link.
// The password is hashed before it reaches the store; the raw value is
// never persisted. The verification mail is sent synchronously: if it
// fails the account is already committed and the response is a 500, a
// recoverable state since verification mail can be re-triggered through
// the password-reset flow.
func (h *UserHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return fail(c, http.StatusBadRequest, "validation failed")
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "hash password failed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Username, hash, req.FirstName, req.LastName, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return fail(c, http.StatusConflict, "username already registered")
		}
		return fail(c, http.StatusInternalServerError, "create user failed")
	}

	token, err := h.Tokens.Issue(uid, auth.AudienceRegister, 0)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "issue token failed")
	}

	link := fmt.Sprintf("%s/api/v1/users/verify?token=%s", h.Cfg.BaseURL, token)
	body := fmt.Sprintf("Welcome to Fundoo Notes!\n\nVerify your account: %s\n", link)
	if err := h.Mailer.Send(ctx, strings.ToLower(strings.TrimSpace(req.Email)), "Verify your account", body); err != nil {
		return fail(c, http.StatusInternalServerError, "verification email failed")
	}

	return respond(c, http.StatusCreated, "User Registered Successfully", userPart{
		ID:        uid,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
	})
}

// Verify confirms an email address using a register-audience token and
// queues a welcome message. The welcome mail is best effort.
func (h *UserHandler) Verify(c echo.Context) error {
	token := strings.TrimSpace(c.QueryParam("token"))
	if token == "" {
		return fail(c, http.StatusUnauthorized, "authorization token is missing")
	}

	uid, err := h.Tokens.Verify(token, auth.AudienceRegister)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "invalid verification token")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusUnauthorized, "invalid verification token")
		}
		return fail(c, http.StatusInternalServerError, "load user failed")
	}
	if err := h.Users.MarkVerified(ctx, uid); err != nil {
		return fail(c, http.StatusInternalServerError, "verify user failed")
	}

	if h.Cfg.AMQPURL != "" {
		_ = queue.PublishMail(ctx, h.Cfg.AMQPURL, queue.MailJob{
			ID:         uuid.NewString(),
			To:         u.Email,
			Subject:    "Welcome to Fundoo Notes",
			Body:       fmt.Sprintf("Hi %s, your account is verified. Happy note taking!", u.FirstName),
			EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		})
	}

	return respond(c, http.StatusOK, "User Verified Successfully", nil)
}

// Login checks credentials and returns a login-audience token. Unknown
// username and wrong password fail identically; an unverified account is
// a distinct, observable failure.
func (h *UserHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return fail(c, http.StatusBadRequest, "validation failed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusUnauthorized, "invalid username or password")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "invalid username or password")
	}
	if !u.IsVerified {
		return fail(c, http.StatusForbidden, "account not verified")
	}

	token, err := h.Tokens.Issue(u.ID, auth.AudienceLogin, 0)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "issue token failed")
	}

	return respond(c, http.StatusOK, "User Logged In Successfully", loginResp{
		Token: token,
		User: userPart{
			ID:         u.ID,
			Username:   u.Username,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			Email:      u.Email,
			IsVerified: u.IsVerified,
		},
	})
}

// ForgotPassword emails a reset-audience token link. The response is the
// same whether or not the address matches an account, so the endpoint
// cannot be used to enumerate users; only a mail transport failure is
// surfaced.
func (h *UserHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return fail(c, http.StatusBadRequest, "validation failed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respond(c, http.StatusOK, "If the address exists, a reset link has been sent", nil)
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}

	token, err := h.Tokens.Issue(u.ID, auth.AudienceReset, 0)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "issue token failed")
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", h.Cfg.BaseURL, token)
	body := fmt.Sprintf("Hi %s,\n\nReset your password: %s\n\nThe link expires in one hour.", u.FirstName, link)
	if err := h.Mailer.Send(ctx, u.Email, "Reset your password", body); err != nil {
		return fail(c, http.StatusInternalServerError, "reset email failed")
	}

	return respond(c, http.StatusOK, "If the address exists, a reset link has been sent", nil)
}

// ResetPassword replaces the password hash using a reset-audience token.
func (h *UserHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if err := h.Validate.Struct(req); err != nil {
		return fail(c, http.StatusBadRequest, "validation failed")
	}

	uid, err := h.Tokens.Verify(req.Token, auth.AudienceReset)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "invalid reset token")
	}

	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "hash password failed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.SetPassword(ctx, uid, hash); err != nil {
		return fail(c, http.StatusInternalServerError, "update password failed")
	}
	return respond(c, http.StatusOK, "Password Reset Successfully", nil)
}

// FetchUser resolves a login-audience token to its user. It exists for
// deployments that run the auth gateway as a separate service; in-process
// middleware performs the same resolution without the network hop.
func (h *UserHandler) FetchUser(c echo.Context) error {
	token := strings.TrimSpace(c.QueryParam("token"))
	if token == "" {
		return fail(c, http.StatusUnauthorized, "authorization token is missing")
	}
	token = strings.TrimPrefix(token, "Bearer ")

	uid, err := h.Tokens.Verify(token, auth.AudienceLogin)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "user authentication failed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fail(c, http.StatusUnauthorized, "user authentication failed")
		}
		return fail(c, http.StatusInternalServerError, "load user failed")
	}

	return respond(c, http.StatusOK, "User Fetched Successfully", userPart{
		ID:         u.ID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		IsVerified: u.IsVerified,
	})
}
