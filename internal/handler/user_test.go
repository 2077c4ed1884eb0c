package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fundoo/notes-api/internal/auth"
	"github.com/fundoo/notes-api/internal/config"
	"github.com/fundoo/notes-api/internal/repository"
	"github.com/fundoo/notes-api/internal/utils"
)

type fakeMail struct {
	to, subject, body string
}

type fakeSender struct {
	err  error
	sent []fakeMail
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, fakeMail{to: to, subject: subject, body: body})
	return nil
}

type loginEnvelope struct {
	Message string    `json:"message"`
	Status  int       `json:"status"`
	Data    loginResp `json:"data"`
}

func newUserTestHandler(t *testing.T) (*UserHandler, sqlmock.Sqlmock, *fakeSender) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sender := &fakeSender{}
	cfg := config.Config{
		JWTSecret:  "test-secret",
		TokenTTL:   time.Hour,
		BcryptCost: 4,
		BaseURL:    "http://localhost:4000",
	}
	h := NewUserHandler(cfg, repository.NewUserRepo(db),
		auth.NewService(cfg.JWTSecret, cfg.TokenTTL), sender, utils.NewValidator())
	return h, mock, sender
}

func newUserContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "password_hash", "first_name", "last_name", "email", "is_verified"})
}

const strongPassword = `Str0ng!Pass`

func TestRegisterRejectsWeakPassword(t *testing.T) {
	h, mock, sender := newUserTestHandler(t)

	c, rec := newUserContext(t, http.MethodPost, "/",
		`{"username":"alice","password":"lowercaseonly","first_name":"Alice","last_name":"Smith","email":"alice@example.com"}`)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, sender.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateUsernameConflict(t *testing.T) {
	h, mock, _ := newUserTestHandler(t)

	mock.ExpectExec(`INSERT INTO user`).
		WillReturnError(errors.New("Error 1062: Duplicate entry 'alice' for key 'user.username'"))

	c, rec := newUserContext(t, http.MethodPost, "/",
		`{"username":"alice","password":"`+strongPassword+`","first_name":"Alice","last_name":"Smith","email":"alice@example.com"}`)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterEmailsVerificationLink(t *testing.T) {
	h, mock, sender := newUserTestHandler(t)

	mock.ExpectExec(`INSERT INTO user`).
		WillReturnResult(sqlmock.NewResult(5, 1))

	c, rec := newUserContext(t, http.MethodPost, "/",
		`{"username":"alice","password":"`+strongPassword+`","first_name":"Alice","last_name":"Smith","email":"Alice@Example.COM"}`)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "alice@example.com", sender.sent[0].to)

	// The mailed link must carry a register-audience token for the new id.
	idx := strings.Index(sender.sent[0].body, "token=")
	require.GreaterOrEqual(t, idx, 0)
	token := strings.TrimSpace(sender.sent[0].body[idx+len("token="):])
	uid, err := h.Tokens.Verify(token, auth.AudienceRegister)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), uid)

	_, err = h.Tokens.Verify(token, auth.AudienceLogin)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterMailFailureSurfaces(t *testing.T) {
	h, mock, sender := newUserTestHandler(t)
	sender.err = errors.New("smtp down")

	mock.ExpectExec(`INSERT INTO user`).
		WillReturnResult(sqlmock.NewResult(5, 1))

	c, rec := newUserContext(t, http.MethodPost, "/",
		`{"username":"alice","password":"`+strongPassword+`","first_name":"Alice","last_name":"Smith","email":"alice@example.com"}`)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLoginUnknownAndWrongPasswordIndistinguishable(t *testing.T) {
	h, mock, _ := newUserTestHandler(t)

	hash, err := utils.HashPassword(strongPassword, 4)
	require.NoError(t, err)

	mock.ExpectQuery(`FROM user WHERE username=\?`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`FROM user WHERE username=\?`).
		WithArgs("alice").
		WillReturnRows(userRows().AddRow(5, "alice", hash, "Alice", "Smith", "alice@example.com", true))

	c, rec := newUserContext(t, http.MethodPost, "/", `{"username":"ghost","password":"whatever"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	unknownBody := rec.Body.String()

	c, rec = newUserContext(t, http.MethodPost, "/", `{"username":"alice","password":"wrong-password"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, unknownBody, rec.Body.String())
}

func TestLoginUnverifiedAccount(t *testing.T) {
	h, mock, _ := newUserTestHandler(t)

	hash, err := utils.HashPassword(strongPassword, 4)
	require.NoError(t, err)
	mock.ExpectQuery(`FROM user WHERE username=\?`).
		WithArgs("alice").
		WillReturnRows(userRows().AddRow(5, "alice", hash, "Alice", "Smith", "alice@example.com", false))

	c, rec := newUserContext(t, http.MethodPost, "/",
		`{"username":"alice","password":"`+strongPassword+`"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginIssuesLoginAudienceToken(t *testing.T) {
	h, mock, _ := newUserTestHandler(t)

	hash, err := utils.HashPassword(strongPassword, 4)
	require.NoError(t, err)
	mock.ExpectQuery(`FROM user WHERE username=\?`).
		WithArgs("alice").
		WillReturnRows(userRows().AddRow(5, "alice", hash, "Alice", "Smith", "alice@example.com", true))

	c, rec := newUserContext(t, http.MethodPost, "/",
		`{"username":"alice","password":"`+strongPassword+`"}`)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var env loginEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotEmpty(t, env.Data.Token)

	uid, err := h.Tokens.Verify(env.Data.Token, auth.AudienceLogin)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), uid)

	_, err = h.Tokens.Verify(env.Data.Token, auth.AudienceReset)
	assert.Error(t, err)
}

func TestVerifyMarksUserVerified(t *testing.T) {
	h, mock, _ := newUserTestHandler(t)

	token, err := h.Tokens.Issue(5, auth.AudienceRegister, 0)
	require.NoError(t, err)

	mock.ExpectQuery(`FROM user WHERE id=\?`).
		WithArgs(uint64(5)).
		WillReturnRows(userRows().AddRow(5, "alice", "x", "Alice", "Smith", "alice@example.com", false))
	mock.ExpectExec(`UPDATE user SET is_verified=true WHERE id=\?`).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := newUserContext(t, http.MethodGet, "/?token="+token, "")
	require.NoError(t, h.Verify(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyRejectsForeignAudience(t *testing.T) {
	h, mock, _ := newUserTestHandler(t)

	token, err := h.Tokens.Issue(5, auth.AudienceLogin, 0)
	require.NoError(t, err)

	c, rec := newUserContext(t, http.MethodGet, "/?token="+token, "")
	require.NoError(t, h.Verify(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyMissingToken(t *testing.T) {
	h, _, _ := newUserTestHandler(t)

	c, rec := newUserContext(t, http.MethodGet, "/", "")
	require.NoError(t, h.Verify(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResetPasswordStoresNewHash(t *testing.T) {
	h, mock, _ := newUserTestHandler(t)

	token, err := h.Tokens.Issue(5, auth.AudienceReset, 0)
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE user SET password_hash=\? WHERE id=\?`).
		WithArgs(sqlmock.AnyArg(), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := newUserContext(t, http.MethodPost, "/",
		`{"token":"`+token+`","new_password":"`+strongPassword+`"}`)
	require.NoError(t, h.ResetPassword(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPasswordRejectsLoginToken(t *testing.T) {
	h, mock, _ := newUserTestHandler(t)

	token, err := h.Tokens.Issue(5, auth.AudienceLogin, 0)
	require.NoError(t, err)

	c, rec := newUserContext(t, http.MethodPost, "/",
		`{"token":"`+token+`","new_password":"`+strongPassword+`"}`)
	require.NoError(t, h.ResetPassword(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestForgotPasswordUnknownAddressIsSilent(t *testing.T) {
	h, mock, sender := newUserTestHandler(t)

	mock.ExpectQuery(`FROM user WHERE email=\?`).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	c, rec := newUserContext(t, http.MethodPost, "/", `{"email":"nobody@example.com"}`)
	require.NoError(t, h.ForgotPassword(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, sender.sent)
}

func TestForgotPasswordEmailsResetToken(t *testing.T) {
	h, mock, sender := newUserTestHandler(t)

	mock.ExpectQuery(`FROM user WHERE email=\?`).
		WithArgs("alice@example.com").
		WillReturnRows(userRows().AddRow(5, "alice", "x", "Alice", "Smith", "alice@example.com", true))

	c, rec := newUserContext(t, http.MethodPost, "/", `{"email":"alice@example.com"}`)
	require.NoError(t, h.ForgotPassword(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sender.sent, 1)

	idx := strings.Index(sender.sent[0].body, "token=")
	require.GreaterOrEqual(t, idx, 0)
	token := sender.sent[0].body[idx+len("token="):]
	if nl := strings.IndexAny(token, "\n\r \t"); nl >= 0 {
		token = token[:nl]
	}
	uid, err := h.Tokens.Verify(token, auth.AudienceReset)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), uid)
}

func TestFetchUserResolvesToken(t *testing.T) {
	h, mock, _ := newUserTestHandler(t)

	token, err := h.Tokens.Issue(5, auth.AudienceLogin, 0)
	require.NoError(t, err)

	mock.ExpectQuery(`FROM user WHERE id=\?`).
		WithArgs(uint64(5)).
		WillReturnRows(userRows().AddRow(5, "alice", "x", "Alice", "Smith", "alice@example.com", true))

	c, rec := newUserContext(t, http.MethodGet, "/?token="+token, "")
	require.NoError(t, h.FetchUser(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data userPart `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, uint64(5), env.Data.ID)
	assert.Equal(t, "alice", env.Data.Username)
}

