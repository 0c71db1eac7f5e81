package handler

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/ticket-marketplace/internal/model"
    "github.com/iliyamo/ticket-marketplace/internal/repository"
)

var userCols = []string{"id", "email", "name", "photo_url", "role", "is_fraud", "created_at", "last_login_at"}

func TestLogin_FirstSignInCreatesUser(t *testing.T) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    defer db.Close()
    h := NewUserHandler(repository.NewUserRepo(db), nil)
    h.Now = func() time.Time { return testNow }
    e := newTestEcho()
    e.POST("/users", h.Login, asUser("new@example.com"))

    mock.ExpectExec("INSERT INTO users").
        WithArgs("new@example.com", "New Buyer", "", model.RoleUser, testNow, testNow).
        WillReturnResult(sqlmock.NewResult(5, 1))
    mock.ExpectQuery("FROM users WHERE email").WithArgs("new@example.com").
        WillReturnRows(sqlmock.NewRows(userCols).AddRow(5, "new@example.com", "New Buyer", "", model.RoleUser, false, testNow, testNow))

    rec := postJSON(e, "/users", `{"name":" New Buyer "}`)
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    assert.Contains(t, rec.Body.String(), `"created":true`)
    require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_RequiresIdentity(t *testing.T) {
    db, _, err := sqlmock.New()
    require.NoError(t, err)
    defer db.Close()
    e := newTestEcho()
    e.POST("/users", NewUserHandler(repository.NewUserRepo(db), nil).Login)

    assert.Equal(t, http.StatusUnauthorized, postJSON(e, "/users", `{}`).Code)
}

func TestGetRole(t *testing.T) {
    get := func(caller, target string, setup func(sqlmock.Sqlmock)) int {
        db, mock, err := sqlmock.New()
        require.NoError(t, err)
        defer db.Close()
        setup(mock)
        e := newTestEcho()
        e.GET("/users/role/:email", NewUserHandler(repository.NewUserRepo(db), nil).GetRole, asUser(caller))
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/role/"+target, nil))
        require.NoError(t, mock.ExpectationsWereMet())
        return rec.Code
    }
    self := func(m sqlmock.Sqlmock) {
        m.ExpectQuery("FROM users WHERE email").WithArgs("u@example.com").
            WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "u@example.com", "U", "", model.RoleUser, false, testNow, testNow))
    }

    assert.Equal(t, http.StatusOK, get("u@example.com", "u@example.com", self))
    assert.Equal(t, http.StatusForbidden, get("u@example.com", "other@example.com", func(m sqlmock.Sqlmock) {
        m.ExpectQuery("SELECT role FROM users").WithArgs("u@example.com").
            WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow(model.RoleUser))
    }))
    assert.Equal(t, http.StatusOK, get("admin@example.com", "u@example.com", func(m sqlmock.Sqlmock) {
        m.ExpectQuery("SELECT role FROM users").WithArgs("admin@example.com").
            WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow(model.RoleAdmin))
        self(m)
    }))
}
