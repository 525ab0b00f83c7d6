package schedule_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"schedule-service/internal/account"
	"schedule-service/internal/metrics"
	"schedule-service/internal/policy"
	"schedule-service/internal/schedule"
	"schedule-service/internal/testdb"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassHandlers(t *testing.T) {
	database := testdb.Setup(t)
	testdb.RunMigrations(t, database,
		(*account.Teacher)(nil),
		(*account.Student)(nil),
		(*schedule.Class)(nil),
	)

	mockMetrics := metrics.NewMock()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	accountRepo := account.NewRepository(database, mockMetrics)
	gate := policy.NewGate("UsTc1989@05102004")
	accounts := account.NewService(accountRepo, gate, mockMetrics, "ustc.ac.bd")
	tokens := account.NewTokenManager("test-secret-key-for-testing", time.Hour)

	repo := schedule.NewRepository(database, mockMetrics)
	service := schedule.NewService(repo, nil, mockMetrics, logger)
	handler := schedule.NewHandler(service, accounts, logger)

	// Same mounting as production: the whole /api group sits behind the
	// auth middleware.
	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		r.Use(account.Middleware(tokens, logger))
		handler.RegisterRoutes(r)
	})

	ctx := context.Background()

	cookieFor := func(t *testing.T, id int64, name, email, role string) *http.Cookie {
		t.Helper()
		token, err := tokens.Generate(id, name, email, role)
		require.NoError(t, err)
		return &http.Cookie{Name: "token", Value: token}
	}

	// Fixture accounts shared by every subtest; only the schedule table is
	// cleaned between them.
	rahimID, err := accounts.RegisterTeacher(ctx, account.RegisterTeacherRequest{
		Name: "Rahim", Surname: "Uddin", Email: "rahim@ustc.ac.bd",
		Password: "password123", SecretAnswer: "UsTc1989@05102004",
	})
	require.NoError(t, err)
	saraID, err := accounts.RegisterTeacher(ctx, account.RegisterTeacherRequest{
		Name: "Sara", Surname: "Islam", Email: "sara@ustc.ac.bd",
		Password: "password123", SecretAnswer: "UsTc1989@05102004",
	})
	require.NoError(t, err)
	karimID, err := accounts.RegisterStudent(ctx, account.RegisterStudentRequest{
		Name: "Karim", Surname: "Ahmed", Email: "karim@example.com",
		Password: "password123", Batch: "B21", Department: "CS",
	})
	require.NoError(t, err)
	minaID, err := accounts.RegisterStudent(ctx, account.RegisterStudentRequest{
		Name: "Mina", Surname: "Rahman", Email: "mina@example.com",
		Password: "password123", Batch: "B22", Department: "EEE",
	})
	require.NoError(t, err)

	rahimCookie := cookieFor(t, rahimID, "Rahim", "rahim@ustc.ac.bd", account.RoleTeacher)
	saraCookie := cookieFor(t, saraID, "Sara", "sara@ustc.ac.bd", account.RoleTeacher)
	karimCookie := cookieFor(t, karimID, "Karim", "karim@example.com", account.RoleStudent)
	minaCookie := cookieFor(t, minaID, "Mina", "mina@example.com", account.RoleStudent)

	do := func(t *testing.T, method, path string, payload interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
		t.Helper()
		var body io.Reader
		if payload != nil {
			raw, err := json.Marshal(payload)
			require.NoError(t, err)
			body = bytes.NewReader(raw)
		}
		req := httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", "application/json")
		if cookie != nil {
			req.AddCookie(cookie)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	classPayload := func() map[string]interface{} {
		return map[string]interface{}{
			"department": "CS",
			"batch":      "B21",
			"course":     "Algorithms",
			"room":       "101",
			"startTime":  "09:00",
			"date":       "2030-01-10",
			"endTime":    "10:30",
		}
	}

	createClass := func(t *testing.T, cookie *http.Cookie, payload map[string]interface{}) schedule.Class {
		t.Helper()
		w := do(t, http.MethodPost, "/api/classes", payload, cookie)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var class schedule.Class
		require.NoError(t, json.NewDecoder(w.Body).Decode(&class))
		return class
	}

	t.Run("Create_Success", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		class := createClass(t, rahimCookie, classPayload())

		assert.Greater(t, class.ID, int64(0))
		assert.Equal(t, rahimID, class.TeacherID)
		assert.Equal(t, "Rahim", class.TeacherName, "owner name is denormalized onto the class")
		assert.Equal(t, "Algorithms", class.Course)
		assert.Equal(t, "09:00", class.StartTime)
		assert.Equal(t, "2030-01-10", class.Date)
		assert.Equal(t, "10:30", class.EndTime)
	})

	t.Run("Create_RequiresTeacher", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		w := do(t, http.MethodPost, "/api/classes", classPayload(), karimCookie)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = do(t, http.MethodPost, "/api/classes", classPayload(), nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Create_EndBeforeStart", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		payload := classPayload()
		payload["endTime"] = "08:00"
		w := do(t, http.MethodPost, "/api/classes", payload, rahimCookie)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "start time must be before end time")
	})

	t.Run("Create_UnpaddedTime", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		payload := classPayload()
		payload["startTime"] = "9:00"
		w := do(t, http.MethodPost, "/api/classes", payload, rahimCookie)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Create_MissingField", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		payload := classPayload()
		delete(payload, "course")
		w := do(t, http.MethodPost, "/api/classes", payload, rahimCookie)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Update_PartialKeepsOtherFields", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		created := createClass(t, rahimCookie, classPayload())

		w := do(t, http.MethodPatch, fmt.Sprintf("/api/classes/%d", created.ID),
			map[string]interface{}{"room": "204"}, rahimCookie)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var updated schedule.Class
		require.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
		assert.Equal(t, "204", updated.Room)
		assert.Equal(t, created.Course, updated.Course)
		assert.Equal(t, created.StartTime, updated.StartTime)
		assert.Equal(t, created.Date, updated.Date)
		assert.Equal(t, created.EndTime, updated.EndTime)
		assert.Equal(t, created.TeacherName, updated.TeacherName)
	})

	t.Run("Update_NotOwner", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		created := createClass(t, rahimCookie, classPayload())

		w := do(t, http.MethodPatch, fmt.Sprintf("/api/classes/%d", created.ID),
			map[string]interface{}{"room": "204"}, saraCookie)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "you can only modify your own classes")

		// Nothing was written.
		w = do(t, http.MethodGet, fmt.Sprintf("/api/classes/%d", created.ID), nil, rahimCookie)
		require.Equal(t, http.StatusOK, w.Code)
		var current schedule.Class
		require.NoError(t, json.NewDecoder(w.Body).Decode(&current))
		assert.Equal(t, "101", current.Room)
	})

	t.Run("Update_MergedWindowValidated", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		created := createClass(t, rahimCookie, classPayload())

		// The new end alone is well formed, but against the kept 09:00
		// start the window would be inverted.
		w := do(t, http.MethodPatch, fmt.Sprintf("/api/classes/%d", created.ID),
			map[string]interface{}{"endTime": "08:00"}, rahimCookie)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "start time must be before end time")
	})

	t.Run("Update_NoFields", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		created := createClass(t, rahimCookie, classPayload())

		w := do(t, http.MethodPatch, fmt.Sprintf("/api/classes/%d", created.ID),
			map[string]interface{}{}, rahimCookie)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "at least one field")
	})

	t.Run("Update_NotFound", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		w := do(t, http.MethodPatch, "/api/classes/99999",
			map[string]interface{}{"room": "204"}, rahimCookie)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Cancel_OwnershipFlow", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		created := createClass(t, rahimCookie, classPayload())
		path := fmt.Sprintf("/api/classes/%d", created.ID)

		// Another teacher cannot cancel it.
		w := do(t, http.MethodDelete, path, nil, saraCookie)
		assert.Equal(t, http.StatusForbidden, w.Code)

		// It is still there.
		w = do(t, http.MethodGet, path, nil, rahimCookie)
		assert.Equal(t, http.StatusOK, w.Code)

		// The owner cancels it.
		w = do(t, http.MethodDelete, path, nil, rahimCookie)
		assert.Equal(t, http.StatusNoContent, w.Code)

		// Cancelling again reports not found.
		w = do(t, http.MethodDelete, path, nil, rahimCookie)
		assert.Equal(t, http.StatusNotFound, w.Code)

		// And the owner's list is empty.
		w = do(t, http.MethodGet, "/api/classes/mine", nil, rahimCookie)
		require.Equal(t, http.StatusOK, w.Code)
		var mine []schedule.Class
		require.NoError(t, json.NewDecoder(w.Body).Decode(&mine))
		assert.Empty(t, mine)
	})

	t.Run("Get_StudentAudience", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		created := createClass(t, rahimCookie, classPayload()) // CS / B21
		path := fmt.Sprintf("/api/classes/%d", created.ID)

		// A student in the class's batch and department sees it.
		w := do(t, http.MethodGet, path, nil, karimCookie)
		assert.Equal(t, http.StatusOK, w.Code)

		// A student outside the audience gets not found, not forbidden.
		w = do(t, http.MethodGet, path, nil, minaCookie)
		assert.Equal(t, http.StatusNotFound, w.Code)

		// Teachers see everything, owned or not.
		w = do(t, http.MethodGet, path, nil, saraCookie)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ListSchedule_ChronologicalForAudience", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		// Created out of chronological order on purpose: creation order is
		// february, then a late january slot, then an early slot the same
		// january day.
		february := classPayload()
		february["date"] = "2030-02-01"
		february["course"] = "Databases"
		createClass(t, rahimCookie, february)

		lateJanuary := classPayload()
		lateJanuary["date"] = "2030-01-05"
		lateJanuary["startTime"] = "11:00"
		lateJanuary["endTime"] = "12:00"
		lateJanuary["course"] = "Networks"
		createClass(t, rahimCookie, lateJanuary)

		earlyJanuary := classPayload()
		earlyJanuary["date"] = "2030-01-05"
		earlyJanuary["startTime"] = "08:00"
		earlyJanuary["endTime"] = "09:00"
		earlyJanuary["course"] = "Compilers"
		createClass(t, rahimCookie, earlyJanuary)

		// A class for some other cohort never shows up.
		other := classPayload()
		other["department"] = "EEE"
		other["batch"] = "B22"
		other["course"] = "Circuits"
		createClass(t, rahimCookie, other)

		w := do(t, http.MethodGet, "/api/classes/schedule", nil, karimCookie)
		require.Equal(t, http.StatusOK, w.Code)

		var classes []schedule.Class
		require.NoError(t, json.NewDecoder(w.Body).Decode(&classes))
		require.Len(t, classes, 3)
		assert.Equal(t, "Compilers", classes[0].Course)
		assert.Equal(t, "Networks", classes[1].Course)
		assert.Equal(t, "Databases", classes[2].Course)
	})

	t.Run("ListSchedule_RequiresStudent", func(t *testing.T) {
		w := do(t, http.MethodGet, "/api/classes/schedule", nil, rahimCookie)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("ListAll_CreationOrder", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		february := classPayload()
		february["date"] = "2030-02-01"
		first := createClass(t, rahimCookie, february)

		january := classPayload()
		january["date"] = "2030-01-05"
		second := createClass(t, saraCookie, january)

		w := do(t, http.MethodGet, "/api/classes", nil, karimCookie)
		require.Equal(t, http.StatusOK, w.Code)

		var classes []schedule.Class
		require.NoError(t, json.NewDecoder(w.Body).Decode(&classes))
		require.Len(t, classes, 2)
		assert.Equal(t, first.ID, classes[0].ID, "listing follows ids, not dates")
		assert.Equal(t, second.ID, classes[1].ID)
	})

	t.Run("ListMine_OnlyOwnClasses", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		createClass(t, rahimCookie, classPayload())
		createClass(t, rahimCookie, classPayload())
		saraClass := createClass(t, saraCookie, classPayload())

		w := do(t, http.MethodGet, "/api/classes/mine", nil, saraCookie)
		require.Equal(t, http.StatusOK, w.Code)

		var mine []schedule.Class
		require.NoError(t, json.NewDecoder(w.Body).Decode(&mine))
		require.Len(t, mine, 1)
		assert.Equal(t, saraClass.ID, mine[0].ID)
	})

	t.Run("Get_InvalidID", func(t *testing.T) {
		w := do(t, http.MethodGet, "/api/classes/not-a-number", nil, rahimCookie)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("StaleTokenForDeletedAccount", func(t *testing.T) {
		testdb.CleanupTables(t, database, "schedule")

		ghostCookie := cookieFor(t, 424242, "Ghost", "ghost@example.com", account.RoleStudent)
		w := do(t, http.MethodGet, "/api/classes/schedule", nil, ghostCookie)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
