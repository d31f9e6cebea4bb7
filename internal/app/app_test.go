package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lesson_gate/internal/config"
	"lesson_gate/internal/model"
	"lesson_gate/internal/util"
	"lesson_gate/pkg/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const secret = "app-test-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testEnv struct {
	app     *App
	l1, l2  model.Lesson
	mc, tf  model.Exercise
	student string
	admin   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := &config.Config{}
	cfg.Server.Mode = "test"
	cfg.JWT.Secret = secret
	cfg.RateLimit = config.RateLimitConfig{MaxRequests: 1000, WindowMinutes: 1}
	cfg.Grading = config.GradingConfig{AllowUnshuffledFallback: true, IdempotencyTTLSeconds: 60}

	env := &testEnv{app: New(cfg, db, rdb)}
	t.Cleanup(func() { env.app.Close(context.Background()) })

	u := model.Unit{Number: 1, Title: "Basics", Order: 1}
	require.NoError(t, db.Create(&u).Error)
	env.l1 = model.Lesson{UnitID: u.ID, Title: "Variables", Order: 1}
	env.l2 = model.Lesson{UnitID: u.ID, Title: "Input", Order: 2}
	require.NoError(t, db.Create(&env.l1).Error)
	require.NoError(t, db.Create(&env.l2).Error)
	env.mc = model.Exercise{LessonID: env.l1.ID, Kind: "multiple_choice", Prompt: "?", Options: "a) x|b) y", CorrectAnswer: "a"}
	env.tf = model.Exercise{LessonID: env.l1.ID, Kind: "true_false", Prompt: "?", CorrectAnswer: "verdadero"}
	require.NoError(t, db.Create(&env.mc).Error)
	require.NoError(t, db.Create(&env.tf).Error)

	env.student = mustToken(t, 5, model.Student)
	env.admin = mustToken(t, 1, model.Admin)
	return env
}

func mustToken(t *testing.T, id uint, role model.UserRole) string {
	t.Helper()
	tok, err := util.GenerateJWT(id, role, secret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}, headers ...string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.app.Router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func idPath(prefix string, id uint, suffix string) string {
	return fmt.Sprintf("/api/%s/%d%s", prefix, id, suffix)
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)
	code, body := env.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body.Data), `"redis":"up"`)
}

func TestLearnerRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	for _, p := range []string{"/api/dashboard", "/api/grades", "/api/certificate", "/api/stats"} {
		code, _ := env.do(t, http.MethodGet, p, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, p)
	}
}

func TestLessonFlow(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, idPath("lessons", env.l2.ID, ""), env.student, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Contains(t, body.Message, "Variables")

	code, _ = env.do(t, http.MethodGet, "/api/lessons/abc", env.student, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodGet, "/api/lessons/9999", env.student, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = env.do(t, http.MethodGet, idPath("lessons", env.l1.ID, ""), env.student, nil)
	require.Equal(t, http.StatusOK, code)
	var view struct {
		Exercises []struct {
			ID                   uint   `json:"id"`
			ShuffledCorrectLabel string `json:"shuffledCorrectLabel"`
		} `json:"exercises"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &view))
	require.Len(t, view.Exercises, 2)
	label := view.Exercises[0].ShuffledCorrectLabel
	require.NotEmpty(t, label)

	code, body = env.do(t, http.MethodPost, idPath("exercises", env.mc.ID, "/check"), env.student,
		map[string]string{"answer": label, "shuffledCorrectLabel": label})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body.Data), `"correct":true`)

	code, _ = env.do(t, http.MethodPost, idPath("exercises", env.mc.ID, "/check"), env.student, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)

	completePath := idPath("lessons", env.l1.ID, "/complete")
	code, body = env.do(t, http.MethodPost, completePath, env.student,
		map[string]int{"correctCount": 2, "totalExercises": 2}, "Idempotency-Key", "attempt-1")
	require.Equal(t, http.StatusOK, code)
	var completion struct {
		Grade         float64 `json:"grade"`
		Passed        bool    `json:"passed"`
		AttemptCount  int     `json:"attemptCount"`
		UnitCompleted bool    `json:"unitCompleted"`
		Message       string  `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &completion))
	assert.Equal(t, 10.0, completion.Grade)
	assert.True(t, completion.Passed)
	assert.Equal(t, 1, completion.AttemptCount)
	assert.False(t, completion.UnitCompleted)

	// 重复投递同一个键
	code, _ = env.do(t, http.MethodPost, completePath, env.student,
		map[string]int{"correctCount": 2, "totalExercises": 2}, "Idempotency-Key", "attempt-1")
	assert.Equal(t, http.StatusConflict, code)

	code, _ = env.do(t, http.MethodPost, completePath, env.student, map[string]int{"correctCount": 3, "totalExercises": 2})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPost, completePath, env.student, map[string]int{"totalExercises": 2})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = env.do(t, http.MethodGet, idPath("lessons", env.l2.ID, "/unlock"), env.student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body.Data), `"unlocked":true`)

	code, body = env.do(t, http.MethodGet, "/api/dashboard", env.student, nil)
	require.Equal(t, http.StatusOK, code)
	var dash struct {
		CourseFinalAverage float64 `json:"courseFinalAverage"`
		Units              []struct {
			Lessons []struct {
				Unlocked     bool `json:"unlocked"`
				AttemptCount int  `json:"attemptCount"`
			} `json:"lessons"`
		} `json:"units"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &dash))
	assert.Equal(t, 10.0, dash.CourseFinalAverage)
	require.Len(t, dash.Units, 1)
	assert.Equal(t, 1, dash.Units[0].Lessons[0].AttemptCount)
	assert.True(t, dash.Units[0].Lessons[1].Unlocked)
}

func TestSubmitAndReports(t *testing.T) {
	env := newTestEnv(t)
	submitPath := idPath("lessons", env.l1.ID, "/submit")

	code, body := env.do(t, http.MethodPost, submitPath, env.student, map[string]interface{}{
		"answers": []map[string]interface{}{
			{"exerciseId": env.mc.ID, "answer": "b"},
			{"exerciseId": env.tf.ID, "answer": "Verdadero"},
		},
	})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body.Data), `"grade":5`)

	for _, p := range []string{"/api/grades", "/api/certificate", "/api/stats"} {
		code, _ := env.do(t, http.MethodGet, p, env.student, nil)
		assert.Equal(t, http.StatusOK, code, p)
	}

	code, _ = env.do(t, http.MethodGet, "/api/admin/progress", env.student, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = env.do(t, http.MethodGet, "/api/admin/progress", env.admin, nil)
	require.Equal(t, http.StatusOK, code)
	var overviews []struct {
		UserID uint `json:"userId"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &overviews))
	require.Len(t, overviews, 1)
	assert.Equal(t, uint(5), overviews[0].UserID)
}
