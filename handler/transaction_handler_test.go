package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-ledger-api/logger"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// brokenWriter accepts headers but fails every body write, like a client
// that hung up mid-response.
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (w brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("write: broken pipe")
}

func TestWriteJSON(t *testing.T) {
	hook := test.NewLocal(logger.Log)
	defer hook.Reset()

	t.Run("encodes the payload", func(t *testing.T) {
		hook.Reset()
		rr := httptest.NewRecorder()

		writeJSON(rr, http.StatusCreated, map[string]string{"status": "ok"})

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
		assert.Empty(t, hook.AllEntries())
	})

	t.Run("logs write failures", func(t *testing.T) {
		hook.Reset()
		rr := httptest.NewRecorder()

		writeJSON(brokenWriter{rr}, http.StatusOK, map[string]string{"status": "ok"})

		assert.Equal(t, http.StatusOK, rr.Code)
		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.WarnLevel, entry.Level)
		assert.Equal(t, "Failed to write JSON response", entry.Message)
		assert.Equal(t, http.StatusOK, entry.Data["status_code"])
	})

	t.Run("logs unencodable payloads", func(t *testing.T) {
		hook.Reset()
		rr := httptest.NewRecorder()

		writeJSON(rr, http.StatusOK, map[string]interface{}{"bad": make(chan int)})

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.WarnLevel, entry.Level)
		assert.Error(t, entry.Data[logrus.ErrorKey].(error))
	})
}
