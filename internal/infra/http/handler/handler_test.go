package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(_ context.Context) error {
	return p.err
}

func TestHealthHandler(t *testing.T) {
	t.Run("health always reports alive", func(t *testing.T) {
		h := NewHealthHandler("1.2.3", fakePinger{err: errors.New("down")}, fakePinger{})

		rec := httptest.NewRecorder()
		h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "1.2.3", body["version"])
	})

	t.Run("ready with healthy backends", func(t *testing.T) {
		h := NewHealthHandler("dev", fakePinger{}, fakePinger{})

		rec := httptest.NewRecorder()
		h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ready", body.Status)
		assert.Equal(t, "ok", body.Checks["database"])
		assert.Equal(t, "ok", body.Checks["cache"])
	})

	t.Run("ready degrades when one backend is down", func(t *testing.T) {
		h := NewHealthHandler("dev", fakePinger{}, fakePinger{err: errors.New("connection refused")})

		rec := httptest.NewRecorder()
		h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var body struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "ok", body.Checks["database"])
		assert.Equal(t, "connection refused", body.Checks["cache"])
	})
}

func TestRuleHandler_Attributes(t *testing.T) {
	h := NewRuleHandler(nil, nil)

	rec := httptest.NewRecorder()
	h.Attributes(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rules/attributes", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]struct {
		Name        string   `json:"name"`
		Type        string   `json:"type"`
		Operators   []string `json:"operators"`
		LegalValues []string `json:"legal_values"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.Contains(t, body, "asset")
	require.Contains(t, body, "finding")
	require.Contains(t, body, "scan")

	byName := map[string]int{}
	for i, attr := range body["finding"] {
		byName[attr.Name] = i
	}

	require.Contains(t, byName, "severity")
	severity := body["finding"][byName["severity"]]
	assert.Equal(t, "list", severity.Type)
	assert.Equal(t, []string{"in"}, severity.Operators)
	assert.Contains(t, severity.LegalValues, "critical")

	require.Contains(t, byName, "cvss_score")
	cvss := body["finding"][byName["cvss_score"]]
	assert.Equal(t, "numeric", cvss.Type)
	assert.ElementsMatch(t, []string{"gt", "gte", "lt", "lte"}, cvss.Operators)
	assert.Empty(t, cvss.LegalValues)

	require.Contains(t, byName, "title")
	title := body["finding"][byName["title"]]
	assert.Equal(t, "text", title.Type)
	assert.Len(t, title.Operators, 8)
}

func TestParseQueryHelpers(t *testing.T) {
	t.Run("parseQueryInt", func(t *testing.T) {
		assert.Equal(t, 5, parseQueryInt("", 5))
		assert.Equal(t, 12, parseQueryInt("12", 5))
		assert.Equal(t, 5, parseQueryInt("twelve", 5))
	})

	t.Run("parseQueryArray", func(t *testing.T) {
		assert.Nil(t, parseQueryArray(""))
		assert.Equal(t, []string{"ip", "fqdn"}, parseQueryArray("ip,fqdn"))
	})

	t.Run("parsePagination clamps", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/?page=0&per_page=1000", nil)
		p := parsePagination(r)
		assert.Equal(t, 1, p.Page)
		assert.Equal(t, 100, p.PerPage)
	})
}
