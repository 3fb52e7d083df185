package contractgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, generatePath, r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "drafter", req.Model)
		assert.Equal(t, "escrow between two parties", req.Prompt)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{
			Code:        "pragma solidity ^0.8.0; contract Escrow {}",
			IsValidated: true,
			Warnings:    []string{"no access control on release()"},
		})
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "sk-test", Model: "drafter"})
	require.NoError(t, err)

	res, err := c.Generate(context.Background(), "escrow between two parties")
	require.NoError(t, err)
	assert.True(t, res.IsValidated)
	assert.Contains(t, res.Code, "contract Escrow")
	assert.Equal(t, []string{"no access control on release()"}, res.Warnings)
}

func TestClient_GenerateNilWarningsBecomeEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"contract A {}","is_validated":false}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	res, err := c.Generate(context.Background(), "a simple token")
	require.NoError(t, err)
	assert.NotNil(t, res.Warnings)
	assert.Empty(t, res.Warnings)
}

func TestClient_GenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"model overloaded"}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "a simple token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestClient_GenerateEmptyCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"   "}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "a simple token")
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestClient_GenerateHonoursTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"code":"late"}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "a simple token")
	assert.Error(t, err)
}
