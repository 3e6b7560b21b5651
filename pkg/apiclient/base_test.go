package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sannel/house/pkg/apiclient"
	"github.com/sannel/house/pkg/httpx"
	"github.com/sannel/house/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// stubClient answers every request with status and body and hands the
// request to inspect, if set.
func stubClient(status int, body string, inspect func(*http.Request)) *http.Client {
	return &http.Client{
		Transport: httpx.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if inspect != nil {
				inspect(r)
			}
			return &http.Response{
				StatusCode: status,
				Header:     http.Header{"Content-Type": {"application/json"}},
				Body:       io.NopCloser(strings.NewReader(body)),
				Request:    r,
			}, nil
		}),
	}
}

func newBase(t *testing.T, conn apiclient.Connection) *apiclient.Base {
	t.Helper()
	b, err := apiclient.NewBase("WidgetClient", conn, "https://gateway.dev.local/", slogx.Discard())
	require.NoError(t, err)
	return b
}

func TestPostSuccess(t *testing.T) {
	t.Parallel()

	var got *http.Request
	var gotBody map[string]any
	client := stubClient(http.StatusOK, `{"id":7,"name":"lamp"}`, func(r *http.Request) {
		got = r
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	})

	b := newBase(t, apiclient.Direct(client))
	res, err := apiclient.Post[apiclient.Result[widget]](context.Background(), b, "/api/v1/Widgets", map[string]any{"name": "lamp"})
	require.NoError(t, err)

	require.True(t, res.Success)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, widget{ID: 7, Name: "lamp"}, res.Data)
	require.Empty(t, res.ErrorCode)
	require.NoError(t, res.Err())

	require.Equal(t, http.MethodPost, got.Method)
	require.Equal(t, "https://gateway.dev.local/api/v1/Widgets", got.URL.String())
	require.Equal(t, "application/json", got.Header.Get("Content-Type"))
	require.Empty(t, got.Header.Get("Authorization"))
	require.Equal(t, "lamp", gotBody["name"])
}

func TestRequestsCarryBearerToken(t *testing.T) {
	t.Parallel()

	var auth string
	client := stubClient(http.StatusOK, `{"id":1}`, func(r *http.Request) {
		auth = r.Header.Get("Authorization")
	})

	b := newBase(t, apiclient.Direct(client))
	b.SetAuthToken("abc123")
	require.Equal(t, "abc123", b.AuthToken())

	res, err := apiclient.Get[apiclient.Result[widget]](context.Background(), b, "api/v1/Widgets/1")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "Bearer abc123", auth)
}

func TestRejectedCalls(t *testing.T) {
	t.Parallel()

	t.Run("oauth error body", func(t *testing.T) {
		client := stubClient(http.StatusBadRequest, `{"error":"invalid_grant","error_description":"invalid_username_or_password"}`, nil)
		b := newBase(t, apiclient.Direct(client))

		res, err := apiclient.Post[apiclient.Result[widget]](context.Background(), b, "/x", struct{}{})
		require.NoError(t, err)
		require.False(t, res.Success)
		require.Equal(t, http.StatusBadRequest, res.StatusCode)
		require.Equal(t, "invalid_grant", res.ErrorCode)
		require.Equal(t, "invalid_username_or_password", res.ErrorMessage)
		require.Zero(t, res.Data)

		var oauthErr *apiclient.OAuth2Error
		require.ErrorAs(t, res.Err(), &oauthErr)
		require.Equal(t, apiclient.ErrorCodeInvalidGrant, oauthErr.Code)
	})

	t.Run("validation error body", func(t *testing.T) {
		client := stubClient(http.StatusUnprocessableEntity, `{"code":"validation_error","message":"name is required"}`, nil)
		b := newBase(t, apiclient.Direct(client))

		res, err := apiclient.Post[apiclient.Result[widget]](context.Background(), b, "/x", struct{}{})
		require.NoError(t, err)
		require.False(t, res.Success)
		require.Equal(t, "validation_error", res.ErrorCode)
		require.Equal(t, "name is required", res.ErrorMessage)
	})

	t.Run("payload shaped error body is not kept as data", func(t *testing.T) {
		client := stubClient(http.StatusConflict, `{"id":3,"name":"dup"}`, nil)
		b := newBase(t, apiclient.Direct(client))

		res, err := apiclient.Get[apiclient.Result[widget]](context.Background(), b, "/x")
		require.NoError(t, err)
		require.False(t, res.Success)
		require.Zero(t, res.Data)
		require.Equal(t, apiclient.ErrorCodeServerError, res.ErrorCode)
	})

	t.Run("empty body", func(t *testing.T) {
		client := stubClient(http.StatusServiceUnavailable, ``, nil)
		b := newBase(t, apiclient.Direct(client))

		res, err := apiclient.Get[apiclient.Result[widget]](context.Background(), b, "/x")
		require.NoError(t, err)
		require.False(t, res.Success)
		require.Equal(t, apiclient.ErrorCodeServerError, res.ErrorCode)
		require.Equal(t, "HTTP 503: Service Unavailable", res.ErrorMessage)
	})
}

func TestTransportErrors(t *testing.T) {
	t.Parallel()

	t.Run("empty success body", func(t *testing.T) {
		for _, body := range []string{``, "  \n"} {
			client := stubClient(http.StatusOK, body, nil)
			b := newBase(t, apiclient.Direct(client))

			res, err := apiclient.Get[apiclient.Result[widget]](context.Background(), b, "/x")
			require.Nil(t, res)
			var te *apiclient.TransportError
			require.ErrorAs(t, err, &te)
			require.Equal(t, "decode", te.Op)
			require.Equal(t, http.StatusOK, te.StatusCode)
		}
	})

	t.Run("oversized body", func(t *testing.T) {
		body := `"` + strings.Repeat("a", apiclient.MaxResponseBytes) + `"`
		client := stubClient(http.StatusOK, body, nil)
		b := newBase(t, apiclient.Direct(client))

		_, err := apiclient.Get[apiclient.Result[string]](context.Background(), b, "/x")
		var te *apiclient.TransportError
		require.ErrorAs(t, err, &te)
		require.Equal(t, "read", te.Op)
		require.ErrorContains(t, err, "exceeds")
	})

	t.Run("body at the limit", func(t *testing.T) {
		body := `"` + strings.Repeat("a", apiclient.MaxResponseBytes-2) + `"`
		client := stubClient(http.StatusOK, body, nil)
		b := newBase(t, apiclient.Direct(client))

		res, err := apiclient.Get[apiclient.Result[string]](context.Background(), b, "/x")
		require.NoError(t, err)
		require.Len(t, res.Data, apiclient.MaxResponseBytes-2)
	})

	t.Run("non JSON error body", func(t *testing.T) {
		client := stubClient(http.StatusBadGateway, `<html>bad gateway</html>`, nil)
		b := newBase(t, apiclient.Direct(client))

		_, err := apiclient.Get[apiclient.Result[widget]](context.Background(), b, "/x")
		var te *apiclient.TransportError
		require.ErrorAs(t, err, &te)
		require.Equal(t, "decode", te.Op)
		require.Equal(t, http.StatusBadGateway, te.StatusCode)
	})

	t.Run("malformed success body", func(t *testing.T) {
		client := stubClient(http.StatusOK, `{"id":`, nil)
		b := newBase(t, apiclient.Direct(client))

		_, err := apiclient.Get[apiclient.Result[widget]](context.Background(), b, "/x")
		var te *apiclient.TransportError
		require.ErrorAs(t, err, &te)
		require.Equal(t, "decode", te.Op)
	})

	t.Run("connection failure", func(t *testing.T) {
		boom := errors.New("connection refused")
		client := &http.Client{Transport: httpx.RoundTripperFunc(func(*http.Request) (*http.Response, error) {
			return nil, boom
		})}
		b := newBase(t, apiclient.Direct(client))

		_, err := apiclient.Get[apiclient.Result[widget]](context.Background(), b, "/x")
		var te *apiclient.TransportError
		require.ErrorAs(t, err, &te)
		require.Equal(t, "send", te.Op)
		require.ErrorIs(t, err, boom)
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer srv.Close()

		b, err := apiclient.NewBase("WidgetClient", apiclient.Direct(srv.Client()), srv.URL, slogx.Discard())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = apiclient.Get[apiclient.Result[widget]](ctx, b, "/x")
		var te *apiclient.TransportError
		require.ErrorAs(t, err, &te)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestFactoryConnection(t *testing.T) {
	t.Parallel()

	var asked []string
	factory := apiclient.FactoryFunc(func(name string) *http.Client {
		asked = append(asked, name)
		if name == "WidgetClient" {
			return stubClient(http.StatusOK, `{"id":1}`, nil)
		}
		return nil
	})

	b := newBase(t, apiclient.FromFactory(factory))
	res, err := apiclient.Get[apiclient.Result[widget]](context.Background(), b, "/x")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, []string{"WidgetClient"}, asked)

	other, err := apiclient.NewBase("GadgetClient", apiclient.FromFactory(factory), "https://gateway.dev.local", nil)
	require.NoError(t, err)

	_, err = apiclient.Get[apiclient.Result[widget]](context.Background(), other, "/x")
	var te *apiclient.TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "connect", te.Op)
	require.ErrorIs(t, err, apiclient.ErrNoConnection)
}

func TestNewBaseValidation(t *testing.T) {
	t.Parallel()

	direct := apiclient.Direct(http.DefaultClient)

	_, err := apiclient.NewBase("x", apiclient.Connection{}, "https://gateway.dev.local", nil)
	require.ErrorIs(t, err, apiclient.ErrNoConnection)

	_, err = apiclient.NewBase("x", apiclient.Direct(nil), "https://gateway.dev.local", nil)
	require.ErrorIs(t, err, apiclient.ErrNoConnection)

	_, err = apiclient.NewBase("x", apiclient.FromFactory(nil), "https://gateway.dev.local", nil)
	require.ErrorIs(t, err, apiclient.ErrNoConnection)

	for _, addr := range []string{"", "gateway.dev.local", "ftp://gateway.dev.local", "https://", "https://gateway.dev.local/?a=b"} {
		_, err := apiclient.NewBase("x", direct, addr, nil)
		require.Error(t, err, "address %q", addr)
	}

	b, err := apiclient.NewBase("x", direct, "https://gateway.dev.local/house/", nil)
	require.NoError(t, err)
	require.Equal(t, "https://gateway.dev.local/house", b.BaseAddress())
	require.Equal(t, "x", b.Name())
}
