package houseclient_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/sannel/house/pkg/apiclient"
	"github.com/sannel/house/pkg/houseclient"
	"github.com/sannel/house/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestLoginResultDecode(t *testing.T) {
	t.Parallel()

	body := `{"access_token":"jwt access token","expires_in":3600,"token_type":"Bearer"}`

	before := time.Now()
	var res houseclient.LoginResult
	require.NoError(t, json.Unmarshal([]byte(body), &res))
	after := time.Now()

	require.Equal(t, "jwt access token", res.AccessToken)
	require.Equal(t, "Bearer", res.TokenType)
	require.Equal(t, int64(3600), res.ExpiresIn)
	require.False(t, res.ExpiresAt.Before(before.Add(time.Hour)))
	require.False(t, res.ExpiresAt.After(after.Add(time.Hour)))

	t.Run("re-encoding keeps the token fields", func(t *testing.T) {
		out, err := json.Marshal(&res)
		require.NoError(t, err)

		var original, again map[string]any
		require.NoError(t, json.Unmarshal([]byte(body), &original))
		require.NoError(t, json.Unmarshal(out, &again))

		require.Equal(t, original["access_token"], again["access_token"])
		require.Equal(t, original["token_type"], again["token_type"])
		require.Equal(t, original["expires_in"], again["expires_in"])
		require.NotContains(t, again, "error")
	})
}

func TestLoginResultWithoutExpiry(t *testing.T) {
	t.Parallel()

	var res houseclient.LoginResult
	require.NoError(t, json.Unmarshal([]byte(`{"access_token":"a","token_type":"Bearer"}`), &res))
	require.True(t, res.ExpiresAt.IsZero())
	require.Zero(t, res.ExpiresIn)
}

func TestLoginResultErrorBody(t *testing.T) {
	t.Parallel()

	var res houseclient.LoginResult
	require.NoError(t, json.Unmarshal([]byte(`{"error":"invalid_grant","error_description":"invalid_username_or_password"}`), &res))
	res.Settle(http.StatusBadRequest, &apiclient.ErrorResponse{
		Error:            res.Error,
		ErrorDescription: res.ErrorDescription,
	})

	require.False(t, res.Success)
	require.Equal(t, "invalid_grant", res.Error)
	require.Equal(t, "invalid_username_or_password", res.ErrorDescription)
	require.Equal(t, "invalid_grant", res.ErrorCode)
	require.Equal(t, "invalid_username_or_password", res.ErrorMessage)
	require.Empty(t, res.Data)
	require.True(t, res.ExpiresAt.IsZero())
}

func TestSetExpiresIn(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var res houseclient.LoginResult
	res.SetExpiresIn(90, now)

	require.Equal(t, int64(90), res.ExpiresIn)
	require.Equal(t, now.Add(90*time.Second), res.ExpiresAt)
}

func TestLoginResultToken(t *testing.T) {
	t.Parallel()

	var res houseclient.LoginResult
	require.NoError(t, json.Unmarshal([]byte(`{"access_token":"abc","expires_in":60,"token_type":"Bearer"}`), &res))
	require.Nil(t, res.Token(), "unsettled results have no token")

	res.Settle(http.StatusOK, nil)
	require.True(t, res.Success)
	require.Equal(t, "abc", res.Data)

	tok := res.Token()
	require.NotNil(t, tok)
	require.Equal(t, "abc", tok.AccessToken)
	require.Equal(t, "Bearer", tok.Type())
	require.Equal(t, res.ExpiresAt, tok.Expiry)
	require.True(t, tok.Valid())
}

func TestLoginResultClaims(t *testing.T) {
	t.Parallel()

	now := time.Now()
	token, err := jwtx.SignHS256(jwtx.NewAccessClaims("user-1", "X", username, []string{"devices"}, time.Hour, "iss", now),
		[]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	res := houseclient.LoginResult{AccessToken: token}
	claims, err := res.Claims()
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, username, claims.Username)
	require.True(t, claims.HasScope("devices"))

	_, err = (&houseclient.LoginResult{AccessToken: "jwt access token"}).Claims()
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}
