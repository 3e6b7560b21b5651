/*
Package houseclient is the entry point to the House gateway API.

# Overview

A Client is a single authenticated session. It logs in against the identity
server's OAuth2 password grant endpoint and shares the resulting bearer token
with the resource clients it owns, so every call made through the session uses
the same credentials:

	cfg := houseclient.Config{
		BaseAddress:  "https://gateway.dev.local",
		ClientID:     "house-app",
		ClientSecret: "secret",
	}

	house, err := houseclient.New(apiclient.Direct(http.DefaultClient), cfg, logger)

	res, err := house.Login(ctx, "test@test.com", "pass1")
	if err != nil {
		// the gateway could not be reached or answered garbage
	}
	if !res.Success {
		// res.Error == "invalid_grant", res.ErrorDescription explains why
	}

	page, err := house.Devices().List(ctx, 0, 25)

# Connections

New takes an apiclient.Connection. A direct connection shares one
*http.Client between the session and its sub-clients. A factory connection
asks for a client per name ("HouseClient", "DevicesClient",
"SensorLoggingClient"), which lets an apiclient.Pool give each its own
timeout and rate limit, and lets tests hand out different fakes.

# Tokens

SetAuthToken, Login and Logout change the token of the session and of every
sub-client in one step under the session's lock. Reading AuthToken on the
session or on any sub-client after one of them returns gives the same value.

ExpiresAt is captured when the token response is decoded (now + expires_in)
and never recomputed. Tokens are not refreshed automatically; call Login again
once IsAuthenticated reports false.

# Errors

Login returns an error only for transport failures (*apiclient.TransportError:
connection failures, cancelled contexts, bodies that are not JSON). A rejected
login is reported through the LoginResult. New returns *ConfigError values,
joined, for every missing or invalid Client:* key.
*/
package houseclient
