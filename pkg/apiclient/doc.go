/*
Package apiclient holds the plumbing shared by every House API client.

A Base owns the connection source, the base address and the bearer token of one
client. Higher level clients hold a Base by composition and call PostJSON or
GetJSON (or the generic Post and Get helpers) to exchange JSON with the gateway.

# Connections

A Connection is either a shared *http.Client handed in directly, or a Factory
asked for a client by name on every call:

	conn := apiclient.Direct(httpClient)
	conn := apiclient.FromFactory(pool) // pool.Client("DevicesClient")

Each concrete client uses a fixed name so a Factory such as Pool can keep one
pooled, rate limited *http.Client per client type, and tests can hand out a
different fake per name.

# Results

Response types implement Envelope. Result[T] is the generic envelope: any 2xx
response decodes into Data and sets Success, any other status sets Success to
false and fills ErrorCode and ErrorMessage from the body. Only transport faults
(connection failures, cancelled contexts, bodies that are not JSON) are returned
as errors, as a *TransportError.
*/
package apiclient
