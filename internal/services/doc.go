// Package services talks to the remote sync endpoint.
//
// # Transport
//
// [APIService] performs raw JSON requests against the API base URL. Requests are paced by a
// [rate.Limiter] so a misbehaving scheduler cannot flood the endpoint, and responses are
// returned as [APIResponse] with the body already read.
//
// # Sync Client
//
// [SyncClient] is the typed client used by the sync engine and the CLI:
//   - [SyncClient.Login], [SyncClient.Register], [SyncClient.Logout] manage the account session
//   - [SyncClient.FetchSnapshot] and [SyncClient.Upload] are GET and POST /sync
//   - [SyncClient.History] and [SyncClient.Restore] manage stored versions
//
// Authenticated requests carry the session token as a Bearer header through an [oauth2.Transport]
// over a static token source.
//
// # Sessions
//
// [SessionStore] persists the token and account to a 0600 JSON file. A session whose JWT has
// expired is treated as absent; expiry is read without verifying the signature, which only the
// server can do.
//
// # Error Handling
//
//   - [shared.ErrNotAuthenticated] : no session, an expired token, or a 401 response
//   - [shared.RemoteError] : transport failures, non-2xx responses and failed uploads
package services
