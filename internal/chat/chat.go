// Package chat defines the client-side view of the chat service under test:
// sessions, named operations, and guild event subscriptions.
//
// The benchmark engine and the conformance suite only depend on the Client
// interface. HTTPClient talks to a real server; package chattest provides an
// in-memory implementation for tests.
package chat

import (
	"context"

	"github.com/wesleyorama2/chatload/pkg/jsonpath"
)

// Operation names a service call.
type Operation string

const (
	OpCheckLoggedIn      Operation = "check-logged-in"
	OpListGuilds         Operation = "list-guilds"
	OpCreateGuild        Operation = "create-guild"
	OpGetGuild           Operation = "get-guild"
	OpUpdateGuild        Operation = "update-guild"
	OpDeleteGuild        Operation = "delete-guild"
	OpGetGuildMembers    Operation = "get-guild-members"
	OpGetGuildRoles      Operation = "get-guild-roles"
	OpListChannels       Operation = "list-channels"
	OpCreateChannel      Operation = "create-channel"
	OpDeleteChannel      Operation = "delete-channel"
	OpCreateInvite       Operation = "create-invite"
	OpJoinGuild          Operation = "join-guild"
	OpSendMessage        Operation = "send-message"
	OpGetChannelMessages Operation = "get-channel-messages"
	OpGetMessage         Operation = "get-message"
	OpUpdateMessageText  Operation = "update-message-text"
	OpTyping             Operation = "typing"
	OpQueryPermission    Operation = "query-permission"
	OpUpdateProfile      Operation = "update-profile"
	OpGetUser            Operation = "get-user"
	OpGetEmotePacks      Operation = "get-emote-packs"

	// Media transfers are not JSON calls; the names label their errors.
	OpUploadMedia   Operation = "upload-media"
	OpDownloadMedia Operation = "download-media"
)

// Session is an authenticated handle. It is not safe to share a Session between
// goroutines that issue calls concurrently; each simulated client owns its own.
type Session struct {
	Identity string `json:"identity"`
	UserID   uint64 `json:"user_id"`
	Token    string `json:"-"`
}

// Request is a single named operation with its JSON parameters.
type Request struct {
	Op     Operation
	Params map[string]interface{}
}

// Response is the JSON body returned by a successful call.
type Response struct {
	Op   Operation
	Body []byte
}

// Uint reads an ID-like field from the response body.
func (r *Response) Uint(path string) (uint64, error) {
	return jsonpath.ExtractUint(string(r.Body), path)
}

// Uints reads every ID matched by path.
func (r *Response) Uints(path string) ([]uint64, error) {
	return jsonpath.ExtractUints(string(r.Body), path)
}

// String reads a scalar field as a string.
func (r *Response) String(path string) (string, error) {
	return jsonpath.Extract(string(r.Body), path)
}

// Count returns the length of the array at path.
func (r *Response) Count(path string) (int, error) {
	return jsonpath.Count(string(r.Body), path)
}

// Media is an uploaded file.
type Media struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Event is a server-pushed guild event.
type Event struct {
	Type    string `json:"type"`
	GuildID uint64 `json:"guild_id"`
	Payload []byte `json:"-"`
}

// EventStream is a lazy, non-restartable sequence of events.
//
// Next blocks until an event arrives, the stream fails, or ctx is done. A clean
// end of stream is reported as io.EOF; transport and server-side errors as
// *StreamError. Implementations must return promptly once ctx is cancelled.
type EventStream interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

// Client is the capability the harness needs from the service.
type Client interface {
	// Authenticate logs identity in. Rejected credentials yield *AuthError.
	Authenticate(ctx context.Context, identity, secret string) (*Session, error)

	// Register creates an account and returns a session for it.
	Register(ctx context.Context, identity, displayName, secret string) (*Session, error)

	// Call performs one operation. Failures yield *ServiceError.
	Call(ctx context.Context, s *Session, req Request) (*Response, error)

	// Subscribe opens an event subscription scoped to the given guilds.
	Subscribe(ctx context.Context, s *Session, guilds []uint64) (EventStream, error)

	// UploadMedia stores m and returns its media ID.
	UploadMedia(ctx context.Context, s *Session, m Media) (string, error)

	// DownloadMedia fetches the media stored under id.
	DownloadMedia(ctx context.Context, s *Session, id string) (*Media, error)
}
