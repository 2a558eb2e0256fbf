package constant

const (
	// Realtime event names, shared with the backend push channel.
	EventAuthenticate    = "authenticate"
	EventAuthSuccess     = "authSuccess"
	EventAuthError       = "authError"
	EventCreateSession   = "createSession"
	EventSessionCreated  = "sessionCreated"
	EventJoinSession     = "joinSession"
	EventSessionJoined   = "sessionJoined"
	EventSendMessage     = "sendMessage"
	EventMessageResponse = "messageResponse"
	EventError           = "error"

	// Realtime transport selection.
	TransportWebsocket = "websocket"
	TransportNats      = "nats"

	// Topic for the in-process event bus between the channel and the
	// sync dispatcher.
	RealtimeEventsTopic = "REALTIME_EVENTS"

	// NATS subjects (alternate transport).
	NatsAuthenticateSubject = "chat.authenticate"
	NatsCommandSubject      = "chat.commands"
	NatsPushSubjectPrefix   = "chat.push." // + userId

	MaxSessionTitleLength = 120

	// Keys for the pluggable key-value persistence layer.
	KVLastUserIdKey    = "last_user_id"
	KVLastSessionIdKey = "last_session_id"
)
