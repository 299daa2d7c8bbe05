package ws

const (
	// client - server
	MsgPing = "ping"

	// server - client
	MsgReady         = "ready"
	MsgPong          = "pong"
	MsgBalanceUpdate = "balance_update"
)

type envelope struct {
	Type string `json:"type"`
}
