package entity

// Snapshot is the read-only view handed to the rendering layer.
type Snapshot struct {
	Chats        []*ChatSession `json:"chats"`
	ActiveChatId string         `json:"activeChatId"`
	InFlight     bool           `json:"inFlight"`
	Mode         string         `json:"mode"`
	Model        string         `json:"model"`
}
