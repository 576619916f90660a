// Package core defines the wire-level types shared between the memory
// engine and its host: chat messages, extraction events, and the
// notification contract.
//
// The host owns message storage and persistence; the engine only ever
// reads messages and toggles the visibility flag on messages it hid
// itself.
package core

// Message is a single chat message as seen by the host.
//
// IsSystem doubles as the visibility flag: the host skips system
// messages during prompt assembly. A message hidden by the auto-hide
// policy is distinguishable from a genuine system message because it
// still carries speaker identity (Name / IsUser).
type Message struct {
	// Index is the message's position in the active branch, starting at 0.
	Index int `json:"index"`

	// IsUser is true for user messages, false for assistant messages.
	IsUser bool `json:"is_user"`

	// Name is the speaker's display name. Genuine system messages have
	// no speaker.
	Name string `json:"name,omitempty"`

	// Text is the message body.
	Text string `json:"text"`

	// IsSystem marks the message invisible to prompt assembly.
	IsSystem bool `json:"is_system,omitempty"`
}

// AutoHidden reports whether this message was hidden by the auto-hide
// policy, as opposed to being a genuine system message.
func (m *Message) AutoHidden() bool {
	return m.IsSystem && (m.Name != "" || m.IsUser)
}

// NotifyLevel classifies host notifications.
type NotifyLevel int

const (
	NotifyInfo NotifyLevel = iota
	NotifyWarning
	NotifyError
)

// Notifier surfaces non-blocking, user-visible notifications to the
// host (pruned-memory counts, degraded retrieval, disabled features).
// Implementations must not block.
type Notifier interface {
	Notify(level NotifyLevel, message string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(NotifyLevel, string) {}
