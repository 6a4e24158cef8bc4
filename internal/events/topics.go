package events

// Topic constants for terminal events emitted by cart sessions.
const (
	TopicSnapshotRecomputed = "cart.snapshot.recomputed"
	TopicCartCleared        = "cart.cleared"
	TopicSessionOpened      = "cart.session.opened"
	TopicSessionClosed      = "cart.session.closed"
)
