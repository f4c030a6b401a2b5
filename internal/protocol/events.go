package protocol

// The following types are the unsolicited stdout events of spec §6.2.
// Each embeds its own "event" discriminator so protocol.Writer.WriteLine
// produces the correctly-tagged JSON line without a separate wrapper.

type ReadyEvent struct {
	Event           string `json:"event"`
	ProtocolVersion int    `json:"protocol_version"`
	Pubkey          string `json:"pubkey"`
	Npub            string `json:"npub"`
}

func NewReady(protocolVersion int, pubkey, npub string) ReadyEvent {
	return ReadyEvent{Event: "ready", ProtocolVersion: protocolVersion, Pubkey: pubkey, Npub: npub}
}

type KeypackagePublishedEvent struct {
	Event   string `json:"event"`
	EventID string `json:"event_id"`
}

func NewKeypackagePublished(eventID string) KeypackagePublishedEvent {
	return KeypackagePublishedEvent{Event: "keypackage_published", EventID: eventID}
}

type WelcomeReceivedEvent struct {
	Event           string `json:"event"`
	WrapperEventID  string `json:"wrapper_event_id"`
	WelcomeEventID  string `json:"welcome_event_id"`
	FromPubkey      string `json:"from_pubkey"`
	NostrGroupID    string `json:"nostr_group_id"`
	GroupName       string `json:"group_name,omitempty"`
}

type GroupJoinedEvent struct {
	Event        string `json:"event"`
	NostrGroupID string `json:"nostr_group_id"`
	MLSGroupID   string `json:"mls_group_id"`
}

func NewGroupJoined(nostrGroupID, mlsGroupID string) GroupJoinedEvent {
	return GroupJoinedEvent{Event: "group_joined", NostrGroupID: nostrGroupID, MLSGroupID: mlsGroupID}
}

type GroupCreatedEvent struct {
	Event        string `json:"event"`
	NostrGroupID string `json:"nostr_group_id"`
	MLSGroupID   string `json:"mls_group_id"`
	PeerPubkey   string `json:"peer_pubkey"`
}

type MessageReceivedEvent struct {
	Event        string `json:"event"`
	NostrGroupID string `json:"nostr_group_id"`
	FromPubkey   string `json:"from_pubkey"`
	Content      string `json:"content"`
	CreatedAt    int64  `json:"created_at"`
	MessageID    string `json:"message_id"`
}

type CallInviteReceivedEvent struct {
	Event        string `json:"event"`
	CallID       string `json:"call_id"`
	FromPubkey   string `json:"from_pubkey"`
	NostrGroupID string `json:"nostr_group_id"`
}

type CallSessionStartedEvent struct {
	Event        string `json:"event"`
	CallID       string `json:"call_id"`
	NostrGroupID string `json:"nostr_group_id"`
	FromPubkey   string `json:"from_pubkey"`
}

type CallSessionEndedEvent struct {
	Event  string `json:"event"`
	CallID string `json:"call_id"`
	Reason string `json:"reason"`
}

func NewCallSessionEnded(callID, reason string) CallSessionEndedEvent {
	return CallSessionEndedEvent{Event: "call_session_ended", CallID: callID, Reason: reason}
}

type CallDebugEvent struct {
	Event     string `json:"event"`
	CallID    string `json:"call_id"`
	TxFrames  int64  `json:"tx_frames"`
	RxFrames  int64  `json:"rx_frames"`
	RxDropped int64  `json:"rx_dropped"`
}

func NewCallDebug(callID string, txFrames, rxFrames, rxDropped int64) CallDebugEvent {
	return CallDebugEvent{Event: "call_debug", CallID: callID, TxFrames: txFrames, RxFrames: rxFrames, RxDropped: rxDropped}
}

type CallAudioChunkEvent struct {
	Event      string `json:"event"`
	CallID     string `json:"call_id"`
	AudioPath  string `json:"audio_path"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

func NewCallAudioChunk(callID, audioPath string, sampleRate, channels int) CallAudioChunkEvent {
	return CallAudioChunkEvent{
		Event: "call_audio_chunk", CallID: callID, AudioPath: audioPath,
		SampleRate: sampleRate, Channels: channels,
	}
}
