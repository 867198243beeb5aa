// ABOUTME: Sendspin protocol message type definitions
// ABOUTME: Defines structs for every JSON message type the player sends or receives
package protocol

// Message is the top-level wrapper for all protocol text messages.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ClientHello is sent by clients to initiate the handshake.
type ClientHello struct {
	ClientID       string      `json:"client_id"`
	Name           string      `json:"name"`
	Version        int         `json:"version"`
	SupportedRoles []string    `json:"supported_roles"`
	DeviceInfo     *DeviceInfo `json:"device_info,omitempty"`

	PlayerV1Support     *PlayerV1Support     `json:"player@v1_support,omitempty"`
	ArtworkV1Support    *ArtworkV1Support    `json:"artwork@v1_support,omitempty"`
	VisualizerV1Support *VisualizerV1Support `json:"visualizer@v1_support,omitempty"`

	// Unversioned duplicates for servers that pre-date the @v1 key names.
	PlayerSupport     *PlayerV1Support     `json:"player_support,omitempty"`
	ArtworkSupport    *ArtworkV1Support    `json:"artwork_support,omitempty"`
	VisualizerSupport *VisualizerV1Support `json:"visualizer_support,omitempty"`
}

// DeviceInfo contains device identification.
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// PlayerV1Support describes player-role capabilities.
type PlayerV1Support struct {
	SupportedFormats  []AudioFormat `json:"supported_formats,omitempty"`
	BufferCapacity    int           `json:"buffer_capacity,omitempty"`
	SupportedCommands []string      `json:"supported_commands,omitempty"`

	// Separate-array form kept for servers that index formats by position
	// across parallel arrays instead of a list of objects.
	SupportCodecs      []string `json:"support_codecs,omitempty"`
	SupportChannels    []int    `json:"support_channels,omitempty"`
	SupportSampleRates []int    `json:"support_sample_rates,omitempty"`
	SupportBitDepth    []int    `json:"support_bit_depth,omitempty"`
}

// ArtworkChannel describes one artwork delivery channel.
type ArtworkChannel struct {
	Source      string `json:"source"`
	Format      string `json:"format"`
	MediaWidth  int    `json:"media_width,omitempty"`
	MediaHeight int    `json:"media_height,omitempty"`
}

// ArtworkV1Support describes artwork-role capabilities.
type ArtworkV1Support struct {
	Channels []ArtworkChannel `json:"channels,omitempty"`
}

// VisualizerV1Support describes visualizer-role capabilities.
type VisualizerV1Support struct {
	BufferCapacity int `json:"buffer_capacity,omitempty"`
}

// AudioFormat describes a supported audio format.
type AudioFormat struct {
	Codec      string `json:"codec"`
	Channels   int    `json:"channels"`
	SampleRate int    `json:"sample_rate"`
	BitDepth   int    `json:"bit_depth"`
}

// ServerHello is the server's response to client/hello.
type ServerHello struct {
	ServerID    string   `json:"server_id"`
	Name        string   `json:"name"`
	Version     int      `json:"version"`
	ActiveRoles []string `json:"active_roles,omitempty"`
}

// PlayerState is the player object nested in client/state.
type PlayerState struct {
	State  string `json:"state"`
	Volume int    `json:"volume"`
	Muted  bool   `json:"muted"`
}

// ClientState is sent as client/state, reporting local player status.
type ClientState struct {
	Player PlayerState `json:"player"`
}

// PlayerCommand is the player object nested in server/command.
type PlayerCommand struct {
	Command string `json:"command"`
	Volume  int    `json:"volume,omitempty"`
	Mute    bool   `json:"mute,omitempty"`
}

// ServerCommand is a control message from the server (server/command).
type ServerCommand struct {
	Player PlayerCommand `json:"player"`
}

// StreamStartPlayer is the player object nested in stream/start.
type StreamStartPlayer struct {
	Codec       string `json:"codec"`
	SampleRate  int    `json:"sample_rate"`
	Channels    int    `json:"channels"`
	BitDepth    int    `json:"bit_depth"`
	CodecHeader string `json:"codec_header,omitempty"`
}

// StreamStart notifies the client of stream format (stream/start).
type StreamStart struct {
	Player StreamStartPlayer `json:"player"`
}

// ProgressState describes playback position within the current track.
type ProgressState struct {
	TrackProgress int `json:"track_progress"`
	TrackDuration int `json:"track_duration"`
	PlaybackSpeed int `json:"playback_speed"`
}

// MetadataState is the metadata object nested in server/state.
type MetadataState struct {
	Title       *string        `json:"title,omitempty"`
	Artist      *string        `json:"artist,omitempty"`
	AlbumArtist *string        `json:"album_artist,omitempty"`
	Album       *string        `json:"album,omitempty"`
	ArtworkURL  *string        `json:"artwork_url,omitempty"`
	Year        *int           `json:"year,omitempty"`
	Track       *int           `json:"track,omitempty"`
	Progress    *ProgressState `json:"progress,omitempty"`
	Repeat      *string        `json:"repeat,omitempty"`
	Shuffle     *bool          `json:"shuffle,omitempty"`
}

// ControllerState is the controller object nested in server/state.
type ControllerState struct {
	PlaybackState *string `json:"playback_state,omitempty"`
}

// ServerState carries metadata and/or playback state updates (server/state).
type ServerState struct {
	Metadata   *MetadataState   `json:"metadata,omitempty"`
	Controller *ControllerState `json:"controller,omitempty"`
}

// GroupUpdate mirrors group-wide playback state (group/update).
type GroupUpdate struct {
	PlaybackState string `json:"playback_state"`
}

// SessionUpdate mirrors session-wide playback state (session/update).
type SessionUpdate struct {
	PlaybackState string `json:"playback_state"`
}

// StreamClear instructs the player to flush buffered audio for a seek
// (stream/clear, empty payload).
type StreamClear struct{}

// StreamEnd ends the current stream (stream/end, empty payload).
type StreamEnd struct{}

// ClientGoodbye announces a graceful disconnect (client/goodbye).
type ClientGoodbye struct {
	Reason string `json:"reason"`
}

// ClientTime is sent for clock synchronization (client/time).
type ClientTime struct {
	ClientTransmitted int64 `json:"client_transmitted"`
}

// ServerTime is the response to client/time (server/time).
type ServerTime struct {
	ClientTransmitted int64 `json:"client_transmitted"`
	ServerReceived    int64 `json:"server_received"`
	ServerTransmitted int64 `json:"server_transmitted"`
}
