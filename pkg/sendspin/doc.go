// ABOUTME: High-level Sendspin player library API
// ABOUTME: Wires discovery, decoding, and audio output behind a small Player surface
// Package sendspin provides a high-level player endpoint for the Sendspin
// synchronized multi-room audio protocol: discover or connect to a server,
// negotiate a session, keep a synchronized clock, and render the resulting
// audio to a local sink or an HTTP stream.
//
// For lower-level control, see internal/supervisor and its collaborator
// interfaces (Discovery, Decoder, Sink, Observer, ArtworkResolver).
//
// Example:
//
//	player, err := sendspin.NewPlayer(sendspin.PlayerConfig{
//	    PlayerName: "Living Room",
//	    Volume:     80,
//	    OnMetadata: func(m sendspin.Metadata) { fmt.Println(m.Title) },
//	})
//	err = player.Connect()
//	defer player.Close()
package sendspin
