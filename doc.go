// Package realtime provides a client for topic-based publish/subscribe
// messaging over a persistent websocket connection to a Realtime Pub/Sub
// gateway.
//
// Architecture:
//   - Emitter: wildcard event dispatch ('*' matches one segment, '**' matches
//     any number, '.' separates segments)
//   - Wait: one-shot futures that resolve with an event's payload or fail
//     with a timeout
//   - WaitFor: per-message correlation of acknowledgments and replies
//   - Client: connection lifecycle (connect, reconnect with exponential
//     backoff, disconnect) and outbound subscribe/unsubscribe/publish/send
//   - Pluggable transport (websocket for production, in-memory channel for
//     tests) and wire codec (JSON default, MessagePack available)
//
// Basic example:
//
//	client, err := realtime.NewClient(func(ctx context.Context) (string, error) {
//	    return "wss://genesis.r7.21no.de/apps/demo?signature=" + sign(), nil
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client.On("session.started", func(args ...any) {
//	    client.SubscribeRemoteTopic(ctx, "chat")
//	})
//	client.Connect(ctx)
//
//	// Publish and wait for the gateway acknowledgment
//	wf, err := client.Publish(ctx, "chat", "hello out there", "text-message")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := wf.WaitForAck(0).Result(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Incoming messages are dispatched under "<topic>.<messageType>" together
// with a ReplyFunc the listener can use to answer the sender:
//
//	client.On("chat.*", func(args ...any) {
//	    msg := args[0].(*realtime.IncomingMessage)
//	    reply := args[1].(realtime.ReplyFunc)
//	    reply(ctx, "got it", "ok", false)
//	})
//
// Synthetic events: "session.started" (connection info), "error" (transport
// or decode failure), "close" (close info).
//
// Client Options:
//   - WithDialer: set transport dialer. Default is the websocket transport.
//   - WithCodec: set wire codec. Default is JSON.
//   - WithLogger: set logger for the client.
//   - WithMaxReconnectBackoff / WithInitialReconnectBackoff: reconnect policy.
//   - WithReadLimit: max inbound frame size. Default is 65536 bytes.
//   - WithWorkerPoolSize: bounded pool used by Async listeners.
//   - WithPublishRateLimit: optional token-bucket limit on outbound messages.
//   - WithMetrics: enable/disable OpenTelemetry metrics. Default is true.
//
// Reconnect policy: the client does NOT resubscribe topics after a
// reconnect. Register a "session.started" listener and resubscribe there;
// SubscribedTopics reports the topics subscribed so far.
package realtime
