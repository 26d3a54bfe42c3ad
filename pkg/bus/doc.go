/*
Package bus provides the in-process message plane between browsing
contexts.

The timer widget runs as a parent page plus embedded iframes that share
one logical session. This package models that window.postMessage plane:
contexts attach to a Bus as endpoints with an optional parent, then
exchange typed messages (see types.Message) via targeted sends,
send-to-parent, and broadcast-to-children.

Delivery is asynchronous and best effort. Each endpoint owns a buffered
inbox; a full inbox drops the message rather than blocking the sender,
the same fan-out policy as an event broker. The plane is deliberately
origin-agnostic: the widget embeds on arbitrary third-party sites, so
the protocol carries no origin checks.

# Usage

	b := bus.New()
	parent := b.Attach("parent", "")
	child := b.Attach("widget", "parent")

	go func() {
		for msg := range child.Inbox() {
			// switch on msg.Type
		}
	}()

	parent.SendToChildren(types.Message{Type: types.MsgStorageSync, Storage: env})
*/
package bus
