// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

/*
Package websocket fans marathon updates out to live viewers.

Key Components:

  - Hub: single goroutine owning the viewer set; joins, leaves and broadcasts
  - Client: one gorilla/websocket connection with a read and a write pump
  - Message: {type, data} envelope

Architecture:

	Aggregator --Broadcast--> Hub --send buffers--> Client1, Client2, ...

Broadcast never drops an update on the way into the hub; it blocks until the
hub loop takes it. From the hub to each viewer the send is non-blocking: a
viewer whose buffer is full is disconnected and has to reconnect, which gets
it a fresh snapshot. One slow viewer therefore cannot stall the aggregator or
the other viewers.

Joining:

A joining viewer is registered inside the hub loop, where the snapshot is
taken and queued as initialData in the same step. The snapshot's sequence is
remembered and later updates with a sequence at or below it are skipped for
that viewer, so a viewer never misses or double-counts an update around the
moment it joins.

Message Types:

  - initialData: {sequence, data} where data is the MarathonState the
    viewer starts from
  - update: {sequence, reading, data} where data is the MarathonState
    after reading was applied
  - ping: sent by viewers; answered with pong
  - pong: reply to ping

Usage Example:

	hub := websocket.NewHub(agg, websocket.DefaultSendBuffer)
	go hub.RunWithContext(ctx)

	upgrader := &gorillaws.Upgrader{}
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
	    websocket.ServeWS(hub, upgrader, w, r)
	})
*/
package websocket
