// Package websocket pushes live board updates to browser viewers.
//
// A single Hub groups connections by session ID. Clients connect with
// ?session=<id> and receive JSON messages whenever that session's grid
// changes:
//
//	{"session_id":"ab12","event":"grid_update","grid":{"size":4,"cells":[...]}}
//	{"session_id":"ab12","event":"grid_event","data":[{"type":"spawn",...}]}
//
// Connections are read-only. Incoming frames are discarded and only keep
// the connection alive alongside ping/pong.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run()
//	defer hub.Stop()
//
//	hub.BroadcastToSession(sessionID, grid.Serialize())
package websocket
