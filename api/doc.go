// Package api serves the REST interface for tile grid sessions.
//
// Endpoints:
//
//	GET    /api/health
//	POST   /api/sessions                     {"config_id": "classic"}
//	GET    /api/sessions?sort=created&order=asc&limit=10
//	GET    /api/sessions/{id}
//	DELETE /api/sessions/{id}
//	GET    /api/sessions/{id}/grid
//	POST   /api/sessions/{id}/tiles          {"x": 1, "y": 2, "value": 4}
//	GET    /api/sessions/{id}/tiles/{x}/{y}
//	DELETE /api/sessions/{id}/tiles/{x}/{y}
//	POST   /api/sessions/{id}/spawn
//	POST   /api/sessions/{id}/reset
//	GET    /api/sessions/{id}/available?row=2
//	GET    /api/sessions/{id}/hints
//	GET    /api/sessions/{id}/history?page=1&limit=20&order=desc
//	GET    /api/configs
//	POST   /api/configs?id=big               engine.BoardConfig body
//	GET    /api/configs/{name}
//	GET    /ws?session={id}
//
// Rejected tile operations (out of bounds, empty cell, full board) are
// not HTTP errors: they return 200 with "success": false and a message.
// Unknown sessions return 404. Errors are JSON: {"error": "message"}.
//
// Successful mutations are pushed to WebSocket viewers of the session.
package api
