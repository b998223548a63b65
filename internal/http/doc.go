// Package http provides HTTP handlers and middleware for the event portal API.
//
// The router exposes the following endpoints:
//   - POST /sessions: issues a session token. Body: {"email","password"}. Response:
//     {"token","expires_at","user"} with the token also surfaced via the
//     `X-Session-Token` header and a `session_token` cookie.
//   - GET /sessions/current, DELETE /sessions/current: inspect or revoke the
//     current session. The token is extracted from the Authorization header or
//     the session cookie; deletion returns 204 No Content and clears the cookie.
//   - GET /events, POST /events, GET /events/{id}, PATCH /events/{id},
//     DELETE /events/{id}: event management endpoints exchanging the `eventDTO`
//     payload defined in event_handler.go. Listing supports status, category,
//     organizer_id, offset and limit query parameters.
//   - GET /events/{id}/ticket-types, POST /events/{id}/ticket-types plus
//     GET/PATCH/DELETE /ticket-types/{id}: ticket tier endpoints exchanging the
//     `ticketTypeDTO` payload defined in ticket_handler.go. Deleting a tier with
//     sold tickets is rejected with a conflict.
//   - GET /events/{id}/attendees, POST /events/{id}/attendees plus
//     GET /attendees/{id}, PUT /attendees/{id}/check-in and
//     PUT /attendees/{id}/payment: registration endpoints exchanging the
//     `attendeeDTO` payload defined in attendee_handler.go.
//   - GET /events/{id}/analytics, POST /events/{id}/analytics/views: per-event
//     analytics snapshot retrieval and page-view recording, defined in
//     analytics_handler.go.
//   - GET /events/{id}/campaigns, POST /events/{id}/campaigns plus
//     GET/PATCH/DELETE /campaigns/{id} and POST /campaigns/{id}/send: promotion
//     campaign endpoints exchanging the `campaignDTO` payload defined in
//     campaign_handler.go.
//   - GET /metrics: Prometheus metrics when a metrics handler is configured.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
