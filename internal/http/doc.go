// Package http provides HTTP handlers and middleware for the speaker scheduling API.
//
// The router exposes the following endpoints:
//   - POST /login: issues a bearer token. Body: {"email","password"}. Response:
//     {"token","expires_at","user"} with the token also surfaced via the
//     `X-Session-Token` header and a `session_token` cookie.
//   - POST /register: creates a pending account and notifies the administrator.
//   - GET /profile, PUT /profile: the caller's own account. Sending "speaker_id"
//     links a speaker; an explicit null unlinks it.
//   - GET /speakers, POST /speakers, GET|PUT|DELETE /speakers/{id}: the speaker
//     registry exchanging `speakerDTO`. Listing accepts given_name, family_name,
//     congregation, locality and talk filters.
//   - GET /speakers/candidates?date=&q=&from=&exclude=: candidates for a program
//     form split into available and unavailable, with distances from `from`.
//   - GET /programs, POST /programs, GET|PUT|DELETE /programs/{id}: the caller's
//     programs. Saves return advisory warnings; a booked speaker yields 409 with
//     the conflicting program.
//   - GET /programs/availability, GET /programs/occupied, GET /programs.ics:
//     form pre-checks and the iCalendar export.
//   - GET /congregations[?name=], POST /congregations,
//     GET|PUT|DELETE /congregations/{id}.
//   - GET /admin/users[?role=&status=], GET /admin/users/pending, GET /admin/stats,
//     POST /admin/users/{id}/approve, POST /admin/users/{id}/reject,
//     PUT /admin/users/{id}/role.
//
// Error bodies carry an Italian `message`, a stable `error_code` and, for
// validation failures, per-field `errors`.
package http
