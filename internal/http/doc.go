// Package http provides HTTP handlers and middleware for the HRM API.
//
// The router exposes the following endpoints:
//   - POST /auth/login, /auth/register, /auth/forgot-password, /auth/verify-otp:
//     public authentication endpoints. Login returns {"accessToken","tokenType",
//     "expiresAt","employee"}; the token is sent back as `Authorization: Bearer`.
//   - GET /auth/profile, POST /auth/change-password: the caller's own account.
//   - /departments, /employees, /shifts, /projects: CRUD endpoints exchanging the
//     DTOs defined next to each handler. Projects also expose
//     POST /projects/{id}/members and DELETE /projects/{id}/members/{memberId}.
//   - /tasks: creation, the scoped listings (/assigned-to-me, /in-my-projects,
//     /supervised-by-me, /overdue), PATCH /tasks/{id}/status with
//     {"status","comment"} and the subtask endpoints under /tasks/{id}/subtasks
//     and /tasks/subtasks/{id}.
//   - /comments: POST /comments, GET /comments/task/{taskId},
//     PATCH /comments/{id}/mark-as-summary?isSummary=, DELETE /comments/{id}.
//   - /timekeeping: direct check-in/check-out, the QR variants
//     POST /timekeeping/checkin/qr?token= and /timekeeping/checkout/qr?token=,
//     listing, lookup, note updates and deletion.
//   - POST /qrcode/generate: manager issued attendance token with a PNG data URL.
//   - GET /health: storage readiness check.
//
// Errors are returned as {"error_code","message","errors"} with Vietnamese
// messages.
package http
