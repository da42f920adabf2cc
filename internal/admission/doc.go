// Package admission decides whether a request may proceed.
//
// Each request is classified in a fixed order: bot signature, attack
// signature (shield), then a sliding-window rate limit keyed by role and
// client. The first classifier that objects determines the denial reason.
// Errors from the counting store are returned to the caller, which must
// treat them as a denial.
package admission
