// Package mailer delivers contact-form messages to the operator inbox.
//
// A Deliverer owns one primary Transport (SMTP submission) and an
// optional secondary Transport (an HTTP-API provider). Send makes a
// single attempt on the primary and, only when that attempt timed out,
// a single attempt on the secondary. Nothing is queued or retried.
//
// Every transport reports failures as a *DeliveryError whose Kind is set
// at the step that failed, so callers never inspect error text.
package mailer
