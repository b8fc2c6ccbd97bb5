// Package project implements the portfolio project workflow: upload an
// image, persist the record, list newest first, delete with best-effort
// image cleanup.
//
// It depends on the Repository and ImageStore interfaces defined here and
// never imports from api/. Repository implementations live in
// repository/dynamo/, repository/postgres/ and repository/memory/.
package project
