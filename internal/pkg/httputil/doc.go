// Package httputil provides the JSON response helpers shared by the API
// handlers: one error envelope, one encoder, and request decoding that
// answers 400 on malformed input.
package httputil
