// Package codec translates between wire messages of the push channel and
// the domain values of the tracking hub.
//
// The codec validates and rejects; it never retries. Every decoding failure
// wraps errs.ErrInvalidPayload and callers drop the message.
package codec
