// Package fetch retrieves asset and bank bytes.
//
// A [Transport] fetches whole resources by URL. [HTTPTransport] and
// [FileTransport] cover the common schemes and [Mux] routes between them.
// [Retrier] wraps any Transport with a linear backoff policy, and
// [RangeSource] provides random access over HTTP range requests for
// streaming handles.
package fetch
