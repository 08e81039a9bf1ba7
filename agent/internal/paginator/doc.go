// Package paginator drives a source.Source with an offset cursor until the
// upstream log for one subscriber and window is exhausted.
//
// FetchAll never returns a Go error: transport failures and cancellation are
// recorded on the Result together with every entry accumulated so far.
package paginator
