//go:build !linux

package engine

// newPoller 当前平台不支持.
func newPoller(int) (poller, error) {
	return nil, ErrNotSupported
}
