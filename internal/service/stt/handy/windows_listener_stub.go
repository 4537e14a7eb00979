//go:build !windows

package handy

func newWinListener(Config) (winListener, error) {
	return nil, ErrUnavailable
}
