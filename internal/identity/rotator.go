package identity

import "errors"

var ErrNoIdentities = errors.New("identity list is empty")

// DefaultUserAgents are the browser identities rotated across listing pages.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:111.0) Gecko/20100101 Firefox/111.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/111.0.0.0 Safari/537.36 Edg/111.0.1661.54",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/42.0.2311.135 Safari/537.36 Edge/12.246",
}

// Rotator picks the outbound user agent for a page index.
type Rotator struct {
	userAgents []string
}

func New(userAgents []string) (*Rotator, error) {
	if len(userAgents) == 0 {
		return nil, ErrNoIdentities
	}
	list := make([]string, len(userAgents))
	copy(list, userAgents)
	return &Rotator{userAgents: list}, nil
}

// Next returns the user agent for pageIndex, cycling through the list.
func (r *Rotator) Next(pageIndex int) string {
	n := len(r.userAgents)
	return r.userAgents[((pageIndex%n)+n)%n]
}

// Len returns the number of identities in rotation.
func (r *Rotator) Len() int {
	return len(r.userAgents)
}
