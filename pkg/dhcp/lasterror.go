package dhcp

import "sync"

// LastErrors holds the most recent client message per family. The zero
// value is ready to use. Concurrent writers on one family race and the last
// one wins.
type LastErrors struct {
	mu    sync.RWMutex
	slots map[Family]string
}

func (l *LastErrors) Set(f Family, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.slots == nil {
		l.slots = make(map[Family]string, len(Families))
	}
	l.slots[f] = msg
}

func (l *LastErrors) Get(f Family) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.slots[f]
}

func (l *LastErrors) All() map[Family]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[Family]string, len(Families))
	for _, f := range Families {
		out[f] = l.slots[f]
	}
	return out
}
