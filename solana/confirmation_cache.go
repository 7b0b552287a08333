package solana

import (
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
)

// confirmationsCached is the number of confirmations kept, the oldest is evicted first
const confirmationsCached = 1024

// confirmationCache keeps the confirmations of submitted mints so a receipt lookup does not hit the
// rpc node again
type confirmationCache struct {
	size    int
	entries map[solana.Signature]Confirmation
	order   []solana.Signature

	m sync.RWMutex
}

func newConfirmationCache(size int) *confirmationCache {
	return &confirmationCache{
		size:    size,
		entries: make(map[solana.Signature]Confirmation, size),
	}
}

func (cc *confirmationCache) add(c Confirmation) {
	cc.m.Lock()
	defer cc.m.Unlock()

	if _, ok := cc.entries[c.Signature]; !ok {
		if len(cc.order) == cc.size {
			delete(cc.entries, cc.order[0])
			cc.order = cc.order[1:]
		}
		cc.order = append(cc.order, c.Signature)
	}
	log.Debug().Str("signature", c.Signature.String()).Uint64("slot", c.Slot).Msg("Caching confirmation")
	cc.entries[c.Signature] = c
}

// get returns nil for unknown signatures
func (cc *confirmationCache) get(sig solana.Signature) *Confirmation {
	cc.m.RLock()
	defer cc.m.RUnlock()

	c, ok := cc.entries[sig]
	if !ok {
		return nil
	}
	return &c
}
