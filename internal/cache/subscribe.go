package cache

// Subscribe registers for change notifications. The returned channel has
// room for one pending change; a subscriber that falls behind only sees
// the most recent one, which is enough to re-read Snapshot. The returned
// function unsubscribes and closes the channel; calling it twice is safe.
func (c *Cache) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 1)

	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.subMu.Unlock()

	unsubscribe := func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if existing, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(existing)
		}
	}
	return ch, unsubscribe
}

// Subscribers returns the number of active subscriptions.
func (c *Cache) Subscribers() int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return len(c.subs)
}

func (c *Cache) publish(change Change) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, ch := range c.subs {
		select {
		case ch <- change:
		default:
			// Replace the stale pending change with the latest one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- change:
			default:
			}
		}
	}
}
