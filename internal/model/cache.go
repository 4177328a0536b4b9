package model

// CacheImage stores decoded image bytes for a slot.
func (m *Model) CacheImage(slot SlotKey, data []byte) {
	m.images.Add(slot, data)
}

// CachedImage returns the cached bytes for a slot, if present.
func (m *Model) CachedImage(slot SlotKey) ([]byte, bool) {
	return m.images.Get(slot)
}

// SetThumbKey records the thumbnail cache key for a slot. The thumbnail
// bytes themselves live with the (external) rendering collaborator;
// the model only tracks which keys exist so they can be invalidated.
func (m *Model) SetThumbKey(slot SlotKey, key string) {
	m.thumbs.Add(slot, key)
}

// ThumbKey returns the thumbnail cache key for a slot, if present.
func (m *Model) ThumbKey(slot SlotKey) (string, bool) {
	return m.thumbs.Get(slot)
}

// EvictSlot drops both cache entries for a slot. Idempotent, so
// duplicate notifications from redundant detection sources are
// harmless.
func (m *Model) EvictSlot(slot SlotKey) {
	m.images.Remove(slot)
	m.thumbs.Remove(slot)
}

// PurgeCaches drops every cached entry.
func (m *Model) PurgeCaches() {
	m.images.Purge()
	m.thumbs.Purge()
}

// CachedImageCount returns the number of cached full images.
func (m *Model) CachedImageCount() int { return m.images.Len() }
