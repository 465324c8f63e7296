package keyspace

// XAdd assigns an ID to req against the Stream at key (creating it if
// absent) and appends fields under it. On rejection, no Stream is created
// at key if one didn't already exist, and reject names the reason.
func (ks *Keyspace) XAdd(key string, req RequestedID, fields []Field, nowMS uint64) (id ID, reject Rejection) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	s, existed := ks.streams[key]
	if !existed {
		s = newStream()
	}

	id, reject = s.resolve(req, nowMS)
	if reject != RejectNone {
		return ID{}, reject
	}

	if !existed {
		ks.streams[key] = s
	}
	s.append(id, fields)
	return id, RejectNone
}

// XRange returns entries of the Stream at key with start <= id <= end. An
// absent key yields no entries.
func (ks *Keyspace) XRange(key string, start, end ID) []Entry {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	s, ok := ks.streams[key]
	if !ok {
		return nil
	}
	return s.rangeBetween(start, end)
}

// XReadAfter returns, for each key, the entries with id strictly greater
// than the corresponding startID. Keys with no new entries (including
// absent keys) are omitted from the result, matching 4.C's xread_after
// contract.
func (ks *Keyspace) XReadAfter(keys []string, startIDs []ID) []KeyEntries {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	var out []KeyEntries
	for i, key := range keys {
		s, ok := ks.streams[key]
		if !ok {
			continue
		}
		entries := s.after(startIDs[i])
		if len(entries) == 0 {
			continue
		}
		out = append(out, KeyEntries{Key: key, Entries: entries})
	}
	return out
}

// KeyEntries pairs a stream key with the entries XReadAfter found for it.
type KeyEntries struct {
	Key     string
	Entries []Entry
}
