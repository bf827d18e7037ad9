package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Dump writes a human-readable representation of the cache
func (fs *FileStore) Dump(w io.Writer) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fmt.Fprintf(w, "=== Cache Dump ===\n\n")

	fmt.Fprintf(w, "Metadata:\n")
	fmt.Fprintf(w, "  File:         %s\n", fs.path)
	fmt.Fprintf(w, "  Version:      %d\n", fs.data.Metadata.Version)
	fmt.Fprintf(w, "  Created:      %s\n", fs.data.Metadata.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Last Updated: %s\n\n", fs.data.Metadata.LastUpdated.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(w, "Entries:\n")
	if len(fs.data.Entries) == 0 {
		fmt.Fprintf(w, "  (none)\n")
	}

	keys := make([]string, 0, len(fs.data.Entries))
	for k := range fs.data.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		var e Entry
		if err := json.Unmarshal(fs.data.Entries[k], &e); err != nil {
			fmt.Fprintf(w, "  %s: unreadable (%v)\n", k, err)
			continue
		}
		switch {
		case e.List != nil:
			fmt.Fprintf(w, "  %s: %d cycles, fetched %s\n", k, len(e.List.Items), e.FetchedAt.Format("2006-01-02 15:04:05"))
		case e.Detail != nil:
			fmt.Fprintf(w, "  %s: cycle %d, fetched %s\n", k, e.Detail.CycleNumber, e.FetchedAt.Format("2006-01-02 15:04:05"))
		default:
			fmt.Fprintf(w, "  %s: empty, fetched %s\n", k, e.FetchedAt.Format("2006-01-02 15:04:05"))
		}
	}

	fmt.Fprintf(w, "\n=== End Cache Dump ===\n")
}
