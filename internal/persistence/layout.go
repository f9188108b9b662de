// Package persistence maps containers onto the flat object store: the
// hierarchical group layout, per-element metadata documents, payload
// codecs, and the fault-isolating reader that rebuilds a container from
// a possibly damaged store.
package persistence

import (
	"fmt"
	"strings"

	"spatialcore/internal/storage/core"
	"spatialcore/pkg/domain"
)

const (
	// containerMarker identifies a group tree as a persisted container.
	containerMarker = "spatialcore-container"
	// formatVersion is bumped on incompatible layout changes.
	formatVersion = 1

	metaKey         = "meta.json"
	consolidatedKey = "consolidated.json"
	geomsKey        = "geoms.json"
	chunksGroup     = "chunks"
	colsGroup       = "cols"
)

// joinKey joins path segments with slashes, skipping empty segments so
// an empty prefix addresses the store root.
func joinKey(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, strings.Trim(p, "/"))
		}
	}
	return strings.Join(kept, "/")
}

// rootMetaKey addresses the container marker document.
func rootMetaKey(prefix string) string { return joinKey(prefix, metaKey) }

// elementKey addresses a key inside one element's subgroup.
func elementKey(prefix string, ref domain.ElementRef, parts ...string) string {
	all := append([]string{prefix, string(ref.Kind), ref.Name}, parts...)
	return joinKey(all...)
}

// boundPath renders the store binding recorded on a container after a
// successful write or read. The driver scheme keeps bindings from
// matching across different stores that happen to share a prefix.
func boundPath(store core.Store, prefix string) string {
	return fmt.Sprintf("%s://%s", store.Driver(), prefix)
}

// splitBoundPath recovers the prefix from a container binding made by
// boundPath against the same store.
func splitBoundPath(store core.Store, bound string) (string, bool) {
	scheme := string(store.Driver()) + "://"
	if !strings.HasPrefix(bound, scheme) {
		return "", false
	}
	return strings.TrimPrefix(bound, scheme), true
}

// elementNames derives the element names under one kind group from the
// store listing, preserving the store's key ordering.
func elementNames(infos []core.Info, groupPrefix string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, info := range infos {
		rest := strings.TrimPrefix(info.Key, groupPrefix)
		rest = strings.TrimPrefix(rest, "/")
		name, _, _ := strings.Cut(rest, "/")
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
