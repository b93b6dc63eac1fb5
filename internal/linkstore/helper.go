package linkstore

import (
	"fmt"
	"net/url"
)

// accountKey creates a composite key using project, provider and owner. Each
// segment is query-escaped so a "|" inside a value can never collide with the
// delimiter or bleed into another project's prefix range.
func accountKey(projectID, provider, ownerID string) []byte {
	return []byte(fmt.Sprintf("%s|%s|%s",
		url.QueryEscape(projectID), url.QueryEscape(provider), url.QueryEscape(ownerID)))
}

// projectKeyPrefix is the key range shared by all accounts of a project.
func projectKeyPrefix(projectID string) []byte {
	return []byte(url.QueryEscape(projectID) + "|")
}
